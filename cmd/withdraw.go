package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"zrx-settle/pkg/parser"
	"zrx-settle/pkg/scenario"
)

var withdrawTo string

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <token> [token...]",
	Short: "Withdraw collected fees from the settlement contract",
	Long: `Withdraw the fees the settlement contract collected in each token to the
fee recipient. Token addresses are discovered by quoting each token against
the network's wrapped token first. One failed withdrawal does not stop the
others.

Examples:
  zrx-settle withdraw DAI USDC WETH
  zrx-settle withdraw DAI --to 0xd2bf9C5D18d2f6819F2c13F3A32fcFc3C9DBD2e7`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWithdraw,
}

func init() {
	rootCmd.AddCommand(withdrawCmd)

	withdrawCmd.Flags().StringVar(&withdrawTo, "to", "", "Recipient address (default fee_recipient from config)")
}

func runWithdraw(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var recipient common.Address
	if withdrawTo != "" {
		if !common.IsHexAddress(withdrawTo) {
			return errors.Errorf("--to %q is not a valid address", withdrawTo)
		}
		recipient = common.HexToAddress(withdrawTo)
	} else if recipient, err = a.network.FeeRecipientAddress(); err != nil {
		return err
	}

	c, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	runner, err := a.runner(c)
	if err != nil {
		return err
	}

	symbols := make([]string, 0, len(args))
	for _, arg := range args {
		symbol := parser.NormalizeTokenSymbol(arg)
		partner := parser.NormalizeTokenSymbol(a.network.WrappedToken)
		if symbol == partner {
			partner = parser.NormalizeTokenSymbol(a.network.NativeSymbol)
		}
		stop := a.spin(fmt.Sprintf("Discovering %s...", symbol))
		_, _, err := runner.Discover(ctx, symbol, partner)
		stop()
		if err != nil {
			a.log.WithError(err).WithField("token", symbol).Warn("could not discover token address")
		}
		symbols = append(symbols, symbol)
	}

	stop := a.spin("Withdrawing fees...")
	outcomes := runner.WithdrawFees(ctx, symbols, recipient)
	stop()

	var failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}

	if a.json {
		out := make([]map[string]interface{}, 0, len(outcomes))
		for _, o := range outcomes {
			out = append(out, withdrawOutput(o))
		}
		printJSON(out)
	} else {
		fmt.Printf("\nFees withdrawn to %s\n\n", color.CyanString(recipient.Hex()))
		displayWithdrawals(outcomes)
		fmt.Println()
	}

	if failed > 0 {
		return errors.Errorf("%d of %d fee withdrawals failed", failed, len(outcomes))
	}
	return nil
}

func withdrawOutput(o scenario.WithdrawOutcome) map[string]interface{} {
	out := map[string]interface{}{"token": o.Symbol}
	if o.Err != nil {
		out["error"] = o.Err.Error()
		return out
	}
	out["amount"] = o.Withdrawal.Withdrawn
	out["amount_base"] = o.Withdrawal.Amount.String()
	out["tx"] = o.Withdrawal.TxHash.Hex()
	return out
}

func displayWithdrawals(outcomes []scenario.WithdrawOutcome) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tAMOUNT\tTX / ERROR")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "%s\t-\t%s\n", o.Symbol, color.RedString(truncateString(o.Err.Error(), 80)))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", o.Symbol, color.GreenString(o.Withdrawal.Withdrawn), o.Withdrawal.TxHash.Hex())
	}
	w.Flush()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
