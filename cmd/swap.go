package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"zrx-settle/pkg/parser"
	"zrx-settle/pkg/scenario"
	"zrx-settle/pkg/settlement"
	"zrx-settle/pkg/types"
	"zrx-settle/pkg/units"
)

var noConfirm bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount|all> <sell-token> to <buy-token>",
	Short: "Quote, check and settle a swap",
	Long: `Swap tokens through the settlement contract.

The quote is checked against the contract's configured swap target and your
balance before anything is sent. The settlement contract is then approved for
the exact sell amount (not needed when selling the native currency) and the
quote is filled. The bought amount reported is the one the contract emitted.

Examples:
  zrx-settle swap 0.1 WETH to DAI
  zrx-settle swap all DAI to WETH
  zrx-settle swap 0.05 ETH to USDC --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) error {
	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		return err
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	c, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	runner, err := a.runner(c)
	if err != nil {
		return err
	}

	stop := a.spin("Fetching quote...")
	preview, err := runner.Quote(ctx, *swapReq)
	stop()
	if err != nil {
		return err
	}

	if !a.json {
		displayQuote(preview, a.network.Name)
	}
	if preview.Check() != nil {
		// settling records the rejection; nothing is sent
		_, err := runner.Settle(ctx, preview)
		return err
	}

	if !noConfirm && !a.json {
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			return nil
		}
	}

	stop = a.spin("Settling swap...")
	result, err := runner.Settle(ctx, preview)
	stop()
	if err != nil {
		return err
	}

	if a.json {
		printJSON(swapOutput(result))
		return nil
	}
	displayFill(result)
	return nil
}

func swapOutput(r *scenario.SwapResult) map[string]interface{} {
	out := map[string]interface{}{
		"sell_token":     r.Sell.Symbol,
		"buy_token":      r.Buy.Symbol,
		"flow":           r.Swap.Flow.String(),
		"sold":           r.Sold,
		"bought":         r.Fill.Bought,
		"bought_base":    r.Fill.BoughtAmount.String(),
		"estimated_base": r.Fill.EstimatedAmount.String(),
		"fill_tx":        r.Fill.FillTx.Hex(),
		"state":          r.Swap.State.String(),
	}
	if r.Swap.Flow != settlement.SellNative {
		out["approve_tx"] = r.Fill.ApproveTx.Hex()
	}
	return out
}

func displayQuote(p *scenario.Preview, network string) {
	q := p.Quote

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Network:           %s\n", network)
	fmt.Printf("  Sell:              %s %s\n", units.ToDecimalAmount(p.SellAmount, p.Sell.Decimals), color.YellowString(p.Sell.Symbol))
	fmt.Printf("  Buy:               ~%s %s\n", units.ToDecimalAmount(q.BuyAmountBase(), p.Buy.Decimals), color.YellowString(p.Buy.Symbol))
	fmt.Printf("  Price:             %s\n", q.Price.String())
	fmt.Printf("  Guaranteed Price:  %s\n", q.GuaranteedPrice.String())
	fmt.Printf("  Flow:              %s\n", p.Flow)
	fmt.Printf("  Swap Target:       %s\n", color.CyanString(q.To.Hex()))
	if gp := q.GasPriceWei(); gp != nil {
		fmt.Printf("  Gas Price:         %s gwei\n", units.ToDecimalAmount(gp, 9))
	}
	if !types.IsNative(p.Sell.Address) {
		fmt.Printf("  Balance:           %s %s\n", units.ToDecimalAmount(p.Balance, p.Sell.Decimals), p.Sell.Symbol)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displayFill(r *scenario.SwapResult) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP SETTLED")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Sold:              %s %s\n", r.Sold, color.YellowString(r.Sell.Symbol))
	fmt.Printf("  Bought:            %s %s\n", color.GreenString(r.Fill.Bought), color.YellowString(r.Buy.Symbol))
	if r.Fill.EstimatedAmount.Cmp(r.Fill.BoughtAmount) != 0 {
		fmt.Printf("  Quoted:            ~%s %s\n", units.ToDecimalAmount(r.Fill.EstimatedAmount, r.Buy.Decimals), r.Buy.Symbol)
	}
	if r.Swap.Flow != settlement.SellNative {
		fmt.Printf("  Approve Tx:        %s\n", color.HiBlackString(r.Fill.ApproveTx.Hex()))
	}
	fmt.Printf("  Fill Tx:           %s\n", color.HiBlackString(r.Fill.FillTx.Hex()))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
