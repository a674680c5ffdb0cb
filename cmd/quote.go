package cmd

import (
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"zrx-settle/pkg/parser"
	"zrx-settle/pkg/units"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount|all> <sell-token> to <buy-token>",
	Short: "Fetch and check a quote without sending anything",
	Long: `Fetch a quote for a swap and check it against the settlement contract and
your balance. No transaction is sent.

Examples:
  zrx-settle quote 0.1 WETH to DAI
  zrx-settle quote all USDC to WETH --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
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
	checkErr := preview.Check()

	if a.json {
		q := preview.Quote
		out := map[string]interface{}{
			"network":          a.network.Name,
			"flow":             preview.Flow.String(),
			"sell_token":       preview.Sell.Symbol,
			"sell_token_addr":  q.SellTokenAddress.Hex(),
			"buy_token":        preview.Buy.Symbol,
			"buy_token_addr":   q.BuyTokenAddress.Hex(),
			"sell_amount":      units.ToDecimalAmount(preview.SellAmount, preview.Sell.Decimals),
			"buy_amount":       units.ToDecimalAmount(q.BuyAmountBase(), preview.Buy.Decimals),
			"price":            q.Price.String(),
			"guaranteed_price": q.GuaranteedPrice.String(),
			"to":               q.To.Hex(),
			"allowance_target": q.AllowanceTarget.Hex(),
			"contract_target":  preview.State.SwapTarget.Hex(),
			"estimated_gas":    q.EstimatedGas.String(),
			"valid":            checkErr == nil,
		}
		if checkErr != nil {
			out["error"] = checkErr.Error()
		}
		printJSON(out)
		return nil
	}

	displayQuote(preview, a.network.Name)
	if checkErr != nil {
		return checkErr
	}
	color.Green("Quote is consistent with the settlement contract and your balance.\n")
	return nil
}
