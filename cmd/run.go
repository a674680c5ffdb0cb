package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"zrx-settle/pkg/scenario"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the network test scenario",
	Long: `Run the full scenario configured for the network:

  1. buy token1 with sell_amount of the wrapped token
  2. buy token2 with sell_amount of the wrapped token
  3. sell all token1 back to the wrapped token
  4. sell all token2 back to the wrapped token
  5. withdraw the fees collected on token2, token1 and the wrapped token
     to fee_recipient

A failed swap stops the run. Withdrawal failures are reported together.

Examples:
  zrx-settle run
  zrx-settle run --network bsc --json`,
	Args: cobra.NoArgs,
	RunE: runScenario,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	plan := scenario.Plan{
		WrappedToken: a.network.WrappedToken,
		Token1:       a.network.Token1,
		Token2:       a.network.Token2,
		SellAmount:   a.network.SellAmount,
	}
	if a.network.FeeRecipient != "" {
		if plan.FeeRecipient, err = a.network.FeeRecipientAddress(); err != nil {
			return err
		}
	}
	if err := plan.Validate(); err != nil {
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

	if !a.json {
		fmt.Printf("\nRunning scenario on %s as %s\n", color.CyanString(a.network.Name), color.CyanString(c.Account().Hex()))
	}
	report, runErr := runner.Run(ctx, plan)

	if a.json {
		printJSON(reportOutput(report, runErr))
		return runErr
	}
	if report != nil {
		displayReport(report)
	}
	if runErr != nil {
		return runErr
	}
	printSuccess("Scenario completed.")
	return nil
}

func reportOutput(report *scenario.Report, runErr error) map[string]interface{} {
	out := map[string]interface{}{"ok": runErr == nil}
	if runErr != nil {
		out["error"] = runErr.Error()
	}
	if report == nil {
		return out
	}
	swaps := make([]map[string]interface{}, 0, len(report.Swaps))
	for _, s := range report.Swaps {
		swaps = append(swaps, swapOutput(s))
	}
	out["swaps"] = swaps

	withdrawals := make([]map[string]interface{}, 0, len(report.Withdrawals))
	for _, w := range report.Withdrawals {
		withdrawals = append(withdrawals, withdrawOutput(w))
	}
	out["withdrawals"] = withdrawals
	return out
}

func displayReport(report *scenario.Report) {
	fmt.Println("\n" + strings.Repeat("=", 100))
	color.Green("                                        SCENARIO REPORT")
	fmt.Println(strings.Repeat("=", 100) + "\n")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSOLD\tBOUGHT\tFILL TX")
	for i, s := range report.Swaps {
		fmt.Fprintf(w, "%d\t%s %s\t%s %s\t%s\n", i+1, s.Sold, s.Sell.Symbol, s.Fill.Bought, s.Buy.Symbol, s.Fill.FillTx.Hex())
	}
	w.Flush()

	if len(report.Withdrawals) > 0 {
		fmt.Println()
		displayWithdrawals(report.Withdrawals)
	}
	fmt.Println("\n" + strings.Repeat("=", 100))
}
