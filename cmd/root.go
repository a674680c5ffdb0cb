package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zrx-settle",
	Short: "Settle 0x aggregator swaps through an on-chain settlement contract",
	Long: `zrx-settle fetches swap quotes from the 0x API, checks them against the
deployed settlement contract and your account, and executes them with an
approve + fill transaction pair. Fees collected by the contract can be
withdrawn by token symbol.

Examples:
  zrx-settle swap 0.1 WETH to DAI
  zrx-settle swap all DAI to WETH --network ropsten
  zrx-settle quote 1 ETH to USDC
  zrx-settle run --network bsc
  zrx-settle withdraw DAI USDC WETH
  zrx-settle status`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Ctrl+C cancels the command's context;
// transactions already broadcast stay live.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Config file (default $HOME/.zrx-settle.yaml)")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use (default from config)")
}

func printError(err error) {
	fmt.Fprintln(os.Stderr)
	color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", color.GreenString(message))
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
