package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"zrx-settle/pkg/types"
	"zrx-settle/pkg/units"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the settlement contract and account state",
	Long: `Read the deployed settlement contract's owner, swap target and fee, and
the configured account's native balance.

Examples:
  zrx-settle status
  zrx-settle status --network polygon --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	contract, err := a.contract(c)
	if err != nil {
		return err
	}

	stop := a.spin("Reading contract state...")
	state, err := contract.State(ctx)
	if err != nil {
		stop()
		return err
	}
	balance, err := c.NativeBalance(ctx, c.Account())
	stop()
	if err != nil {
		return err
	}

	nativeBalance := units.ToDecimalAmount(balance, types.NativeDecimals)
	if a.json {
		printJSON(map[string]interface{}{
			"network":        a.network.Name,
			"chain_id":       c.ChainID().String(),
			"contract":       contract.Address().Hex(),
			"owner":          state.Owner.Hex(),
			"swap_target":    state.SwapTarget.Hex(),
			"fee":            state.Fee.String(),
			"account":        c.Account().Hex(),
			"native_balance": nativeBalance,
			"is_owner":       state.Owner == c.Account(),
		})
		return nil
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     SETTLEMENT CONTRACT STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Network:         %s (chain %s)\n", a.network.Name, c.ChainID())
	fmt.Printf("  Contract:        %s\n", color.CyanString(contract.Address().Hex()))
	fmt.Printf("  Owner:           %s\n", state.Owner.Hex())
	fmt.Printf("  Swap Target:     %s\n", state.SwapTarget.Hex())
	fmt.Printf("  Fee:             %s\n", state.Fee.String())
	fmt.Printf("  Account:         %s\n", color.CyanString(c.Account().Hex()))
	fmt.Printf("  Balance:         %s %s\n", nativeBalance, a.network.NativeSymbol)
	if state.Owner != c.Account() {
		color.Yellow("\n  The account is not the contract owner; fee withdrawals will revert.")
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
	return nil
}
