package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"zrx-settle/pkg/journal"
)

var historyAll bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded swaps and fee withdrawals",
	Long: `Show the journal of swaps and fee withdrawals for the network.

Examples:
  zrx-settle history
  zrx-settle history --all`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Show entries of every network")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	j, err := journal.Open(a.cfg.JournalFile)
	if err != nil {
		return err
	}
	network := a.network.Name
	if historyAll {
		network = ""
	}
	entries := j.List(network)

	if a.json {
		printJSON(entries)
		return nil
	}
	if len(entries) == 0 {
		color.Yellow("\nNo history recorded in %s.\n", j.FilePath())
		return nil
	}

	var completed int
	for _, e := range entries {
		if !e.Failed() {
			completed++
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 120))
	color.Green("                                                  HISTORY")
	fmt.Println(strings.Repeat("=", 120))
	fmt.Printf("\n  Entries:    %s\n", color.CyanString("%d", len(entries)))
	fmt.Printf("  Completed:  %s\n", color.GreenString("%d", completed))
	fmt.Printf("  Failed:     %s\n\n", color.RedString("%d", len(entries)-completed))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tNETWORK\tKIND\tTOKENS\tREQUESTED\tREALIZED\tSTATUS\tTX")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, e := range entries {
		tokens := e.Token
		tx := e.TxHash
		if e.Kind == journal.KindSwap {
			tokens = e.SellToken + " -> " + e.BuyToken
			tx = e.FillTx
		}
		realized := e.RealizedAmount
		if realized == "" && e.EstimatedAmount != "" {
			realized = "~" + e.EstimatedAmount
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.Network,
			e.Kind,
			tokens,
			e.RequestedAmount,
			realized,
			statusColor(e.Status),
			truncateString(tx, 14),
		)
	}
	w.Flush()

	if a.verbose {
		for _, e := range entries {
			if e.Failed() {
				fmt.Printf("\n  %s %s: %s", e.ID, e.Kind, color.RedString(e.Error))
			}
		}
		fmt.Println()
	}
	fmt.Println("\n" + strings.Repeat("=", 120) + "\n")
	return nil
}

func statusColor(status journal.Status) string {
	switch status {
	case journal.StatusCompleted:
		return color.GreenString(string(status))
	case journal.StatusFailed:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}
