package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"zrx-settle/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	shown := cfg.Redacted()

	if jsonOutput {
		printJSON(shown)
		return nil
	}
	if cfg.File != "" {
		fmt.Printf("# %s\n", cfg.File)
	}
	out, err := yaml.Marshal(shown)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
