package cmd

import (
	"context"
	"time"

	"github.com/briandowns/spinner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"zrx-settle/config"
	"zrx-settle/pkg/chain"
	"zrx-settle/pkg/client"
	"zrx-settle/pkg/journal"
	"zrx-settle/pkg/ledger"
	"zrx-settle/pkg/logger"
	"zrx-settle/pkg/scenario"
	"zrx-settle/pkg/settlement"
)

// app is what every command needs: configuration for the selected network
// and a logger.
type app struct {
	cfg     *config.Config
	network *config.Network
	log     *logrus.Logger
	json    bool
	verbose bool
}

func loadApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	networkName, _ := cmd.Flags().GetString("network")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	network, err := cfg.GetNetwork(networkName)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log, err := logger.Init(logger.Config{Level: level, OutputFile: cfg.LogFile, MaxBackups: 3, MaxAge: 28})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, network: network, log: log, json: jsonOutput, verbose: verbose}, nil
}

// dial connects the configured account to the network's RPC endpoint.
func (a *app) dial(ctx context.Context) (*chain.Client, error) {
	key, err := chain.LoadKey(a.cfg.PrivateKey, a.cfg.Mnemonic, a.cfg.DerivationPath)
	if err != nil {
		return nil, err
	}
	gasPrice, err := a.network.GasPriceWei()
	if err != nil {
		return nil, err
	}
	return chain.Dial(ctx, a.network.RPCURL, a.network.ChainID, key, chain.Options{GasPrice: gasPrice}, a.log.WithField("network", a.network.Name))
}

func (a *app) contract(c settlement.Chain) (*settlement.Contract, error) {
	addr, err := a.network.SettlementAddress()
	if err != nil {
		return nil, err
	}
	return settlement.NewContract(c, addr, a.network.GasLimit), nil
}

func (a *app) runner(c *chain.Client) (*scenario.Runner, error) {
	contract, err := a.contract(c)
	if err != nil {
		return nil, err
	}
	j, err := journal.Open(a.cfg.JournalFile)
	if err != nil {
		return nil, err
	}
	return scenario.New(scenario.Options{
		Network:      a.network.Name,
		NativeSymbol: a.network.NativeSymbol,
		Quotes:       client.NewZRXClient(a.network.APIURL, a.cfg.APIKey),
		Chain:        c,
		Executor:     settlement.NewExecutor(c, contract, a.log),
		Ledger:       ledger.New(),
		Journal:      j,
		Log:          a.log,
	}), nil
}

// spin shows a spinner with msg unless output is JSON. The returned func
// stops it.
func (a *app) spin(msg string) func() {
	if a.json {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}
