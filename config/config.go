package config

import (
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix       = "ZRX_SETTLE"
	DefaultGasLimit = 1000000
	redacted        = "********"
)

// Network is the address book and run plan of one chain.
type Network struct {
	Name            string `mapstructure:"-" yaml:"-"`
	APIURL          string `mapstructure:"api_url" yaml:"api_url"`
	RPCURL          string `mapstructure:"rpc_url" yaml:"rpc_url"`
	ChainID         int64  `mapstructure:"chain_id" yaml:"chain_id"`
	DeployedAddress string `mapstructure:"deployed_address" yaml:"deployed_address"`
	NativeSymbol    string `mapstructure:"native_symbol" yaml:"native_symbol"`
	WrappedToken    string `mapstructure:"wrapped_token" yaml:"wrapped_token"`
	Token1          string `mapstructure:"token1" yaml:"token1"`
	Token2          string `mapstructure:"token2" yaml:"token2"`
	SellAmount      string `mapstructure:"sell_amount" yaml:"sell_amount"`
	FeeRecipient    string `mapstructure:"fee_recipient" yaml:"fee_recipient"`
	GasLimit        uint64 `mapstructure:"gas_limit" yaml:"gas_limit"`
	// GasPrice in wei; empty lets the node suggest one.
	GasPrice string `mapstructure:"gas_price" yaml:"gas_price,omitempty"`
}

// Config holds the application configuration
type Config struct {
	Network        string              `mapstructure:"network" yaml:"network"`
	APIKey         string              `mapstructure:"api_key" yaml:"api_key"`
	LogLevel       string              `mapstructure:"log_level" yaml:"log_level"`
	LogFile        string              `mapstructure:"log_file" yaml:"log_file"`
	JournalFile    string              `mapstructure:"journal_file" yaml:"journal_file"`
	PrivateKey     string              `mapstructure:"private_key" yaml:"private_key"`
	Mnemonic       string              `mapstructure:"mnemonic" yaml:"mnemonic"`
	DerivationPath string              `mapstructure:"derivation_path" yaml:"derivation_path"`
	Networks       map[string]*Network `mapstructure:"networks" yaml:"networks"`

	File string `mapstructure:"-" yaml:"-"`
}

var knownNetworks = map[string]Network{
	"mainnet": {APIURL: "https://api.0x.org/", ChainID: 1, NativeSymbol: "ETH", WrappedToken: "WETH"},
	"ropsten": {APIURL: "https://ropsten.api.0x.org/", ChainID: 3, NativeSymbol: "ETH", WrappedToken: "WETH"},
	"bsc":     {APIURL: "https://bsc.api.0x.org/", ChainID: 56, NativeSymbol: "BNB", WrappedToken: "WBNB"},
	"polygon": {APIURL: "https://polygon.api.0x.org/", ChainID: 137, NativeSymbol: "MATIC", WrappedToken: "WMATIC"},
}

// Load reads configuration from environment variables and a config file.
// With an empty path .zrx-settle.yaml is looked up in $HOME and the working
// directory and may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".zrx-settle")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	v.SetDefault("network", "ropsten")
	v.SetDefault("log_level", "info")
	for _, key := range []string{"api_key", "log_file", "journal_file", "private_key", "mnemonic", "derivation_path"} {
		v.SetDefault(key, "")
	}
	for name, n := range knownNetworks {
		prefix := "networks." + name + "."
		v.SetDefault(prefix+"api_url", n.APIURL)
		v.SetDefault(prefix+"chain_id", n.ChainID)
		v.SetDefault(prefix+"native_symbol", n.NativeSymbol)
		v.SetDefault(prefix+"wrapped_token", n.WrappedToken)
		v.SetDefault(prefix+"gas_limit", DefaultGasLimit)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	cfg.File = v.ConfigFileUsed()
	for name, n := range cfg.Networks {
		n.Name = name
		if n.GasLimit == 0 {
			n.GasLimit = DefaultGasLimit
		}
		if n.NativeSymbol == "" {
			n.NativeSymbol = "ETH"
		}
	}
	return cfg, nil
}

// NetworkNames returns the configured network names in sorted order.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetNetwork returns the named network, or the default network when name is
// empty.
func (c *Config) GetNetwork(name string) (*Network, error) {
	if name == "" {
		name = c.Network
	}
	n, ok := c.Networks[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown network %q; available networks: %s", name, strings.Join(c.NetworkNames(), ", "))
	}
	return n, nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	for _, s := range []*string{&out.APIKey, &out.PrivateKey, &out.Mnemonic} {
		if *s != "" {
			*s = redacted
		}
	}
	return &out
}

// SettlementAddress returns the deployed settlement contract address.
func (n *Network) SettlementAddress() (common.Address, error) {
	return parseAddress("deployed_address", n.DeployedAddress)
}

// FeeRecipientAddress returns the address fees are withdrawn to.
func (n *Network) FeeRecipientAddress() (common.Address, error) {
	return parseAddress("fee_recipient", n.FeeRecipient)
}

// GasPriceWei returns the configured gas price, or nil when unset.
func (n *Network) GasPriceWei() (*big.Int, error) {
	if n.GasPrice == "" {
		return nil, nil
	}
	price, ok := new(big.Int).SetString(n.GasPrice, 10)
	if !ok || price.Sign() <= 0 {
		return nil, errors.Errorf("network %s: invalid gas_price %q", n.Name, n.GasPrice)
	}
	return price, nil
}

func parseAddress(key, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, errors.Errorf("%s %q is not a valid address", key, value)
	}
	return common.HexToAddress(value), nil
}
