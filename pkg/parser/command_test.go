package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		input  string
		amount string
		entire bool
		sell   string
		buy    string
	}{
		{"swap 0.1 WETH to USDC", "0.1", false, "WETH", "USDC"},
		{"0.1 weth to usdc", "0.1", false, "WETH", "USDC"},
		{"all USDC to WETH", "", true, "USDC", "WETH"},
		{"  swap   All  dai  TO  weth ", "", true, "DAI", "WETH"},
		{"100 DAI to ETH", "100", false, "DAI", "ETH"},
	}

	for _, tt := range tests {
		req, err := ParseSwapCommand(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.entire, req.Amount.IsEntireBalance(), tt.input)
		if !tt.entire {
			assert.Equal(t, tt.amount, req.Amount.Decimal().String(), tt.input)
		}
		assert.Equal(t, tt.sell, req.SellToken, tt.input)
		assert.Equal(t, tt.buy, req.BuyToken, tt.input)
	}
}

func TestParseSwapCommandErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"swap WETH to USDC",
		"0.1 WETH USDC",
		"0 WETH to USDC",
		"1 WETH to WETH",
		"some WETH to USDC",
	} {
		_, err := ParseSwapCommand(input)
		assert.Error(t, err, input)
	}
}
