package parser

import (
	"fmt"
	"regexp"
	"strings"

	"zrx-settle/pkg/types"
)

// Pattern: <amount|ALL> <sell_token> TO <buy_token>
// Matches: "0.1 WETH TO USDC", "ALL USDC TO WETH", "100 DAI TO ETH"
var swapPattern = regexp.MustCompile(`^(\d+\.?\d*|ALL)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

// ParseSwapCommand parses a swap command
// Examples:
//   - "swap 0.1 WETH to USDC"
//   - "all USDC to WETH"
//   - "1.5 ETH to DAI"
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	// Normalize the command
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")

	// Remove the word "SWAP" if present at the beginning
	command = strings.TrimPrefix(command, "SWAP ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount|all> <token> to <token>' (e.g., 'swap 0.1 WETH to USDC')")
	}

	amount, err := types.ParseSellAmount(matches[1])
	if err != nil {
		return nil, err
	}

	req := &types.SwapRequest{
		Amount:    amount,
		SellToken: matches[2],
		BuyToken:  matches[3],
	}
	if err := ValidateSwapRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.SellToken == "" {
		return fmt.Errorf("sell token is required")
	}
	if req.BuyToken == "" {
		return fmt.Errorf("buy token is required")
	}
	if NormalizeTokenSymbol(req.SellToken) == NormalizeTokenSymbol(req.BuyToken) {
		return fmt.Errorf("cannot swap %s for itself", req.SellToken)
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to the form used as ledger keys
func NormalizeTokenSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}
