package types

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// EntireBalanceKeyword is the user-facing spelling of SellAmount EntireBalance.
const EntireBalanceKeyword = "all"

// SellAmount is either an exact human readable amount or the account's
// entire balance of the sell token. The scenario runner resolves it to base
// units before any quote is requested.
type SellAmount struct {
	entire bool
	amount decimal.Decimal
}

// ExactAmount returns a SellAmount for a fixed decimal amount.
func ExactAmount(amount decimal.Decimal) SellAmount {
	return SellAmount{amount: amount}
}

// EntireBalance returns the SellAmount that sells everything the account holds.
func EntireBalance() SellAmount {
	return SellAmount{entire: true}
}

// ParseSellAmount accepts a positive decimal or "all".
func ParseSellAmount(s string) (SellAmount, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, EntireBalanceKeyword) {
		return EntireBalance(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return SellAmount{}, errors.Errorf("invalid sell amount %q", s)
	}
	if !d.IsPositive() {
		return SellAmount{}, errors.Errorf("sell amount must be greater than 0, got %s", s)
	}
	return ExactAmount(d), nil
}

func (a SellAmount) IsEntireBalance() bool {
	return a.entire
}

// Decimal returns the exact amount; it is zero for EntireBalance.
func (a SellAmount) Decimal() decimal.Decimal {
	return a.amount
}

func (a SellAmount) String() string {
	if a.entire {
		return EntireBalanceKeyword
	}
	return a.amount.String()
}

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount    SellAmount
	SellToken string
	BuyToken  string
}

func (r SwapRequest) String() string {
	return fmt.Sprintf("%s %s to %s", r.Amount, r.SellToken, r.BuyToken)
}
