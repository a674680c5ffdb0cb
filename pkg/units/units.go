package units

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human readable amount (e.g. "0.1") into the token's
// smallest integer unit. Fractions below one base unit are truncated toward
// zero, the same way the chain treats integer amounts.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid amount %q", amount)
	}
	if d.IsNegative() {
		return nil, errors.Errorf("invalid amount %q: must not be negative", amount)
	}
	return FromDecimal(d, decimals), nil
}

// FromDecimal is ToBaseUnits for an already parsed amount.
func FromDecimal(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}

// ToDecimal converts base units into a decimal amount.
func ToDecimal(base *big.Int, decimals uint8) decimal.Decimal {
	if base == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(base, -int32(decimals))
}

// ToDecimalAmount renders base units as a decimal string without trailing
// zeros, e.g. 250500000 with 6 decimals is "250.5".
func ToDecimalAmount(base *big.Int, decimals uint8) string {
	return ToDecimal(base, decimals).String()
}
