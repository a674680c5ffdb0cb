package settlement

import (
	"math/big"

	"zrx-settle/pkg/types"
)

// RequiredFunds is what the account must hold of the sold asset for q: the
// sell amount, or for native sells everything the fill attaches as value.
func RequiredFunds(q *types.Quote, flow Flow) *big.Int {
	required := q.SellAmountBase()
	if flow == SellNative {
		required.Add(required, q.ValueWei())
	}
	return required
}

// Validate checks q against the settlement contract's state and the
// account's balance of the sold asset. Checks run in a fixed order and the
// first failure is returned as *ValidationError.
func Validate(q *types.Quote, flow Flow, state ContractState, balance *big.Int) error {
	// common.Address compares bytes, so checksum casing cannot matter.
	if q.To != state.SwapTarget {
		return &ValidationError{
			Check:    CheckSwapTarget,
			Expected: state.SwapTarget.Hex(),
			Observed: q.To.Hex(),
		}
	}

	required := RequiredFunds(q, flow)
	if balance == nil {
		balance = new(big.Int)
	}
	if balance.Cmp(required) < 0 {
		return &ValidationError{
			Check:    CheckFunds,
			Expected: required.String(),
			Observed: balance.String(),
		}
	}
	return nil
}

// Validate runs the package level checks plus sell-amount agreement and
// moves the swap to StateValidated.
func (s *Swap) Validate(state ContractState, balance *big.Int) error {
	if err := Validate(s.Quote, s.Flow, state, balance); err != nil {
		return err
	}
	if s.Requested != nil && s.Requested.Cmp(s.Quote.SellAmountBase()) != 0 {
		return &ValidationError{
			Check:    CheckSellAmount,
			Expected: s.Requested.String(),
			Observed: s.Quote.SellAmountBase().String(),
		}
	}
	return s.advance(StateQuoted, StateValidated)
}
