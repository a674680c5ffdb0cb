package settlement

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"zrx-settle/pkg/types"
)

// Flow selects the settlement contract entry point.
type Flow int

const (
	TokenToToken Flow = iota
	SellNative
	BuyNative
)

func (f Flow) String() string {
	switch f {
	case TokenToToken:
		return "token-to-token"
	case SellNative:
		return "sell-native"
	case BuyNative:
		return "buy-native"
	}
	return fmt.Sprintf("Flow(%d)", int(f))
}

// State is a swap's position in Quoted -> Validated -> Approved -> Filled.
type State int

const (
	StateQuoted State = iota
	StateValidated
	StateApproved
	StateFilled
)

func (s State) String() string {
	switch s {
	case StateQuoted:
		return "quoted"
	case StateValidated:
		return "validated"
	case StateApproved:
		return "approved"
	case StateFilled:
		return "filled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Swap tracks one quote through validation and execution. Each transition
// happens only after the previous step's receipt was mined.
type Swap struct {
	Quote *types.Quote
	Flow  Flow
	// Requested is the sell amount the quote was asked for; nil skips the
	// sell-amount agreement check.
	Requested *big.Int

	State     State
	ApproveTx common.Hash
	FillTx    common.Hash
}

// NewSwap starts a swap in the Quoted state.
func NewSwap(q *types.Quote, flow Flow, requested *big.Int) *Swap {
	return &Swap{Quote: q, Flow: flow, Requested: requested, State: StateQuoted}
}

func (s *Swap) advance(from, to State) error {
	if s.State != from {
		return errors.Errorf("swap is %s, expected %s before moving to %s", s.State, from, to)
	}
	s.State = to
	return nil
}
