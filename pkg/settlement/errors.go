package settlement

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Validation checks, in the order they are evaluated.
const (
	CheckSwapTarget = "swap target"
	CheckFunds      = "sufficient funds"
	CheckSellAmount = "sell amount"
)

// ValidationError reports a failed pre-trade check. No transaction has been
// sent when it is returned.
type ValidationError struct {
	Check    string
	Expected string
	Observed string
}

func (e *ValidationError) Error() string {
	switch e.Check {
	case CheckSwapTarget:
		return fmt.Sprintf("swap targets differ: contract has %s, quote targets %s", e.Expected, e.Observed)
	case CheckFunds:
		return fmt.Sprintf("insufficient sell token funds: need %s, have %s", e.Expected, e.Observed)
	}
	return fmt.Sprintf("%s check failed: expected %s, observed %s", e.Check, e.Expected, e.Observed)
}

// Execution phases.
const (
	PhaseApprove  = "approve"
	PhaseFill     = "fill"
	PhaseWithdraw = "withdraw"
)

// ExecutionError wraps a transaction that failed to send, reverted or could
// not be confirmed. Effects of earlier phases stay on chain.
type ExecutionError struct {
	Phase  string
	TxHash common.Hash
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.TxHash != (common.Hash{}) {
		return fmt.Sprintf("%s transaction %s failed: %v", e.Phase, e.TxHash.Hex(), e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
