package journal

import "time"

// Kind is the kind of on-chain action an entry records.
type Kind string

const (
	KindSwap     Kind = "swap"
	KindWithdraw Kind = "withdraw"
)

// Status is the outcome of the recorded action.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry is one swap or fee withdrawal. Amounts are base-unit integers
// rendered as strings.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Network   string    `json:"network"`
	Kind      Kind      `json:"kind"`

	// Swaps
	SellToken string `json:"sell_token,omitempty"`
	BuyToken  string `json:"buy_token,omitempty"`
	Flow      string `json:"flow,omitempty"`

	// Withdrawals
	Token     string `json:"token,omitempty"`
	Recipient string `json:"recipient,omitempty"`

	RequestedAmount string `json:"requested_amount,omitempty"`
	EstimatedAmount string `json:"estimated_amount,omitempty"`
	RealizedAmount  string `json:"realized_amount,omitempty"`

	ApproveTx string `json:"approve_tx,omitempty"`
	FillTx    string `json:"fill_tx,omitempty"`
	TxHash    string `json:"tx_hash,omitempty"`

	State  string `json:"state,omitempty"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the action did not complete.
func (e *Entry) Failed() bool {
	return e.Status == StatusFailed
}
