package settlement

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"zrx-settle/pkg/chain"
	"zrx-settle/pkg/contracts"
	"zrx-settle/pkg/units"
)

// Fill is the outcome of an executed swap. BoughtAmount comes from the
// BoughtTokens event, never from the quote's estimate.
type Fill struct {
	ApproveTx       common.Hash
	FillTx          common.Hash
	SoldAmount      *big.Int
	EstimatedAmount *big.Int
	BoughtAmount    *big.Int
	// Bought is BoughtAmount in the buy token's decimals.
	Bought string
}

// Withdrawal is the outcome of a fee withdrawal.
type Withdrawal struct {
	Token  common.Address
	TxHash common.Hash
	Amount *big.Int
	// Withdrawn is Amount in the token's decimals.
	Withdrawn string
}

// Executor drives swaps and fee withdrawals through the settlement contract.
type Executor struct {
	chain    Chain
	contract *Contract
	log      logrus.FieldLogger
}

func NewExecutor(c Chain, contract *Contract, log logrus.FieldLogger) *Executor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Executor{chain: c, contract: contract, log: log}
}

func (e *Executor) Contract() *Contract {
	return e.contract
}

// Execute approves the settlement contract for the sell amount (except when
// selling native currency) and then fills the quote. Each phase waits for
// its receipt; the fill is never sent before the approval is mined.
func (e *Executor) Execute(ctx context.Context, swap *Swap, buyDecimals uint8) (*Fill, error) {
	if swap.State != StateValidated {
		return nil, errors.Errorf("refusing to execute a %s swap; it must be validated first", swap.State)
	}

	q := swap.Quote
	sellAmount := q.SellAmountBase()
	log := e.log.WithFields(logrus.Fields{
		"flow":        swap.Flow.String(),
		"sell_token":  q.SellTokenAddress.Hex(),
		"buy_token":   q.BuyTokenAddress.Hex(),
		"sell_amount": sellAmount.String(),
	})

	if swap.Flow != SellNative {
		log.Info("approving settlement contract")
		receipt, err := NewToken(e.chain, q.SellTokenAddress).Approve(ctx, e.contract.Address(), sellAmount, q.GasPriceWei())
		if err != nil {
			return nil, executionError(PhaseApprove, receipt, err)
		}
		swap.ApproveTx = receipt.TxHash
		log.WithField("tx", receipt.TxHash.Hex()).Info("approval mined")
	}
	if err := swap.advance(StateValidated, StateApproved); err != nil {
		return nil, err
	}

	log.WithField("contract", e.contract.Address().Hex()).Info("filling quote")
	receipt, err := e.contract.fill(ctx, swap.Flow, q)
	if err != nil {
		return nil, executionError(PhaseFill, receipt, err)
	}
	swap.FillTx = receipt.TxHash

	bought, err := e.contract.eventAmount(receipt, contracts.EventBoughtTokens, "boughtAmount")
	if err != nil {
		return nil, &ExecutionError{Phase: PhaseFill, TxHash: receipt.TxHash, Err: err}
	}
	if err := swap.advance(StateApproved, StateFilled); err != nil {
		return nil, err
	}

	estimated := q.BuyAmountBase()
	if estimated.Cmp(bought) != 0 {
		log.WithFields(logrus.Fields{"estimated": estimated.String(), "bought": bought.String()}).Debug("realized amount differs from quote estimate")
	}
	log.WithFields(logrus.Fields{"tx": receipt.TxHash.Hex(), "bought": bought.String()}).Info("quote filled")

	return &Fill{
		ApproveTx:       swap.ApproveTx,
		FillTx:          swap.FillTx,
		SoldAmount:      sellAmount,
		EstimatedAmount: estimated,
		BoughtAmount:    bought,
		Bought:          units.ToDecimalAmount(bought, buyDecimals),
	}, nil
}

// WithdrawFee sends the contract's collected fee in token to recipient. The
// amount is read from the WithdrawFee event.
func (e *Executor) WithdrawFee(ctx context.Context, token, recipient common.Address, decimals uint8) (*Withdrawal, error) {
	log := e.log.WithFields(logrus.Fields{"token": token.Hex(), "recipient": recipient.Hex()})
	log.Info("withdrawing fee")

	receipt, err := e.contract.withdrawFee(ctx, token, recipient)
	if err != nil {
		return nil, executionError(PhaseWithdraw, receipt, err)
	}
	amount, err := e.contract.eventAmount(receipt, contracts.EventWithdrawFee, "amount")
	if err != nil {
		return nil, &ExecutionError{Phase: PhaseWithdraw, TxHash: receipt.TxHash, Err: err}
	}
	log.WithFields(logrus.Fields{"tx": receipt.TxHash.Hex(), "amount": amount.String()}).Info("fee withdrawn")

	return &Withdrawal{
		Token:     token,
		TxHash:    receipt.TxHash,
		Amount:    amount,
		Withdrawn: units.ToDecimalAmount(amount, decimals),
	}, nil
}

func executionError(phase string, receipt *types.Receipt, err error) error {
	xerr := &ExecutionError{Phase: phase, Err: err}
	if hash, ok := chain.SentTxHash(err); ok {
		xerr.TxHash = hash
	} else if receipt != nil {
		xerr.TxHash = receipt.TxHash
	}
	return xerr
}
