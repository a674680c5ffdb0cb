// Package scenario drives swaps and fee withdrawals end to end: it resolves
// amounts, fetches quotes, records token addresses in the fee ledger,
// validates quotes against the settlement contract and executes them.
package scenario

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"zrx-settle/pkg/client"
	"zrx-settle/pkg/journal"
	"zrx-settle/pkg/ledger"
	"zrx-settle/pkg/settlement"
	"zrx-settle/pkg/types"
	"zrx-settle/pkg/units"
)

// probeAmount is the sell amount of the quote used only to learn token
// addresses.
var probeAmount = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// QuoteSource fetches aggregator quotes.
type QuoteSource interface {
	GetQuote(ctx context.Context, p client.QuoteParams) (*types.Quote, error)
}

// Recorder persists the outcome of swaps and withdrawals.
type Recorder interface {
	Record(e *journal.Entry) error
}

// Options wires a Runner. Journal may be nil.
type Options struct {
	Network      string
	NativeSymbol string
	Quotes       QuoteSource
	Chain        settlement.Chain
	Executor     *settlement.Executor
	Ledger       *ledger.FeeLedger
	Journal      Recorder
	Log          logrus.FieldLogger
}

// Runner runs swaps for one network and account.
type Runner struct {
	network      string
	nativeSymbol string
	quotes       QuoteSource
	chain        settlement.Chain
	executor     *settlement.Executor
	ledger       *ledger.FeeLedger
	journal      Recorder
	log          logrus.FieldLogger
}

func New(opts Options) *Runner {
	if opts.Ledger == nil {
		opts.Ledger = ledger.New()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.NativeSymbol == "" {
		opts.NativeSymbol = "ETH"
	}
	return &Runner{
		network:      opts.Network,
		nativeSymbol: strings.ToUpper(opts.NativeSymbol),
		quotes:       opts.Quotes,
		chain:        opts.Chain,
		executor:     opts.Executor,
		ledger:       opts.Ledger,
		journal:      opts.Journal,
		log:          opts.Log.WithField("network", opts.Network),
	}
}

func (r *Runner) Ledger() *ledger.FeeLedger {
	return r.ledger
}

// TokenRef is a token symbol with its discovered address and precision.
type TokenRef struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// SwapResult is the outcome of a completed swap.
type SwapResult struct {
	Request types.SwapRequest
	Sell    TokenRef
	Buy     TokenRef
	Swap    *settlement.Swap
	Fill    *settlement.Fill
	// Sold is the sold amount in the sell token's decimals.
	Sold string
}

// FlowFor picks the settlement flow for a pair of symbols.
func (r *Runner) FlowFor(sell, buy string) settlement.Flow {
	switch {
	case strings.EqualFold(sell, r.nativeSymbol):
		return settlement.SellNative
	case strings.EqualFold(buy, r.nativeSymbol):
		return settlement.BuyNative
	default:
		return settlement.TokenToToken
	}
}

// Discover requests a probe quote for the pair and records both token
// addresses in the ledger.
func (r *Runner) Discover(ctx context.Context, sell, buy string) (common.Address, common.Address, error) {
	q, err := r.quotes.GetQuote(ctx, client.QuoteParams{SellToken: sell, BuyToken: buy, SellAmount: probeAmount})
	if err != nil {
		return common.Address{}, common.Address{}, errors.Wrapf(err, "discover %s/%s", sell, buy)
	}
	r.record(sell, buy, q)
	return q.SellTokenAddress, q.BuyTokenAddress, nil
}

// Swap resolves the request's amount, quotes it, validates the quote against
// the settlement contract and the account's funds, and executes it.
func (r *Runner) Swap(ctx context.Context, req types.SwapRequest) (*SwapResult, error) {
	p, err := r.Quote(ctx, req)
	if err != nil {
		sell := strings.ToUpper(req.SellToken)
		buy := strings.ToUpper(req.BuyToken)
		entry := r.swapEntry(sell, buy, r.FlowFor(sell, buy))
		r.finishSwap(entry, req, err)
		return nil, err
	}
	return r.Settle(ctx, p)
}

// Settle validates and executes exactly the quote held by p. No further
// quotes are requested, so what was previewed is what gets filled.
func (r *Runner) Settle(ctx context.Context, p *Preview) (*SwapResult, error) {
	entry := r.swapEntry(p.Sell.Symbol, p.Buy.Symbol, p.Flow)
	result, err := r.settle(ctx, p, entry)
	r.finishSwap(entry, p.Request, err)
	return result, err
}

func (r *Runner) swapEntry(sell, buy string, flow settlement.Flow) *journal.Entry {
	return &journal.Entry{
		Network:   r.network,
		Kind:      journal.KindSwap,
		SellToken: sell,
		BuyToken:  buy,
		Flow:      flow.String(),
	}
}

func (r *Runner) finishSwap(entry *journal.Entry, req types.SwapRequest, err error) {
	if err != nil {
		entry.Status = journal.StatusFailed
		entry.Error = err.Error()
		r.log.WithFields(logrus.Fields{
			"sell":   entry.SellToken,
			"buy":    entry.BuyToken,
			"amount": req.Amount.String(),
			"flow":   entry.Flow,
		}).WithError(err).Error("swap failed")
	} else {
		entry.Status = journal.StatusCompleted
	}
	r.journalRecord(entry)
}

// Preview is a priced quote for a request together with the on-chain facts
// it is validated against. Nothing has been sent when it is returned.
type Preview struct {
	Request    types.SwapRequest
	Flow       settlement.Flow
	Sell       TokenRef
	Buy        TokenRef
	SellAmount *big.Int
	Quote      *types.Quote
	State      *settlement.ContractState
	Balance    *big.Int
}

// Check runs the consistency gates without changing any swap state.
func (p *Preview) Check() error {
	return settlement.NewSwap(p.Quote, p.Flow, p.SellAmount).Validate(*p.State, p.Balance)
}

// Quote discovers the pair, resolves the sell amount and fetches the priced
// quote along with the contract state and the account's funds.
func (r *Runner) Quote(ctx context.Context, req types.SwapRequest) (*Preview, error) {
	sell := strings.ToUpper(req.SellToken)
	buy := strings.ToUpper(req.BuyToken)
	p := &Preview{Request: req, Flow: r.FlowFor(sell, buy)}

	if p.Flow == settlement.SellNative && req.Amount.IsEntireBalance() {
		return nil, errors.Errorf("cannot sell the entire %s balance; it is needed for gas", sell)
	}

	sellAddr, buyAddr, err := r.Discover(ctx, sell, buy)
	if err != nil {
		return nil, err
	}
	if p.Sell, err = r.tokenRef(ctx, sell, sellAddr); err != nil {
		return nil, err
	}
	if p.Buy, err = r.tokenRef(ctx, buy, buyAddr); err != nil {
		return nil, err
	}

	if p.SellAmount, err = r.resolveAmount(ctx, req.Amount, p.Sell); err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"sell": sell, "sell_amount": p.SellAmount.String()}).Debug("resolved sell amount")

	p.Quote, err = r.quotes.GetQuote(ctx, client.QuoteParams{SellToken: sell, BuyToken: buy, SellAmount: p.SellAmount})
	if err != nil {
		return nil, errors.Wrapf(err, "quote %s", req.String())
	}
	r.record(sell, buy, p.Quote)

	if p.State, err = r.executor.Contract().State(ctx); err != nil {
		return nil, errors.Wrap(err, "read settlement contract")
	}
	if p.Balance, err = r.balance(ctx, p.Flow, p.Sell.Address); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Runner) settle(ctx context.Context, p *Preview, entry *journal.Entry) (*SwapResult, error) {
	entry.RequestedAmount = p.SellAmount.String()
	entry.EstimatedAmount = p.Quote.BuyAmountBase().String()

	swap := settlement.NewSwap(p.Quote, p.Flow, p.SellAmount)
	defer func() { entry.State = swap.State.String() }()
	if err := swap.Validate(*p.State, p.Balance); err != nil {
		return nil, err
	}

	fill, err := r.executor.Execute(ctx, swap, p.Buy.Decimals)
	entry.ApproveTx = hashOrEmpty(swap.ApproveTx)
	if err != nil {
		var xerr *settlement.ExecutionError
		if errors.As(err, &xerr) {
			switch xerr.Phase {
			case settlement.PhaseApprove:
				entry.ApproveTx = hashOrEmpty(xerr.TxHash)
			case settlement.PhaseFill:
				entry.FillTx = hashOrEmpty(xerr.TxHash)
			}
		}
		return nil, err
	}
	entry.FillTx = fill.FillTx.Hex()
	entry.RealizedAmount = fill.BoughtAmount.String()

	return &SwapResult{
		Request: p.Request,
		Sell:    p.Sell,
		Buy:     p.Buy,
		Swap:    swap,
		Fill:    fill,
		Sold:    units.ToDecimalAmount(fill.SoldAmount, p.Sell.Decimals),
	}, nil
}

// WithdrawFee withdraws the contract's collected fee in symbol to recipient.
// The symbol must have been seen in a quote during this run.
func (r *Runner) WithdrawFee(ctx context.Context, symbol string, recipient common.Address) (*settlement.Withdrawal, error) {
	symbol = strings.ToUpper(symbol)
	entry := &journal.Entry{
		Network:   r.network,
		Kind:      journal.KindWithdraw,
		Token:     symbol,
		Recipient: recipient.Hex(),
	}

	w, err := r.withdrawFee(ctx, symbol, recipient)
	if err != nil {
		var unknown *ledger.UnknownTokenError
		if errors.As(err, &unknown) {
			// nothing was sent; not worth a journal entry
			return nil, err
		}
		var xerr *settlement.ExecutionError
		if errors.As(err, &xerr) {
			entry.TxHash = hashOrEmpty(xerr.TxHash)
		}
		entry.Status = journal.StatusFailed
		entry.Error = err.Error()
	} else {
		entry.TxHash = w.TxHash.Hex()
		entry.RealizedAmount = w.Amount.String()
		entry.Status = journal.StatusCompleted
	}
	r.journalRecord(entry)
	return w, err
}

func (r *Runner) withdrawFee(ctx context.Context, symbol string, recipient common.Address) (*settlement.Withdrawal, error) {
	addr, err := r.ledger.Resolve(symbol)
	if err != nil {
		return nil, err
	}
	ref, err := r.tokenRef(ctx, symbol, addr)
	if err != nil {
		return nil, err
	}
	return r.executor.WithdrawFee(ctx, addr, recipient, ref.Decimals)
}

// WithdrawOutcome is the result of withdrawing one token's fee.
type WithdrawOutcome struct {
	Symbol     string
	Withdrawal *settlement.Withdrawal
	Err        error
}

// WithdrawFees withdraws each symbol's fee in order. A failure for one token
// does not stop the others.
func (r *Runner) WithdrawFees(ctx context.Context, symbols []string, recipient common.Address) []WithdrawOutcome {
	out := make([]WithdrawOutcome, 0, len(symbols))
	for _, s := range symbols {
		w, err := r.WithdrawFee(ctx, s, recipient)
		if err != nil {
			r.log.WithError(err).WithField("token", s).Warn("fee withdrawal failed")
		}
		out = append(out, WithdrawOutcome{Symbol: strings.ToUpper(s), Withdrawal: w, Err: err})
	}
	return out
}

func (r *Runner) record(sell, buy string, q *types.Quote) {
	r.ledger.Record(sell, q.SellTokenAddress)
	r.ledger.Record(buy, q.BuyTokenAddress)
}

func (r *Runner) tokenRef(ctx context.Context, symbol string, addr common.Address) (TokenRef, error) {
	ref := TokenRef{Symbol: symbol, Address: addr, Decimals: types.NativeDecimals}
	if types.IsNative(addr) {
		return ref, nil
	}
	decimals, err := settlement.NewToken(r.chain, addr).Decimals(ctx)
	if err != nil {
		return ref, errors.Wrapf(err, "read %s decimals", symbol)
	}
	ref.Decimals = decimals
	return ref, nil
}

func (r *Runner) resolveAmount(ctx context.Context, amount types.SellAmount, sell TokenRef) (*big.Int, error) {
	var base *big.Int
	if amount.IsEntireBalance() {
		balance, err := settlement.NewToken(r.chain, sell.Address).BalanceOf(ctx, r.chain.Account())
		if err != nil {
			return nil, errors.Wrapf(err, "read %s balance", sell.Symbol)
		}
		base = balance
	} else {
		base = units.FromDecimal(amount.Decimal(), sell.Decimals)
	}
	if base.Sign() <= 0 {
		return nil, errors.Errorf("nothing to sell: %s %s resolves to %s base units", amount.String(), sell.Symbol, base.String())
	}
	return base, nil
}

func (r *Runner) balance(ctx context.Context, flow settlement.Flow, sellAddr common.Address) (*big.Int, error) {
	if flow == settlement.SellNative {
		balance, err := r.chain.NativeBalance(ctx, r.chain.Account())
		return balance, errors.Wrap(err, "read native balance")
	}
	balance, err := settlement.NewToken(r.chain, sellAddr).BalanceOf(ctx, r.chain.Account())
	return balance, errors.Wrap(err, "read sell token balance")
}

// hashOrEmpty renders h for the journal, leaving it out when no transaction
// was sent.
func hashOrEmpty(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}

func (r *Runner) journalRecord(e *journal.Entry) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Record(e); err != nil {
		r.log.WithError(err).Warn("failed to record journal entry")
	}
}
