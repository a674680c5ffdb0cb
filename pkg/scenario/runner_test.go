package scenario_test

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zrx-settle/pkg/chain/chaintest"
	"zrx-settle/pkg/client"
	"zrx-settle/pkg/contracts"
	"zrx-settle/pkg/journal"
	"zrx-settle/pkg/ledger"
	"zrx-settle/pkg/scenario"
	"zrx-settle/pkg/settlement"
	"zrx-settle/pkg/types"
)

var (
	account        = common.HexToAddress("0x1000000000000000000000000000000000000001")
	settlementAddr = common.HexToAddress("0x2000000000000000000000000000000000000002")
	swapTarget     = common.HexToAddress("0xdef1c0ded9bec7f1a1670819833240f027b25eff")
	recipient      = common.HexToAddress("0xd2bf9C5D18d2f6819F2c13F3A32fcFc3C9DBD2e7")

	weth = common.HexToAddress("0xc778417e063141139fce010982780140aa0cd5ab")
	usdc = common.HexToAddress("0x07865c6e87b9f70255377e024ace6630c1eaa37f")
	dai  = common.HexToAddress("0xad6d458402f60fd3bd25163575031acdce07538d")
)

type fakeQuotes struct {
	addrs     map[string]common.Address
	target    common.Address
	buyAmount *big.Int
	// sellAmount overrides the quoted sell amount of priced quotes
	sellAmount *big.Int
	calls      []client.QuoteParams
}

func (f *fakeQuotes) GetQuote(_ context.Context, p client.QuoteParams) (*types.Quote, error) {
	f.calls = append(f.calls, p)
	sellAmount := p.SellAmount
	if f.sellAmount != nil && len(f.calls)%2 == 0 {
		sellAmount = f.sellAmount
	}
	return &types.Quote{
		To:               f.target,
		AllowanceTarget:  f.target,
		SellTokenAddress: f.addrs[p.SellToken],
		BuyTokenAddress:  f.addrs[p.BuyToken],
		SellAmount:       decimal.NewFromBigInt(sellAmount, 0),
		BuyAmount:        decimal.NewFromBigInt(f.buyAmount, 0),
		GasPrice:         decimal.NewFromInt(1000000000),
		Data:             []byte{0x01},
	}, nil
}

type fixture struct {
	chain   *chaintest.Chain
	quotes  *fakeQuotes
	journal *journal.Journal
	runner  *scenario.Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := chaintest.New(account, settlementAddr, swapTarget)
	c.AddToken(weth, 18)
	c.AddToken(usdc, 6)
	c.AddToken(dai, 18)
	c.SetBalance(weth, account, ether("1"))
	c.SetNativeBalance(account, ether("1"))

	quotes := &fakeQuotes{
		addrs: map[string]common.Address{
			"WETH": weth,
			"USDC": usdc,
			"DAI":  dai,
			"ETH":  types.NativeTokenAddress,
		},
		target:    swapTarget,
		buyAmount: big.NewInt(184000000),
	}

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.json"))
	require.NoError(t, err)

	log, _ := test.NewNullLogger()
	runner := scenario.New(scenario.Options{
		Network:      "ropsten",
		NativeSymbol: "ETH",
		Quotes:       quotes,
		Chain:        c,
		Executor:     settlement.NewExecutor(c, settlement.NewContract(c, settlementAddr, 0), log),
		Ledger:       ledger.New(),
		Journal:      j,
		Log:          log,
	})
	return &fixture{chain: c, quotes: quotes, journal: j, runner: runner}
}

func ether(s string) *big.Int {
	return decimal.RequireFromString(s).Shift(18).BigInt()
}

func swapRequest(t *testing.T, amount, sell, buy string) types.SwapRequest {
	t.Helper()
	a, err := types.ParseSellAmount(amount)
	require.NoError(t, err)
	return types.SwapRequest{Amount: a, SellToken: sell, BuyToken: buy}
}

func TestSwapExactAmount(t *testing.T) {
	f := newFixture(t)
	f.chain.BoughtAmount = big.NewInt(183912345)

	res, err := f.runner.Swap(context.Background(), swapRequest(t, "0.1", "WETH", "USDC"))
	require.NoError(t, err)

	require.Len(t, f.quotes.calls, 2)
	assert.Equal(t, "1000000000000000000", f.quotes.calls[0].SellAmount.String())
	assert.Equal(t, ether("0.1"), f.quotes.calls[1].SellAmount)

	assert.Equal(t, []string{contracts.MethodApprove, contracts.MethodFillQuote}, f.chain.Methods())
	assert.Equal(t, ether("0.1"), f.chain.Sent()[0].Args["amount"])

	assert.Equal(t, "183912345", res.Fill.BoughtAmount.String())
	assert.Equal(t, "183.912345", res.Fill.Bought)
	assert.Equal(t, "0.1", res.Sold)
	assert.Equal(t, uint8(6), res.Buy.Decimals)
	assert.Equal(t, settlement.StateFilled, res.Swap.State)

	addr, err := f.runner.Ledger().Resolve("usdc")
	require.NoError(t, err)
	assert.Equal(t, usdc, addr)

	entries := f.journal.List("ropsten")
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusCompleted, entries[0].Status)
	assert.Equal(t, "183912345", entries[0].RealizedAmount)
	assert.Equal(t, "184000000", entries[0].EstimatedAmount)
	assert.Equal(t, "filled", entries[0].State)
	assert.Equal(t, res.Fill.FillTx.Hex(), entries[0].FillTx)
}

func TestSwapEntireBalance(t *testing.T) {
	f := newFixture(t)
	f.chain.SetBalance(usdc, account, big.NewInt(250500000))
	f.chain.BoughtAmount = ether("0.13")

	res, err := f.runner.Swap(context.Background(), swapRequest(t, "all", "usdc", "weth"))
	require.NoError(t, err)

	require.Len(t, f.quotes.calls, 2)
	assert.Equal(t, "250500000", f.quotes.calls[1].SellAmount.String())
	assert.Equal(t, "250.5", res.Sold)
	assert.Zero(t, f.chain.Balance(usdc, account).Sign())
}

func TestSwapRejectsQuoteBeyondRequestedAmount(t *testing.T) {
	f := newFixture(t)
	f.chain.SetBalance(weth, settlementAddr, ether("5"))
	f.quotes.sellAmount = ether("5.1") // requested 0.1 plus the contract's own balance

	_, err := f.runner.Swap(context.Background(), swapRequest(t, "0.1", "WETH", "USDC"))

	var verr *settlement.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, f.chain.Sent())
	assert.Equal(t, ether("5"), f.chain.Balance(weth, settlementAddr))
}

func TestWithdrawFeeUnknownSymbol(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.WithdrawFee(context.Background(), "LINK", recipient)

	var unknown *ledger.UnknownTokenError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "LINK", unknown.Symbol)
	assert.Empty(t, f.chain.Sent())
	assert.Zero(t, f.journal.Count())
}

func TestSwapTargetMismatch(t *testing.T) {
	f := newFixture(t)
	rogue := common.HexToAddress("0x9999999999999999999999999999999999999999")
	f.quotes.target = rogue

	_, err := f.runner.Swap(context.Background(), swapRequest(t, "0.1", "WETH", "USDC"))

	var verr *settlement.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, settlement.CheckSwapTarget, verr.Check)
	assert.Contains(t, err.Error(), swapTarget.Hex())
	assert.Contains(t, err.Error(), rogue.Hex())
	assert.Empty(t, f.chain.Sent())

	entries := f.journal.List("")
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Failed())
	assert.Equal(t, "quoted", entries[0].State)
}

func TestSwapInsufficientBalanceSendsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.Swap(context.Background(), swapRequest(t, "2", "WETH", "USDC"))

	var verr *settlement.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, settlement.CheckFunds, verr.Check)
	assert.Empty(t, f.chain.Sent())
}

func TestSwapSellNative(t *testing.T) {
	f := newFixture(t)
	f.chain.BoughtAmount = ether("900")

	res, err := f.runner.Swap(context.Background(), swapRequest(t, "0.5", "ETH", "DAI"))
	require.NoError(t, err)

	assert.Equal(t, settlement.SellNative, res.Swap.Flow)
	assert.Equal(t, []string{contracts.MethodFillQuoteSellETH}, f.chain.Methods())
	assert.Equal(t, ether("0.5"), f.chain.Sent()[0].Value)
	assert.Equal(t, uint8(18), res.Sell.Decimals)
}

func TestSwapRejectsEntireNativeBalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.Swap(context.Background(), swapRequest(t, "all", "ETH", "DAI"))
	assert.Error(t, err)
	assert.Empty(t, f.quotes.calls)
	assert.Empty(t, f.chain.Sent())
}

func TestFlowFor(t *testing.T) {
	r := scenario.New(scenario.Options{NativeSymbol: "bnb"})
	assert.Equal(t, settlement.SellNative, r.FlowFor("BNB", "BUSD"))
	assert.Equal(t, settlement.BuyNative, r.FlowFor("BUSD", "bnb"))
	assert.Equal(t, settlement.TokenToToken, r.FlowFor("WBNB", "BUSD"))
}

func TestRunPlan(t *testing.T) {
	f := newFixture(t)
	f.chain.BoughtAmount = big.NewInt(5000000)
	f.chain.SetFee(usdc, big.NewInt(1000))
	f.chain.SetFee(dai, big.NewInt(2000))
	f.chain.SetFee(weth, big.NewInt(3000))

	report, err := f.runner.Run(context.Background(), scenario.Plan{
		WrappedToken: "WETH",
		Token1:       "DAI",
		Token2:       "USDC",
		SellAmount:   "0.1",
		FeeRecipient: recipient,
	})
	require.NoError(t, err)

	require.Len(t, report.Swaps, 4)
	assert.Equal(t, "DAI", report.Swaps[0].Buy.Symbol)
	assert.Equal(t, "USDC", report.Swaps[1].Buy.Symbol)
	assert.Equal(t, "DAI", report.Swaps[2].Sell.Symbol)
	assert.True(t, report.Swaps[2].Request.Amount.IsEntireBalance())

	var withdrawn []common.Address
	for _, tx := range f.chain.Sent() {
		if tx.Method == contracts.MethodWithdrawFee {
			withdrawn = append(withdrawn, tx.Args["token"].(common.Address))
		}
	}
	assert.Equal(t, []common.Address{usdc, dai, weth}, withdrawn)

	require.Len(t, report.Withdrawals, 3)
	assert.Equal(t, "1000", report.Withdrawals[0].Withdrawal.Amount.String())
	assert.Empty(t, report.Failed())
	assert.Equal(t, 7, f.journal.Count())
}

func TestRunCollectsWithdrawalFailures(t *testing.T) {
	f := newFixture(t)
	f.chain.BoughtAmount = big.NewInt(5000000)
	f.chain.Revert[contracts.MethodWithdrawFee] = true

	report, err := f.runner.Run(context.Background(), scenario.Plan{
		WrappedToken: "WETH",
		Token1:       "DAI",
		Token2:       "USDC",
		SellAmount:   "0.1",
		FeeRecipient: recipient,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 3 fee withdrawals failed")
	assert.Len(t, report.Swaps, 4)
	assert.Len(t, report.Failed(), 3)
}

func TestRunAbortsOnSwapFailure(t *testing.T) {
	f := newFixture(t)
	f.chain.Revert[contracts.MethodFillQuote] = true

	report, err := f.runner.Run(context.Background(), scenario.Plan{
		WrappedToken: "WETH",
		Token1:       "DAI",
		Token2:       "USDC",
		SellAmount:   "0.1",
		FeeRecipient: recipient,
	})

	var xerr *settlement.ExecutionError
	require.True(t, errors.As(err, &xerr))
	assert.Empty(t, report.Swaps)
	assert.Equal(t, []string{contracts.MethodApprove, contracts.MethodFillQuote}, f.chain.Methods())
}

func TestRunPlanValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), scenario.Plan{WrappedToken: "WETH"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token1, token2, sell_amount, fee_recipient")
}

func TestQuotePreviewSendsNothing(t *testing.T) {
	f := newFixture(t)

	p, err := f.runner.Quote(context.Background(), swapRequest(t, "0.25", "WETH", "DAI"))
	require.NoError(t, err)
	assert.Equal(t, ether("0.25"), p.SellAmount)
	assert.Equal(t, ether("1"), p.Balance)
	assert.Equal(t, swapTarget, p.State.SwapTarget)
	assert.NoError(t, p.Check())

	f.chain.SetSwapTarget(common.HexToAddress("0x9999999999999999999999999999999999999999"))
	p, err = f.runner.Quote(context.Background(), swapRequest(t, "0.25", "WETH", "DAI"))
	require.NoError(t, err)
	var verr *settlement.ValidationError
	assert.True(t, errors.As(p.Check(), &verr))

	assert.Empty(t, f.chain.Sent())
	assert.Zero(t, f.journal.Count())
}

func TestSettleFillsThePreviewedQuote(t *testing.T) {
	f := newFixture(t)
	f.chain.BoughtAmount = big.NewInt(183000000)

	p, err := f.runner.Quote(context.Background(), swapRequest(t, "0.1", "WETH", "USDC"))
	require.NoError(t, err)

	// the aggregator moves while the user confirms
	f.quotes.buyAmount = big.NewInt(1000)

	res, err := f.runner.Settle(context.Background(), p)
	require.NoError(t, err)

	assert.Same(t, p.Quote, res.Swap.Quote)
	assert.Len(t, f.quotes.calls, 2)
	assert.Equal(t, "184000000", res.Fill.EstimatedAmount.String())
	assert.Equal(t, []string{contracts.MethodApprove, contracts.MethodFillQuote}, f.chain.Methods())

	entries := f.journal.List("")
	require.Len(t, entries, 1)
	assert.Equal(t, "184000000", entries[0].EstimatedAmount)
	assert.Equal(t, journal.StatusCompleted, entries[0].Status)
}

func TestSettleRecordsRejectedPreview(t *testing.T) {
	f := newFixture(t)
	f.quotes.target = common.HexToAddress("0x9999999999999999999999999999999999999999")

	p, err := f.runner.Quote(context.Background(), swapRequest(t, "0.1", "WETH", "USDC"))
	require.NoError(t, err)
	require.Error(t, p.Check())

	_, err = f.runner.Settle(context.Background(), p)
	var verr *settlement.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, f.chain.Sent())

	entries := f.journal.List("")
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Failed())
	assert.Equal(t, "quoted", entries[0].State)
	assert.Equal(t, "WETH", entries[0].SellToken)
	assert.Empty(t, entries[0].ApproveTx)
	assert.Empty(t, entries[0].FillTx)
}

func TestSwapUnconfirmedFillKeepsHash(t *testing.T) {
	f := newFixture(t)
	f.chain.Unconfirmed[contracts.MethodFillQuote] = true

	_, err := f.runner.Swap(context.Background(), swapRequest(t, "0.1", "WETH", "USDC"))

	var xerr *settlement.ExecutionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, settlement.PhaseFill, xerr.Phase)
	assert.NotEqual(t, common.Hash{}, xerr.TxHash)

	sent := f.chain.Sent()
	require.Len(t, sent, 2)
	entries := f.journal.List("")
	require.Len(t, entries, 1)
	assert.Equal(t, sent[0].Hash.Hex(), entries[0].ApproveTx)
	assert.Equal(t, sent[1].Hash.Hex(), entries[0].FillTx)
	assert.Equal(t, "approved", entries[0].State)
}

func TestSwapUnconfirmedApprovalLeavesFillEmpty(t *testing.T) {
	f := newFixture(t)
	f.chain.Unconfirmed[contracts.MethodApprove] = true

	_, err := f.runner.Swap(context.Background(), swapRequest(t, "0.1", "WETH", "USDC"))
	require.Error(t, err)

	entries := f.journal.List("")
	require.Len(t, entries, 1)
	assert.Equal(t, f.chain.Sent()[0].Hash.Hex(), entries[0].ApproveTx)
	assert.Empty(t, entries[0].FillTx)
	assert.Equal(t, "validated", entries[0].State)
}
