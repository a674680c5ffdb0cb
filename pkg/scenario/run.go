package scenario

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"zrx-settle/pkg/types"
)

// Plan is the network test scenario: buy two tokens with the wrapped native
// token, sell them back in full, then withdraw the fees collected on all
// three to the fee recipient.
type Plan struct {
	WrappedToken string
	Token1       string
	Token2       string
	SellAmount   string
	FeeRecipient common.Address
}

// Validate checks the plan has everything Run needs.
func (p Plan) Validate() error {
	var missing []string
	if p.WrappedToken == "" {
		missing = append(missing, "wrapped_token")
	}
	if p.Token1 == "" {
		missing = append(missing, "token1")
	}
	if p.Token2 == "" {
		missing = append(missing, "token2")
	}
	if p.SellAmount == "" {
		missing = append(missing, "sell_amount")
	}
	if p.FeeRecipient == (common.Address{}) {
		missing = append(missing, "fee_recipient")
	}
	if len(missing) > 0 {
		return errors.Errorf("run plan is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Report collects what a Run did.
type Report struct {
	Swaps       []*SwapResult
	Withdrawals []WithdrawOutcome
}

// Failed returns the withdrawals that did not succeed.
func (r *Report) Failed() []WithdrawOutcome {
	var out []WithdrawOutcome
	for _, w := range r.Withdrawals {
		if w.Err != nil {
			out = append(out, w)
		}
	}
	return out
}

// Run executes the plan. The first failed swap aborts the run; withdrawal
// failures are collected and returned together after all were attempted.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	amount, err := types.ParseSellAmount(plan.SellAmount)
	if err != nil {
		return nil, errors.Wrap(err, "sell_amount")
	}

	steps := []types.SwapRequest{
		{Amount: amount, SellToken: plan.WrappedToken, BuyToken: plan.Token1},
		{Amount: amount, SellToken: plan.WrappedToken, BuyToken: plan.Token2},
		{Amount: types.EntireBalance(), SellToken: plan.Token1, BuyToken: plan.WrappedToken},
		{Amount: types.EntireBalance(), SellToken: plan.Token2, BuyToken: plan.WrappedToken},
	}

	report := &Report{}
	for i, req := range steps {
		r.log.WithField("step", i+1).Infof("swap %s", req.String())
		res, err := r.Swap(ctx, req)
		if err != nil {
			return report, errors.Wrapf(err, "step %d (%s)", i+1, req.String())
		}
		report.Swaps = append(report.Swaps, res)
	}

	report.Withdrawals = r.WithdrawFees(ctx, []string{plan.Token2, plan.Token1, plan.WrappedToken}, plan.FeeRecipient)
	if failed := report.Failed(); len(failed) > 0 {
		msgs := make([]string, 0, len(failed))
		for _, f := range failed {
			msgs = append(msgs, f.Symbol+": "+f.Err.Error())
		}
		return report, errors.Errorf("%d of %d fee withdrawals failed: %s", len(failed), len(report.Withdrawals), strings.Join(msgs, "; "))
	}
	return report, nil
}
