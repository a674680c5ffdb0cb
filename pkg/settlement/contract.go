package settlement

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"zrx-settle/pkg/chain"
	"zrx-settle/pkg/contracts"
	ztypes "zrx-settle/pkg/types"
)

// DefaultFillGasLimit is used for fills when no limit is configured.
const DefaultFillGasLimit = 1000000

// ContractState is the on-chain configuration of the settlement contract
// that quotes are checked against.
type ContractState struct {
	SwapTarget common.Address
	Fee        *big.Int
	Owner      common.Address
}

// Contract is the deployed settlement contract.
type Contract struct {
	chain        Chain
	address      common.Address
	fillGasLimit uint64
}

// NewContract binds the settlement contract at address. A zero fillGasLimit
// selects DefaultFillGasLimit.
func NewContract(c Chain, address common.Address, fillGasLimit uint64) *Contract {
	if fillGasLimit == 0 {
		fillGasLimit = DefaultFillGasLimit
	}
	return &Contract{chain: c, address: address, fillGasLimit: fillGasLimit}
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) SwapTarget(ctx context.Context) (common.Address, error) {
	var target common.Address
	err := c.call(ctx, &target, contracts.MethodGetSwapTarget)
	return target, err
}

func (c *Contract) Fee(ctx context.Context) (*big.Int, error) {
	var fee *big.Int
	err := c.call(ctx, &fee, contracts.MethodGetFee)
	return fee, err
}

func (c *Contract) Owner(ctx context.Context) (common.Address, error) {
	var owner common.Address
	err := c.call(ctx, &owner, contracts.MethodOwner)
	return owner, err
}

// State reads the swap target, fee and owner.
func (c *Contract) State(ctx context.Context) (*ContractState, error) {
	target, err := c.SwapTarget(ctx)
	if err != nil {
		return nil, err
	}
	fee, err := c.Fee(ctx)
	if err != nil {
		return nil, err
	}
	owner, err := c.Owner(ctx)
	if err != nil {
		return nil, err
	}
	return &ContractState{SwapTarget: target, Fee: fee, Owner: owner}, nil
}

// fill sends the flow's fill call for q and waits for it to be mined.
func (c *Contract) fill(ctx context.Context, flow Flow, q *ztypes.Quote) (*types.Receipt, error) {
	sellAmount := q.SellAmountBase()
	value := q.ValueWei()

	var (
		data []byte
		err  error
	)
	switch flow {
	case TokenToToken:
		data, err = contracts.Settlement.Pack(contracts.MethodFillQuote,
			sellAmount, q.SellTokenAddress, q.BuyTokenAddress, q.AllowanceTarget, []byte(q.Data))
	case SellNative:
		data, err = contracts.Settlement.Pack(contracts.MethodFillQuoteSellETH,
			sellAmount, q.BuyTokenAddress, q.AllowanceTarget, []byte(q.Data))
		value = new(big.Int).Add(value, sellAmount)
	case BuyNative:
		data, err = contracts.Settlement.Pack(contracts.MethodFillQuoteBuyETH,
			sellAmount, q.SellTokenAddress, q.AllowanceTarget, []byte(q.Data))
	default:
		return nil, errors.Errorf("unknown flow %s", flow)
	}
	if err != nil {
		return nil, errors.Wrap(err, "pack fill")
	}

	return c.chain.Transact(ctx, chain.TxRequest{
		To:       c.address,
		Data:     data,
		Value:    value,
		GasPrice: q.GasPriceWei(),
		GasLimit: c.fillGasLimit,
	})
}

func (c *Contract) withdrawFee(ctx context.Context, token, recipient common.Address) (*types.Receipt, error) {
	data, err := contracts.Settlement.Pack(contracts.MethodWithdrawFee, token, recipient)
	if err != nil {
		return nil, errors.Wrap(err, "pack withdrawFee")
	}
	return c.chain.Transact(ctx, chain.TxRequest{To: c.address, Data: data})
}

// eventAmount returns the named uint256 field of the first matching event
// the contract emitted in receipt.
func (c *Contract) eventAmount(receipt *types.Receipt, event, field string) (*big.Int, error) {
	ev, ok := contracts.Settlement.Events[event]
	if !ok {
		return nil, errors.Errorf("unknown event %s", event)
	}
	for _, lg := range receipt.Logs {
		if lg.Address != c.address || len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
			continue
		}
		values := make(map[string]interface{})
		if err := contracts.Settlement.UnpackIntoMap(values, event, lg.Data); err != nil {
			return nil, errors.Wrapf(err, "decode %s", event)
		}
		amount, ok := values[field].(*big.Int)
		if !ok {
			return nil, errors.Errorf("%s has no %s", event, field)
		}
		return amount, nil
	}
	return nil, errors.Errorf("no %s event in transaction %s", event, receipt.TxHash.Hex())
}

func (c *Contract) call(ctx context.Context, out interface{}, method string) error {
	data, err := contracts.Settlement.Pack(method)
	if err != nil {
		return errors.Wrapf(err, "pack %s", method)
	}
	raw, err := c.chain.Call(ctx, c.address, data)
	if err != nil {
		return errors.Wrapf(err, "call settlement.%s", method)
	}
	if err := contracts.Settlement.UnpackIntoInterface(out, method, raw); err != nil {
		return errors.Wrapf(err, "unpack %s", method)
	}
	return nil
}
