package settlement

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"zrx-settle/pkg/chain"
	"zrx-settle/pkg/contracts"
)

// Chain is the settlement account as seen by this package: read-only calls,
// native balances and transactions that return once mined.
type Chain interface {
	Account() common.Address
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	Transact(ctx context.Context, req chain.TxRequest) (*types.Receipt, error)
}

// Token is an ERC20 contract.
type Token struct {
	chain   Chain
	address common.Address
}

func NewToken(c Chain, address common.Address) *Token {
	return &Token{chain: c, address: address}
}

func (t *Token) Address() common.Address {
	return t.address
}

func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	var decimals uint8
	if err := t.call(ctx, &decimals, contracts.MethodDecimals); err != nil {
		return 0, err
	}
	return decimals, nil
}

func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := t.call(ctx, &balance, contracts.MethodBalanceOf, owner); err != nil {
		return nil, err
	}
	return balance, nil
}

func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := t.call(ctx, &allowance, contracts.MethodAllowance, owner, spender); err != nil {
		return nil, err
	}
	return allowance, nil
}

// Approve sets spender's allowance to exactly amount and waits for mining.
func (t *Token) Approve(ctx context.Context, spender common.Address, amount, gasPrice *big.Int) (*types.Receipt, error) {
	data, err := contracts.ERC20.Pack(contracts.MethodApprove, spender, amount)
	if err != nil {
		return nil, errors.Wrap(err, "pack approve")
	}
	return t.chain.Transact(ctx, chain.TxRequest{To: t.address, Data: data, GasPrice: gasPrice})
}

func (t *Token) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	data, err := contracts.ERC20.Pack(method, args...)
	if err != nil {
		return errors.Wrapf(err, "pack %s", method)
	}
	raw, err := t.chain.Call(ctx, t.address, data)
	if err != nil {
		return errors.Wrapf(err, "call %s.%s", t.address.Hex(), method)
	}
	if err := contracts.ERC20.UnpackIntoInterface(out, method, raw); err != nil {
		return errors.Wrapf(err, "unpack %s", method)
	}
	return nil
}
