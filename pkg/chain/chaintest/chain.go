// Package chaintest provides an in-memory stand-in for the settlement account
// and the contracts it talks to: ERC20 tokens and the settlement contract.
package chaintest

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"zrx-settle/pkg/chain"
	"zrx-settle/pkg/contracts"
)

// Tx is a transaction the double accepted, decoded for assertions.
type Tx struct {
	Hash     common.Hash
	To       common.Address
	Method   string
	Args     map[string]interface{}
	Value    *big.Int
	GasPrice *big.Int
	GasLimit uint64
}

type token struct {
	decimals   uint8
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// Chain is a single-account chain holding ERC20 tokens and one settlement
// contract. Fills pull the sold amount through the allowance the account
// granted, the way the real contract does, and revert when it is too small.
type Chain struct {
	mu sync.Mutex

	account    common.Address
	settlement common.Address
	swapTarget common.Address
	owner      common.Address
	fee        *big.Int

	native map[common.Address]*big.Int
	tokens map[common.Address]*token
	fees   map[common.Address]*big.Int

	// BoughtAmount is emitted in BoughtTokens and credited to the account on
	// every fill.
	BoughtAmount *big.Int
	// Revert makes the named method revert.
	Revert map[string]bool
	// Unconfirmed makes the named method's transaction broadcast without a
	// receipt ever arriving.
	Unconfirmed map[string]bool

	sent []Tx
}

// New returns a chain whose settlement contract is configured with swapTarget.
func New(account, settlement, swapTarget common.Address) *Chain {
	return &Chain{
		account:      account,
		settlement:   settlement,
		swapTarget:   swapTarget,
		owner:        account,
		fee:          big.NewInt(1),
		native:       make(map[common.Address]*big.Int),
		tokens:       make(map[common.Address]*token),
		fees:         make(map[common.Address]*big.Int),
		BoughtAmount: big.NewInt(0),
		Revert:       make(map[string]bool),
		Unconfirmed:  make(map[string]bool),
	}
}

// AddToken deploys an ERC20 with the given decimals.
func (c *Chain) AddToken(addr common.Address, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[addr] = &token{
		decimals:   decimals,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// SetBalance sets holder's balance of tok.
func (c *Chain) SetBalance(tok, holder common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustToken(tok).balances[holder] = new(big.Int).Set(amount)
}

func (c *Chain) SetNativeBalance(holder common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native[holder] = new(big.Int).Set(amount)
}

// SetFee sets the withdrawable fee the settlement contract holds for tok.
func (c *Chain) SetFee(tok common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fees[tok] = new(big.Int).Set(amount)
}

func (c *Chain) SetSwapTarget(addr common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swapTarget = addr
}

// Balance returns holder's balance of tok.
func (c *Chain) Balance(tok, holder common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return get(c.mustToken(tok).balances, holder)
}

// Allowance returns what holder allowed spender to pull of tok.
func (c *Chain) Allowance(tok, holder, spender common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowance(c.mustToken(tok), holder, spender)
}

// Sent returns the accepted transactions in order.
func (c *Chain) Sent() []Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Tx(nil), c.sent...)
}

// Methods returns the method names of the accepted transactions in order.
func (c *Chain) Methods() []string {
	var out []string
	for _, tx := range c.Sent() {
		out = append(out, tx.Method)
	}
	return out
}

func (c *Chain) Account() common.Address {
	return c.account
}

func (c *Chain) NativeBalance(_ context.Context, account common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return get(c.native, account), nil
}

// Call answers view calls on the settlement contract and on tokens.
func (c *Chain) Call(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if to == c.settlement {
		method, _, err := decode(contracts.Settlement, data)
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case contracts.MethodGetSwapTarget:
			return method.Outputs.Pack(c.swapTarget)
		case contracts.MethodGetFee:
			return method.Outputs.Pack(c.fee)
		case contracts.MethodOwner:
			return method.Outputs.Pack(c.owner)
		}
		return nil, errors.Errorf("settlement: %s is not a view", method.Name)
	}

	tok, ok := c.tokens[to]
	if !ok {
		return nil, errors.Errorf("no contract at %s", to.Hex())
	}
	method, args, err := decode(contracts.ERC20, data)
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case contracts.MethodDecimals:
		return method.Outputs.Pack(tok.decimals)
	case contracts.MethodBalanceOf:
		return method.Outputs.Pack(get(tok.balances, args["owner"].(common.Address)))
	case contracts.MethodAllowance:
		return method.Outputs.Pack(c.allowance(tok, args["owner"].(common.Address), args["spender"].(common.Address)))
	}
	return nil, errors.Errorf("erc20: %s is not a view", method.Name)
}

// Transact applies the call immediately and returns its receipt, as if it
// had been mined in the next block.
func (c *Chain) Transact(_ context.Context, req chain.TxRequest) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	def := contracts.ERC20
	if req.To == c.settlement {
		def = contracts.Settlement
	} else if _, ok := c.tokens[req.To]; !ok {
		return nil, errors.Errorf("no contract at %s", req.To.Hex())
	}
	method, args, err := decode(def, req.Data)
	if err != nil {
		return nil, err
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}
	hash := c.nextHash()
	c.sent = append(c.sent, Tx{
		Hash:     hash,
		To:       req.To,
		Method:   method.Name,
		Args:     args,
		Value:    new(big.Int).Set(value),
		GasPrice: req.GasPrice,
		GasLimit: req.GasLimit,
	})

	if c.Unconfirmed[method.Name] {
		return nil, &chain.UnconfirmedError{TxHash: hash, Err: context.Canceled}
	}

	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(int64(len(c.sent))),
	}
	if c.Revert[method.Name] {
		receipt.Status = types.ReceiptStatusFailed
		return receipt, &chain.RevertedError{TxHash: hash, Receipt: receipt}
	}

	logs, err := c.apply(req.To, method.Name, args, value)
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		return receipt, &chain.RevertedError{TxHash: hash, Receipt: receipt}
	}
	receipt.Logs = logs
	return receipt, nil
}

func (c *Chain) apply(to common.Address, method string, args map[string]interface{}, value *big.Int) ([]*types.Log, error) {
	switch method {
	case contracts.MethodApprove:
		tok := c.tokens[to]
		if tok.allowances[c.account] == nil {
			tok.allowances[c.account] = make(map[common.Address]*big.Int)
		}
		tok.allowances[c.account][args["spender"].(common.Address)] = new(big.Int).Set(args["amount"].(*big.Int))
		return nil, nil

	case contracts.MethodFillQuote:
		sellAmount := args["sellAmount"].(*big.Int)
		if err := c.pull(args["sellToken"].(common.Address), sellAmount); err != nil {
			return nil, err
		}
		c.credit(args["buyToken"].(common.Address), c.BoughtAmount)
		return c.emit(contracts.EventBoughtTokens, c.BoughtAmount)

	case contracts.MethodFillQuoteSellETH:
		sellAmount := args["sellAmount"].(*big.Int)
		if value.Cmp(sellAmount) < 0 {
			return nil, errors.Errorf("value %s below sell amount %s", value, sellAmount)
		}
		balance := get(c.native, c.account)
		if balance.Cmp(value) < 0 {
			return nil, errors.New("insufficient funds")
		}
		c.native[c.account] = new(big.Int).Sub(balance, value)
		c.credit(args["buyToken"].(common.Address), c.BoughtAmount)
		return c.emit(contracts.EventBoughtTokens, c.BoughtAmount)

	case contracts.MethodFillQuoteBuyETH:
		if err := c.pull(args["sellToken"].(common.Address), args["sellAmount"].(*big.Int)); err != nil {
			return nil, err
		}
		c.native[c.account] = new(big.Int).Add(get(c.native, c.account), c.BoughtAmount)
		return c.emit(contracts.EventBoughtTokens, c.BoughtAmount)

	case contracts.MethodWithdrawFee:
		tok := args["token"].(common.Address)
		amount := get(c.fees, tok)
		c.fees[tok] = big.NewInt(0)
		return c.emit(contracts.EventWithdrawFee, amount)
	}
	return nil, errors.Errorf("%s is not supported", method)
}

// pull moves amount of tok from the account into the settlement contract,
// limited by the allowance the account granted.
func (c *Chain) pull(tokAddr common.Address, amount *big.Int) error {
	tok, ok := c.tokens[tokAddr]
	if !ok {
		return errors.Errorf("unknown token %s", tokAddr.Hex())
	}
	allowance := c.allowance(tok, c.account, c.settlement)
	if allowance.Cmp(amount) < 0 {
		return errors.Errorf("allowance %s below %s", allowance, amount)
	}
	balance := get(tok.balances, c.account)
	if balance.Cmp(amount) < 0 {
		return errors.Errorf("balance %s below %s", balance, amount)
	}
	tok.balances[c.account] = new(big.Int).Sub(balance, amount)
	tok.balances[c.settlement] = new(big.Int).Add(get(tok.balances, c.settlement), amount)
	tok.allowances[c.account][c.settlement] = new(big.Int).Sub(allowance, amount)
	return nil
}

func (c *Chain) credit(tokAddr common.Address, amount *big.Int) {
	if tok, ok := c.tokens[tokAddr]; ok {
		tok.balances[c.account] = new(big.Int).Add(get(tok.balances, c.account), amount)
	}
}

func (c *Chain) emit(event string, amount *big.Int) ([]*types.Log, error) {
	ev := contracts.Settlement.Events[event]
	data, err := ev.Inputs.NonIndexed().Pack(amount)
	if err != nil {
		return nil, err
	}
	return []*types.Log{{
		Address: c.settlement,
		Topics:  []common.Hash{ev.ID},
		Data:    data,
	}}, nil
}

func (c *Chain) allowance(tok *token, holder, spender common.Address) *big.Int {
	if tok.allowances[holder] == nil {
		return big.NewInt(0)
	}
	return get(tok.allowances[holder], spender)
}

func (c *Chain) mustToken(addr common.Address) *token {
	tok, ok := c.tokens[addr]
	if !ok {
		panic("chaintest: unknown token " + addr.Hex())
	}
	return tok
}

func (c *Chain) nextHash() common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(c.sent)+1))
	return crypto.Keccak256Hash(buf[:])
}

func decode(def abi.ABI, data []byte) (*abi.Method, map[string]interface{}, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("calldata too short")
	}
	method, err := def.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

func get(m map[common.Address]*big.Int, addr common.Address) *big.Int {
	if v, ok := m[addr]; ok {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}
