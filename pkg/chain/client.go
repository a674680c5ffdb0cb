package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Backend is the part of an Ethereum RPC client the account needs.
// *ethclient.Client and the simulated backend's client both satisfy it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TxRequest describes a contract call to sign and send. Zero GasPrice or
// GasLimit means "ask the node".
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasPrice *big.Int
	GasLimit uint64
}

// RevertedError is returned when a transaction was mined with a failed status.
type RevertedError struct {
	TxHash  common.Hash
	Receipt *types.Receipt
}

func (e *RevertedError) Error() string {
	return "transaction " + e.TxHash.Hex() + " reverted"
}

// UnconfirmedError is returned when a transaction was broadcast but its
// receipt could not be obtained, for example because ctx was cancelled. The
// transaction may still be mined.
type UnconfirmedError struct {
	TxHash common.Hash
	Err    error
}

func (e *UnconfirmedError) Error() string {
	return "transaction " + e.TxHash.Hex() + " sent but not confirmed: " + e.Err.Error()
}

func (e *UnconfirmedError) Unwrap() error {
	return e.Err
}

// SentTxHash returns the hash of the broadcast transaction err refers to, if
// it refers to one.
func SentTxHash(err error) (common.Hash, bool) {
	var reverted *RevertedError
	if errors.As(err, &reverted) {
		return reverted.TxHash, true
	}
	var unconfirmed *UnconfirmedError
	if errors.As(err, &unconfirmed) {
		return unconfirmed.TxHash, true
	}
	return common.Hash{}, false
}

// Options tunes transaction building.
type Options struct {
	// GasPrice overrides the node's suggestion when a request carries none.
	GasPrice *big.Int
}

// Client is the signing settlement account bound to one network.
type Client struct {
	backend    Backend
	privateKey *ecdsa.PrivateKey
	from       common.Address
	chainID    *big.Int
	opts       Options
	log        logrus.FieldLogger
}

// Dial connects to the RPC endpoint and checks that it serves the expected chain.
func Dial(ctx context.Context, rpcURL string, chainID int64, key *ecdsa.PrivateKey, opts Options, log logrus.FieldLogger) (*Client, error) {
	if rpcURL == "" {
		return nil, errors.New("RPC URL not configured")
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RPC endpoint")
	}

	remote, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, errors.Wrap(err, "failed to read chain id")
	}
	if chainID != 0 && remote.Int64() != chainID {
		eth.Close()
		return nil, errors.Errorf("RPC endpoint serves chain %s, configured chain is %d", remote, chainID)
	}

	c := NewClient(eth, key, remote, opts, log)
	return c, nil
}

// NewClient binds a key to an already connected backend.
func NewClient(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, opts Options, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		backend:    backend,
		privateKey: key,
		from:       crypto.PubkeyToAddress(key.PublicKey),
		chainID:    chainID,
		opts:       opts,
		log:        log,
	}
}

// Account returns the signing address.
func (c *Client) Account() common.Address {
	return c.from
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Call executes a read-only contract call against the latest block.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", to.Hex())
	}
	return out, nil
}

// NativeBalance returns the account's balance of the chain's native currency.
func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	return balance, nil
}

// Transact signs and broadcasts the request, then blocks until it is mined.
// A mined transaction with a failed status is reported as *RevertedError.
func (c *Client) Transact(ctx context.Context, req TxRequest) (*types.Receipt, error) {
	tx, err := c.buildSignedTx(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return nil, errors.Wrap(err, "failed to send transaction")
	}
	c.log.WithFields(logrus.Fields{"tx": tx.Hash().Hex(), "to": req.To.Hex()}).Debug("transaction sent, waiting to be mined")

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, &UnconfirmedError{TxHash: tx.Hash(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &RevertedError{TxHash: tx.Hash(), Receipt: receipt}
	}
	c.log.WithFields(logrus.Fields{"tx": tx.Hash().Hex(), "block": receipt.BlockNumber, "gas_used": receipt.GasUsed}).Debug("transaction mined")
	return receipt, nil
}

func (c *Client) buildSignedTx(ctx context.Context, req TxRequest) (*types.Transaction, error) {
	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get nonce")
	}

	gasPrice, err := c.gasPrice(ctx, req.GasPrice)
	if err != nil {
		return nil, err
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		estimated, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:     c.from,
			To:       &req.To,
			GasPrice: gasPrice,
			Value:    value,
			Data:     req.Data,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to estimate gas")
		}
		gasLimit = estimated * 120 / 100 // Add 20% buffer
	}

	tx := types.NewTransaction(nonce, req.To, value, gasLimit, gasPrice, req.Data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	return signed, nil
}

// gasPrice returns the gas price to use for transactions
func (c *Client) gasPrice(ctx context.Context, requested *big.Int) (*big.Int, error) {
	if requested != nil && requested.Sign() > 0 {
		return requested, nil
	}
	if c.opts.GasPrice != nil && c.opts.GasPrice.Sign() > 0 {
		return c.opts.GasPrice, nil
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas price")
	}
	return gasPrice, nil
}

// Close closes the client connection
func (c *Client) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}
