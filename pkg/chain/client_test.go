package chain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commitLoop mines pending transactions until stop is closed so that
// Transact's wait-for-mined returns.
func commitLoop(sim *simulated.Backend, stop <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sim.Commit()
		}
	}
}

func newSimulatedClient(t *testing.T) (*Client, *simulated.Backend) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	ether := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	sim := simulated.NewBackend(types.GenesisAlloc{
		from: {Balance: new(big.Int).Mul(big.NewInt(10), ether)},
	})
	t.Cleanup(func() { _ = sim.Close() })

	backend := sim.Client()
	chainID, err := backend.ChainID(context.Background())
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return NewClient(backend, key, chainID, Options{}, log), sim
}

func TestTransactWaitsForMinedReceipt(t *testing.T) {
	c, sim := newSimulatedClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recipient := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stop := make(chan struct{})
	go commitLoop(sim, stop)
	defer close(stop)

	receipt, err := c.Transact(ctx, TxRequest{To: recipient, Value: big.NewInt(12345)})
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	balance, err := c.NativeBalance(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), balance.Int64())
}

func TestAccountAndBalance(t *testing.T) {
	c, _ := newSimulatedClient(t)

	balance, err := c.NativeBalance(context.Background(), c.Account())
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000", balance.String())
	assert.Equal(t, int64(1337), c.ChainID().Int64())
}

func TestGasPricePreference(t *testing.T) {
	c, _ := newSimulatedClient(t)
	ctx := context.Background()

	requested := big.NewInt(7)
	got, err := c.gasPrice(ctx, requested)
	require.NoError(t, err)
	assert.Equal(t, requested, got)

	c.opts.GasPrice = big.NewInt(9)
	got, err = c.gasPrice(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Int64())

	c.opts.GasPrice = nil
	got, err = c.gasPrice(ctx, nil)
	require.NoError(t, err)
	assert.Positive(t, got.Sign())
}

func TestTransactKeepsHashWhenNotConfirmed(t *testing.T) {
	c, _ := newSimulatedClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// nothing commits blocks, so the wait runs out
	_, err := c.Transact(ctx, TxRequest{To: common.HexToAddress("0x00000000000000000000000000000000000000aa"), Value: big.NewInt(1)})
	require.Error(t, err)

	var unconfirmed *UnconfirmedError
	require.True(t, errors.As(err, &unconfirmed))
	assert.NotEqual(t, common.Hash{}, unconfirmed.TxHash)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	hash, ok := SentTxHash(err)
	assert.True(t, ok)
	assert.Equal(t, unconfirmed.TxHash, hash)
}

func TestSentTxHash(t *testing.T) {
	hash := common.HexToHash("0x01")

	got, ok := SentTxHash(errors.Wrap(&RevertedError{TxHash: hash}, "fill"))
	assert.True(t, ok)
	assert.Equal(t, hash, got)

	_, ok = SentTxHash(errors.New("failed to estimate gas"))
	assert.False(t, ok)
}
