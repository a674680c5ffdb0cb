package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	weth = common.HexToAddress("0xc778417e063141139fce010982780140aa0cd5ab")
	dai  = common.HexToAddress("0xad6d458402f60fd3bd25163575031acdce07538d")
)

func TestRecordAndResolve(t *testing.T) {
	l := New()
	l.Record("weth", weth)
	l.Record("WETH", weth)
	l.Record(" dai ", dai)

	addr, err := l.Resolve("Weth")
	require.NoError(t, err)
	assert.Equal(t, weth, addr)
	assert.Equal(t, []string{"DAI", "WETH"}, l.Symbols())
}

func TestResolveUnknown(t *testing.T) {
	_, err := New().Resolve("usdc")

	var unknown *UnknownTokenError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "USDC", unknown.Symbol)
}

func TestRecordConflictPanics(t *testing.T) {
	l := New()
	l.Record("WETH", weth)

	assert.Panics(t, func() { l.Record("WETH", dai) })

	addr, err := l.Resolve("WETH")
	require.NoError(t, err)
	assert.Equal(t, weth, addr)
}
