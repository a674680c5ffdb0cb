// Package ledger remembers which token address each symbol resolved to during
// a run, so fees can later be withdrawn by symbol.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// UnknownTokenError is returned when a symbol was never seen in a quote.
type UnknownTokenError struct {
	Symbol string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("token %s has not been seen in any quote this run", e.Symbol)
}

// FeeLedger maps token symbols to the addresses the aggregator reported for
// them. Entries are never removed or changed once recorded.
type FeeLedger struct {
	mu     sync.RWMutex
	tokens map[string]common.Address
}

func New() *FeeLedger {
	return &FeeLedger{tokens: make(map[string]common.Address)}
}

// Record stores the address of symbol. Recording the same mapping again is a
// no-op; recording a different address for a known symbol panics.
func (l *FeeLedger) Record(symbol string, addr common.Address) {
	symbol = normalize(symbol)

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.tokens[symbol]; ok {
		if prev != addr {
			panic(fmt.Sprintf("ledger: %s already resolved to %s, got %s", symbol, prev.Hex(), addr.Hex()))
		}
		return
	}
	l.tokens[symbol] = addr
}

// Resolve returns the address recorded for symbol.
func (l *FeeLedger) Resolve(symbol string) (common.Address, error) {
	symbol = normalize(symbol)

	l.mu.RLock()
	defer l.mu.RUnlock()

	addr, ok := l.tokens[symbol]
	if !ok {
		return common.Address{}, &UnknownTokenError{Symbol: symbol}
	}
	return addr, nil
}

// Symbols returns the recorded symbols in sorted order.
func (l *FeeLedger) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.tokens))
	for s := range l.tokens {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
