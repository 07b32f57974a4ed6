package bank

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Payer moves native value out of the engine's reward pool. The engine
// calls it strictly after its own ledger mutation.
type Payer interface {
	Pay(ctx context.Context, to common.Address, amount *big.Int) error
}

// Memory is an in-process payer that accumulates per-address balances.
// Used in tests and dry runs.
type Memory struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int

	// FailWith, when set, makes every Pay return the error without
	// crediting anything.
	FailWith error
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[common.Address]*big.Int)}
}

func (m *Memory) Pay(_ context.Context, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid pay amount")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}

	balance, ok := m.balances[to]
	if !ok {
		balance = new(big.Int)
		m.balances[to] = balance
	}
	balance.Add(balance, amount)
	return nil
}

// Balance returns everything paid to the address so far.
func (m *Memory) Balance(addr common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}
