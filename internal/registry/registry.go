package registry

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry attests operator registration and stake. Consulted by the
// administrative layer before allowlisting an operator, never on the
// settlement hot path.
type Registry interface {
	IsRegistered(ctx context.Context, registryID common.Hash, operator common.Address) (bool, error)
	Stake(ctx context.Context, registryID common.Hash, operator common.Address) (*big.Int, error)
}

type key struct {
	registryID common.Hash
	operator   common.Address
}

// Static is an in-memory registry for tests and local runs.
type Static struct {
	mu         sync.RWMutex
	registered map[key]bool
	stakes     map[key]*big.Int
}

func NewStatic() *Static {
	return &Static{
		registered: make(map[key]bool),
		stakes:     make(map[key]*big.Int),
	}
}

// Register records an operator with the given stake.
func (s *Static) Register(registryID common.Hash, operator common.Address, stake *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{registryID, operator}
	s.registered[k] = true
	s.stakes[k] = new(big.Int).Set(stake)
}

func (s *Static) IsRegistered(_ context.Context, registryID common.Hash, operator common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registered[key{registryID, operator}], nil
}

func (s *Static) Stake(_ context.Context, registryID common.Hash, operator common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stake, ok := s.stakes[key{registryID, operator}]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(stake), nil
}
