package oracle

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Source supplies reference prices for asset pairs. Queried read-only at
// swap time; implementations must be safe for concurrent use.
type Source interface {
	Price(ctx context.Context, assetA, assetB common.Address) (*big.Int, error)
	IsStale(ctx context.Context, assetA, assetB common.Address) (bool, error)
	LastUpdate(ctx context.Context, assetA, assetB common.Address) (time.Time, error)
}

type pair struct {
	a common.Address
	b common.Address
}

// Static is an in-memory source for tests and local runs.
type Static struct {
	mu      sync.RWMutex
	prices  map[pair]*big.Int
	updated map[pair]time.Time
	stale   map[pair]bool
}

func NewStatic() *Static {
	return &Static{
		prices:  make(map[pair]*big.Int),
		updated: make(map[pair]time.Time),
		stale:   make(map[pair]bool),
	}
}

// SetPrice records a fresh price for the pair.
func (s *Static) SetPrice(assetA, assetB common.Address, price *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{assetA, assetB}
	s.prices[key] = new(big.Int).Set(price)
	s.updated[key] = time.Now()
	s.stale[key] = false
}

// MarkStale flags the pair's price as unusable.
func (s *Static) MarkStale(assetA, assetB common.Address, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale[pair{assetA, assetB}] = stale
}

func (s *Static) Price(_ context.Context, assetA, assetB common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[pair{assetA, assetB}]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(price), nil
}

func (s *Static) IsStale(_ context.Context, assetA, assetB common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := pair{assetA, assetB}
	if _, ok := s.prices[key]; !ok {
		return true, nil
	}
	return s.stale[key], nil
}

func (s *Static) LastUpdate(_ context.Context, assetA, assetB common.Address) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated[pair{assetA, assetB}], nil
}
