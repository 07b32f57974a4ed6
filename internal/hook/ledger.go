package hook

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// OnLiquidityAdded credits delta to the provider and the pool total. Only
// the configured pool manager may call it, and never while paused. The
// returned marker lets the caller verify the hook executed.
func (e *Engine) OnLiquidityAdded(caller common.Address, pool common.Hash, provider common.Address, delta *big.Int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requirePoolManager(caller); err != nil {
		return "", err
	}
	if err := e.requireNotPaused(); err != nil {
		return "", err
	}
	if delta == nil || delta.Sign() < 0 {
		return "", fmt.Errorf("%w: liquidity delta must not be negative", ErrInvalidAmount)
	}
	if delta.Sign() == 0 {
		return AckLiquidityAdded, nil
	}

	ledger := e.ledgerFor(pool)
	balance, ok := ledger.providers[provider]
	if !ok {
		balance = new(big.Int)
		ledger.providers[provider] = balance
	}
	balance.Add(balance, delta)
	ledger.total.Add(ledger.total, delta)

	e.logger.Debug("liquidity added",
		zap.String("pool", pool.Hex()),
		zap.String("provider", provider.Hex()),
		zap.String("delta", delta.String()),
		zap.String("total", ledger.total.String()),
	)
	return AckLiquidityAdded, nil
}

// OnLiquidityRemoved debits delta from the provider and the pool total,
// rejecting any removal that would drive the provider's balance negative.
func (e *Engine) OnLiquidityRemoved(caller common.Address, pool common.Hash, provider common.Address, delta *big.Int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requirePoolManager(caller); err != nil {
		return "", err
	}
	if err := e.requireNotPaused(); err != nil {
		return "", err
	}
	if delta == nil || delta.Sign() < 0 {
		return "", fmt.Errorf("%w: liquidity delta must not be negative", ErrInvalidAmount)
	}
	if delta.Sign() == 0 {
		return AckLiquidityRemoved, nil
	}

	ledger := e.ledgerFor(pool)
	balance, ok := ledger.providers[provider]
	if !ok || balance.Cmp(delta) < 0 {
		return "", fmt.Errorf("%w: provider %s in pool %s", ErrInsufficientLiquidity, provider.Hex(), pool.Hex())
	}
	balance.Sub(balance, delta)
	ledger.total.Sub(ledger.total, delta)
	if balance.Sign() == 0 {
		delete(ledger.providers, provider)
	}

	e.logger.Debug("liquidity removed",
		zap.String("pool", pool.Hex()),
		zap.String("provider", provider.Hex()),
		zap.String("delta", delta.String()),
		zap.String("total", ledger.total.String()),
	)
	return AckLiquidityRemoved, nil
}

// ProviderLiquidity returns the provider's current stake in the pool.
func (e *Engine) ProviderLiquidity(pool common.Hash, provider common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	ledger, ok := e.liquidity[pool]
	if !ok {
		return new(big.Int)
	}
	balance, ok := ledger.providers[provider]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

// TotalLiquidity returns the pool's aggregate stake.
func (e *Engine) TotalLiquidity(pool common.Hash) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	ledger, ok := e.liquidity[pool]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(ledger.total)
}

// ledgerFor returns the pool ledger, creating it on first touch.
// Callers must hold the engine mutex.
func (e *Engine) ledgerFor(pool common.Hash) *poolLedger {
	ledger, ok := e.liquidity[pool]
	if !ok {
		ledger = &poolLedger{
			total:     new(big.Int),
			providers: make(map[common.Address]*big.Int),
		}
		e.liquidity[pool] = ledger
	}
	return ledger
}
