package hook

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var bpsDenom = big.NewInt(bpsDenominator)

// DeviationBps returns |current-reference|*10000/reference, truncated.
// A nil, zero, or negative reference yields zero: the detector fails safe
// to "cannot assess" rather than triggering on garbage.
func DeviationBps(current, reference *big.Int) uint64 {
	if current == nil || reference == nil || reference.Sign() <= 0 || current.Sign() < 0 {
		return 0
	}
	diff := new(big.Int).Sub(current, reference)
	diff.Abs(diff)
	diff.Mul(diff, bpsDenom)
	diff.Div(diff, reference)
	if !diff.IsUint64() {
		return ^uint64(0)
	}
	return diff.Uint64()
}

// OnSwap is the swap-boundary callback from the pool manager. It queries
// the injected oracle for the reference price of the pool's pair and runs
// the deviation check. Oracle failures and stale prices never fail the
// host swap; they resolve to "do not trigger".
func (e *Engine) OnSwap(ctx context.Context, caller common.Address, pool common.Hash, asset0, asset1 common.Address, poolPrice *big.Int) (string, error) {
	if e.IsPaused() {
		return "", ErrPaused
	}
	if caller != e.Config().PoolManager {
		return "", ErrUnauthorized
	}

	if e.oracle == nil {
		return AckSwap, nil
	}

	refPrice, err := e.oracle.Price(ctx, asset0, asset1)
	if err != nil {
		e.logger.Warn("oracle price query failed", zap.String("pool", pool.Hex()), zap.Error(err))
		return AckSwap, nil
	}
	stale, err := e.oracle.IsStale(ctx, asset0, asset1)
	if err != nil {
		e.logger.Warn("oracle staleness query failed", zap.String("pool", pool.Hex()), zap.Error(err))
		return AckSwap, nil
	}

	e.CheckAndTrigger(pool, poolPrice, refPrice, stale)
	return AckSwap, nil
}

// CheckAndTrigger compares the pool's effective price against the
// reference and opens an auction when the deviation meets the threshold
// and no auction is active for the pool. It reports whether an auction
// was opened. Borderline and undefined inputs are no-ops.
func (e *Engine) CheckAndTrigger(pool common.Hash, poolPrice, referencePrice *big.Int, referenceIsStale bool) bool {
	if referenceIsStale {
		return false
	}
	deviation := DeviationBps(poolPrice, referencePrice)
	if deviation == 0 {
		return false
	}

	e.mu.Lock()
	if e.paused || deviation < e.cfg.DeviationThresholdBps {
		e.mu.Unlock()
		return false
	}
	if _, active := e.activeAuction[pool]; active {
		e.mu.Unlock()
		return false
	}
	auction := e.openLocked(pool, e.cfg.AuctionDuration)
	e.mu.Unlock()

	e.logger.Info("deviation triggered auction",
		zap.String("pool", pool.Hex()),
		zap.Uint64("deviation_bps", deviation),
		zap.String("auction", auction.ID.Hex()),
	)
	e.notifier.AuctionOpened(openedEvent(auction))
	return true
}
