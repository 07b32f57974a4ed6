package hook

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lvrguard/internal/model"
)

// Claim pays the provider the unclaimed part of their pro-rata share of
// everything deposited into the pool:
//
//	reward = providerLiquidity * totalDeposited / totalLiquidity - alreadyClaimed
//
// with truncating division, capped by the pool's remaining balance. The
// rounding residue stays in the pool. A zero reward is a safe no-op and
// repeat claims without new settlements pay nothing. The ledger is
// mutated before the transfer and restored if the transfer fails.
func (e *Engine) Claim(ctx context.Context, pool common.Hash, provider common.Address) (*big.Int, error) {
	e.mu.Lock()
	if err := e.requireNotPaused(); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	ledger, ok := e.liquidity[pool]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: provider %s in pool %s", ErrNoLiquidity, provider.Hex(), pool.Hex())
	}
	stake, ok := ledger.providers[provider]
	if !ok || stake.Sign() == 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: provider %s in pool %s", ErrNoLiquidity, provider.Hex(), pool.Hex())
	}

	balance := e.rewardBalance[pool]
	deposited := e.deposited[pool]
	if balance == nil || balance.Sign() == 0 || deposited == nil || deposited.Sign() == 0 {
		e.mu.Unlock()
		return new(big.Int), nil
	}

	entitled := new(big.Int).Mul(stake, deposited)
	entitled.Div(entitled, ledger.total)
	reward := entitled.Sub(entitled, e.claimedLocked(pool, provider))
	if reward.Sign() <= 0 {
		e.mu.Unlock()
		return new(big.Int), nil
	}
	if reward.Cmp(balance) > 0 {
		reward.Set(balance)
	}

	balance.Sub(balance, reward)
	claimedByPool, ok := e.claimed[pool]
	if !ok {
		claimedByPool = make(map[common.Address]*big.Int)
		e.claimed[pool] = claimedByPool
	}
	cumulative, ok := claimedByPool[provider]
	if !ok {
		cumulative = new(big.Int)
		claimedByPool[provider] = cumulative
	}
	cumulative.Add(cumulative, reward)
	now := e.nowUnix()
	e.mu.Unlock()

	if err := e.payer.Pay(ctx, provider, reward); err != nil {
		e.mu.Lock()
		balance.Add(balance, reward)
		cumulative.Sub(cumulative, reward)
		e.mu.Unlock()
		return nil, fmt.Errorf("pay reward: %w", err)
	}

	e.logger.Info("rewards claimed",
		zap.String("pool", pool.Hex()),
		zap.String("provider", provider.Hex()),
		zap.String("amount", reward.String()),
	)
	e.notifier.RewardsClaimed(model.RewardsClaimed{
		PoolID:    pool.Hex(),
		Provider:  provider.Hex(),
		Amount:    reward.String(),
		ClaimedAt: now,
	})
	return reward, nil
}

// claimedLocked returns the provider's cumulative claimed amount without
// creating map entries. Callers must hold the engine mutex and must not
// mutate the returned value.
func (e *Engine) claimedLocked(pool common.Hash, provider common.Address) *big.Int {
	if claimedByPool, ok := e.claimed[pool]; ok {
		if cumulative, ok := claimedByPool[provider]; ok {
			return cumulative
		}
	}
	return new(big.Int)
}

// RewardBalance returns the pool's undistributed reward balance.
func (e *Engine) RewardBalance(pool common.Hash) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	balance, ok := e.rewardBalance[pool]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

// ClaimedRewards returns the provider's cumulative paid-out amount for the
// pool. Informational only; it never gates future claims.
func (e *Engine) ClaimedRewards(pool common.Hash, provider common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	claimedByPool, ok := e.claimed[pool]
	if !ok {
		return new(big.Int)
	}
	cumulative, ok := claimedByPool[provider]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(cumulative)
}

// TotalDeposited returns everything ever credited to the pool's reward
// balance across all settlements, net of protocol fees.
func (e *Engine) TotalDeposited(pool common.Hash) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	total, ok := e.deposited[pool]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(total)
}

// PoolIDs returns the ids of every pool the engine has seen, sorted for
// stable output.
func (e *Engine) PoolIDs() []common.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[common.Hash]struct{}, len(e.liquidity))
	for pool := range e.liquidity {
		seen[pool] = struct{}{}
	}
	for pool := range e.rewardBalance {
		seen[pool] = struct{}{}
	}
	ids := make([]common.Hash, 0, len(seen))
	for pool := range seen {
		ids = append(ids, pool)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Hex() < ids[j].Hex()
	})
	return ids
}

// PoolStat builds the read view of one pool's ledgers.
func (e *Engine) PoolStat(pool common.Hash) model.PoolStat {
	e.mu.Lock()
	defer e.mu.Unlock()

	stat := model.PoolStat{
		PoolID:         pool.Hex(),
		TotalLiquidity: "0",
		RewardBalance:  "0",
		TotalDeposited: "0",
		TotalClaimed:   "0",
	}
	if ledger, ok := e.liquidity[pool]; ok {
		stat.TotalLiquidity = ledger.total.String()
		stat.Providers = len(ledger.providers)
	}
	if balance, ok := e.rewardBalance[pool]; ok {
		stat.RewardBalance = balance.String()
	}
	if total, ok := e.deposited[pool]; ok {
		stat.TotalDeposited = total.String()
	}
	if claimedByPool, ok := e.claimed[pool]; ok {
		sum := new(big.Int)
		for _, cumulative := range claimedByPool {
			sum.Add(sum, cumulative)
		}
		stat.TotalClaimed = sum.String()
	}
	stat.AuctionsOpened = e.auctionSeq[pool]
	stat.AuctionsSettled = e.settledCount[pool]
	if id, ok := e.activeAuction[pool]; ok {
		stat.ActiveAuctionID = id.Hex()
		if auction, ok := e.auctions[id]; ok {
			stat.ActiveAuctionEnd = auction.EndTime()
		}
	}
	return stat
}
