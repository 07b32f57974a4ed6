package hook

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"lvrguard/internal/model"
)

// auctionID derives a deterministic identifier from the pool, the start
// time, and a per-pool sequence so back-to-back auctions within the same
// second cannot collide.
func auctionID(pool common.Hash, startTime int64, seq uint64) common.Hash {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(startTime))
	binary.BigEndian.PutUint64(buf[8:16], seq)
	return crypto.Keccak256Hash(pool.Bytes(), buf[:])
}

// Open starts a new auction for the pool. It fails when the pool already
// has an active auction.
func (e *Engine) Open(pool common.Hash, duration time.Duration) (model.Auction, error) {
	e.mu.Lock()
	if err := e.requireNotPaused(); err != nil {
		e.mu.Unlock()
		return model.Auction{}, err
	}
	if id, active := e.activeAuction[pool]; active {
		e.mu.Unlock()
		return model.Auction{}, fmt.Errorf("%w: auction %s for pool %s", ErrAuctionAlreadyActive, id.Hex(), pool.Hex())
	}
	if duration <= 0 {
		duration = e.cfg.AuctionDuration
	}
	auction := e.openLocked(pool, duration)
	e.mu.Unlock()

	e.notifier.AuctionOpened(openedEvent(auction))
	return auction, nil
}

// openLocked creates the auction state. Callers must hold the engine
// mutex and have verified that no auction is active for the pool.
func (e *Engine) openLocked(pool common.Hash, duration time.Duration) model.Auction {
	start := e.nowUnix()
	seq := e.auctionSeq[pool]
	e.auctionSeq[pool] = seq + 1

	auction := &model.Auction{
		ID:         auctionID(pool, start, seq),
		PoolID:     pool,
		StartTime:  start,
		Duration:   int64(duration / time.Second),
		IsActive:   true,
		WinningBid: new(big.Int),
	}
	e.auctions[auction.ID] = auction
	e.activeAuction[pool] = auction.ID

	e.logger.Info("auction opened",
		zap.String("pool", pool.Hex()),
		zap.String("auction", auction.ID.Hex()),
		zap.Int64("start", auction.StartTime),
		zap.Int64("duration_seconds", auction.Duration),
	)
	return *auction
}

// Settle commits the auction result submitted by an authorized operator.
// The transition is one-way: the isActive guard makes re-settlement
// impossible. The winning bid, net of the protocol fee, is deposited into
// the pool's reward balance; the fee is routed to the fee recipient.
// While the fee transfer is in flight the pool stays reserved and the
// deposit is not yet credited, so no new auction can open and no claim
// can draw on a settlement that may still fail. The result flags are
// rolled back if the transfer fails, keeping the step all-or-nothing.
func (e *Engine) Settle(ctx context.Context, caller common.Address, auctionID common.Hash, winner common.Address, winningBid *big.Int, totalBids uint32) error {
	e.mu.Lock()
	if err := e.requireNotPaused(); err != nil {
		e.mu.Unlock()
		return err
	}
	if !e.isAuthorizedLocked(caller) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s may not settle auctions", ErrUnauthorized, caller.Hex())
	}
	auction, ok := e.auctions[auctionID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAuctionNotFound, auctionID.Hex())
	}
	if !auction.IsActive {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAuctionNotActive, auctionID.Hex())
	}
	now := e.nowUnix()
	if now < auction.EndTime() {
		e.mu.Unlock()
		return fmt.Errorf("%w: %ds remaining", ErrAuctionNotEnded, auction.EndTime()-now)
	}
	if winningBid == nil || winningBid.Sign() < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: winning bid must not be negative", ErrInvalidAmount)
	}
	if winningBid.Sign() > 0 && winner == (common.Address{}) {
		e.mu.Unlock()
		return fmt.Errorf("%w: winner must not be zero for a nonzero bid", ErrInvalidAmount)
	}

	fee := new(big.Int).Mul(winningBid, new(big.Int).SetUint64(e.cfg.ProtocolFeeBps))
	fee.Div(fee, bpsDenom)
	deposit := new(big.Int).Sub(winningBid, fee)
	feeRecipient := e.cfg.FeeRecipient

	auction.IsActive = false
	auction.IsComplete = true
	auction.Winner = winner
	auction.WinningBid = new(big.Int).Set(winningBid)
	auction.TotalBids = totalBids
	e.mu.Unlock()

	if fee.Sign() > 0 {
		if err := e.payer.Pay(ctx, feeRecipient, fee); err != nil {
			e.mu.Lock()
			auction.IsActive = true
			auction.IsComplete = false
			auction.Winner = common.Address{}
			auction.WinningBid = new(big.Int)
			auction.TotalBids = 0
			e.mu.Unlock()
			return fmt.Errorf("route protocol fee: %w", err)
		}
	}

	e.mu.Lock()
	delete(e.activeAuction, auction.PoolID)
	e.settledCount[auction.PoolID]++
	balance, ok := e.rewardBalance[auction.PoolID]
	if !ok {
		balance = new(big.Int)
		e.rewardBalance[auction.PoolID] = balance
	}
	balance.Add(balance, deposit)
	total, ok := e.deposited[auction.PoolID]
	if !ok {
		total = new(big.Int)
		e.deposited[auction.PoolID] = total
	}
	total.Add(total, deposit)
	e.mu.Unlock()

	e.logger.Info("auction settled",
		zap.String("pool", auction.PoolID.Hex()),
		zap.String("auction", auction.ID.Hex()),
		zap.String("winner", winner.Hex()),
		zap.String("winning_bid", winningBid.String()),
		zap.String("fee", fee.String()),
		zap.String("deposit", deposit.String()),
		zap.Uint32("total_bids", totalBids),
	)
	e.notifier.AuctionEnded(model.AuctionEnded{
		PoolID:     auction.PoolID.Hex(),
		AuctionID:  auction.ID.Hex(),
		Winner:     winner.Hex(),
		WinningBid: winningBid.String(),
		TotalBids:  totalBids,
		FeePaid:    fee.String(),
		Deposited:  deposit.String(),
		SettledAt:  now,
	})
	return nil
}

// Void terminates an auction that nobody settled. It is allowed only to
// the owner or an authorized operator, and only after the bidding window
// plus the grace window has elapsed. A voided auction is terminal with no
// payout and unblocks the pool for new auctions.
func (e *Engine) Void(caller common.Address, auctionID common.Hash) error {
	e.mu.Lock()
	if err := e.requireNotPaused(); err != nil {
		e.mu.Unlock()
		return err
	}
	if !e.isAuthorizedLocked(caller) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s may not void auctions", ErrUnauthorized, caller.Hex())
	}
	auction, ok := e.auctions[auctionID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAuctionNotFound, auctionID.Hex())
	}
	if !auction.IsActive {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAuctionNotActive, auctionID.Hex())
	}
	now := e.nowUnix()
	voidableAt := auction.EndTime() + int64(e.cfg.VoidGrace/time.Second)
	if now < voidableAt {
		e.mu.Unlock()
		return fmt.Errorf("%w: voidable in %ds", ErrAuctionNotEnded, voidableAt-now)
	}

	auction.IsActive = false
	auction.IsComplete = true
	auction.IsVoided = true
	delete(e.activeAuction, auction.PoolID)
	e.mu.Unlock()

	e.logger.Warn("auction voided",
		zap.String("pool", auction.PoolID.Hex()),
		zap.String("auction", auction.ID.Hex()),
		zap.String("by", caller.Hex()),
	)
	e.notifier.AuctionVoided(model.AuctionVoided{
		PoolID:    auction.PoolID.Hex(),
		AuctionID: auction.ID.Hex(),
		VoidedAt:  now,
	})
	return nil
}

// AuctionByID returns a copy of the auction state.
func (e *Engine) AuctionByID(id common.Hash) (model.Auction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.auctions[id]
	if !ok {
		return model.Auction{}, false
	}
	out := *auction
	out.WinningBid = new(big.Int).Set(auction.WinningBid)
	return out, true
}

// ActiveAuctionID returns the id of the pool's active auction, if any.
func (e *Engine) ActiveAuctionID(pool common.Hash) (common.Hash, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.activeAuction[pool]
	return id, ok
}

// ActiveAuctionCount returns the number of currently open auctions.
func (e *Engine) ActiveAuctionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.activeAuction)
}

func openedEvent(a model.Auction) model.AuctionOpened {
	return model.AuctionOpened{
		PoolID:    a.PoolID.Hex(),
		AuctionID: a.ID.Hex(),
		StartTime: a.StartTime,
		Duration:  a.Duration,
	}
}
