package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lvrguard/internal/model"
	"lvrguard/internal/storage/postgres"
)

const recordTimeout = 5 * time.Second

// Recorder persists settled auctions and claims to the history store.
type Recorder struct {
	store  *postgres.Store
	logger *zap.Logger
}

func NewRecorder(store *postgres.Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) AuctionOpened(ev model.AuctionOpened) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	record := model.AuctionRecord{
		AuctionID:  ev.AuctionID,
		PoolID:     ev.PoolID,
		StartTime:  ev.StartTime,
		Duration:   ev.Duration,
		Status:     string(model.AuctionStatusActive),
		WinningBid: "0",
		FeePaid:    "0",
		Deposited:  "0",
	}
	if err := r.store.UpsertAuctions(ctx, []model.AuctionRecord{record}); err != nil {
		r.logger.Error("record auction open", zap.String("auction", ev.AuctionID), zap.Error(err))
	}
}

func (r *Recorder) AuctionEnded(ev model.AuctionEnded) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	record := model.AuctionRecord{
		AuctionID:  ev.AuctionID,
		PoolID:     ev.PoolID,
		SettledAt:  ev.SettledAt,
		Status:     string(model.AuctionStatusSettled),
		Winner:     ev.Winner,
		WinningBid: ev.WinningBid,
		TotalBids:  ev.TotalBids,
		FeePaid:    ev.FeePaid,
		Deposited:  ev.Deposited,
	}
	if err := r.store.UpsertAuctions(ctx, []model.AuctionRecord{record}); err != nil {
		r.logger.Error("record auction settle", zap.String("auction", ev.AuctionID), zap.Error(err))
	}
}

func (r *Recorder) AuctionVoided(ev model.AuctionVoided) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	record := model.AuctionRecord{
		AuctionID:  ev.AuctionID,
		PoolID:     ev.PoolID,
		SettledAt:  ev.VoidedAt,
		Status:     string(model.AuctionStatusVoided),
		WinningBid: "0",
		FeePaid:    "0",
		Deposited:  "0",
	}
	if err := r.store.UpsertAuctions(ctx, []model.AuctionRecord{record}); err != nil {
		r.logger.Error("record auction void", zap.String("auction", ev.AuctionID), zap.Error(err))
	}
}

func (r *Recorder) RewardsClaimed(ev model.RewardsClaimed) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	record := model.ClaimRecord{
		PoolID:    ev.PoolID,
		Provider:  ev.Provider,
		Amount:    ev.Amount,
		ClaimedAt: ev.ClaimedAt,
	}
	if err := r.store.InsertClaims(ctx, []model.ClaimRecord{record}); err != nil {
		r.logger.Error("record claim", zap.String("pool", ev.PoolID), zap.Error(err))
	}
}
