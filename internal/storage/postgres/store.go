package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lvrguard/internal/model"
)

// Store provides Postgres persistence for settlement history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertAuctions inserts or updates auction records.
func (s *Store) UpsertAuctions(ctx context.Context, auctions []model.AuctionRecord) error {
	if len(auctions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range auctions {
		batch.Queue(`
			INSERT INTO auctions (
				auction_id, pool_id, start_time, duration_seconds, status,
				winner, winning_bid, total_bids, fee_paid, reward_deposited, settled_at,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
			ON CONFLICT (auction_id)
			DO UPDATE SET
				status = EXCLUDED.status,
				winner = EXCLUDED.winner,
				winning_bid = EXCLUDED.winning_bid,
				total_bids = EXCLUDED.total_bids,
				fee_paid = EXCLUDED.fee_paid,
				reward_deposited = EXCLUDED.reward_deposited,
				settled_at = EXCLUDED.settled_at,
				updated_at = now()
		`,
			a.AuctionID,
			a.PoolID,
			a.StartTime,
			a.Duration,
			a.Status,
			a.Winner,
			a.WinningBid,
			int64(a.TotalBids),
			a.FeePaid,
			a.Deposited,
			a.SettledAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range auctions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertClaims appends claim records.
func (s *Store) InsertClaims(ctx context.Context, claims []model.ClaimRecord) error {
	if len(claims) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range claims {
		batch.Queue(`
			INSERT INTO claims (pool_id, provider, amount, claimed_at, created_at)
			VALUES ($1, $2, $3, $4, now())
		`,
			c.PoolID,
			c.Provider,
			c.Amount,
			c.ClaimedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range claims {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecentAuctions returns the newest settled or voided auctions.
func (s *Store) RecentAuctions(ctx context.Context, limit int) ([]model.AuctionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT auction_id, pool_id, start_time, duration_seconds, status,
		       winner, winning_bid, total_bids, fee_paid, reward_deposited, settled_at
		FROM auctions
		WHERE status <> 'active'
		ORDER BY settled_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuctionRecord
	for rows.Next() {
		var a model.AuctionRecord
		var totalBids int64
		if err := rows.Scan(
			&a.AuctionID, &a.PoolID, &a.StartTime, &a.Duration, &a.Status,
			&a.Winner, &a.WinningBid, &totalBids, &a.FeePaid, &a.Deposited, &a.SettledAt,
		); err != nil {
			return nil, err
		}
		a.TotalBids = uint32(totalBids)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AuctionByID fetches one auction record.
func (s *Store) AuctionByID(ctx context.Context, auctionID string) (model.AuctionRecord, bool, error) {
	var a model.AuctionRecord
	var totalBids int64
	row := s.pool.QueryRow(ctx, `
		SELECT auction_id, pool_id, start_time, duration_seconds, status,
		       winner, winning_bid, total_bids, fee_paid, reward_deposited, settled_at
		FROM auctions
		WHERE auction_id = $1
	`, auctionID)
	err := row.Scan(
		&a.AuctionID, &a.PoolID, &a.StartTime, &a.Duration, &a.Status,
		&a.Winner, &a.WinningBid, &totalBids, &a.FeePaid, &a.Deposited, &a.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AuctionRecord{}, false, nil
		}
		return model.AuctionRecord{}, false, err
	}
	a.TotalBids = uint32(totalBids)
	return a, true, nil
}

// ClaimsForPool returns the newest claims for a pool.
func (s *Store) ClaimsForPool(ctx context.Context, poolID string, limit int) ([]model.ClaimRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT pool_id, provider, amount, claimed_at
		FROM claims
		WHERE pool_id = $1
		ORDER BY claimed_at DESC
		LIMIT $2
	`, poolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClaimRecord
	for rows.Next() {
		var c model.ClaimRecord
		if err := rows.Scan(&c.PoolID, &c.Provider, &c.Amount, &c.ClaimedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
