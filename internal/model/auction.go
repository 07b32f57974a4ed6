package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AuctionStatus describes the lifecycle stage of an auction.
type AuctionStatus string

const (
	AuctionStatusActive  AuctionStatus = "active"
	AuctionStatusSettled AuctionStatus = "settled"
	AuctionStatusVoided  AuctionStatus = "voided"
)

// Auction is the in-memory auction state owned by the engine.
type Auction struct {
	ID         common.Hash
	PoolID     common.Hash
	StartTime  int64
	Duration   int64
	IsActive   bool
	IsComplete bool
	IsVoided   bool
	Winner     common.Address
	WinningBid *big.Int
	TotalBids  uint32
}

// EndTime returns the unix second at which the bidding window closes.
func (a *Auction) EndTime() int64 {
	return a.StartTime + a.Duration
}

// Status maps the guard flags onto a storage status.
func (a *Auction) Status() AuctionStatus {
	switch {
	case a.IsVoided:
		return AuctionStatusVoided
	case a.IsComplete:
		return AuctionStatusSettled
	default:
		return AuctionStatusActive
	}
}

// Record converts the auction into its storage representation.
func (a *Auction) Record() AuctionRecord {
	bid := "0"
	if a.WinningBid != nil {
		bid = a.WinningBid.String()
	}
	return AuctionRecord{
		AuctionID:  a.ID.Hex(),
		PoolID:     a.PoolID.Hex(),
		StartTime:  a.StartTime,
		Duration:   a.Duration,
		Status:     string(a.Status()),
		Winner:     a.Winner.Hex(),
		WinningBid: bid,
		TotalBids:  a.TotalBids,
	}
}

// AuctionRecord is the persisted form of an auction.
type AuctionRecord struct {
	AuctionID  string `json:"auction_id"`
	PoolID     string `json:"pool_id"`
	StartTime  int64  `json:"start_time"`
	Duration   int64  `json:"duration_seconds"`
	Status     string `json:"status"`
	Winner     string `json:"winner"`
	WinningBid string `json:"winning_bid"`
	TotalBids  uint32 `json:"total_bids"`
	FeePaid    string `json:"fee_paid"`
	Deposited  string `json:"reward_deposited"`
	SettledAt  int64  `json:"settled_at"`
}

// ClaimRecord is the persisted form of a successful reward claim.
type ClaimRecord struct {
	PoolID    string `json:"pool_id"`
	Provider  string `json:"provider"`
	Amount    string `json:"amount"`
	ClaimedAt int64  `json:"claimed_at"`
}
