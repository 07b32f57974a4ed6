package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event names carried in the envelope, consumed by off-process operators.
const (
	EventAuctionOpened  = "auction.opened"
	EventAuctionEnded   = "auction.ended"
	EventAuctionVoided  = "auction.voided"
	EventRewardsClaimed = "rewards.claimed"
)

// AuctionOpened announces a new bidding window.
type AuctionOpened struct {
	PoolID    string `json:"pool_id"`
	AuctionID string `json:"auction_id"`
	StartTime int64  `json:"start_time"`
	Duration  int64  `json:"duration_seconds"`
}

// AuctionEnded announces a settled auction and its proceeds split.
type AuctionEnded struct {
	PoolID     string `json:"pool_id"`
	AuctionID  string `json:"auction_id"`
	Winner     string `json:"winner"`
	WinningBid string `json:"winning_bid"`
	TotalBids  uint32 `json:"total_bids"`
	FeePaid    string `json:"fee_paid"`
	Deposited  string `json:"reward_deposited"`
	SettledAt  int64  `json:"settled_at"`
}

// AuctionVoided announces an auction voided after the grace window.
type AuctionVoided struct {
	PoolID    string `json:"pool_id"`
	AuctionID string `json:"auction_id"`
	VoidedAt  int64  `json:"voided_at"`
}

// RewardsClaimed announces a provider payout.
type RewardsClaimed struct {
	PoolID    string `json:"pool_id"`
	Provider  string `json:"provider"`
	Amount    string `json:"amount"`
	ClaimedAt int64  `json:"claimed_at"`
}

// Envelope is the wire form shared by the journal, redis channel, and
// websocket feed.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope wraps an event payload for transport.
func NewEnvelope(eventType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Envelope{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}, nil
}
