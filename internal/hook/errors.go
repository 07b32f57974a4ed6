package hook

import "errors"

var (
	// ErrInsufficientLiquidity is returned when a removal exceeds the
	// provider's current balance.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrInvalidAmount is returned for nil or negative value inputs.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAuctionAlreadyActive is returned when an open is attempted while
	// the pool already has an active auction.
	ErrAuctionAlreadyActive = errors.New("auction already active")

	// ErrAuctionNotFound is returned when the auction id is unknown.
	ErrAuctionNotFound = errors.New("auction not found")

	// ErrAuctionNotActive is returned when settling or voiding a
	// completed auction.
	ErrAuctionNotActive = errors.New("auction not active")

	// ErrAuctionNotEnded is returned when settlement is attempted before
	// the bidding window (or void before the grace window) has elapsed.
	ErrAuctionNotEnded = errors.New("auction not ended")

	// ErrUnauthorized is returned when the caller fails the operator gate
	// or an owner-only check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoLiquidity is returned when a provider with zero stake claims.
	ErrNoLiquidity = errors.New("no liquidity")

	// ErrInvalidConfiguration is returned for thresholds or fees outside
	// their allowed bounds.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrPaused is returned by every gated entry point while the engine
	// is paused.
	ErrPaused = errors.New("paused")
)
