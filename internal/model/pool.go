package model

// PoolStat is a read view of one pool's ledgers.
type PoolStat struct {
	PoolID           string `json:"pool_id"`
	TotalLiquidity   string `json:"total_liquidity"`
	Providers        int    `json:"providers"`
	RewardBalance    string `json:"reward_balance"`
	TotalDeposited   string `json:"total_deposited"`
	TotalClaimed     string `json:"total_claimed"`
	AuctionsOpened   uint64 `json:"auctions_opened"`
	AuctionsSettled  uint64 `json:"auctions_settled"`
	ActiveAuctionID  string `json:"active_auction_id,omitempty"`
	ActiveAuctionEnd int64  `json:"active_auction_end,omitempty"`
}

// OperatorStat is a read view of one authorized operator, optionally
// enriched with registry stake data.
type OperatorStat struct {
	Address    string `json:"address"`
	Authorized bool   `json:"authorized"`
	Registered bool   `json:"registered"`
	Stake      string `json:"stake"`
}
