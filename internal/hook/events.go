package hook

import "lvrguard/internal/model"

// Notifier receives engine notifications after the owning operation has
// committed. Implementations must not call back into the engine.
type Notifier interface {
	AuctionOpened(ev model.AuctionOpened)
	AuctionEnded(ev model.AuctionEnded)
	AuctionVoided(ev model.AuctionVoided)
	RewardsClaimed(ev model.RewardsClaimed)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) AuctionOpened(model.AuctionOpened)   {}
func (NopNotifier) AuctionEnded(model.AuctionEnded)     {}
func (NopNotifier) AuctionVoided(model.AuctionVoided)   {}
func (NopNotifier) RewardsClaimed(model.RewardsClaimed) {}
