package notify

import (
	"lvrguard/internal/hook"
	"lvrguard/internal/model"
)

// Fanout forwards each notification to every sink in order. Sinks must
// not block; slow delivery belongs inside the sink.
type Fanout struct {
	sinks []hook.Notifier
}

func NewFanout(sinks ...hook.Notifier) *Fanout {
	out := make([]hook.Notifier, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) AuctionOpened(ev model.AuctionOpened) {
	for _, s := range f.sinks {
		s.AuctionOpened(ev)
	}
}

func (f *Fanout) AuctionEnded(ev model.AuctionEnded) {
	for _, s := range f.sinks {
		s.AuctionEnded(ev)
	}
}

func (f *Fanout) AuctionVoided(ev model.AuctionVoided) {
	for _, s := range f.sinks {
		s.AuctionVoided(ev)
	}
}

func (f *Fanout) RewardsClaimed(ev model.RewardsClaimed) {
	for _, s := range f.sinks {
		s.RewardsClaimed(ev)
	}
}
