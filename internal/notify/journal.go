package notify

import (
	"go.uber.org/zap"

	"lvrguard/internal/model"
	"lvrguard/internal/storage"
)

// JournalSink appends every event to the JSONL audit journal.
type JournalSink struct {
	journal *storage.Journal
	logger  *zap.Logger
}

func NewJournalSink(journal *storage.Journal, logger *zap.Logger) *JournalSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalSink{journal: journal, logger: logger}
}

func (s *JournalSink) append(eventType string, payload any) {
	env, err := model.NewEnvelope(eventType, payload)
	if err != nil {
		s.logger.Error("journal envelope", zap.Error(err))
		return
	}
	if err := s.journal.Append(env); err != nil {
		s.logger.Error("journal append", zap.String("event", eventType), zap.Error(err))
	}
}

func (s *JournalSink) AuctionOpened(ev model.AuctionOpened) {
	s.append(model.EventAuctionOpened, ev)
}

func (s *JournalSink) AuctionEnded(ev model.AuctionEnded) {
	s.append(model.EventAuctionEnded, ev)
}

func (s *JournalSink) AuctionVoided(ev model.AuctionVoided) {
	s.append(model.EventAuctionVoided, ev)
}

func (s *JournalSink) RewardsClaimed(ev model.RewardsClaimed) {
	s.append(model.EventRewardsClaimed, ev)
}
