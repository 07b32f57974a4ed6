package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lvrguard/internal/model"
)

const publishTimeout = 2 * time.Second

// RedisSink publishes events on a pub/sub channel so operators can
// discover bidding windows without polling the API.
type RedisSink struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisSink(redisURL, channel string, logger *zap.Logger) (*RedisSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSink{
		client:  redis.NewClient(opts),
		channel: channel,
		logger:  logger,
	}, nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

func (s *RedisSink) publish(eventType string, payload any) {
	env, err := model.NewEnvelope(eventType, payload)
	if err != nil {
		s.logger.Error("redis envelope", zap.Error(err))
		return
	}
	body, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("redis marshal", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.client.Publish(ctx, s.channel, body).Err(); err != nil {
		s.logger.Error("redis publish",
			zap.String("channel", s.channel),
			zap.String("event", eventType),
			zap.Error(err),
		)
	}
}

func (s *RedisSink) AuctionOpened(ev model.AuctionOpened) {
	s.publish(model.EventAuctionOpened, ev)
}

func (s *RedisSink) AuctionEnded(ev model.AuctionEnded) {
	s.publish(model.EventAuctionEnded, ev)
}

func (s *RedisSink) AuctionVoided(ev model.AuctionVoided) {
	s.publish(model.EventAuctionVoided, ev)
}

func (s *RedisSink) RewardsClaimed(ev model.RewardsClaimed) {
	s.publish(model.EventRewardsClaimed, ev)
}
