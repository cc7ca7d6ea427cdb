package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

// Config controls the login and decision limits.
type Config struct {
	Enabled       bool
	IPAttempts    int
	IPWindow      time.Duration
	BlockDuration time.Duration
}

type redisRateLimitService struct {
	redisClient *redis.Client
	logger      *logrus.Logger
}

// NewRateLimitService uses redis when a client is given, an in-process
// counter otherwise, and a no-op when disabled.
func NewRateLimitService(config Config, client *redis.Client, log *logrus.Logger) outbound.RateLimitService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if !config.Enabled {
		log.Info("Rate limiting disabled")
		return &noopRateLimitService{}
	}
	if client == nil {
		log.Warn("Rate limiting uses in-process counters; limits are per instance")
		return newLocalRateLimitService()
	}

	log.WithFields(logrus.Fields{
		"ip_attempts":    config.IPAttempts,
		"ip_window":      config.IPWindow,
		"block_duration": config.BlockDuration,
	}).Info("Rate limiting service initialized")

	return &redisRateLimitService{
		redisClient: client,
		logger:      log,
	}
}

func (s *redisRateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	currentCount, err := s.GetAttempts(ctx, key)
	if err != nil {
		return false, err
	}
	isUnderLimit := currentCount < limit

	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"key":         key,
		"current":     currentCount,
		"limit":       limit,
		"under_limit": isUnderLimit,
	}).Debug("Rate limit check")

	return isUnderLimit, nil
}

func (s *redisRateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	count, err := s.redisClient.Incr(ctx, key).Result()
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to increment rate limit counter")
		return fmt.Errorf("failed to increment rate limit: %w", err)
	}
	// only the first hit in a window sets the expiry
	if count == 1 {
		if err := s.redisClient.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return nil
}

func (s *redisRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	blockKey := fmt.Sprintf("blocked:%s", key)
	blockData := map[string]interface{}{
		"reason":         reason,
		"blocked_at":     time.Now().Unix(),
		"duration":       duration.Seconds(),
		"correlation_id": logger.CorrelationID(ctx),
	}

	pipeline := s.redisClient.Pipeline()
	pipeline.HSet(ctx, blockKey, blockData)
	pipeline.Expire(ctx, blockKey, duration)
	if _, err := pipeline.Exec(ctx); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to block key")
		return fmt.Errorf("failed to block key: %w", err)
	}

	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"key":      key,
		"duration": duration,
		"reason":   reason,
	}).Warn("Key blocked due to rate limit exceeded")
	return nil
}

func (s *redisRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	exists, err := s.redisClient.Exists(ctx, fmt.Sprintf("blocked:%s", key)).Result()
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to check block status")
		return false, fmt.Errorf("failed to check block status: %w", err)
	}
	return exists > 0, nil
}

func (s *redisRateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	count, err := s.redisClient.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to get attempts count")
		return 0, fmt.Errorf("failed to get attempts: %w", err)
	}
	return count, nil
}

// localRateLimitService keeps fixed windows in memory.
type localRateLimitService struct {
	mu       sync.Mutex
	counters map[string]localCounter
	blocked  map[string]time.Time
	now      func() time.Time
}

type localCounter struct {
	count   int
	expires time.Time
}

func newLocalRateLimitService() *localRateLimitService {
	return &localRateLimitService{
		counters: make(map[string]localCounter),
		blocked:  make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *localRateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	attempts, err := s.GetAttempts(ctx, key)
	if err != nil {
		return false, err
	}
	return attempts < limit, nil
}

func (s *localRateLimitService) Increment(_ context.Context, key string, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.expires) {
		c = localCounter{expires: now.Add(window)}
	}
	c.count++
	s.counters[key] = c
	return nil
}

func (s *localRateLimitService) Block(_ context.Context, key string, duration time.Duration, _ string) error {
	s.mu.Lock()
	s.blocked[key] = s.now().Add(duration)
	s.mu.Unlock()
	return nil
}

func (s *localRateLimitService) IsBlocked(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.blocked[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.blocked, key)
		return false, nil
	}
	return true, nil
}

func (s *localRateLimitService) GetAttempts(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[key]
	if !ok || !s.now().Before(c.expires) {
		return 0, nil
	}
	return c.count, nil
}

// noopRateLimitService is used when rate limiting is disabled.
type noopRateLimitService struct{}

func (n *noopRateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

func (n *noopRateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	return nil
}

func (n *noopRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	return nil
}

func (n *noopRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (n *noopRateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	return 0, nil
}
