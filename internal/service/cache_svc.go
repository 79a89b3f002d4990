package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/mathieu-neron/realtube-scoring/internal/metrics"
)

// Redis key TTLs.
const (
	VideoCacheTTL   = 5 * time.Minute
	ChannelCacheTTL = 15 * time.Minute
)

// CacheService provides a Redis cache-aside layer for video and channel
// lookups. It never returns errors: a failing or absent Redis reads as a miss
// and writes are dropped. Calls go through a circuit breaker so a dead Redis
// costs nothing once the breaker opens.
type CacheService struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewCacheService creates a new CacheService. If redisURL is empty or invalid
// the service is disabled and every call is a no-op. An unreachable server is
// only logged; the breaker keeps retrying it.
func NewCacheService(ctx context.Context, redisURL string, logger zerolog.Logger) *CacheService {
	logger = logger.With().Str("component", "cache").Logger()

	if redisURL == "" {
		logger.Info().Msg("no redis URL configured, caching disabled")
		return &CacheService{logger: logger}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid redis URL, caching disabled")
		return &CacheService{logger: logger}
	}

	c := NewCacheServiceWithClient(redis.NewClient(opts), logger)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, serving without cache until it recovers")
	} else {
		logger.Info().Msg("redis connected, caching enabled")
	}
	return c
}

// NewCacheServiceWithClient wraps an existing client. A nil client disables
// caching.
func NewCacheServiceWithClient(rdb *redis.Client, logger zerolog.Logger) *CacheService {
	c := &CacheService{rdb: rdb, logger: logger}
	if rdb == nil {
		return c
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("cache circuit breaker state changed")
		},
	})
	return c
}

// Enabled reports whether a Redis client is configured.
func (c *CacheService) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Ping checks Redis directly, bypassing the breaker. Used by readiness checks.
func (c *CacheService) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// GetVideo returns the cached video response, if any.
func (c *CacheService) GetVideo(ctx context.Context, videoID string) ([]byte, bool) {
	return c.get(ctx, videoKey(videoID))
}

// SetVideo stores a video response.
func (c *CacheService) SetVideo(ctx context.Context, videoID string, data any) {
	c.set(ctx, videoKey(videoID), data, VideoCacheTTL)
}

// InvalidateVideo removes a video from cache (called after vote changes).
func (c *CacheService) InvalidateVideo(ctx context.Context, videoID string) {
	c.del(ctx, videoKey(videoID))
}

// GetChannel returns the cached channel response, if any.
func (c *CacheService) GetChannel(ctx context.Context, channelID string) ([]byte, bool) {
	return c.get(ctx, channelKey(channelID))
}

// SetChannel stores a channel response.
func (c *CacheService) SetChannel(ctx context.Context, channelID string, data any) {
	c.set(ctx, channelKey(channelID), data, ChannelCacheTTL)
}

// InvalidateChannel removes a channel from cache.
func (c *CacheService) InvalidateChannel(ctx context.Context, channelID string) {
	c.del(ctx, channelKey(channelID))
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

func (c *CacheService) get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		metrics.CacheOps.WithLabelValues("get", "skipped").Inc()
		return nil, false
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.rdb.Get(ctx, key).Bytes()
	})
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheOps.WithLabelValues("get", "miss").Inc()
		return nil, false
	case err != nil:
		metrics.CacheOps.WithLabelValues("get", "error").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return nil, false
	}

	metrics.CacheOps.WithLabelValues("get", "hit").Inc()
	return res.([]byte), true
}

func (c *CacheService) set(ctx context.Context, key string, data any, ttl time.Duration) {
	if !c.Enabled() {
		metrics.CacheOps.WithLabelValues("set", "skipped").Inc()
		return
	}

	b, err := json.Marshal(data)
	if err != nil {
		metrics.CacheOps.WithLabelValues("set", "error").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("cache value not encodable")
		return
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, key, b, ttl).Err()
	})
	c.record("set", key, err)
}

func (c *CacheService) del(ctx context.Context, key string) {
	if !c.Enabled() {
		metrics.CacheOps.WithLabelValues("del", "skipped").Inc()
		return
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Del(ctx, key).Err()
	})
	c.record("del", key, err)
}

func (c *CacheService) record(op, key string, err error) {
	if err != nil {
		metrics.CacheOps.WithLabelValues(op, "error").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msgf("cache %s failed", op)
		return
	}
	metrics.CacheOps.WithLabelValues(op, "ok").Inc()
}

func videoKey(videoID string) string {
	return "video:" + videoID
}

func channelKey(channelID string) string {
	return "channel:" + channelID
}
