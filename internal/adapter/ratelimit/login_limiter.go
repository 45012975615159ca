package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixora/tasktrail/internal/logger"
	"github.com/fixora/tasktrail/internal/ports"
	"github.com/go-redis/redis/v8"
)

// Config configures login throttling
type Config struct {
	Enabled       bool
	RedisURL      string
	Attempts      int
	Window        time.Duration
	BlockDuration time.Duration
}

// redisLoginLimiter counts failed logins in Redis and blocks a key once
// it reaches the configured number of attempts within the window
type redisLoginLimiter struct {
	client *redis.Client
	log    logger.Logger
	cfg    Config
}

// NewLoginLimiter connects to Redis when throttling is enabled and
// otherwise returns a limiter that always allows
func NewLoginLimiter(ctx context.Context, cfg Config, log logger.Logger) (ports.LoginLimiter, func() error, error) {
	if !cfg.Enabled {
		log.Info(ctx, "Login rate limiting disabled", nil)
		return noopLoginLimiter{}, func() error { return nil }, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info(ctx, "Login rate limiting initialized", map[string]interface{}{
		"attempts":       cfg.Attempts,
		"window":         cfg.Window.String(),
		"block_duration": cfg.BlockDuration.String(),
	})

	return NewRedisLoginLimiter(client, cfg, log), client.Close, nil
}

// NewRedisLoginLimiter wraps an existing client
func NewRedisLoginLimiter(client *redis.Client, cfg Config, log logger.Logger) ports.LoginLimiter {
	return &redisLoginLimiter{client: client, log: log, cfg: cfg}
}

func attemptsKey(key string) string { return "login:attempts:" + key }
func blockedKey(key string) string  { return "login:blocked:" + key }

func (l *redisLoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	exists, err := l.client.Exists(ctx, blockedKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check block status: %w", err)
	}
	if exists > 0 {
		return false, nil
	}

	count, err := l.client.Get(ctx, attemptsKey(key)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to get attempts: %w", err)
	}
	return count < l.cfg.Attempts, nil
}

func (l *redisLoginLimiter) RecordFailure(ctx context.Context, key string) error {
	count, err := l.client.Incr(ctx, attemptsKey(key)).Result()
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}

	// The window starts at the first failure
	if count == 1 {
		if err := l.client.Expire(ctx, attemptsKey(key), l.cfg.Window).Err(); err != nil {
			return fmt.Errorf("failed to set attempts window: %w", err)
		}
	}

	if count < int64(l.cfg.Attempts) {
		return nil
	}

	if err := l.client.Set(ctx, blockedKey(key), time.Now().UTC().Unix(), l.cfg.BlockDuration).Err(); err != nil {
		return fmt.Errorf("failed to block key: %w", err)
	}
	l.log.Warn(ctx, "Login key blocked after repeated failures", map[string]interface{}{
		"key":      key,
		"attempts": count,
		"duration": l.cfg.BlockDuration.String(),
	})
	return nil
}

func (l *redisLoginLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, attemptsKey(key), blockedKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}

// noopLoginLimiter is used when rate limiting is disabled
type noopLoginLimiter struct{}

func (noopLoginLimiter) Allow(ctx context.Context, key string) (bool, error) { return true, nil }
func (noopLoginLimiter) RecordFailure(ctx context.Context, key string) error { return nil }
func (noopLoginLimiter) Reset(ctx context.Context, key string) error         { return nil }
