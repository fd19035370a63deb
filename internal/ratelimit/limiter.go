package ratelimit

import (
	"context"

	"github.com/makoban/koubo-navi/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// AILimiter throttles the expensive AI-backed endpoints per user. With no
// redis address configured it is a no-op that allows everything.
type AILimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewAILimiter(cfg config.Config, client *redis.Client) *AILimiter {
	return &AILimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.AIRate,
		burst:  cfg.RateLimit.AIBurst,
	}
}

func (l *AILimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *AILimiter) Allow(ctx context.Context, userID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, "koubonavi:ai:"+userID, l.rate, l.burst)
}

func newRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	addr := cfg.RateLimit.RedisAddr
	if addr == "" {
		return nil
	}
	log.Info("rate limiter enabled", zap.String("redis_addr", addr))
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
}

var Module = fx.Module("ratelimit",
	fx.Provide(newRedisClient),
	fx.Provide(NewAILimiter),
)
