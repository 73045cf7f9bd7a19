package lease

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "artifact:rebuild:"

// Locker hands out exclusive leases on a key across replicas.
// Acquire blocks until the lease is held or ctx ends.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Noop is a Locker for single-replica deployments; every Acquire succeeds immediately
type Noop struct{}

func (Noop) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// releaseScript deletes the lease only if the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a token-checked release
type RedisLocker struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl, pollInterval time.Duration, logger *zap.Logger) *RedisLocker {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &RedisLocker{
		client:       client,
		ttl:          ttl,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	redisKey := keyPrefix + key

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	waited := false
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lease %s: %w", redisKey, err)
		}
		if ok {
			if waited {
				l.logger.Debug("Acquired rebuild lease after waiting", zap.String("key", redisKey))
			}
			return l.releaser(redisKey, token), nil
		}

		if !waited {
			l.logger.Debug("Rebuild lease held by another replica, waiting", zap.String("key", redisKey))
			waited = true
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) func() {
	return func() {
		// release even when the rebuild context is already done
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("Failed to release rebuild lease",
				zap.String("key", redisKey),
				zap.Error(err),
			)
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lease token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
