package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 2 * time.Minute

// releaseScript deletes the key only while it still holds our token, so an
// expired holder cannot release a newer one.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisMutex is a ScopeMutex shared by every API and worker instance.
type RedisMutex struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisMutex(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisMutex {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisMutex{client: client, ttl: ttl, logger: logger}
}

func (m *RedisMutex) TryLock(ctx context.Context, key string) (func(), error) {
	k := Key(key)
	token := uuid.NewString()

	ok, err := m.client.SetNX(ctx, k, token, m.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scope mutex %s: %w", key, err)
	}
	if !ok {
		return nil, apperror.Conflict(apperror.ConflictScopeBusy, "another operation is running on "+key)
	}

	return func() {
		// Release even when the request context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, m.client, []string{k}, token).Err(); err != nil && err != redis.Nil {
			m.logger.Warn("failed to release scope mutex", "key", key, "error", err)
		}
	}, nil
}
