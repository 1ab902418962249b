package lock

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisMutex(t *testing.T) (*RedisMutex, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisMutex(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func mutexes(t *testing.T) map[string]ScopeMutex {
	redisMutex, _ := newRedisMutex(t)
	return map[string]ScopeMutex{
		"memory": NewMemoryMutex(),
		"redis":  redisMutex,
	}
}

func TestScopeMutex_FailsFastWhileHeld(t *testing.T) {
	for name, m := range mutexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			unlock, err := m.TryLock(ctx, "2024-01")
			require.NoError(t, err)

			_, err = m.TryLock(ctx, "2024-01")
			assert.ErrorIs(t, err, apperror.ErrScopeBusy)

			other, err := m.TryLock(ctx, "2024-01/dept:eng")
			require.NoError(t, err)
			other()

			unlock()
			again, err := m.TryLock(ctx, "2024-01")
			require.NoError(t, err)
			again()
		})
	}
}

func TestScopeMutex_OnlyOneConcurrentWinner(t *testing.T) {
	for name, m := range mutexes(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg      sync.WaitGroup
				winners atomic.Int32
				start   = make(chan struct{})
				unlocks = make(chan func(), 10)
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					unlock, err := m.TryLock(context.Background(), "2024-02")
					if err == nil {
						winners.Add(1)
						unlocks <- unlock
					}
				}()
			}
			close(start)
			wg.Wait()
			close(unlocks)

			assert.Equal(t, int32(1), winners.Load())
			for u := range unlocks {
				u()
			}
		})
	}
}

func TestRedisMutex_StaleUnlockKeepsNewHolder(t *testing.T) {
	m, mr := newRedisMutex(t)
	ctx := context.Background()

	stale, err := m.TryLock(ctx, "2024-03")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = m.TryLock(ctx, "2024-03")
	require.NoError(t, err)

	stale()

	assert.True(t, mr.Exists(Key("2024-03")))
	_, err = m.TryLock(ctx, "2024-03")
	assert.ErrorIs(t, err, apperror.ErrScopeBusy)
}

func TestMemoryMutex_UnlockIsIdempotent(t *testing.T) {
	m := NewMemoryMutex()
	ctx := context.Background()

	unlock, err := m.TryLock(ctx, "2024-04")
	require.NoError(t, err)
	unlock()

	holder, err := m.TryLock(ctx, "2024-04")
	require.NoError(t, err)
	unlock()

	_, err = m.TryLock(ctx, "2024-04")
	assert.ErrorIs(t, err, apperror.ErrScopeBusy)
	holder()
}
