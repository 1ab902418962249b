package lock

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

// MemoryMutex is a process-local ScopeMutex for single-instance deployments and tests.
type MemoryMutex struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryMutex() *MemoryMutex {
	return &MemoryMutex{held: make(map[string]struct{})}
}

func (m *MemoryMutex) TryLock(_ context.Context, key string) (func(), error) {
	k := Key(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.held[k]; busy {
		return nil, apperror.Conflict(apperror.ConflictScopeBusy, "another operation is running on "+key)
	}
	m.held[k] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, k)
			m.mu.Unlock()
		})
	}, nil
}
