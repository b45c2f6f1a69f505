package cache

import (
	"context"
	"sync"
	"time"

	"github.com/omnisync/backend/internal/domain/shared"
)

// slot is the per-key token; refs counts holders and waiters so the slot can
// be dropped once nobody needs it
type slot struct {
	token chan struct{}
	refs  int
}

// InMemoryKeyLocker implements shared.KeyLocker with a keyed mutex.
// This is suitable for single-instance deployments and testing.
type InMemoryKeyLocker struct {
	mu          sync.Mutex
	slots       map[string]*slot
	waitTimeout time.Duration
}

// NewInMemoryKeyLocker creates a keyed mutex. waitTimeout bounds how long
// Lock waits; zero waits until ctx is done.
func NewInMemoryKeyLocker(waitTimeout time.Duration) *InMemoryKeyLocker {
	return &InMemoryKeyLocker{
		slots:       make(map[string]*slot),
		waitTimeout: waitTimeout,
	}
}

// Lock blocks until key is free
func (l *InMemoryKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{token: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.token <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, shared.ErrLockTimeout.WithMessage("timed out waiting for lock on " + key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.token
			l.release(key, s)
		})
	}, nil
}

func (l *InMemoryKeyLocker) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Size returns the number of keys currently held or awaited (for testing)
func (l *InMemoryKeyLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// Close is a no-op
func (l *InMemoryKeyLocker) Close() error {
	return nil
}

// Ensure InMemoryKeyLocker implements KeyLocker
var _ shared.KeyLocker = (*InMemoryKeyLocker)(nil)
