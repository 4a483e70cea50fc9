package runlock

import (
	"context"
	"sync"
	"time"

	"quietly-stated/internal/domain"
)

type localEntry struct {
	token   uint64
	expires time.Time
}

// LocalLock implements domain.RunLock within one process.
type LocalLock struct {
	mu    sync.Mutex
	held  map[string]localEntry
	next  uint64
	clock func() time.Time
}

var _ domain.RunLock = (*LocalLock)(nil)

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]localEntry), clock: time.Now}
}

func (l *LocalLock) TryLock(_ context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[name]; ok && now.Before(e.expires) {
		return nil, domain.ErrLockHeld
	}
	l.next++
	token := l.next
	l.held[name] = localEntry{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[name]; !ok || e.token != token {
			return ErrNotOwner
		}
		delete(l.held, name)
		return nil
	}, nil
}
