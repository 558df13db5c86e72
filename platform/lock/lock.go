// Package lock provides short-lived mutual exclusion keyed by name, either
// within one process or across processes sharing a Redis instance.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// ReleaseFunc releases a held lock. It is safe to call more than once.
type ReleaseFunc func(ctx context.Context) error

// Locker acquires named locks without blocking.
type Locker interface {
	// TryLock returns ok=false when another holder owns key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release ReleaseFunc, ok bool, err error)
}

// Local is an in-process Locker. Expired entries are taken over.
type Local struct {
	mu      sync.Mutex
	holders map[string]localHolder
	now     func() time.Time
}

type localHolder struct {
	token     string
	expiresAt time.Time
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{holders: make(map[string]localHolder), now: time.Now}
}

// TryLock implements Locker.
func (l *Local) TryLock(_ context.Context, key string, ttl time.Duration) (ReleaseFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, held := l.holders[key]; held && now.Before(h.expiresAt) {
		return nil, false, nil
	}

	token := newToken()
	l.holders[key] = localHolder{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, held := l.holders[key]; held && h.token == token {
			delete(l.holders, key)
		}
		return nil
	}, true, nil
}

func newToken() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

var _ Locker = (*Local)(nil)
