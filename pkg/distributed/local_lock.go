package distributed

import (
	"context"
	"sync"
)

// LocalLocker is the single-process Locker used when Redis is not configured.
// Locks do not expire.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]*localLock
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]*localLock)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, ErrLockNotAcquired
	}
	lock := &localLock{owner: l, key: key}
	l.held[key] = lock
	return lock, nil
}

type localLock struct {
	owner *LocalLocker
	key   string
}

func (k *localLock) Release(context.Context) error {
	k.owner.mu.Lock()
	defer k.owner.mu.Unlock()

	if k.owner.held[k.key] != k {
		return ErrLockNotHeld
	}
	delete(k.owner.held, k.key)
	return nil
}
