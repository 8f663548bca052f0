package watchlist

import (
	"sync"

	"github.com/s0up4200/watcharr/media"
)

// keyLocks serializes mutations of a single entry while letting distinct
// entries proceed concurrently. Idle locks are dropped.
type keyLocks struct {
	mu    sync.Mutex
	locks map[media.Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[media.Key]*keyLock)}
}

// Lock blocks until key is held and returns the matching unlock func
func (l *keyLocks) Lock(key media.Key) func() {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	return func() {
		kl.mu.Unlock()

		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *keyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
