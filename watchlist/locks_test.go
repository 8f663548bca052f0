package watchlist

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/s0up4200/watcharr/media"
)

func TestKeyLocks_SerializesSameKey(t *testing.T) {
	locks := newKeyLocks()
	key := media.Key{ExternalID: 1, MediaType: media.TypeMovie}

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(key)
			defer unlock()

			n := active.Add(1)
			for {
				cur := maxActive.Load()
				if n <= cur || maxActive.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Zero(t, locks.size())
}

func TestKeyLocks_DistinctKeysDoNotBlock(t *testing.T) {
	locks := newKeyLocks()

	unlockA := locks.Lock(media.Key{ExternalID: 1, MediaType: media.TypeMovie})
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock(media.Key{ExternalID: 1, MediaType: media.TypeShow})
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a distinct key blocked")
	}
}
