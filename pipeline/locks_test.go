package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calyptra/lectern/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemLocks_SerializesSameItem(t *testing.T) {
	locks := newItemLocks()

	var active, violations atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire(core.ID(1))
			defer release()

			if active.Add(1) > 1 {
				violations.Add(1)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Zero(t, violations.Load())
}

func TestItemLocks_IndependentItems(t *testing.T) {
	locks := newItemLocks()

	releaseA := locks.acquire(core.ID(1))
	defer releaseA()

	// A held lock on one item must not block another item.
	done := make(chan struct{})
	go func() {
		releaseB := locks.acquire(core.ID(2))
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on item 2 blocked by lock on item 1")
	}
}

func TestItemLocks_EntriesReleased(t *testing.T) {
	locks := newItemLocks()

	for i := 0; i < 10; i++ {
		release := locks.acquire(core.ID(i))
		release()
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	require.Empty(t, locks.locks)
}
