package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyed_SerializesSameKey(t *testing.T) {
	keyed := NewKeyed()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keyed.Lock(7)
			defer keyed.Unlock(7)
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyed_IndependentKeys(t *testing.T) {
	keyed := NewKeyed()

	keyed.Lock(1)
	done := make(chan struct{})
	go func() {
		// A different key must not block behind key 1.
		keyed.Lock(2)
		keyed.Unlock(2)
		close(done)
	}()
	<-done
	keyed.Unlock(1)
}

func TestKeyed_EntryDroppedWhenIdle(t *testing.T) {
	keyed := NewKeyed()

	keyed.Lock(9)
	keyed.Unlock(9)

	keyed.mu.Lock()
	defer keyed.mu.Unlock()
	assert.Empty(t, keyed.locks, "idle entries should not accumulate")
}
