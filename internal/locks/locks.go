// Package locks serializes work on one bill within the process, so a
// gateway notification and the sweep worker never produce the same
// bill twice. Cross-process exclusion is handled by the store's
// advisory locks; this keyed mutex covers the in-process races.
package locks

import "sync"

// Keyed hands out one mutex per key.
type Keyed struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed creates an empty keyed mutex set.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[int64]*entry)}
}

// Lock acquires the mutex for a key, blocking while another goroutine
// holds it.
func (k *Keyed) Lock(key int64) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for a key. The entry is dropped once no
// goroutine waits on it, so the map stays bounded by live contention.
func (k *Keyed) Unlock(key int64) {
	k.mu.Lock()
	e := k.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
