// Package lock serializes mutation per entity. Writers to the same zone or
// territory queue behind one key; writers to different keys never contend.
package lock

import (
	"sync"
	"time"

	"terraconquest/errs"
)

// Map hands out one mutex per key. Acquisition is bounded: a writer that
// cannot get the key within its retry budget fails with a conflict error
// instead of waiting forever.
type Map struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	attempts int
	backoff  time.Duration
}

func NewMap(attempts int, backoff time.Duration) *Map {
	if attempts < 1 {
		attempts = 1
	}
	return &Map{
		locks:    make(map[string]*sync.Mutex),
		attempts: attempts,
		backoff:  backoff,
	}
}

func (m *Map) forKey(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Acquire takes the key's lock, retrying up to the budget. The returned
// release function must be called exactly once.
func (m *Map) Acquire(key string) (func(), error) {
	l := m.forKey(key)
	for i := 0; i < m.attempts; i++ {
		if l.TryLock() {
			return l.Unlock, nil
		}
		time.Sleep(m.backoff)
	}
	return nil, errs.Conflictf("lock contention on %q exhausted %d attempts", key, m.attempts)
}
