// Package lock serializes work per key. Memory covers a single process;
// Redis covers every replica sharing the same Redis.
package lock

import (
	"context"
	"sync"
)

// Locker acquires exclusive ownership of a key. Lock blocks until the key is
// free or ctx is done; the returned func releases it and is safe to call twice.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Memory is an in-process keyed mutex.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*memoryEntry
}

type memoryEntry struct {
	held chan struct{}
	refs int
}

var _ Locker = (*Memory)(nil)

// NewMemory creates an in-process locker
func NewMemory() *Memory {
	return &Memory{locks: make(map[string]*memoryEntry)}
}

func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &memoryEntry{held: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.held <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.held
			m.release(key, e)
		})
	}, nil
}

// release drops one reference and forgets the key when nobody waits on it.
func (m *Memory) release(key string, e *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// size reports how many keys are tracked.
func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
