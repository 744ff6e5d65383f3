package state

import "sync"

// Store is a concurrency-safe in-memory map from user id to T.
type Store[T any] struct {
	mu    sync.RWMutex
	items map[int64]T
	locks keyedMutex
}

// New returns an empty store.
func New[T any]() *Store[T] {
	return &Store[T]{items: make(map[int64]T)}
}

// Get returns the value for id and whether it exists.
func (s *Store[T]) Get(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[id]
	return v, ok
}

// Put replaces the value for id.
func (s *Store[T]) Put(id int64, v T) {
	s.mu.Lock()
	s.items[id] = v
	s.mu.Unlock()
}

// Delete removes id. Deleting a missing id is a no-op.
func (s *Store[T]) Delete(id int64) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Len reports the number of stored values.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Lock blocks until the caller owns the critical section for id and returns
// the function that releases it. Different ids never contend.
func (s *Store[T]) Lock(id int64) (unlock func()) {
	return s.locks.lock(id)
}

type keyedMutex struct {
	mu    sync.Mutex
	slots map[int64]*slot
}

type slot struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	if k.slots == nil {
		k.slots = make(map[int64]*slot)
	}
	sl, ok := k.slots[id]
	if !ok {
		sl = &slot{}
		k.slots[id] = sl
	}
	sl.refs++
	k.mu.Unlock()

	sl.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			sl.mu.Unlock()
			k.mu.Lock()
			sl.refs--
			if sl.refs == 0 {
				delete(k.slots, id)
			}
			k.mu.Unlock()
		})
	}
}
