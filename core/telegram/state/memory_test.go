package state

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStoreCRUD(t *testing.T) {
	s := New[string]()
	if _, ok := s.Get(1); ok {
		t.Fatal("expected empty store")
	}
	s.Put(1, "a")
	if v, ok := s.Get(1); !ok || v != "a" {
		t.Fatalf("get = %q, %v", v, ok)
	}
	s.Delete(1)
	if s.Len() != 0 {
		t.Fatal("delete must remove the value")
	}
	s.Delete(42)
}

func TestLockSerializesSameKey(t *testing.T) {
	s := New[int]()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock(7)
			defer unlock()
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()
	if maxInside.Load() != 1 {
		t.Fatalf("critical section entered concurrently: %d", maxInside.Load())
	}
	if len(s.locks.slots) != 0 {
		t.Fatalf("slots leaked: %d", len(s.locks.slots))
	}
}

func TestLockDifferentKeysDoNotBlock(t *testing.T) {
	s := New[int]()
	unlock := s.Lock(1)
	defer unlock()
	done := make(chan struct{})
	go func() {
		release := s.Lock(2)
		release()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another key blocked")
	}
}
