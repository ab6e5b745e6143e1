package cache

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingCleaner struct {
	calls atomic.Int64
}

func (c *countingCleaner) CleanExpired() int {
	c.calls.Add(1)
	return 0
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	first := &countingCleaner{}
	second := &countingCleaner{}

	m := NewManager()
	m.Register(first)
	m.Register(second)
	m.StartCleanup(5 * time.Millisecond)

	deadline := time.After(time.Second)
	for first.calls.Load() == 0 || second.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("cleanup never reached the registered caches")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Stop must wait for the cleanup goroutine to exit.
	m.Stop()
	settled := first.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if first.calls.Load() != settled {
		t.Error("cleanup kept running after Stop")
	}
}

func TestManagerExpiresLRUEntries(t *testing.T) {
	c := NewLRUCache[int](8, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)
	defer m.Stop()

	deadline := time.After(time.Second)
	for c.Size() != 0 {
		select {
		case <-deadline:
			t.Fatalf("Size = %d, want 0 after expiry cleanup", c.Size())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
