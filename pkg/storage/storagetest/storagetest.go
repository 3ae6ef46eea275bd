// Package storagetest provides in-memory storage and a deterministic clock
// for tests.
package storagetest

import (
	"sync"
	"testing"
	"time"

	"github.com/tphan267/arqut-fleet/pkg/storage"
)

// Clock is a fake clock that moves forward by Step on every reading, so
// consecutive writes always get strictly increasing timestamps.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	Step    time.Duration
}

// NewClock starts a clock at a fixed instant with a one second step
func NewClock() *Clock {
	return &Clock{
		current: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Step:    time.Second,
	}
}

// Now returns the next instant
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(c.Step)
	return c.current
}

// Peek returns the last instant handed out without advancing
func (c *Clock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// New opens a migrated in-memory SQLite store that is closed when the test
// ends
func New(t testing.TB) (storage.Storage, *Clock) {
	t.Helper()

	clock := NewClock()
	store, err := storage.Open(storage.Options{
		Driver:  storage.DriverSQLite,
		DSN:     ":memory:",
		NowFunc: clock.Now,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store, clock
}
