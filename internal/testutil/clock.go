package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Clock is a manually driven clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// FixedClock starts at 2025-03-14 02:00:00 UTC, so commit messages read
// "Backup Chroma - 2025-03-14".
func FixedClock() *Clock {
	return NewClock(time.Date(2025, 3, 14, 2, 0, 0, 0, time.UTC))
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set jumps to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SequentialIDs yields "<prefix>-1", "<prefix>-2", ...
type SequentialIDs struct {
	prefix string
	n      atomic.Int64
}

func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

func (g *SequentialIDs) New() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
