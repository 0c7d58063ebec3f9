package flow

import (
	"strconv"
	"sync"
	"time"
)

// IDSource hands out identifiers for new nodes and connections.
type IDSource interface {
	NextID() string
}

// ClockIDs issues millisecond timestamps as ids. Two requests in the same
// millisecond get consecutive values, so an id is never handed out twice.
type ClockIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClockIDs returns an IDSource driven by now. A nil now uses time.Now.
func NewClockIDs(now func() time.Time) *ClockIDs {
	if now == nil {
		now = time.Now
	}
	return &ClockIDs{now: now}
}

// NextID returns the next unused timestamp id.
func (c *ClockIDs) NextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.now().UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	c.last = id
	return strconv.FormatInt(id, 10)
}

// SequenceIDs issues prefix1, prefix2, ... and is mostly useful in tests.
type SequenceIDs struct {
	Prefix string
	n      int
}

// NextID returns the next id in the sequence.
func (s *SequenceIDs) NextID() string {
	s.n++
	return s.Prefix + strconv.Itoa(s.n)
}
