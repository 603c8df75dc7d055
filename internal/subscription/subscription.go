// Package subscription owns the live subscription records: descriptors,
// filters, and the registry that maps ids to them. The registry is the
// single owner of a record's lifecycle (insert, drain, remove); delivery
// workers read their record through a pointer but never add or remove map
// entries.
package subscription

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/Adam-Cosner/monitord/internal/transport"
)

// State tracks a subscription through its lifecycle. CLOSED records are
// removed from the registry; the constant exists for status reporting
// during teardown.
type State int32

const (
	StateActive State = iota
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Subscription is one subscriber's descriptor. Interval and filter are
// mutable via Modify and read under the lock each delivery iteration;
// cursor and counters are atomics so the hot path takes no lock.
type Subscription struct {
	ID        string
	Category  model.Category
	CreatedAt time.Time
	Sink      transport.Sink

	mu       sync.Mutex
	interval time.Duration
	filter   *Filter
	state    State

	cursor    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64

	// wake interrupts the delivery worker's pacing sleep after a Modify so
	// the new interval takes effect immediately.
	wake chan struct{}
}

// Wake nudges the delivery worker; it never blocks.
func (s *Subscription) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// WakeCh is the worker's side of Wake.
func (s *Subscription) WakeCh() <-chan struct{} { return s.wake }

// Interval returns the current requested update interval.
func (s *Subscription) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Filter returns the current filter; nil means unfiltered.
func (s *Subscription) Filter() *Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// update swaps interval and filter atomically. Cursor is untouched: a
// modified subscription never replays snapshots it has already seen.
func (s *Subscription) update(interval time.Duration, filter *Filter) {
	s.mu.Lock()
	s.interval = interval
	s.filter = filter
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// markDraining is idempotent; only an ACTIVE record transitions.
func (s *Subscription) markDraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return false
	}
	s.state = StateDraining
	return true
}

func (s *Subscription) markClosed() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

// Cursor is the version of the last snapshot offered to this subscriber.
func (s *Subscription) Cursor() uint64 { return s.cursor.Load() }

// AdvanceCursor moves the cursor forward; it never goes backwards.
func (s *Subscription) AdvanceCursor(version uint64) {
	for {
		cur := s.cursor.Load()
		if version <= cur {
			return
		}
		if s.cursor.CompareAndSwap(cur, version) {
			return
		}
	}
}

func (s *Subscription) NoteDelivered() { s.delivered.Add(1) }
func (s *Subscription) NoteDropped()   { s.dropped.Add(1) }

func (s *Subscription) Delivered() uint64 { return s.delivered.Load() }
func (s *Subscription) Dropped() uint64   { return s.dropped.Load() }

// Status is the immutable descriptor copy returned by List.
type Status struct {
	ID         string         `json:"id"`
	Category   model.Category `json:"category"`
	IntervalMs uint32         `json:"interval_ms"`
	Filter     *Filter        `json:"filter,omitempty"`
	State      string         `json:"state"`
	CreatedAt  time.Time      `json:"created_at"`
	Cursor     uint64         `json:"cursor"`
	Delivered  uint64         `json:"delivered"`
	Dropped    uint64         `json:"dropped"`
}

func (s *Subscription) status() Status {
	s.mu.Lock()
	interval := s.interval
	filter := s.filter
	state := s.state
	s.mu.Unlock()
	return Status{
		ID:         s.ID,
		Category:   s.Category,
		IntervalMs: uint32(interval / time.Millisecond),
		Filter:     filter,
		State:      state.String(),
		CreatedAt:  s.CreatedAt,
		Cursor:     s.Cursor(),
		Delivered:  s.Delivered(),
		Dropped:    s.Dropped(),
	}
}
