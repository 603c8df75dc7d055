package subscription

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/Adam-Cosner/monitord/internal/transport"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("subscription not found")
	ErrCapacity = errors.New("subscription capacity reached")
)

// Registry is the thread-safe id → subscription map. Mutations fire the
// onChange callback (outside the lock) so the category's scheduler can
// re-derive its cadence; readers take the read lock only long enough to
// copy what they need.
type Registry struct {
	maxClients int
	onChange   func(model.Category)

	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewRegistry creates a registry capped at maxClients concurrent
// subscriptions. onChange may be nil.
func NewRegistry(maxClients int, onChange func(model.Category)) *Registry {
	if onChange == nil {
		onChange = func(model.Category) {}
	}
	return &Registry{
		maxClients: maxClients,
		onChange:   onChange,
		subs:       make(map[string]*Subscription),
	}
}

// Insert creates an ACTIVE record with a fresh uuid and cursor 0.
// It fails with ErrCapacity at the max_clients cap.
func (r *Registry) Insert(cat model.Category, interval time.Duration, filter *Filter, sink transport.Sink) (*Subscription, error) {
	sub := &Subscription{
		ID:        uuid.NewString(),
		Category:  cat,
		CreatedAt: time.Now(),
		Sink:      sink,
		interval:  interval,
		filter:    filter,
		wake:      make(chan struct{}, 1),
	}
	r.mu.Lock()
	if len(r.subs) >= r.maxClients {
		r.mu.Unlock()
		return nil, ErrCapacity
	}
	r.subs[sub.ID] = sub
	r.mu.Unlock()

	r.onChange(cat)
	return sub, nil
}

// Get returns the live record for id.
func (r *Registry) Get(id string) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[id]
	return sub, ok
}

// Modify swaps interval and filter; the record's category and cursor are
// preserved. Draining records reject modification.
func (r *Registry) Modify(id string, interval time.Duration, filter *Filter) error {
	r.mu.RLock()
	sub, ok := r.subs[id]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if sub.State() != StateActive {
		return ErrNotFound
	}
	sub.update(interval, filter)
	sub.Wake()
	r.onChange(sub.Category)
	return nil
}

// MarkDraining is idempotent; the first call on an ACTIVE record wins and
// notifies the scheduler. Unknown ids report false.
func (r *Registry) MarkDraining(id string) bool {
	r.mu.RLock()
	sub, ok := r.subs[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if sub.markDraining() {
		r.onChange(sub.Category)
	}
	return true
}

// Remove deletes the record; the id is never reused (uuids are minted per
// Insert). The record is marked CLOSED for any stale holder.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	r.mu.Unlock()
	if ok {
		sub.markClosed()
		r.onChange(sub.Category)
	}
}

// List snapshots the ACTIVE descriptors, ordered by creation time.
func (r *Registry) List() []Status {
	r.mu.RLock()
	out := make([]Status, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.State() == StateActive {
			out = append(out, sub.status())
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len reports the total number of live records, draining included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// DemandFor derives the scheduler inputs for a category: the number of
// ACTIVE subscriptions and the smallest requested interval among them.
func (r *Registry) DemandFor(cat model.Category) (count int, minInterval time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if sub.Category != cat || sub.State() != StateActive {
			continue
		}
		iv := sub.Interval()
		if count == 0 || iv < minInterval {
			minInterval = iv
		}
		count++
	}
	return count, minInterval
}
