// Package cache holds the newest published snapshot per category behind a
// monotonically increasing version. The scheduler for a category is the
// sole writer of its cell; any number of delivery workers read and wait.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/Adam-Cosner/monitord/internal/model"
)

// Cache is a fixed set of versioned cells, one per registered category.
// The cell set is immutable after New.
type Cache struct {
	cells map[model.Category]*cell
}

type cell struct {
	mu      sync.Mutex
	version uint64
	snap    *model.Snapshot
	// wake is closed and replaced on every publish; waiters snapshot the
	// current channel under the lock and block on it outside the lock.
	wake chan struct{}
}

// New creates cells for the given categories.
func New(categories []model.Category) *Cache {
	cells := make(map[model.Category]*cell, len(categories))
	for _, cat := range categories {
		cells[cat] = &cell{wake: make(chan struct{})}
	}
	return &Cache{cells: cells}
}

// Publish atomically replaces the cell contents, bumps the version, and
// wakes every waiter. It returns the snapshot stamped with its version.
// Publishing to an unregistered category is a programming error.
func (c *Cache) Publish(snap *model.Snapshot) (*model.Snapshot, error) {
	cl, ok := c.cells[snap.Category]
	if !ok {
		return nil, fmt.Errorf("cache: no cell for category %s", snap.Category)
	}
	cl.mu.Lock()
	cl.version++
	stamped := snap.WithVersion(cl.version)
	cl.snap = stamped
	prev := cl.wake
	cl.wake = make(chan struct{})
	cl.mu.Unlock()
	close(prev)
	return stamped, nil
}

// Get returns the newest snapshot and its version, or ok=false when the
// category has never published.
func (c *Cache) Get(cat model.Category) (*model.Snapshot, uint64, bool) {
	cl, ok := c.cells[cat]
	if !ok {
		return nil, 0, false
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.snap == nil {
		return nil, 0, false
	}
	return cl.snap, cl.version, true
}

// Version returns the current version counter for a category (0 before the
// first publish).
func (c *Cache) Version(cat model.Category) uint64 {
	cl, ok := c.cells[cat]
	if !ok {
		return 0
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.version
}

// WaitNewer suspends until the category's version exceeds cursor, then
// returns the current snapshot and version. It returns ctx.Err() when the
// context ends first.
func (c *Cache) WaitNewer(ctx context.Context, cat model.Category, cursor uint64) (*model.Snapshot, uint64, error) {
	cl, ok := c.cells[cat]
	if !ok {
		return nil, 0, fmt.Errorf("cache: no cell for category %s", cat)
	}
	for {
		cl.mu.Lock()
		if cl.version > cursor && cl.snap != nil {
			snap, ver := cl.snap, cl.version
			cl.mu.Unlock()
			return snap, ver, nil
		}
		wake := cl.wake
		cl.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-wake:
		}
	}
}
