// Package collector gathers host telemetry, one collector per category.
// Collectors are independent: a failing collector never affects another,
// and the scheduler treats every error as "no new snapshot this tick".
package collector

import (
	"context"
	"time"

	"github.com/Adam-Cosner/monitord/internal/model"
)

// Collector produces snapshots for exactly one category. Collect may block
// on OS calls; callers run it off the coordination path. Implementations
// may keep state between calls (rate counters) but must never mutate a
// snapshot after returning it.
type Collector interface {
	Category() model.Category
	// MinInterval is the floor below which the scheduler will not drive
	// this collector, regardless of subscriber demand.
	MinInterval() time.Duration
	Collect(ctx context.Context) (*model.Snapshot, error)
}

func newSnapshot(cat model.Category) *model.Snapshot {
	return &model.Snapshot{Category: cat, CollectedAt: time.Now()}
}

func msToDuration(ms uint32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
