package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adam-Cosner/monitord/internal/cache"
	"github.com/Adam-Cosner/monitord/internal/collector"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCollector produces empty CPU snapshots and counts Collect calls.
type countingCollector struct {
	cat   model.Category
	min   time.Duration
	calls atomic.Int64
	fail  atomic.Bool
}

func (c *countingCollector) Category() model.Category   { return c.cat }
func (c *countingCollector) MinInterval() time.Duration { return c.min }
func (c *countingCollector) Collect(context.Context) (*model.Snapshot, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return nil, errors.New("probe broke")
	}
	return &model.Snapshot{
		Category:    c.cat,
		CollectedAt: time.Now(),
		CPU:         &model.CPUInfo{},
	}, nil
}

// demandTable is a mutable DemandFunc for tests.
type demandTable struct {
	mu sync.Mutex
	m  map[model.Category]struct {
		count int
		min   time.Duration
	}
}

func newDemandTable() *demandTable {
	return &demandTable{m: make(map[model.Category]struct {
		count int
		min   time.Duration
	})}
}

func (d *demandTable) set(cat model.Category, count int, min time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[cat] = struct {
		count int
		min   time.Duration
	}{count, min}
}

func (d *demandTable) fn(cat model.Category) (int, time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.m[cat]
	return e.count, e.min
}

func newTestScheduler(col *countingCollector) (*Scheduler, *cache.Cache, *demandTable) {
	reg := collector.NewRegistryOf(col)
	c := cache.New([]model.Category{col.cat})
	d := newDemandTable()
	s := New(reg, c, d.fn, slog.Default())
	return s, c, d
}

func TestPausedWithoutSubscribers(t *testing.T) {
	col := &countingCollector{cat: model.CategoryCPU, min: 10 * time.Millisecond}
	s, _, _ := newTestScheduler(col)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	s.Wait()

	assert.Zero(t, col.calls.Load(), "paused scheduler must not sample")
}

func TestSamplesAtDemandedCadence(t *testing.T) {
	col := &countingCollector{cat: model.CategoryCPU, min: 5 * time.Millisecond}
	s, c, d := newTestScheduler(col)
	d.set(model.CategoryCPU, 1, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(300 * time.Millisecond)
	cancel()
	s.Wait()

	calls := col.calls.Load()
	assert.GreaterOrEqual(t, calls, int64(8), "expected multiple ticks at 20ms")
	assert.LessOrEqual(t, calls, int64(20), "not faster than demanded")
	assert.Equal(t, c.Version(model.CategoryCPU), uint64(s.Samples(model.CategoryCPU)))
}

func TestFloorWins(t *testing.T) {
	col := &countingCollector{cat: model.CategoryCPU, min: 50 * time.Millisecond}
	s, _, d := newTestScheduler(col)
	d.set(model.CategoryCPU, 1, time.Millisecond) // demand far below floor

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(300 * time.Millisecond)
	cancel()
	s.Wait()

	assert.LessOrEqual(t, col.calls.Load(), int64(9), "floor of 50ms caps the cadence")
}

func TestNotifyResumesFromPause(t *testing.T) {
	col := &countingCollector{cat: model.CategoryCPU, min: 10 * time.Millisecond}
	s, c, d := newTestScheduler(col)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, col.calls.Load())

	d.set(model.CategoryCPU, 1, 50*time.Millisecond)
	s.Notify(model.CategoryCPU)

	// first sample arrives promptly, not one full interval later
	snap, ver, err := c.WaitNewer(mustTimeout(t, time.Second), model.CategoryCPU, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ver)
	assert.Equal(t, model.CategoryCPU, snap.Category)
}

func TestUnsubscribePausesWithinOneInterval(t *testing.T) {
	col := &countingCollector{cat: model.CategoryCPU, min: 5 * time.Millisecond}
	s, _, d := newTestScheduler(col)
	d.set(model.CategoryCPU, 1, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	require.Greater(t, col.calls.Load(), int64(0))

	d.set(model.CategoryCPU, 0, 0)
	s.Notify(model.CategoryCPU)
	time.Sleep(40 * time.Millisecond) // > one 20ms interval
	settled := col.calls.Load()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, col.calls.Load(), "no samples after last unsubscribe")
}

func TestCollectorErrorsCountedNotPublished(t *testing.T) {
	col := &countingCollector{cat: model.CategoryGPU, min: 5 * time.Millisecond}
	col.fail.Store(true)
	reg := collector.NewRegistryOf(col)
	c := cache.New([]model.Category{model.CategoryGPU})
	d := newDemandTable()
	d.set(model.CategoryGPU, 1, 20*time.Millisecond)
	s := New(reg, c, d.fn, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(150 * time.Millisecond)

	assert.Greater(t, s.Failures(model.CategoryGPU), uint64(0))
	assert.Equal(t, uint64(0), c.Version(model.CategoryGPU), "errors never publish")

	// recovery: versions advance again from the first good sample
	col.fail.Store(false)
	_, ver, err := c.WaitNewer(mustTimeout(t, time.Second), model.CategoryGPU, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ver)

	cancel()
	s.Wait()
}

func TestTightenTakesEffectImmediately(t *testing.T) {
	col := &countingCollector{cat: model.CategoryCPU, min: 5 * time.Millisecond}
	s, _, d := newTestScheduler(col)
	d.set(model.CategoryCPU, 1, 10*time.Second) // slow subscriber first

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	first := col.calls.Load()
	require.Equal(t, int64(1), first, "one immediate sample, then a 10s wait")

	// a second subscriber at 20ms tightens the cadence without waiting
	// out the pending 10s deadline
	d.set(model.CategoryCPU, 2, 20*time.Millisecond)
	s.Notify(model.CategoryCPU)
	time.Sleep(200 * time.Millisecond)
	assert.Greater(t, col.calls.Load(), first+3)
}

func TestFailureIsolationAcrossCategories(t *testing.T) {
	bad := &countingCollector{cat: model.CategoryGPU, min: 5 * time.Millisecond}
	bad.fail.Store(true)
	good := &countingCollector{cat: model.CategoryCPU, min: 5 * time.Millisecond}
	reg := collector.NewRegistryOf(bad, good)
	c := cache.New([]model.Category{model.CategoryGPU, model.CategoryCPU})
	d := newDemandTable()
	d.set(model.CategoryGPU, 1, 20*time.Millisecond)
	d.set(model.CategoryCPU, 1, 20*time.Millisecond)
	s := New(reg, c, d.fn, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(300 * time.Millisecond)
	cancel()
	s.Wait()

	assert.Greater(t, c.Version(model.CategoryCPU), uint64(5), "healthy category unaffected")
	assert.Zero(t, c.Version(model.CategoryGPU))
}

func mustTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
