// Package engine bundles the collector registry, snapshot cache, sampling
// scheduler, subscription registry and delivery workers behind one handle.
// RPC handlers talk to an *Engine; nothing in here is package-level state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/Adam-Cosner/monitord/internal/cache"
	"github.com/Adam-Cosner/monitord/internal/collector"
	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/delivery"
	"github.com/Adam-Cosner/monitord/internal/metrics"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/Adam-Cosner/monitord/internal/scheduler"
	"github.com/Adam-Cosner/monitord/internal/subscription"
	"github.com/Adam-Cosner/monitord/internal/transport"
	"github.com/shirou/gopsutil/v4/process"
)

// Engine is the daemon core. Create with New, run with Start, stop with
// Shutdown. All control-surface methods are safe for concurrent use.
type Engine struct {
	cfg        *config.Config
	log        *slog.Logger
	collectors *collector.Registry
	cache      *cache.Cache
	sched      *scheduler.Scheduler
	subs       *subscription.Registry

	mu      sync.Mutex
	workers map[string]*workerEntry
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

type workerEntry struct {
	cancel context.CancelFunc
	done   chan struct{}
	sink   transport.Sink
}

// New wires the core components. The collector registry is immutable from
// here on; categories without a collector reject Subscribe.
func New(cfg *config.Config, collectors *collector.Registry, log *slog.Logger) *Engine {
	e := &Engine{
		cfg:        cfg,
		log:        log,
		collectors: collectors,
		cache:      cache.New(collectors.Categories()),
		workers:    make(map[string]*workerEntry),
	}
	e.subs = subscription.NewRegistry(cfg.Daemon.MaxClients, func(cat model.Category) {
		if e.sched != nil {
			e.sched.Notify(cat)
		}
		e.publishSubscriptionGauges(cat)
	})
	e.sched = scheduler.New(collectors, e.cache, e.subs.DemandFor, log)
	return e
}

// Start launches the category schedulers. It must be called before
// Subscribe; calling it twice is an error.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("engine already started")
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.sched.Start(e.ctx)
	e.started = true
	e.log.Info("engine started", "categories", len(e.collectors.Categories()),
		"max_clients", e.cfg.Daemon.MaxClients)
	return nil
}

// Shutdown broadcasts cancellation, waits for schedulers and workers up to
// grace, and drains the registry. Safe to call more than once.
func (e *Engine) Shutdown(grace time.Duration) {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	cancel := e.cancel
	entries := make([]*workerEntry, 0, len(e.workers))
	ids := make([]string, 0, len(e.workers))
	for id, w := range e.workers {
		entries = append(entries, w)
		ids = append(ids, id)
	}
	e.mu.Unlock()

	cancel()

	deadline := time.After(grace)
	for _, w := range entries {
		select {
		case <-w.done:
		case <-deadline:
		}
	}
	done := make(chan struct{})
	go func() { e.sched.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(grace):
		e.log.Warn("schedulers did not stop within grace period")
	}

	for i, w := range entries {
		_ = w.sink.Close()
		e.subs.Remove(ids[i])
	}
	e.mu.Lock()
	e.workers = make(map[string]*workerEntry)
	e.mu.Unlock()
	e.log.Info("engine stopped")
}

// SubscribeRequest is one client subscription ask. A Category of "all"
// expands into one independent subscription per registered category; the
// filter then attaches only to the category it is tagged for.
type SubscribeRequest struct {
	Category   model.Category
	IntervalMs uint32
	Filter     *subscription.Filter
	Sink       transport.Sink
}

// Subscribe validates the request and creates the subscription(s),
// returning their ids. On any failure nothing is left behind.
func (e *Engine) Subscribe(req SubscribeRequest) ([]string, error) {
	interval, err := e.resolveInterval(req.IntervalMs)
	if err != nil {
		return nil, err
	}
	if req.Sink == nil {
		return nil, fmt.Errorf("%w: subscription without a sink", ErrInternal)
	}

	targets, err := e.expandCategory(req.Category)
	if err != nil {
		return nil, err
	}
	// Validate the filter before creating anything. For an expanded "all"
	// subscription the filter attaches only to its tagged category.
	if req.Filter != nil {
		if req.Category == model.CategoryAll {
			matched := false
			for _, cat := range targets {
				if req.Filter.Validate(cat) == nil {
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("%w: filter matches no subscribed category", ErrInvalidFilter)
			}
		} else if err := req.Filter.Validate(req.Category); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil, fmt.Errorf("%w: engine not started", ErrInternal)
	}

	ids := make([]string, 0, len(targets))
	for _, cat := range targets {
		var f *subscription.Filter
		if req.Filter != nil && req.Filter.Validate(cat) == nil {
			f = req.Filter
		}
		sub, err := e.subs.Insert(cat, interval, f, req.Sink)
		if err != nil {
			for _, id := range ids {
				e.dropLocked(id)
			}
			if err == subscription.ErrCapacity {
				return nil, fmt.Errorf("%w: max_clients=%d", ErrResourceNotAvailable, e.cfg.Daemon.MaxClients)
			}
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		e.spawnWorkerLocked(sub)
		ids = append(ids, sub.ID)
	}
	e.log.Info("subscribed", "ids", ids, "category", req.Category, "interval", interval)
	return ids, nil
}

// Modify swaps a subscription's interval and filter. The category cannot
// change and the cursor is preserved, so no snapshot is replayed.
func (e *Engine) Modify(id string, intervalMs uint32, filter *subscription.Filter) error {
	interval, err := e.resolveInterval(intervalMs)
	if err != nil {
		return err
	}
	sub, ok := e.subs.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if filter != nil {
		if err := filter.Validate(sub.Category); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}
	if err := e.subs.Modify(id, interval, filter); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Unsubscribe drains and removes a subscription. It is idempotent: an
// unknown id is a success.
func (e *Engine) Unsubscribe(id string) {
	if !e.subs.MarkDraining(id) {
		return
	}
	e.mu.Lock()
	w := e.workers[id]
	delete(e.workers, id)
	e.mu.Unlock()

	if w != nil {
		w.cancel()
		select {
		case <-w.done:
		case <-time.After(5 * time.Second):
			e.log.Warn("delivery worker slow to stop", "subscription", id)
		}
		_ = w.sink.Close()
	}
	e.subs.Remove(id)
	e.log.Info("unsubscribed", "subscription", id)
}

// List snapshots the active subscription descriptors.
func (e *Engine) List() []subscription.Status { return e.subs.List() }

// Snapshot produces a one-shot reading for a single category, preferring
// the cached value when it is fresh enough to be indistinguishable from a
// new sample.
func (e *Engine) Snapshot(ctx context.Context, cat model.Category) (*model.Snapshot, error) {
	col, ok := e.collectors.Get(cat)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, cat)
	}
	if snap, _, ok := e.cache.Get(cat); ok {
		if time.Since(snap.CollectedAt) <= col.MinInterval() {
			return snap, nil
		}
	}
	return col.Collect(ctx)
}

// GetSystemSnapshot builds the composite view. Collector failures leave
// their sub-field absent rather than failing the call.
func (e *Engine) GetSystemSnapshot(ctx context.Context) *model.CompositeSnapshot {
	out := &model.CompositeSnapshot{Timestamp: time.Now()}
	for _, cat := range e.collectors.Categories() {
		snap, err := e.Snapshot(ctx, cat)
		if err != nil {
			e.log.Warn("one-shot sample failed", "category", cat, "error", err)
			continue
		}
		out.Merge(snap)
	}
	return out
}

// TermProcess delivers SIGTERM or SIGKILL to a process.
func (e *Engine) TermProcess(pid int32, sig syscall.Signal) error {
	if sig != syscall.SIGTERM && sig != syscall.SIGKILL {
		return fmt.Errorf("%w: signal %d", ErrInvalidType, sig)
	}
	p, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	if err := p.SendSignal(sig); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	e.log.Info("signal delivered", "pid", pid, "signal", sig)
	return nil
}

// Categories lists the categories with a registered collector.
func (e *Engine) Categories() []model.Category { return e.collectors.Categories() }

// SchedulerFailures exposes the per-category failed-sample counter.
func (e *Engine) SchedulerFailures(cat model.Category) uint64 { return e.sched.Failures(cat) }

// --- internals ---

func (e *Engine) resolveInterval(ms uint32) (time.Duration, error) {
	if ms == 0 {
		ms = e.cfg.Daemon.DefaultUpdateIntervalMs
	}
	if ms == 0 {
		return 0, fmt.Errorf("%w: interval_ms is zero and no default is configured", ErrInvalidInterval)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (e *Engine) expandCategory(cat model.Category) ([]model.Category, error) {
	if cat == model.CategoryAll {
		targets := e.collectors.Categories()
		if len(targets) == 0 {
			return nil, fmt.Errorf("%w: no collectors registered", ErrInvalidType)
		}
		return targets, nil
	}
	if !cat.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, cat)
	}
	if _, ok := e.collectors.Get(cat); !ok {
		return nil, fmt.Errorf("%w: %s has no collector", ErrInvalidType, cat)
	}
	return []model.Category{cat}, nil
}

func (e *Engine) spawnWorkerLocked(sub *subscription.Subscription) {
	wctx, wcancel := context.WithCancel(e.ctx)
	entry := &workerEntry{cancel: wcancel, done: make(chan struct{}), sink: sub.Sink}
	e.workers[sub.ID] = entry

	worker := delivery.NewWorker(sub, e.cache, e.log, e.retire)
	go func() {
		defer close(entry.done)
		worker.Run(wctx)
	}()
}

// retire handles a terminal sink failure reported by the worker itself. It
// runs on the worker's own goroutine, which returns right after, so it must
// not wait for the worker's done channel.
func (e *Engine) retire(id string) {
	if !e.subs.MarkDraining(id) {
		return
	}
	e.mu.Lock()
	w := e.workers[id]
	delete(e.workers, id)
	e.mu.Unlock()
	if w != nil {
		w.cancel()
		_ = w.sink.Close()
	}
	e.subs.Remove(id)
}

// dropLocked rolls back a partially created "all" expansion. Caller holds
// e.mu; the worker exits on its own cancellation.
func (e *Engine) dropLocked(id string) {
	e.subs.MarkDraining(id)
	if w, ok := e.workers[id]; ok {
		w.cancel()
		delete(e.workers, id)
	}
	e.subs.Remove(id)
}

func (e *Engine) publishSubscriptionGauges(cat model.Category) {
	count, _ := e.subs.DemandFor(cat)
	metrics.SetActiveSubscriptions(cat.String(), count)
}
