// Package scheduler drives each collector at the tightest cadence its
// active subscribers demand, publishing results into the snapshot cache.
// One goroutine runs per category; a category with no active subscribers
// is paused and costs nothing.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adam-Cosner/monitord/internal/cache"
	"github.com/Adam-Cosner/monitord/internal/collector"
	"github.com/Adam-Cosner/monitord/internal/metrics"
	"github.com/Adam-Cosner/monitord/internal/model"
)

// DemandFunc reports the number of ACTIVE subscriptions for a category and
// the smallest interval among them. The registry provides it.
type DemandFunc func(model.Category) (count int, minInterval time.Duration)

// Scheduler owns one sampling loop per registered category.
type Scheduler struct {
	cache  *cache.Cache
	demand DemandFunc
	log    *slog.Logger

	loops map[model.Category]*loop
	wg    sync.WaitGroup
}

type loop struct {
	collector collector.Collector
	notify    chan struct{}
	failures  atomic.Uint64
	samples   atomic.Uint64
}

// New builds a scheduler over every collector in the registry. Loops do
// not run until Start.
func New(reg *collector.Registry, c *cache.Cache, demand DemandFunc, log *slog.Logger) *Scheduler {
	s := &Scheduler{
		cache:  c,
		demand: demand,
		log:    log,
		loops:  make(map[model.Category]*loop),
	}
	for _, cat := range reg.Categories() {
		col, _ := reg.Get(cat)
		s.loops[cat] = &loop{collector: col, notify: make(chan struct{}, 1)}
	}
	return s
}

// Start launches every category loop. It returns immediately; Wait blocks
// until all loops have observed ctx cancellation and exited.
func (s *Scheduler) Start(ctx context.Context) {
	for cat, l := range s.loops {
		s.wg.Add(1)
		go func(cat model.Category, l *loop) {
			defer s.wg.Done()
			s.run(ctx, cat, l)
		}(cat, l)
	}
}

// Wait blocks until every loop has exited.
func (s *Scheduler) Wait() { s.wg.Wait() }

// Notify wakes a category's loop so it re-derives its effective interval.
// It never blocks; a pending wakeup is enough.
func (s *Scheduler) Notify(cat model.Category) {
	l, ok := s.loops[cat]
	if !ok {
		return
	}
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Failures returns the per-category failed-sample counter.
func (s *Scheduler) Failures(cat model.Category) uint64 {
	if l, ok := s.loops[cat]; ok {
		return l.failures.Load()
	}
	return 0
}

// Samples returns the per-category successful-sample counter.
func (s *Scheduler) Samples(cat model.Category) uint64 {
	if l, ok := s.loops[cat]; ok {
		return l.samples.Load()
	}
	return 0
}

// run is the loop contract: pause while idle, sleep to the deadline,
// sample, publish on success, count and log on failure. The effective
// interval tightens as soon as demand changes but relaxes only after the
// next tick, so a fresh subscription is never starved of its first update.
func (s *Scheduler) run(ctx context.Context, cat model.Category, l *loop) {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	floor := l.collector.MinInterval()
	var (
		lastTick  time.Time
		effective time.Duration
		relaxed   = true // full recompute allowed (startup, post-tick, post-pause)
	)

	for {
		count, demandMin := s.demand(cat)
		if count == 0 {
			metrics.SetPaused(cat.String(), true)
			s.log.Debug("scheduler paused", "category", cat)
			select {
			case <-ctx.Done():
				return
			case <-l.notify:
			}
			metrics.SetPaused(cat.String(), false)
			lastTick = time.Time{} // first subscriber gets an immediate sample
			relaxed = true
			continue
		}

		next := demandMin
		if next < floor {
			next = floor
		}
		if relaxed || effective == 0 || next < effective {
			effective = next
		}

		deadline := lastTick.Add(effective)
		if now := time.Now(); !lastTick.IsZero() && deadline.After(now) {
			timer.Reset(deadline.Sub(now))
			select {
			case <-ctx.Done():
				return
			case <-l.notify:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				relaxed = false // only tighten mid-sleep
				continue
			case <-timer.C:
			}
		}

		tickStart := time.Now()
		snap, err := l.collector.Collect(ctx)
		metrics.ObserveSampleDuration(cat.String(), time.Since(tickStart).Seconds())
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.failures.Add(1)
			metrics.IncSampleFailure(cat.String())
			s.log.Warn("collector sample failed", "category", cat, "error", err)
		} else {
			if _, perr := s.cache.Publish(snap); perr != nil {
				s.log.Error("snapshot publish failed", "category", cat, "error", perr)
			} else {
				l.samples.Add(1)
				metrics.IncSample(cat.String())
			}
		}

		// Deadline derives from the tick start; a sample that overran the
		// interval fires again immediately without a catch-up burst.
		lastTick = tickStart
		relaxed = true

		select {
		case <-l.notify:
			// drain a wakeup that arrived mid-sample
		default:
		}
	}
}
