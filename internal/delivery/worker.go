// Package delivery runs one worker per active subscription: wait for a
// newer snapshot, filter it, hand it to the sink. Slow subscribers lose
// intermediate versions instead of building a backlog; a terminal sink
// error retires the subscription.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adam-Cosner/monitord/internal/cache"
	"github.com/Adam-Cosner/monitord/internal/metrics"
	"github.com/Adam-Cosner/monitord/internal/subscription"
	"github.com/Adam-Cosner/monitord/internal/transport"
)

// Worker pumps snapshots for a single subscription.
type Worker struct {
	sub   *subscription.Subscription
	cache *cache.Cache
	log   *slog.Logger
	// onTerminal runs once when the sink fails terminally; the engine uses
	// it to drain and remove the subscription.
	onTerminal func(id string)
}

func NewWorker(sub *subscription.Subscription, c *cache.Cache, log *slog.Logger, onTerminal func(id string)) *Worker {
	if onTerminal == nil {
		onTerminal = func(string) {}
	}
	return &Worker{sub: sub, cache: c, log: log, onTerminal: onTerminal}
}

// Run loops until the context ends or the sink fails terminally. The
// cursor advances before the send attempt, so a dropped or failed send is
// never retried: the subscriber only ever sees the newest version. Each
// iteration first paces to the subscription's interval; intermediate
// versions published during the pacing sleep are coalesced away by the
// cursor-based wait.
func (w *Worker) Run(ctx context.Context) {
	cat := w.sub.Category
	var lastAttempt time.Time
	for {
		if !w.pace(ctx, lastAttempt) {
			return
		}
		snap, version, err := w.cache.WaitNewer(ctx, cat, w.sub.Cursor())
		if err != nil {
			return
		}
		w.sub.AdvanceCursor(version)

		filtered := w.sub.Filter().Apply(snap)
		if filtered.Empty() {
			continue
		}

		lastAttempt = time.Now()
		switch err := w.sub.Sink.TrySend(filtered); {
		case err == nil:
			w.sub.NoteDelivered()
			metrics.IncDelivery(cat.String())
		case errors.Is(err, transport.ErrWouldBlock):
			w.sub.NoteDropped()
			metrics.IncDrop(cat.String())
		default:
			w.log.Info("subscription sink failed, retiring",
				"subscription", w.sub.ID, "category", cat, "error", err)
			w.onTerminal(w.sub.ID)
			return
		}
	}
}

// pace sleeps out the remainder of the subscription interval since the
// last send attempt. A Modify wakes the sleep so the new interval applies
// at once. Returns false on cancellation.
func (w *Worker) pace(ctx context.Context, lastAttempt time.Time) bool {
	for {
		if lastAttempt.IsZero() {
			return true
		}
		wait := time.Until(lastAttempt.Add(w.sub.Interval()))
		if wait <= 0 {
			return true
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-w.sub.WakeCh():
			timer.Stop()
			// interval may have changed; recompute
		case <-timer.C:
			return true
		}
	}
}
