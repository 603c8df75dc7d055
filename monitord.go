// Package monitord is a thin facade over the daemon core for embedding:
// create a Monitor, start it, subscribe with your own sinks. The monitord
// binary in cmd/monitord wraps the same surface with an HTTP transport.
package monitord

import (
	"context"
	"log/slog"
	"syscall"
	"time"

	"github.com/Adam-Cosner/monitord/internal/collector"
	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/engine"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/Adam-Cosner/monitord/internal/subscription"
	"github.com/Adam-Cosner/monitord/internal/transport"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = config.Config

type Category = model.Category

type Snapshot = model.Snapshot

type CompositeSnapshot = model.CompositeSnapshot

type Filter = subscription.Filter

type SubscriptionStatus = subscription.Status

type SubscribeRequest = engine.SubscribeRequest

type Sink = transport.Sink

type ChanSink = transport.ChanSink

// ErrWouldBlock is the transient backpressure signal custom sinks return.
var ErrWouldBlock = transport.ErrWouldBlock

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads a TOML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// NewChanSink creates the in-process channel sink.
func NewChanSink(size int) *ChanSink { return transport.NewChanSink(size) }

// Monitor is a thin facade over the internal engine.
type Monitor struct{ inner *engine.Engine }

// New builds a Monitor with the collectors enabled in cfg.
func New(cfg *Config, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	reg := collector.NewRegistry(&cfg.Collectors, log)
	return &Monitor{inner: engine.New(cfg, reg, log)}
}

func (m *Monitor) Start(ctx context.Context) error { return m.inner.Start(ctx) }

func (m *Monitor) Shutdown(grace time.Duration) { m.inner.Shutdown(grace) }

// Subscribe creates one subscription (or several for CategoryAll) and
// returns their ids.
func (m *Monitor) Subscribe(req SubscribeRequest) ([]string, error) { return m.inner.Subscribe(req) }

func (m *Monitor) Modify(id string, intervalMs uint32, f *Filter) error {
	return m.inner.Modify(id, intervalMs, f)
}

func (m *Monitor) Unsubscribe(id string) { m.inner.Unsubscribe(id) }

func (m *Monitor) ListSubscriptions() []SubscriptionStatus { return m.inner.List() }

func (m *Monitor) GetSystemSnapshot(ctx context.Context) *CompositeSnapshot {
	return m.inner.GetSystemSnapshot(ctx)
}

func (m *Monitor) Snapshot(ctx context.Context, cat Category) (*Snapshot, error) {
	return m.inner.Snapshot(ctx, cat)
}

func (m *Monitor) TermProcess(pid int32, sig syscall.Signal) error {
	return m.inner.TermProcess(pid, sig)
}

// Engine exposes the underlying handle for the HTTP server wiring.
func (m *Monitor) Engine() *engine.Engine { return m.inner }
