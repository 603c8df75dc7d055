package collector

import (
	"log/slog"

	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/model"
)

// Registry holds one collector per enabled category. It is built once at
// startup and never changes afterwards, so reads take no lock.
type Registry struct {
	collectors map[model.Category]Collector
	order      []model.Category
}

// NewRegistry instantiates the collectors enabled in cfg.
func NewRegistry(cfg *config.CollectorsConfig, log *slog.Logger) *Registry {
	r := &Registry{collectors: make(map[model.Category]Collector)}
	add := func(c Collector, enabled bool) {
		if !enabled {
			log.Info("collector disabled by config", "category", c.Category())
			return
		}
		r.collectors[c.Category()] = c
		r.order = append(r.order, c.Category())
	}
	add(NewSystemCollector(cfg.System), cfg.System.Enabled)
	add(NewCPUCollector(cfg.CPU), cfg.CPU.Enabled)
	add(NewMemoryCollector(cfg.Memory), cfg.Memory.Enabled)
	add(NewGPUCollector(cfg.GPU), cfg.GPU.Enabled)
	add(NewNetworkCollector(cfg.Network), cfg.Network.Enabled)
	add(NewStorageCollector(cfg.Storage), cfg.Storage.Enabled)
	add(NewProcessCollector(cfg.Process), cfg.Process.Enabled)
	return r
}

// NewRegistryOf builds a registry from explicit collectors; used by tests
// and embedders that bring their own implementations.
func NewRegistryOf(collectors ...Collector) *Registry {
	r := &Registry{collectors: make(map[model.Category]Collector, len(collectors))}
	for _, c := range collectors {
		if _, dup := r.collectors[c.Category()]; dup {
			continue
		}
		r.collectors[c.Category()] = c
		r.order = append(r.order, c.Category())
	}
	return r
}

// Get returns the collector for a category, if one is registered.
func (r *Registry) Get(cat model.Category) (Collector, bool) {
	c, ok := r.collectors[cat]
	return c, ok
}

// Categories lists the registered categories in registration order.
func (r *Registry) Categories() []model.Category {
	out := make([]model.Category, len(r.order))
	copy(out, r.order)
	return out
}
