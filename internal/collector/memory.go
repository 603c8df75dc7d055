package collector

import (
	"context"
	"time"

	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryCollector samples RAM and swap usage.
type MemoryCollector struct {
	minInterval time.Duration
}

func NewMemoryCollector(cfg config.CollectorConfig) *MemoryCollector {
	return &MemoryCollector{minInterval: msToDuration(cfg.CollectionIntervalMs)}
}

func (c *MemoryCollector) Category() model.Category   { return model.CategoryMemory }
func (c *MemoryCollector) MinInterval() time.Duration { return c.minInterval }

func (c *MemoryCollector) Collect(ctx context.Context) (*model.Snapshot, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	info := &model.MemoryInfo{
		TotalBytes:     vm.Total,
		UsedBytes:      vm.Used,
		FreeBytes:      vm.Free,
		AvailableBytes: vm.Available,
		CachedBytes:    vm.Cached,
		SharedBytes:    vm.Shared,
		LoadPercent:    vm.UsedPercent,
	}

	// Swap is best-effort; a host without swap reports zeros.
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		info.SwapTotalBytes = swap.Total
		info.SwapUsedBytes = swap.Used
		info.SwapFreeBytes = swap.Free
	}

	snap := newSnapshot(model.CategoryMemory)
	snap.Memory = info
	return snap, nil
}
