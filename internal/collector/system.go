package collector

import (
	"context"
	"time"

	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
)

// SystemCollector reads whole-host identity and load figures.
type SystemCollector struct {
	minInterval time.Duration
}

func NewSystemCollector(cfg config.CollectorConfig) *SystemCollector {
	return &SystemCollector{minInterval: msToDuration(cfg.CollectionIntervalMs)}
}

func (c *SystemCollector) Category() model.Category   { return model.CategorySystem }
func (c *SystemCollector) MinInterval() time.Duration { return c.minInterval }

func (c *SystemCollector) Collect(ctx context.Context) (*model.Snapshot, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}

	sys := &model.SystemInfo{
		Hostname:       info.Hostname,
		OSName:         info.Platform,
		OSVersion:      info.PlatformVersion,
		KernelVersion:  info.KernelVersion,
		Architecture:   info.KernelArch,
		Virtualization: info.VirtualizationSystem,
		BootTime:       info.BootTime,
		UptimeSeconds:  info.Uptime,
		ProcessCount:   uint32(info.Procs),
	}

	// Load and user counts are best-effort; absent on failure.
	if avg, err := load.AvgWithContext(ctx); err == nil {
		sys.LoadAverage = &model.LoadAvg{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}
	if users, err := host.UsersWithContext(ctx); err == nil {
		sys.LoggedInUsers = uint32(len(users))
	}

	snap := newSnapshot(model.CategorySystem)
	snap.System = sys
	return snap, nil
}
