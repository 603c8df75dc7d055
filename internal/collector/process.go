package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessCollector walks the process table. Cmdline, environment and IO
// statistics are collected only when the config asks for them; skipping
// the reads is cheaper than stripping afterwards.
type ProcessCollector struct {
	cfg         config.ProcessCollectorConfig
	minInterval time.Duration

	mu     sync.Mutex // guards the io-rate state below
	prevAt time.Time
	prevIO map[int32]ioSample
}

type ioSample struct {
	readBytes  uint64
	writeBytes uint64
}

func NewProcessCollector(cfg config.ProcessCollectorConfig) *ProcessCollector {
	return &ProcessCollector{
		cfg:         cfg,
		minInterval: msToDuration(cfg.CollectionIntervalMs),
		prevIO:      make(map[int32]ioSample),
	}
}

func (c *ProcessCollector) Category() model.Category   { return model.CategoryProcess }
func (c *ProcessCollector) MinInterval() time.Duration { return c.minInterval }

func (c *ProcessCollector) Collect(ctx context.Context) (*model.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	elapsed := now.Sub(c.prevAt).Seconds()
	nextIO := make(map[int32]ioSample, len(procs))

	list := &model.ProcessList{Processes: make([]model.ProcessInfo, 0, len(procs))}
	for _, p := range procs {
		if c.cfg.MaxProcesses > 0 && len(list.Processes) >= c.cfg.MaxProcesses {
			break
		}
		info, ok := c.collectOne(ctx, p, elapsed, nextIO)
		if !ok {
			// Process exited mid-walk; skip it rather than fail the tick.
			continue
		}
		list.Processes = append(list.Processes, info)
	}

	c.prevAt = now
	c.prevIO = nextIO

	snap := newSnapshot(model.CategoryProcess)
	snap.Processes = list
	return snap, nil
}

func (c *ProcessCollector) collectOne(ctx context.Context, p *process.Process, elapsed float64, nextIO map[int32]ioSample) (model.ProcessInfo, bool) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return model.ProcessInfo{}, false
	}

	info := model.ProcessInfo{
		PID:  uint32(p.Pid),
		Name: name,
	}
	if ppid, err := p.PpidWithContext(ctx); err == nil {
		info.ParentPID = uint32(ppid)
	}
	if user, err := p.UsernameWithContext(ctx); err == nil {
		info.Username = user
	}
	if status, err := p.StatusWithContext(ctx); err == nil && len(status) > 0 {
		info.State = status[0]
	}
	if pct, err := p.CPUPercentWithContext(ctx); err == nil {
		info.CPUUsagePercent = pct
	}
	if memInfo, err := p.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
		info.PhysicalMemoryBytes = memInfo.RSS
		info.VirtualMemoryBytes = memInfo.VMS
	}
	if threads, err := p.NumThreadsWithContext(ctx); err == nil {
		info.Threads = uint64(threads)
	}
	if fds, err := p.NumFDsWithContext(ctx); err == nil {
		info.OpenFiles = uint64(fds)
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		info.StartTimeEpochSeconds = created / 1000
	}

	if c.cfg.CollectCommandLine {
		if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
			info.Cmdline = cmdline
		}
		if cwd, err := p.CwdWithContext(ctx); err == nil {
			info.Cwd = cwd
		}
	}
	if c.cfg.CollectEnvironment {
		if env, err := p.EnvironWithContext(ctx); err == nil {
			info.Environment = parseEnviron(env)
		}
	}
	if c.cfg.CollectIOStats {
		if io, err := p.IOCountersWithContext(ctx); err == nil && io != nil {
			nextIO[p.Pid] = ioSample{readBytes: io.ReadBytes, writeBytes: io.WriteBytes}
			if prev, ok := c.prevIO[p.Pid]; ok && elapsed > 0 {
				info.DiskReadBytesRate = rate(io.ReadBytes, prev.readBytes, elapsed)
				info.DiskWriteBytesRate = rate(io.WriteBytes, prev.writeBytes, elapsed)
			}
		}
	}
	return info, true
}

func parseEnviron(env []string) []model.KeyValuePair {
	out := make([]model.KeyValuePair, 0, len(env))
	for _, kv := range env {
		if kv == "" {
			continue
		}
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out = append(out, model.KeyValuePair{Key: kv[:i], Value: kv[i+1:]})
		} else {
			out = append(out, model.KeyValuePair{Key: kv})
		}
	}
	return out
}
