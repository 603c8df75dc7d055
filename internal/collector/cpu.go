package collector

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/sensors"
)

// CPUCollector samples processor identity and utilization. Identity fields
// (model name, core counts, cache sizes) are read once and reused.
type CPUCollector struct {
	minInterval time.Duration

	// mu serializes Collect: the utilization diff against the previous
	// call and the cached identity are not safe for concurrent sampling
	// (scheduler tick vs one-shot snapshot).
	mu sync.Mutex

	identityLoaded bool
	modelName      string
	architecture   string
	physical       uint32
	logical        uint32
	cache          *model.CPUCache
	flags          []string
}

func NewCPUCollector(cfg config.CollectorConfig) *CPUCollector {
	return &CPUCollector{minInterval: msToDuration(cfg.CollectionIntervalMs)}
}

func (c *CPUCollector) Category() model.Category   { return model.CategoryCPU }
func (c *CPUCollector) MinInterval() time.Duration { return c.minInterval }

func (c *CPUCollector) Collect(ctx context.Context) (*model.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadIdentity(ctx); err != nil {
		return nil, err
	}

	// Interval 0 diffs against the previous call, so sampling cost stays
	// constant regardless of cadence.
	global, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}
	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, err
	}

	info := &model.CPUInfo{
		ModelName:       c.modelName,
		Architecture:    c.architecture,
		PhysicalCores:   c.physical,
		LogicalCores:    c.logical,
		Cache:           c.cache,
		Flags:           c.flags,
		ScalingGovernor: readSysfsString("/sys/devices/system/cpu/cpu0/cpufreq/scaling_governor"),
	}
	if len(global) > 0 {
		info.GlobalUtilization = global[0]
	}

	temps := coreTemperatures(ctx)
	info.Cores = make([]model.CoreInfo, len(perCore))
	for i, util := range perCore {
		core := model.CoreInfo{CoreID: uint32(i), Utilization: util}
		base := "/sys/devices/system/cpu/cpu" + strconv.Itoa(i) + "/cpufreq/"
		if khz, ok := readSysfsUint(base + "scaling_cur_freq"); ok {
			core.FrequencyMHz = float64(khz) / 1000
		}
		if khz, ok := readSysfsUint(base + "cpuinfo_min_freq"); ok {
			mhz := float64(khz) / 1000
			core.MinFrequencyMHz = &mhz
		}
		if khz, ok := readSysfsUint(base + "cpuinfo_max_freq"); ok {
			mhz := float64(khz) / 1000
			core.MaxFrequencyMHz = &mhz
		}
		if t, ok := temps[i]; ok {
			core.Temperature = &t
		}
		info.Cores[i] = core
	}

	snap := newSnapshot(model.CategoryCPU)
	snap.CPU = info
	return snap, nil
}

func (c *CPUCollector) loadIdentity(ctx context.Context) error {
	if c.identityLoaded {
		return nil
	}
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return err
	}
	if len(infos) > 0 {
		c.modelName = infos[0].ModelName
		c.flags = infos[0].Flags
	}
	if physical, err := cpu.CountsWithContext(ctx, false); err == nil {
		c.physical = uint32(physical)
	}
	if logical, err := cpu.CountsWithContext(ctx, true); err == nil {
		c.logical = uint32(logical)
	}
	c.architecture = readSysfsString("/proc/sys/kernel/arch")
	c.cache = readCPUCache()
	c.identityLoaded = true
	return nil
}

// readCPUCache walks cpu0's cache index entries. Missing sysfs yields nil.
func readCPUCache() *model.CPUCache {
	base := "/sys/devices/system/cpu/cpu0/cache/"
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}
	cache := &model.CPUCache{}
	found := false
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "index") {
			continue
		}
		dir := base + e.Name() + "/"
		level := readSysfsString(dir + "level")
		kind := readSysfsString(dir + "type")
		size := readSysfsString(dir + "size")
		kb, ok := parseCacheKB(size)
		if !ok {
			continue
		}
		found = true
		switch {
		case level == "1" && kind == "Data":
			cache.L1DataKB = kb
		case level == "1" && kind == "Instruction":
			cache.L1InstructionKB = kb
		case level == "2":
			cache.L2KB = kb
		case level == "3":
			cache.L3KB = kb
		}
	}
	if !found {
		return nil
	}
	return cache
}

func parseCacheKB(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	mult := uint32(1)
	switch {
	case strings.HasSuffix(s, "K"):
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		s = strings.TrimSuffix(s, "M")
		mult = 1024
	default:
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n) * mult, true
}

// coreTemperatures maps logical core index to a temperature where the
// platform labels sensors per core (coretemp "Core N" style keys).
func coreTemperatures(ctx context.Context) map[int]float64 {
	stats, err := sensors.TemperaturesWithContext(ctx)
	if err != nil || len(stats) == 0 {
		return nil
	}
	out := make(map[int]float64)
	for _, s := range stats {
		key := strings.ToLower(s.SensorKey)
		idx := strings.LastIndexByte(key, '_')
		if idx < 0 || !strings.Contains(key, "core") {
			continue
		}
		if n, err := strconv.Atoi(key[idx+1:]); err == nil {
			out[n] = s.Temperature
		}
	}
	return out
}
