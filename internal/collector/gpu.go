package collector

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/model"
)

const (
	pciVendorAMD    = "0x1002"
	pciVendorIntel  = "0x8086"
	pciVendorNvidia = "0x10de"
)

// GPUCollector probes vendor-specific sources: nvidia-smi for NVIDIA
// adapters, sysfs/drm for AMD and Intel. A host without GPUs produces an
// empty list, not an error; a failed vendor probe contributes no entries,
// and Collect itself never returns an error.
type GPUCollector struct {
	cfg         config.GPUCollectorConfig
	minInterval time.Duration

	mu sync.Mutex // guards the probe state below
	// resolved once; empty when nvidia-smi is not on PATH
	nvidiaSmiPath string
	nvidiaProbed  bool
}

func NewGPUCollector(cfg config.GPUCollectorConfig) *GPUCollector {
	return &GPUCollector{cfg: cfg, minInterval: msToDuration(cfg.CollectionIntervalMs)}
}

func (c *GPUCollector) Category() model.Category   { return model.CategoryGPU }
func (c *GPUCollector) MinInterval() time.Duration { return c.minInterval }

func (c *GPUCollector) Collect(ctx context.Context) (*model.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := &model.GPUList{GPUs: []model.GPUInfo{}}

	if c.cfg.CollectNvidia {
		list.GPUs = append(list.GPUs, c.collectNvidia(ctx)...)
	}
	if c.cfg.CollectAMD || c.cfg.CollectIntel {
		list.GPUs = append(list.GPUs, c.collectDRM()...)
	}

	snap := newSnapshot(model.CategoryGPU)
	snap.GPUs = list
	return snap, nil
}

// --- NVIDIA via nvidia-smi ---

var nvidiaQueryFields = []string{
	"name", "pci.bus_id", "driver_version", "memory.total", "memory.used",
	"utilization.gpu", "utilization.memory", "temperature.gpu",
	"power.draw", "power.limit", "clocks.gr", "clocks.mem",
}

func (c *GPUCollector) smiPath() string {
	if !c.nvidiaProbed {
		c.nvidiaSmiPath, _ = exec.LookPath("nvidia-smi")
		c.nvidiaProbed = true
	}
	return c.nvidiaSmiPath
}

func (c *GPUCollector) collectNvidia(ctx context.Context) []model.GPUInfo {
	smi := c.smiPath()
	if smi == "" {
		return nil
	}
	out, err := exec.CommandContext(ctx, smi,
		"--query-gpu="+strings.Join(nvidiaQueryFields, ","),
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return nil
	}

	var gpus []model.GPUInfo
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := splitCSV(line)
		if len(fields) < len(nvidiaQueryFields) {
			continue
		}
		gpu := model.GPUInfo{
			Name:                     fields[0],
			Vendor:                   "NVIDIA",
			PCIAddress:               fields[1],
			VRAMTotalBytes:           mibToBytes(fields[3]),
			VRAMUsedBytes:            mibToBytes(fields[4]),
			CoreUtilizationPercent:   parseFloatOr(fields[5], 0),
			MemoryUtilizationPercent: parseFloatOr(fields[6], 0),
			TemperatureCelsius:       parseFloatPtr(fields[7]),
			PowerUsageWatts:          parseFloatPtr(fields[8]),
			MaxPowerWatts:            parseFloatPtr(fields[9]),
			CoreFrequencyMHz:         parseFloatPtr(fields[10]),
			MemoryFrequencyMHz:       parseFloatPtr(fields[11]),
			Driver: &model.GPUDriverInfo{
				KernelDriver:  "nvidia",
				DriverVersion: fields[2],
			},
		}
		if c.cfg.CollectProcesses {
			gpu.Processes = c.collectNvidiaProcesses(ctx)
		}
		gpus = append(gpus, gpu)
	}
	return gpus
}

func (c *GPUCollector) collectNvidiaProcesses(ctx context.Context) []model.GPUProcessInfo {
	out, err := exec.CommandContext(ctx, c.smiPath(),
		"--query-compute-apps=pid,process_name,used_memory",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return nil
	}
	var procs []model.GPUProcessInfo
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := splitCSV(line)
		if len(fields) < 3 {
			continue
		}
		pid, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			continue
		}
		procs = append(procs, model.GPUProcessInfo{
			PID:         uint32(pid),
			ProcessName: fields[1],
			VRAMBytes:   mibToBytes(fields[2]),
		})
	}
	return procs
}

// --- AMD / Intel via /sys/class/drm ---

func (c *GPUCollector) collectDRM() []model.GPUInfo {
	cards, err := filepath.Glob("/sys/class/drm/card[0-9]")
	if err != nil {
		return nil
	}
	var gpus []model.GPUInfo
	for _, card := range cards {
		dev := card + "/device"
		vendor := readSysfsString(dev + "/vendor")
		switch vendor {
		case pciVendorAMD:
			if !c.cfg.CollectAMD {
				continue
			}
		case pciVendorIntel:
			if !c.cfg.CollectIntel {
				continue
			}
		default:
			// NVIDIA cards surface through nvidia-smi; everything else
			// (virtual outputs etc.) is skipped.
			continue
		}

		gpu := model.GPUInfo{
			Name:     drmDeviceName(dev, vendor),
			Vendor:   vendorName(vendor),
			DeviceID: readSysfsString(dev + "/device"),
			Driver:   &model.GPUDriverInfo{KernelDriver: readSysfsDriver(dev + "/driver")},
		}
		if total, ok := readSysfsUint(dev + "/mem_info_vram_total"); ok {
			gpu.VRAMTotalBytes = total
		}
		if used, ok := readSysfsUint(dev + "/mem_info_vram_used"); ok {
			gpu.VRAMUsedBytes = used
		}
		if busy, ok := readSysfsUint(dev + "/gpu_busy_percent"); ok {
			gpu.CoreUtilizationPercent = float64(busy)
		}
		if gpu.VRAMTotalBytes > 0 {
			gpu.MemoryUtilizationPercent = float64(gpu.VRAMUsedBytes) / float64(gpu.VRAMTotalBytes) * 100
		}
		if t, ok := readHwmonMilli(dev, "temp1_input"); ok {
			celsius := t / 1000
			gpu.TemperatureCelsius = &celsius
		}
		if w, ok := readHwmonMilli(dev, "power1_average"); ok {
			watts := w / 1e6
			gpu.PowerUsageWatts = &watts
		}
		gpus = append(gpus, gpu)
	}
	return gpus
}

func drmDeviceName(dev, vendor string) string {
	// amdgpu exposes a marketing name; fall back to the PCI id pair
	if name := readSysfsString(dev + "/product_name"); name != "" {
		return name
	}
	return vendorName(vendor) + " GPU " + readSysfsString(dev+"/device")
}

func vendorName(pci string) string {
	switch pci {
	case pciVendorAMD:
		return "AMD"
	case pciVendorIntel:
		return "Intel"
	case pciVendorNvidia:
		return "NVIDIA"
	}
	return pci
}

// readHwmonMilli scans the device's hwmon entries for attr and returns its
// value as a float (sysfs reports millidegrees / microwatts).
func readHwmonMilli(dev, attr string) (float64, bool) {
	entries, err := os.ReadDir(dev + "/hwmon")
	if err != nil {
		return 0, false
	}
	for _, e := range entries {
		if v, ok := readSysfsUint(dev + "/hwmon/" + e.Name() + "/" + attr); ok {
			return float64(v), true
		}
	}
	return 0, false
}

func splitCSV(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func mibToBytes(s string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n * 1024 * 1024
}

func parseFloatOr(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

func parseFloatPtr(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}
