package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/shirou/gopsutil/v4/disk"
)

// StorageCollector samples mounted filesystems and device IO counters,
// deriving per-second rates from the previous tick.
type StorageCollector struct {
	minInterval time.Duration

	mu           sync.Mutex // guards the rate state below
	prevAt       time.Time
	prevCounters map[string]disk.IOCountersStat
}

func NewStorageCollector(cfg config.CollectorConfig) *StorageCollector {
	return &StorageCollector{minInterval: msToDuration(cfg.CollectionIntervalMs)}
}

func (c *StorageCollector) Category() model.Category   { return model.CategoryStorage }
func (c *StorageCollector) MinInterval() time.Duration { return c.minInterval }

func (c *StorageCollector) Collect(ctx context.Context) (*model.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	counters, _ := disk.IOCountersWithContext(ctx)
	now := time.Now()
	elapsed := now.Sub(c.prevAt).Seconds()

	list := &model.StorageList{Devices: make([]model.StorageInfo, 0, len(parts))}
	for _, p := range parts {
		info := model.StorageInfo{
			DeviceName:     p.Device,
			FilesystemType: p.Fstype,
			MountPoint:     p.Mountpoint,
		}

		if usage, err := disk.UsageWithContext(ctx, p.Mountpoint); err == nil {
			info.TotalSpaceBytes = usage.Total
			info.UsedSpaceBytes = usage.Used
			info.AvailableSpaceBytes = usage.Free
		}

		dev := baseDevice(p.Device)
		if io, ok := counters[dev]; ok {
			info.SerialNumber = io.SerialNumber
			info.PartitionLabel = io.Label
			info.IOTimeMs = io.IoTime
			if prev, ok := c.prevCounters[dev]; ok && elapsed > 0 {
				info.ReadBytesRate = rate(io.ReadBytes, prev.ReadBytes, elapsed)
				info.WriteBytesRate = rate(io.WriteBytes, prev.WriteBytes, elapsed)
			}
		}
		info.Model = readSysfsString("/sys/block/" + dev + "/device/model")
		if rot, ok := readSysfsUint("/sys/block/" + dev + "/queue/rotational"); ok {
			if rot == 0 {
				info.DeviceType = "ssd"
			} else {
				info.DeviceType = "hdd"
			}
		}

		list.Devices = append(list.Devices, info)
	}

	c.prevAt = now
	c.prevCounters = counters

	snap := newSnapshot(model.CategoryStorage)
	snap.Storage = list
	return snap, nil
}

// baseDevice reduces /dev/sda1 to sda so partition mounts match the whole-
// device IO counter entries. NVMe and MMC partitions (nvme0n1p2, mmcblk0p1)
// drop the pN tail.
func baseDevice(device string) string {
	dev := device
	if i := lastSlash(dev); i >= 0 {
		dev = dev[i+1:]
	}
	if strings.HasPrefix(dev, "nvme") || strings.HasPrefix(dev, "mmcblk") {
		if i := strings.LastIndex(dev, "p"); i > 0 {
			return dev[:i]
		}
		return dev
	}
	return strings.TrimRight(dev, "0123456789")
}
