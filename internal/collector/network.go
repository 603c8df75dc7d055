package collector

import (
	"context"
	"sync"
	"time"

	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/model"
	gopsnet "github.com/shirou/gopsutil/v4/net"
)

// NetworkCollector samples per-interface counters and derives per-second
// rates from the previous tick. The first tick reports zero rates.
type NetworkCollector struct {
	minInterval time.Duration

	mu           sync.Mutex // guards the rate state below
	prevAt       time.Time
	prevCounters map[string]gopsnet.IOCountersStat
}

func NewNetworkCollector(cfg config.CollectorConfig) *NetworkCollector {
	return &NetworkCollector{minInterval: msToDuration(cfg.CollectionIntervalMs)}
}

func (c *NetworkCollector) Category() model.Category   { return model.CategoryNetwork }
func (c *NetworkCollector) MinInterval() time.Duration { return c.minInterval }

func (c *NetworkCollector) Collect(ctx context.Context) (*model.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counters, err := gopsnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	ifaceMeta := make(map[string]gopsnet.InterfaceStat)
	if ifaces, err := gopsnet.InterfacesWithContext(ctx); err == nil {
		for _, it := range ifaces {
			ifaceMeta[it.Name] = it
		}
	}

	now := time.Now()
	elapsed := now.Sub(c.prevAt).Seconds()

	list := &model.NetworkList{Interfaces: make([]model.NetworkInfo, 0, len(counters))}
	next := make(map[string]gopsnet.IOCountersStat, len(counters))
	for _, io := range counters {
		next[io.Name] = io
		info := model.NetworkInfo{
			InterfaceName: io.Name,
			RxBytesTotal:  io.BytesRecv,
			TxBytesTotal:  io.BytesSent,
			RxErrors:      io.Errin,
			TxErrors:      io.Errout,
			RxDrops:       io.Dropin,
			TxDrops:       io.Dropout,
			Driver:        readSysfsDriver("/sys/class/net/" + io.Name + "/device/driver"),
		}
		if meta, ok := ifaceMeta[io.Name]; ok {
			info.MACAddress = meta.HardwareAddr
			info.MTU = uint32(meta.MTU)
			for _, addr := range meta.Addrs {
				info.IPAddresses = append(info.IPAddresses, addr.Addr)
			}
			for _, f := range meta.Flags {
				if f == "up" {
					info.IsUp = true
				}
			}
		}
		if speed, ok := readSysfsUint("/sys/class/net/" + io.Name + "/speed"); ok && speed > 0 {
			mbps := uint32(speed)
			info.LinkSpeedMbps = &mbps
		}
		if prev, ok := c.prevCounters[io.Name]; ok && elapsed > 0 {
			info.RxBytesRate = rate(io.BytesRecv, prev.BytesRecv, elapsed)
			info.TxBytesRate = rate(io.BytesSent, prev.BytesSent, elapsed)
			info.RxPacketRate = rate(io.PacketsRecv, prev.PacketsRecv, elapsed)
			info.TxPacketRate = rate(io.PacketsSent, prev.PacketsSent, elapsed)
		}
		list.Interfaces = append(list.Interfaces, info)
	}

	c.prevAt = now
	c.prevCounters = next

	snap := newSnapshot(model.CategoryNetwork)
	snap.Networks = list
	return snap, nil
}

// rate guards against counter resets, which would otherwise underflow.
func rate(cur, prev uint64, elapsed float64) uint64 {
	if cur < prev {
		return 0
	}
	return uint64(float64(cur-prev) / elapsed)
}

func readSysfsDriver(link string) string {
	// driver is a symlink; its base name is the module name
	target := readSysfsLink(link)
	if target == "" {
		return ""
	}
	if i := lastSlash(target); i >= 0 {
		return target[i+1:]
	}
	return target
}
