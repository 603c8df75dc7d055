package subscription

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Adam-Cosner/monitord/internal/model"
)

// Filter is a tagged variant keyed by category: at most one branch is set,
// and at Subscribe/Modify time the branch must match the subscription's
// category. A nil *Filter (or one with no branch) passes everything.
type Filter struct {
	Process *ProcessFilter `json:"process,omitempty"`
	GPU     *GPUFilter     `json:"gpu,omitempty"`
	Network *NetworkFilter `json:"network,omitempty"`
	Storage *StorageFilter `json:"storage,omitempty"`
}

// ProcessFilter selects processes by the union of its positive sets, then
// keeps the top N by one sort key. Empty sets do not filter.
type ProcessFilter struct {
	PIDs        []uint32 `json:"pids,omitempty"`
	Names       []string `json:"names,omitempty"`     // substring match
	Usernames   []string `json:"usernames,omitempty"` // exact match
	TopByCPU    uint32   `json:"top_by_cpu,omitempty"`
	TopByMemory uint32   `json:"top_by_memory,omitempty"`
	TopByDisk   uint32   `json:"top_by_disk,omitempty"`
}

// GPUFilter selects adapters by name or vendor; IncludeProcesses=false
// strips the per-GPU process list.
type GPUFilter struct {
	Names            []string `json:"names,omitempty"`
	Vendors          []string `json:"vendors,omitempty"`
	IncludeProcesses bool     `json:"include_processes"`
}

type NetworkFilter struct {
	Interfaces []string `json:"interfaces,omitempty"`
}

// StorageFilter keeps devices matching either set (union).
type StorageFilter struct {
	Devices     []string `json:"devices,omitempty"`
	MountPoints []string `json:"mount_points,omitempty"`
}

// ErrFilterMismatch is returned when the filter's tag does not match the
// subscription category; the control surface maps it to INVALID_FILTER.
var ErrFilterMismatch = errors.New("filter does not match subscription category")

// Validate checks the tag against the category and the filter's own
// constraints. A nil filter is valid for every category.
func (f *Filter) Validate(cat model.Category) error {
	if f == nil {
		return nil
	}
	set := 0
	if f.Process != nil {
		set++
		if cat != model.CategoryProcess {
			return ErrFilterMismatch
		}
		if err := f.Process.validate(); err != nil {
			return err
		}
	}
	if f.GPU != nil {
		set++
		if cat != model.CategoryGPU {
			return ErrFilterMismatch
		}
	}
	if f.Network != nil {
		set++
		if cat != model.CategoryNetwork {
			return ErrFilterMismatch
		}
	}
	if f.Storage != nil {
		set++
		if cat != model.CategoryStorage {
			return ErrFilterMismatch
		}
	}
	if set > 1 {
		return fmt.Errorf("filter sets %d variants, want at most one", set)
	}
	return nil
}

func (p *ProcessFilter) validate() error {
	tops := 0
	if p.TopByCPU > 0 {
		tops++
	}
	if p.TopByMemory > 0 {
		tops++
	}
	if p.TopByDisk > 0 {
		tops++
	}
	if tops > 1 {
		return errors.New("process filter sets more than one top-N key")
	}
	return nil
}

// Apply returns the snapshot a subscriber should see. Unfiltered
// categories and nil filters pass the snapshot through untouched; filtered
// payloads are rebuilt into a copy, leaving the published snapshot intact.
func (f *Filter) Apply(snap *model.Snapshot) *model.Snapshot {
	if f == nil {
		return snap
	}
	switch {
	case f.Process != nil && snap.Category == model.CategoryProcess:
		return f.Process.apply(snap)
	case f.GPU != nil && snap.Category == model.CategoryGPU:
		return f.GPU.apply(snap)
	case f.Network != nil && snap.Category == model.CategoryNetwork:
		return f.Network.apply(snap)
	case f.Storage != nil && snap.Category == model.CategoryStorage:
		return f.Storage.apply(snap)
	}
	return snap
}

func (p *ProcessFilter) apply(snap *model.Snapshot) *model.Snapshot {
	if snap.Processes == nil {
		return snap
	}
	procs := snap.Processes.Processes

	if len(p.PIDs) > 0 || len(p.Names) > 0 || len(p.Usernames) > 0 {
		pids := make(map[uint32]struct{}, len(p.PIDs))
		for _, pid := range p.PIDs {
			pids[pid] = struct{}{}
		}
		users := make(map[string]struct{}, len(p.Usernames))
		for _, u := range p.Usernames {
			users[u] = struct{}{}
		}
		kept := make([]model.ProcessInfo, 0, len(procs))
		for _, proc := range procs {
			if _, ok := pids[proc.PID]; ok {
				kept = append(kept, proc)
				continue
			}
			if _, ok := users[proc.Username]; ok {
				kept = append(kept, proc)
				continue
			}
			if matchesSubstring(proc.Name, p.Names) {
				kept = append(kept, proc)
			}
		}
		procs = kept
	} else {
		procs = append([]model.ProcessInfo(nil), procs...)
	}

	if n, key := p.topN(); n > 0 {
		sort.SliceStable(procs, func(i, j int) bool {
			ki, kj := key(&procs[i]), key(&procs[j])
			if ki != kj {
				return ki > kj
			}
			return procs[i].PID < procs[j].PID
		})
		if len(procs) > n {
			procs = procs[:n]
		}
	}

	dup := *snap
	dup.Processes = &model.ProcessList{Processes: procs}
	return &dup
}

func (p *ProcessFilter) topN() (int, func(*model.ProcessInfo) float64) {
	switch {
	case p.TopByCPU > 0:
		return int(p.TopByCPU), func(pi *model.ProcessInfo) float64 { return pi.CPUUsagePercent }
	case p.TopByMemory > 0:
		return int(p.TopByMemory), func(pi *model.ProcessInfo) float64 { return float64(pi.PhysicalMemoryBytes) }
	case p.TopByDisk > 0:
		return int(p.TopByDisk), func(pi *model.ProcessInfo) float64 {
			return float64(pi.DiskReadBytesRate + pi.DiskWriteBytesRate)
		}
	}
	return 0, nil
}

func (g *GPUFilter) apply(snap *model.Snapshot) *model.Snapshot {
	if snap.GPUs == nil {
		return snap
	}
	kept := make([]model.GPUInfo, 0, len(snap.GPUs.GPUs))
	for _, gpu := range snap.GPUs.GPUs {
		if len(g.Names) > 0 || len(g.Vendors) > 0 {
			if !matchesFold(gpu.Name, g.Names) && !matchesFold(gpu.Vendor, g.Vendors) {
				continue
			}
		}
		if !g.IncludeProcesses && gpu.Processes != nil {
			gpu.Processes = nil
		}
		kept = append(kept, gpu)
	}
	dup := *snap
	dup.GPUs = &model.GPUList{GPUs: kept}
	return &dup
}

func (n *NetworkFilter) apply(snap *model.Snapshot) *model.Snapshot {
	if snap.Networks == nil || len(n.Interfaces) == 0 {
		return snap
	}
	kept := make([]model.NetworkInfo, 0, len(snap.Networks.Interfaces))
	for _, iface := range snap.Networks.Interfaces {
		if matchesExact(iface.InterfaceName, n.Interfaces) {
			kept = append(kept, iface)
		}
	}
	dup := *snap
	dup.Networks = &model.NetworkList{Interfaces: kept}
	return &dup
}

func (s *StorageFilter) apply(snap *model.Snapshot) *model.Snapshot {
	if snap.Storage == nil || (len(s.Devices) == 0 && len(s.MountPoints) == 0) {
		return snap
	}
	kept := make([]model.StorageInfo, 0, len(snap.Storage.Devices))
	for _, dev := range snap.Storage.Devices {
		if matchesExact(dev.DeviceName, s.Devices) || matchesExact(dev.MountPoint, s.MountPoints) {
			kept = append(kept, dev)
		}
	}
	dup := *snap
	dup.Storage = &model.StorageList{Devices: kept}
	return &dup
}

func matchesExact(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

func matchesFold(v string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func matchesSubstring(v string, subs []string) bool {
	for _, s := range subs {
		if s != "" && strings.Contains(v, s) {
			return true
		}
	}
	return false
}
