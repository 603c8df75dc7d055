package model

// MemoryInfo is a point-in-time reading of RAM and swap usage.
type MemoryInfo struct {
	TotalBytes     uint64    `json:"total_memory_bytes"`
	UsedBytes      uint64    `json:"used_memory_bytes"`
	FreeBytes      uint64    `json:"free_memory_bytes"`
	AvailableBytes uint64    `json:"available_memory_bytes"`
	CachedBytes    uint64    `json:"cached_memory_bytes"`
	SharedBytes    uint64    `json:"shared_memory_bytes"`
	LoadPercent    float64   `json:"memory_load_percent"`
	SwapTotalBytes uint64    `json:"swap_total_bytes"`
	SwapUsedBytes  uint64    `json:"swap_used_bytes"`
	SwapFreeBytes  uint64    `json:"swap_free_bytes"`
	DRAM           *DRAMInfo `json:"dram_info,omitempty"`
}

// DRAMInfo describes the physical modules when the platform exposes them.
type DRAMInfo struct {
	FrequencyMHz float64 `json:"frequency_mhz"`
	MemoryType   string  `json:"memory_type"`
	SlotsTotal   uint32  `json:"slots_total"`
	SlotsUsed    uint32  `json:"slots_used"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	PartNumber   string  `json:"part_number,omitempty"`
}
