package model

// GPUList wraps every detected GPU. A host without GPUs yields an empty
// list, not an error.
type GPUList struct {
	GPUs []GPUInfo `json:"gpus"`
}

// GPUInfo is one adapter's reading.
type GPUInfo struct {
	Name                     string            `json:"name"`
	Vendor                   string            `json:"vendor"`
	DeviceID                 string            `json:"device_id,omitempty"`
	PCIAddress               string            `json:"pci_address,omitempty"`
	VRAMTotalBytes           uint64            `json:"vram_total_bytes"`
	VRAMUsedBytes            uint64            `json:"vram_used_bytes"`
	CoreUtilizationPercent   float64           `json:"core_utilization_percent"`
	MemoryUtilizationPercent float64           `json:"memory_utilization_percent"`
	TemperatureCelsius       *float64          `json:"temperature_celsius,omitempty"`
	PowerUsageWatts          *float64          `json:"power_usage_watts,omitempty"`
	MaxPowerWatts            *float64          `json:"max_power_watts,omitempty"`
	CoreFrequencyMHz         *float64          `json:"core_frequency_mhz,omitempty"`
	MemoryFrequencyMHz       *float64          `json:"memory_frequency_mhz,omitempty"`
	Driver                   *GPUDriverInfo   `json:"driver_info,omitempty"`
	Encoder                  *GPUEncoderInfo  `json:"encoder_info,omitempty"`
	Processes                []GPUProcessInfo `json:"processes,omitempty"`
}

// GPUDriverInfo names the kernel and userspace drivers in use.
type GPUDriverInfo struct {
	KernelDriver    string `json:"kernel_driver"`
	UserspaceDriver string `json:"userspace_driver,omitempty"`
	DriverVersion   string `json:"driver_version,omitempty"`
	CUDAVersion     string `json:"cuda_version,omitempty"`
}

// GPUEncoderInfo reports video engine utilization where available.
type GPUEncoderInfo struct {
	VideoEncodePercent float64 `json:"video_encode_utilization_percent"`
	VideoDecodePercent float64 `json:"video_decode_utilization_percent"`
}

// GPUProcessInfo is one process using the adapter.
type GPUProcessInfo struct {
	PID                   uint32  `json:"pid"`
	ProcessName           string  `json:"process_name"`
	GPUUtilizationPercent float64 `json:"gpu_utilization_percent"`
	VRAMBytes             uint64  `json:"vram_bytes"`
}
