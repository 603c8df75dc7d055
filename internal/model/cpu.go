package model

// CPUInfo carries processor identity plus a utilization reading.
type CPUInfo struct {
	ModelName         string     `json:"model_name"`
	Architecture      string     `json:"architecture"`
	PhysicalCores     uint32     `json:"physical_cores"`
	LogicalCores      uint32     `json:"logical_cores"`
	GlobalUtilization float64    `json:"global_utilization_percent"`
	Cores             []CoreInfo `json:"cores,omitempty"`
	Cache             *CPUCache  `json:"cache,omitempty"`
	ScalingGovernor   string     `json:"scaling_governor,omitempty"`
	Flags             []string   `json:"flags,omitempty"`
}

// CoreInfo is the per-logical-core breakdown.
type CoreInfo struct {
	CoreID          uint32   `json:"core_id"`
	FrequencyMHz    float64  `json:"frequency_mhz"`
	Utilization     float64  `json:"utilization_percent"`
	Temperature     *float64 `json:"temperature_celsius,omitempty"`
	MinFrequencyMHz *float64 `json:"min_frequency_mhz,omitempty"`
	MaxFrequencyMHz *float64 `json:"max_frequency_mhz,omitempty"`
}

// CPUCache sizes in KB. Zero means the size could not be determined.
type CPUCache struct {
	L1DataKB        uint32 `json:"l1_data_kb"`
	L1InstructionKB uint32 `json:"l1_instruction_kb"`
	L2KB            uint32 `json:"l2_kb"`
	L3KB            uint32 `json:"l3_kb"`
}
