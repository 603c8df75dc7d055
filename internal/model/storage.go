package model

// StorageList wraps every mounted device reading for one tick.
type StorageList struct {
	Devices []StorageInfo `json:"devices"`
}

// StorageInfo is one device/mount reading. Rates are diffed against the
// previous sample and are zero on the first tick.
type StorageInfo struct {
	DeviceName     string `json:"device_name"`
	DeviceType     string `json:"device_type,omitempty"`
	Model          string `json:"model,omitempty"`
	SerialNumber   string `json:"serial_number,omitempty"`
	PartitionLabel string `json:"partition_label,omitempty"`
	FilesystemType string `json:"filesystem_type"`
	MountPoint     string `json:"mount_point"`

	TotalSpaceBytes     uint64 `json:"total_space_bytes"`
	UsedSpaceBytes      uint64 `json:"used_space_bytes"`
	AvailableSpaceBytes uint64 `json:"available_space_bytes"`

	ReadBytesRate  uint64 `json:"read_bytes_per_sec"`
	WriteBytesRate uint64 `json:"write_bytes_per_sec"`
	IOTimeMs       uint64 `json:"io_time_ms"`

	TemperatureCelsius *float64   `json:"temperature_celsius,omitempty"`
	Smart              *SmartData `json:"smart_data,omitempty"`
}

// SmartData is the subset of SMART health fields the daemon surfaces.
type SmartData struct {
	HealthStatus         string  `json:"health_status"`
	PowerOnHours         *uint64 `json:"power_on_hours,omitempty"`
	PowerCycleCount      *uint32 `json:"power_cycle_count,omitempty"`
	ReallocatedSectors   *uint32 `json:"reallocated_sectors,omitempty"`
	RemainingLifePercent *uint8  `json:"remaining_life_percent,omitempty"`
}
