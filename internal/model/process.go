package model

// ProcessList wraps every observed process for one tick.
type ProcessList struct {
	Processes []ProcessInfo `json:"processes"`
}

// KeyValuePair is one environment entry. Kept as an explicit pair rather
// than a map so ordering from the process environment survives.
type KeyValuePair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ProcessInfo is one process reading. Cmdline, environment and IO fields
// are populated only when the process collector config asks for them.
type ProcessInfo struct {
	PID       uint32 `json:"pid"`
	ParentPID uint32 `json:"parent_pid,omitempty"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	State     string `json:"state,omitempty"`

	CPUUsagePercent     float64 `json:"cpu_usage_percent"`
	PhysicalMemoryBytes uint64  `json:"physical_memory_bytes"`
	VirtualMemoryBytes  uint64  `json:"virtual_memory_bytes"`
	SharedMemoryBytes   uint64  `json:"shared_memory_bytes,omitempty"`

	DiskReadBytesRate  uint64 `json:"disk_read_bytes_per_sec"`
	DiskWriteBytesRate uint64 `json:"disk_write_bytes_per_sec"`

	Threads               uint64         `json:"threads"`
	OpenFiles             uint64         `json:"open_files,omitempty"`
	StartTimeEpochSeconds int64          `json:"start_time_epoch_seconds"`
	Cmdline               string         `json:"cmdline,omitempty"`
	Cwd                   string         `json:"cwd,omitempty"`
	Environment           []KeyValuePair `json:"environment,omitempty"`
}
