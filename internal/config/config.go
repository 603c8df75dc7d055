package config

import (
	"fmt"
	"strings"

	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/spf13/viper"
)

// Config is the top-level TOML structure.
//
// Example:
//
//	[daemon]
//	default_update_interval_ms = 1000
//	max_clients = 64
//
//	[collectors.cpu]
//	enabled = true
//	collection_interval_ms = 500
type Config struct {
	Daemon     DaemonConfig     `toml:"daemon" mapstructure:"daemon"`
	Log        LogConfig        `toml:"log" mapstructure:"log"`
	Server     ServerConfig     `toml:"server" mapstructure:"server"`
	Collectors CollectorsConfig `toml:"collectors" mapstructure:"collectors"`
}

type DaemonConfig struct {
	// DefaultUpdateIntervalMs substitutes for a client-requested interval
	// of zero. Zero here means "no fallback": interval 0 is rejected.
	DefaultUpdateIntervalMs uint32 `toml:"default_update_interval_ms" mapstructure:"default_update_interval_ms"`
	// MaxClients caps concurrent subscriptions across all clients.
	MaxClients int `toml:"max_clients" mapstructure:"max_clients"`
}

type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type ServerConfig struct {
	Addr     string `toml:"addr" mapstructure:"addr"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

// CollectorConfig is the per-category block every collector shares.
type CollectorConfig struct {
	Enabled              bool   `toml:"enabled" mapstructure:"enabled"`
	CollectionIntervalMs uint32 `toml:"collection_interval_ms" mapstructure:"collection_interval_ms"`
}

// ProcessCollectorConfig adds the field-stripping toggles of the process
// collector. Unrequested fields are skipped at collection time, not
// filtered afterwards.
type ProcessCollectorConfig struct {
	CollectorConfig    `mapstructure:",squash"`
	CollectCommandLine bool `toml:"collect_command_line" mapstructure:"collect_command_line"`
	CollectEnvironment bool `toml:"collect_environment" mapstructure:"collect_environment"`
	CollectIOStats     bool `toml:"collect_io_statistics" mapstructure:"collect_io_statistics"`
	// MaxProcesses bounds the per-tick list. Zero means unlimited.
	MaxProcesses int `toml:"max_processes" mapstructure:"max_processes"`
}

// GPUCollectorConfig gates the vendor probes.
type GPUCollectorConfig struct {
	CollectorConfig  `mapstructure:",squash"`
	CollectNvidia    bool `toml:"collect_nvidia" mapstructure:"collect_nvidia"`
	CollectAMD       bool `toml:"collect_amd" mapstructure:"collect_amd"`
	CollectIntel     bool `toml:"collect_intel" mapstructure:"collect_intel"`
	CollectProcesses bool `toml:"collect_processes" mapstructure:"collect_processes"`
}

type CollectorsConfig struct {
	System  CollectorConfig        `toml:"system" mapstructure:"system"`
	CPU     CollectorConfig        `toml:"cpu" mapstructure:"cpu"`
	Memory  CollectorConfig        `toml:"memory" mapstructure:"memory"`
	GPU     GPUCollectorConfig     `toml:"gpu" mapstructure:"gpu"`
	Network CollectorConfig        `toml:"network" mapstructure:"network"`
	Storage CollectorConfig        `toml:"storage" mapstructure:"storage"`
	Process ProcessCollectorConfig `toml:"process" mapstructure:"process"`
}

// ByCategory returns the shared block for a category.
func (c *CollectorsConfig) ByCategory(cat model.Category) CollectorConfig {
	switch cat {
	case model.CategorySystem:
		return c.System
	case model.CategoryCPU:
		return c.CPU
	case model.CategoryMemory:
		return c.Memory
	case model.CategoryGPU:
		return c.GPU.CollectorConfig
	case model.CategoryNetwork:
		return c.Network
	case model.CategoryStorage:
		return c.Storage
	case model.CategoryProcess:
		return c.Process.CollectorConfig
	}
	return CollectorConfig{}
}

// Default returns the configuration used when no file is given. Every
// collector is enabled with a 500ms floor except process (1s: the walk is
// comparatively expensive).
func Default() *Config {
	base := CollectorConfig{Enabled: true, CollectionIntervalMs: 500}
	return &Config{
		Daemon: DaemonConfig{
			DefaultUpdateIntervalMs: 1000,
			MaxClients:              64,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Server: ServerConfig{
			Addr:     "127.0.0.1:9613",
			BasePath: "/api/v1",
		},
		Collectors: CollectorsConfig{
			System:  base,
			CPU:     base,
			Memory:  base,
			Network: base,
			Storage: base,
			GPU: GPUCollectorConfig{
				CollectorConfig:  base,
				CollectNvidia:    true,
				CollectAMD:       true,
				CollectIntel:     true,
				CollectProcesses: true,
			},
			Process: ProcessCollectorConfig{
				CollectorConfig:    CollectorConfig{Enabled: true, CollectionIntervalMs: 1000},
				CollectCommandLine: true,
				CollectIOStats:     true,
			},
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

var logLevels = map[string]struct{}{
	"error": {}, "warn": {}, "info": {}, "debug": {}, "trace": {},
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if _, ok := logLevels[strings.ToLower(c.Log.Level)]; !ok {
		return fmt.Errorf("log.level must be one of error|warn|info|debug|trace, got %q", c.Log.Level)
	}
	if c.Daemon.MaxClients < 1 {
		return fmt.Errorf("daemon.max_clients must be >= 1, got %d", c.Daemon.MaxClients)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	for _, cat := range model.Categories() {
		cc := c.Collectors.ByCategory(cat)
		if cc.Enabled && cc.CollectionIntervalMs == 0 {
			return fmt.Errorf("collectors.%s.collection_interval_ms must be > 0 when enabled", cat)
		}
	}
	return nil
}
