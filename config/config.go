// Package config holds the runtime configuration and loads it from YAML,
// JSON or TOML files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/cmxrt/mempool"
	"github.com/hupe1980/cmxrt/scheduler"
)

// ErrInvalidConfig is wrapped by every Validate error.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds runtime parameters.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Memory    MemoryConfig    `json:"memory" yaml:"memory" toml:"memory"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler" toml:"scheduler"`
	Profiling ProfilingConfig `json:"profiling" yaml:"profiling" toml:"profiling"`
	Log       LogConfig       `json:"log" yaml:"log" toml:"log"`
}

// MemoryConfig sizes the memory pools.
type MemoryConfig struct {
	PoolSize        int   `json:"pool_size" yaml:"pool_size" toml:"pool_size"`
	TensorFloor     int   `json:"tensor_floor" yaml:"tensor_floor" toml:"tensor_floor"`
	TempBufferFloor int   `json:"temp_buffer_floor" yaml:"temp_buffer_floor" toml:"temp_buffer_floor"`
	GeneralFloor    int   `json:"general_floor" yaml:"general_floor" toml:"general_floor"`
	LimitBytes      int64 `json:"limit_bytes" yaml:"limit_bytes" toml:"limit_bytes"`
	HeapBacking     bool  `json:"heap_backing" yaml:"heap_backing" toml:"heap_backing"`
}

// SchedulerConfig configures task selection.
type SchedulerConfig struct {
	Strategy       string `json:"strategy" yaml:"strategy" toml:"strategy"`
	PollIntervalUS int    `json:"poll_interval_us" yaml:"poll_interval_us" toml:"poll_interval_us"`
}

// ProfilingConfig toggles per-step timing.
type ProfilingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
}

// LogConfig configures the logger built by the CLI.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	floors := mempool.DefaultFloors()
	return Config{
		Memory: MemoryConfig{
			PoolSize:        mempool.DefaultTotalSize,
			TensorFloor:     floors.Tensor,
			TempBufferFloor: floors.TempBuffer,
			GeneralFloor:    floors.General,
		},
		Scheduler: SchedulerConfig{
			Strategy:       scheduler.FIFO.String(),
			PollIntervalUS: int(scheduler.DefaultPollInterval / time.Microsecond),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WithDefaults returns c with every unspecified field set to its default.
func (c Config) WithDefaults() Config {
	d := Default()

	if c.Memory.PoolSize == 0 {
		c.Memory.PoolSize = d.Memory.PoolSize
	}
	if c.Memory.TensorFloor == 0 {
		c.Memory.TensorFloor = d.Memory.TensorFloor
	}
	if c.Memory.TempBufferFloor == 0 {
		c.Memory.TempBufferFloor = d.Memory.TempBufferFloor
	}
	if c.Memory.GeneralFloor == 0 {
		c.Memory.GeneralFloor = d.Memory.GeneralFloor
	}
	if c.Scheduler.Strategy == "" {
		c.Scheduler.Strategy = d.Scheduler.Strategy
	}
	if c.Scheduler.PollIntervalUS == 0 {
		c.Scheduler.PollIntervalUS = d.Scheduler.PollIntervalUS
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}

	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Memory.PoolSize <= 0:
		return fmt.Errorf("%w: memory.pool_size must be positive, got %d", ErrInvalidConfig, c.Memory.PoolSize)
	case c.Memory.TensorFloor < 0, c.Memory.TempBufferFloor < 0, c.Memory.GeneralFloor < 0:
		return fmt.Errorf("%w: memory floors must not be negative", ErrInvalidConfig)
	case c.Memory.LimitBytes < 0:
		return fmt.Errorf("%w: memory.limit_bytes must not be negative, got %d", ErrInvalidConfig, c.Memory.LimitBytes)
	case c.Scheduler.PollIntervalUS < 0:
		return fmt.Errorf("%w: scheduler.poll_interval_us must not be negative, got %d", ErrInvalidConfig, c.Scheduler.PollIntervalUS)
	}

	if _, err := scheduler.ParseStrategy(c.Scheduler.Strategy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}

// Floors returns the configured pool floors.
func (c Config) Floors() mempool.Floors {
	return mempool.Floors{
		Tensor:     c.Memory.TensorFloor,
		TempBuffer: c.Memory.TempBufferFloor,
		General:    c.Memory.GeneralFloor,
	}
}

// Strategy returns the parsed scheduler strategy, FIFO if it is invalid.
func (c Config) Strategy() scheduler.Strategy {
	s, _ := scheduler.ParseStrategy(c.Scheduler.Strategy)
	return s
}

// PollInterval returns the scheduler poll interval.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Scheduler.PollIntervalUS) * time.Microsecond
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
	}
}

// Load reads a configuration file based on its extension and fills in
// defaults. Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("config: unsupported config extension: %s", ext)
	}

	return cfg.WithDefaults(), nil
}
