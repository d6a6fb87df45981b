// Package config loads the dataplane engine's load-time configuration
// using koanf/v2: FIFO sizing, flow-table capacity, NUMA/affinity
// placement, the gateway listen address, and logging/metrics options.
//
// Grounded on the koanf file+env+yaml loader pattern used across the
// example corpus's daemons (default-then-file-then-env layering, with a
// Validate pass after unmarshal).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the complete dataplane engine configuration.
type Config struct {
	Pipeline PipelineConfig `koanf:"pipeline"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// DefaultHeaderFIFODepth and DefaultDataFIFODepth are this package's
// default FIFO depth floors, matching spec §5's FIFO_PACKETS/FIFO_WORDS
// minimums.
const (
	DefaultHeaderFIFODepth = 16  // >= FIFO_PACKETS=15
	DefaultDataFIFODepth   = 512 // >= FIFO_WORDS=511
)

// PipelineConfig controls FIFO sizing, flow-table capacity, the number of
// traffic classes, and CPU/NUMA placement for both h2n and n2h directions.
type PipelineConfig struct {
	HeaderFIFODepth int `koanf:"header_fifo_depth"`
	DataFIFODepth   int `koanf:"data_fifo_depth"`
	FlowTableSize   int `koanf:"flow_table_size"`
	NumTrafficClass int `koanf:"num_traffic_classes"`
	NUMANode        int `koanf:"numa_node"`
	Workers         int `koanf:"workers"`
}

// GatewayConfig controls the three/four-register RPC surface's listen
// address (when exposed over a transport.RawConn) and poll interval.
type GatewayConfig struct {
	Addr           string `koanf:"addr"`
	PollIntervalUS int    `koanf:"poll_interval_us"`
}

// LogConfig controls structured logging, mirroring the tint-backed
// logger's level/format knobs.
type LogConfig struct {
	Level string `koanf:"level"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}

// DefaultConfig returns a Config populated with sensible defaults, floored
// at the minimums the component design requires for correctness.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			HeaderFIFODepth: DefaultHeaderFIFODepth,
			DataFIFODepth:   DefaultDataFIFODepth,
			FlowTableSize:   1024,
			NumTrafficClass: 8,
			NUMANode:        -1,
			Workers:         4,
		},
		Gateway: GatewayConfig{
			Addr:           ":9400",
			PollIntervalUS: 100,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: ":9401",
			Path: "/metrics",
		},
	}
}

// envPrefix is the environment variable prefix for engine configuration.
// Variables are named NICA_<section>_<key>, e.g. NICA_PIPELINE_WORKERS.
const envPrefix = "NICA_"

// Load reads configuration from a YAML file at path (if non-empty),
// overlays NICA_-prefixed environment variable overrides, and merges on
// top of DefaultConfig(). A missing path skips the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

func loadDefaults(k *koanf.Koanf, d *Config) error {
	defaultMap := map[string]any{
		"pipeline.header_fifo_depth":   d.Pipeline.HeaderFIFODepth,
		"pipeline.data_fifo_depth":     d.Pipeline.DataFIFODepth,
		"pipeline.flow_table_size":     d.Pipeline.FlowTableSize,
		"pipeline.num_traffic_classes": d.Pipeline.NumTrafficClass,
		"pipeline.numa_node":           d.Pipeline.NUMANode,
		"pipeline.workers":             d.Pipeline.Workers,
		"gateway.addr":                 d.Gateway.Addr,
		"gateway.poll_interval_us":     d.Gateway.PollIntervalUS,
		"log.level":                    d.Log.Level,
		"metrics.addr":                 d.Metrics.Addr,
		"metrics.path":                 d.Metrics.Path,
	}
	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

// Validation errors.
var (
	ErrInvalidFlowTableSize = errors.New("pipeline.flow_table_size must be > 0")
	ErrInvalidFIFODepth     = errors.New("pipeline fifo depths must be >= spec minimums")
	ErrInvalidTrafficClass  = errors.New("pipeline.num_traffic_classes must be >= 2")
	ErrEmptyGatewayAddr     = errors.New("gateway.addr must not be empty")
)

// Validate checks the configuration for logical errors, enforcing the
// FIFO_PACKETS/FIFO_WORDS floors the component design requires.
func Validate(cfg *Config) error {
	if cfg.Pipeline.FlowTableSize <= 0 {
		return ErrInvalidFlowTableSize
	}
	if cfg.Pipeline.HeaderFIFODepth < DefaultHeaderFIFODepth || cfg.Pipeline.DataFIFODepth < DefaultDataFIFODepth {
		return ErrInvalidFIFODepth
	}
	if cfg.Pipeline.NumTrafficClass < 2 {
		return ErrInvalidTrafficClass
	}
	if cfg.Gateway.Addr == "" {
		return ErrEmptyGatewayAddr
	}
	return nil
}
