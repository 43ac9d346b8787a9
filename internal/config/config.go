// Package config holds the tickbench configuration.
//
// Configuration is loaded from a YAML file and merged over defaults; every
// field can also be overridden from the command line by the binaries.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete tickbench configuration.
type Config struct {
	// DataDir is the root directory for both on-disk artifacts.
	DataDir string `yaml:"data_dir"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`

	// Relational configures the DuckDB-backed store.
	Relational RelationalConfig `yaml:"relational"`

	// Columnar configures the partitioned Parquet store.
	Columnar ColumnarConfig `yaml:"columnar"`

	// Bench configures the comparison harness.
	Bench BenchConfig `yaml:"bench"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON selects JSON output instead of text.
	JSON bool `yaml:"json"`
}

// RelationalConfig configures the DuckDB-backed store.
type RelationalConfig struct {
	// Path is the database file. Defaults to {DataDir}/market.duckdb.
	Path string `yaml:"path"`

	// MemoryLimit is the DuckDB memory limit (e.g. "512MB"). Empty leaves
	// the engine default.
	MemoryLimit string `yaml:"memory_limit"`

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int `yaml:"max_open_conns"`

	// QueryTimeout is the default timeout for queries.
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// ColumnarConfig configures the partitioned Parquet store.
type ColumnarConfig struct {
	// Dir is the partition root. Defaults to {DataDir}/partitions.
	Dir string `yaml:"dir"`

	// Compression configures Parquet compression.
	Compression CompressionConfig `yaml:"compression"`

	// WriteWorkers is the number of partitions written in parallel.
	WriteWorkers int `yaml:"write_workers"`
}

// CompressionConfig configures Parquet compression.
type CompressionConfig struct {
	// Algorithm is the compression algorithm: snappy, zstd, lz4, gzip, none.
	Algorithm string `yaml:"algorithm"`

	// Level is the compression level (for zstd: 1-22).
	Level int `yaml:"level"`
}

// BenchConfig configures the comparison harness.
type BenchConfig struct {
	// Iterations is how many times each query is repeated per backend.
	Iterations int `yaml:"iterations"`

	// TopN is the ranking depth used by the top-return query.
	TopN int `yaml:"top_n"`

	// Window is the rolling window size used by the rolling statistics.
	Window int `yaml:"window"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "data",
		Log: LogConfig{
			Level: "info",
		},
		Relational: RelationalConfig{
			MaxOpenConns: 4,
			QueryTimeout: 30 * time.Second,
		},
		Columnar: ColumnarConfig{
			Compression: CompressionConfig{
				Algorithm: "zstd",
				Level:     3,
			},
			WriteWorkers: 4,
		},
		Bench: BenchConfig{
			Iterations: 20,
			TopN:       3,
			Window:     5,
		},
	}
}

// Load loads configuration from a YAML file, merged over defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DatabasePath returns the relational store's file path.
func (c *Config) DatabasePath() string {
	if c.Relational.Path != "" {
		return c.Relational.Path
	}
	return filepath.Join(c.DataDir, "market.duckdb")
}

// PartitionDir returns the columnar store's partition root.
func (c *Config) PartitionDir() string {
	if c.Columnar.Dir != "" {
		return c.Columnar.Dir
	}
	return filepath.Join(c.DataDir, "partitions")
}
