package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" && c.Relational.Path == "" && c.Columnar.Dir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}

	if err := c.Relational.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("relational: %w", err))
	}
	if err := c.Columnar.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("columnar: %w", err))
	}
	if err := c.Bench.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bench: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the relational store configuration.
func (c *RelationalConfig) Validate() error {
	var errs []error

	if c.MaxOpenConns < 0 {
		errs = append(errs, errors.New("max_open_conns must be non-negative"))
	}
	if c.QueryTimeout < 0 {
		errs = append(errs, errors.New("query_timeout must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the columnar store configuration.
func (c *ColumnarConfig) Validate() error {
	var errs []error

	switch c.Compression.Algorithm {
	case "", "none", "snappy", "zstd", "lz4", "gzip":
	default:
		errs = append(errs, fmt.Errorf("unknown compression algorithm %q", c.Compression.Algorithm))
	}

	if c.Compression.Algorithm == "zstd" && (c.Compression.Level < 0 || c.Compression.Level > 22) {
		errs = append(errs, errors.New("compression.level for zstd must be between 0 and 22"))
	}
	if c.WriteWorkers < 0 {
		errs = append(errs, errors.New("write_workers must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the harness configuration.
func (c *BenchConfig) Validate() error {
	var errs []error

	if c.Iterations < 1 {
		errs = append(errs, errors.New("iterations must be positive"))
	}
	if c.TopN < 1 {
		errs = append(errs, errors.New("top_n must be positive"))
	}
	if c.Window < 2 {
		errs = append(errs, errors.New("window must be at least 2"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
