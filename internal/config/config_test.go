package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefaultPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/tickbench"

	if got := cfg.DatabasePath(); got != filepath.Join("/var/lib/tickbench", "market.duckdb") {
		t.Errorf("DatabasePath() = %q", got)
	}
	if got := cfg.PartitionDir(); got != filepath.Join("/var/lib/tickbench", "partitions") {
		t.Errorf("PartitionDir() = %q", got)
	}

	cfg.Relational.Path = "/tmp/other.duckdb"
	if got := cfg.DatabasePath(); got != "/tmp/other.duckdb" {
		t.Errorf("explicit path should win, got %q", got)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
data_dir: /data/ticks
columnar:
  compression:
    algorithm: snappy
bench:
  iterations: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DataDir != "/data/ticks" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Columnar.Compression.Algorithm != "snappy" {
		t.Errorf("compression = %q", cfg.Columnar.Compression.Algorithm)
	}
	if cfg.Bench.Iterations != 5 {
		t.Errorf("iterations = %d", cfg.Bench.Iterations)
	}
	// Untouched fields keep defaults.
	if cfg.Bench.Window != 5 {
		t.Errorf("window default = %d", cfg.Bench.Window)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
data_dir: /data/ticks
columnar:
  compression:
    algorithm: rot13
bench:
  window: 1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "compression") {
		t.Errorf("error should mention compression: %v", err)
	}
	if !strings.Contains(err.Error(), "window") {
		t.Errorf("error should mention window: %v", err)
	}
}

func TestValidateBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Columnar.Compression.Level = 40

	if err := cfg.Validate(); err == nil {
		t.Error("zstd level 40 should be rejected")
	}
}
