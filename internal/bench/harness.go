// Package bench runs the same logical queries against both storage backends
// and reports wall-clock latency and on-disk footprint side by side.
//
// Latencies are recorded in a DDSketch so the report carries percentiles
// rather than a single lucky (or unlucky) sample.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/tickbench/internal/logging"
	"github.com/xtxerr/tickbench/internal/storage/columnar"
	"github.com/xtxerr/tickbench/internal/storage/relational"
)

// Config holds harness parameters.
type Config struct {
	// Iterations is how many times each query is repeated per backend.
	Iterations int

	// TopN is the ranking depth for the top-return query.
	TopN int

	// Window is the rolling window size for the rolling statistics.
	Window int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Iterations: 20,
		TopN:       3,
		Window:     5,
	}
}

// Harness drives the comparison between the two backends.
type Harness struct {
	rel *relational.Store
	col *columnar.Store
	cfg Config
	log *slog.Logger
}

// New creates a harness over two loaded stores.
func New(rel *relational.Store, col *columnar.Store, cfg Config) *Harness {
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	return &Harness{
		rel: rel,
		col: col,
		cfg: cfg,
		log: logging.Component("bench"),
	}
}

// QueryResult holds latency statistics for one query on one backend.
type QueryResult struct {
	Name    string
	Backend string
	Rows    int

	Min time.Duration
	Max time.Duration
	Avg time.Duration
	P50 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// Report is the outcome of one harness run.
type Report struct {
	Queries []QueryResult

	// On-disk footprint of each backend's artifact, in bytes.
	RelationalBytes int64
	ColumnarBytes   int64
}

// Run executes every comparison query Iterations times per backend. The
// single-ticker queries use the first partitioned symbol and the dataset's
// full timestamp range.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	symbol, start, end, err := h.probeDataset()
	if err != nil {
		return nil, err
	}

	report := &Report{}

	cases := []struct {
		name    string
		backend string
		run     func() (int, error)
	}{
		{"date_range", "relational", func() (int, error) {
			rows, err := h.rel.QueryByDateRange(ctx, symbol, start, end)
			return len(rows), err
		}},
		{"date_range", "columnar", func() (int, error) {
			rows, err := h.col.QueryByDateRange(symbol, start, end)
			return len(rows), err
		}},
		{"avg_daily_volume", "relational", func() (int, error) {
			rows, err := h.rel.QueryAverageDailyVolume(ctx)
			return len(rows), err
		}},
		{"top_return", "relational", func() (int, error) {
			rows, err := h.rel.QueryTopTickersByReturn(ctx, h.cfg.TopN)
			return len(rows), err
		}},
		{"daily_first_last", "relational", func() (int, error) {
			rows, err := h.rel.QueryDailyFirstLastPrices(ctx)
			return len(rows), err
		}},
		{"rolling_average", "columnar", func() (int, error) {
			rows, err := h.col.ComputeRollingAverage(symbol, h.cfg.Window, "close")
			return len(rows), err
		}},
		{"rolling_volatility", "columnar", func() (int, error) {
			rows, err := h.col.ComputeRollingVolatility(h.cfg.Window)
			return len(rows), err
		}},
		{"read_all", "columnar", func() (int, error) {
			rows, err := h.col.ReadAllData()
			return len(rows), err
		}},
	}

	for _, c := range cases {
		result, err := h.measure(c.name, c.backend, c.run)
		if err != nil {
			return nil, fmt.Errorf("%s on %s: %w", c.name, c.backend, err)
		}
		report.Queries = append(report.Queries, result)
	}

	if report.RelationalBytes, err = h.rel.DatabaseSize(ctx); err != nil {
		return nil, err
	}
	if report.ColumnarBytes, err = h.col.StorageSize(); err != nil {
		return nil, err
	}

	h.log.Info("harness complete",
		"queries", len(report.Queries),
		"relational_bytes", report.RelationalBytes,
		"columnar_bytes", report.ColumnarBytes)
	return report, nil
}

// probeDataset picks the single-ticker query parameters: the first symbol in
// partition order and the full timestamp range across all partitions.
func (h *Harness) probeDataset() (symbol string, start, end time.Time, err error) {
	all, err := h.col.ReadAllData()
	if err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("probe dataset: %w", err)
	}
	if len(all) == 0 {
		return "", time.Time{}, time.Time{}, fmt.Errorf("probe dataset: no partitions loaded")
	}

	symbol = all[0].Symbol
	start, end = all[0].Timestamp, all[0].Timestamp
	for _, b := range all {
		if b.Timestamp.Before(start) {
			start = b.Timestamp
		}
		if b.Timestamp.After(end) {
			end = b.Timestamp
		}
	}
	return symbol, start, end, nil
}

// measure runs one query Iterations times and folds the latencies into a
// sketch.
func (h *Harness) measure(name, backend string, run func() (int, error)) (QueryResult, error) {
	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return QueryResult{}, fmt.Errorf("create sketch: %w", err)
	}

	result := QueryResult{Name: name, Backend: backend}
	var total time.Duration

	for i := 0; i < h.cfg.Iterations; i++ {
		begin := time.Now()
		rows, err := run()
		elapsed := time.Since(begin)
		if err != nil {
			return QueryResult{}, err
		}

		result.Rows = rows
		total += elapsed
		if err := sketch.Add(elapsed.Seconds()); err != nil {
			return QueryResult{}, fmt.Errorf("record latency: %w", err)
		}
		if i == 0 || elapsed < result.Min {
			result.Min = elapsed
		}
		if elapsed > result.Max {
			result.Max = elapsed
		}
	}

	result.Avg = total / time.Duration(h.cfg.Iterations)

	for _, q := range []struct {
		quantile float64
		dst      *time.Duration
	}{
		{0.50, &result.P50},
		{0.95, &result.P95},
		{0.99, &result.P99},
	} {
		v, err := sketch.GetValueAtQuantile(q.quantile)
		if err != nil {
			return QueryResult{}, fmt.Errorf("quantile %v: %w", q.quantile, err)
		}
		*q.dst = time.Duration(v * float64(time.Second))
	}

	return result, nil
}
