// tickbench loads a multi-ticker minute-bar dataset into two storage
// backends - a normalized DuckDB database and a ticker-partitioned Parquet
// tree - runs the analytical queries against each, and prints a latency and
// footprint comparison.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/xtxerr/tickbench/internal/bench"
	"github.com/xtxerr/tickbench/internal/config"
	"github.com/xtxerr/tickbench/internal/ingest"
	"github.com/xtxerr/tickbench/internal/logging"
	"github.com/xtxerr/tickbench/internal/storage/columnar"
	"github.com/xtxerr/tickbench/internal/storage/relational"
	"github.com/xtxerr/tickbench/internal/storage/types"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	tickersPath := flag.String("tickers", "files/tickers.csv", "ticker reference CSV")
	barsPath := flag.String("bars", "files/market_data_multi.csv", "minute-bar CSV")
	dataDir := flag.String("data", "", "data directory (overrides config)")
	iterations := flag.Int("iterations", 0, "harness iterations per query (overrides config)")
	window := flag.Int("window", 0, "rolling window size (overrides config)")
	topN := flag.Int("top", 0, "ranking depth for the top-return query (overrides config)")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	logJSON := flag.Bool("log-json", false, "log as JSON")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.DefaultConfig()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI overrides
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *iterations > 0 {
		cfg.Bench.Iterations = *iterations
	}
	if *window > 0 {
		cfg.Bench.Window = *window
	}
	if *topN > 0 {
		cfg.Bench.TopN = *topN
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON || *logJSON)
	log := logging.Component("main")
	log.Info("tickbench starting", "version", Version)

	if err := run(cfg, *tickersPath, *barsPath); err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, tickersPath, barsPath string) error {
	ctx := context.Background()

	bars, tickers, err := ingest.Load(tickersPath, barsPath)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Fresh relational load on every run.
	if err := os.Remove(cfg.DatabasePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old database: %w", err)
	}

	rel, err := openRelational(ctx, cfg, bars, tickers)
	if err != nil {
		return err
	}
	defer rel.Close()

	col, err := openColumnar(cfg, bars, tickers)
	if err != nil {
		return err
	}

	if err := printQueries(ctx, rel, col, cfg); err != nil {
		return err
	}

	harness := bench.New(rel, col, bench.Config{
		Iterations: cfg.Bench.Iterations,
		TopN:       cfg.Bench.TopN,
		Window:     cfg.Bench.Window,
	})
	report, err := harness.Run(ctx)
	if err != nil {
		return fmt.Errorf("harness: %w", err)
	}

	fmt.Println("\n=== Backend comparison ===")
	fmt.Print(report.String())
	return nil
}

func openRelational(ctx context.Context, cfg *config.Config, bars []types.Bar, tickers []types.Ticker) (*relational.Store, error) {
	relCfg := relational.DefaultConfig()
	relCfg.Path = cfg.DatabasePath()
	relCfg.MemoryLimit = cfg.Relational.MemoryLimit
	if cfg.Relational.MaxOpenConns > 0 {
		relCfg.MaxOpenConns = cfg.Relational.MaxOpenConns
	}
	if cfg.Relational.QueryTimeout > 0 {
		relCfg.QueryTimeout = cfg.Relational.QueryTimeout
	}

	rel, err := relational.New(relCfg)
	if err != nil {
		return nil, fmt.Errorf("open relational store: %w", err)
	}

	if err := rel.CreateSchema(ctx); err != nil {
		rel.Close()
		return nil, err
	}
	if err := rel.InsertTickers(ctx, tickers); err != nil {
		rel.Close()
		return nil, err
	}
	if err := rel.InsertBars(ctx, bars, types.BuildTickerIndex(tickers)); err != nil {
		rel.Close()
		return nil, err
	}
	return rel, nil
}

func openColumnar(cfg *config.Config, bars []types.Bar, tickers []types.Ticker) (*columnar.Store, error) {
	opts := columnar.DefaultOptions()
	opts.Compression = columnar.ParseCompressionType(cfg.Columnar.Compression.Algorithm)
	opts.CompressionLevel = cfg.Columnar.Compression.Level
	if cfg.Columnar.WriteWorkers > 0 {
		opts.WriteWorkers = cfg.Columnar.WriteWorkers
	}

	col, err := columnar.New(cfg.PartitionDir(), opts)
	if err != nil {
		return nil, fmt.Errorf("open columnar store: %w", err)
	}
	if err := col.WritePartitioned(bars, tickers); err != nil {
		return nil, err
	}
	return col, nil
}

// printQueries runs each analytical query once and prints a preview.
func printQueries(ctx context.Context, rel *relational.Store, col *columnar.Store, cfg *config.Config) error {
	fmt.Println("=== Average daily volume per ticker ===")
	volumes, err := rel.QueryAverageDailyVolume(ctx)
	if err != nil {
		return err
	}
	for _, dv := range volumes {
		fmt.Printf("  %-6s %14.2f\n", dv.Symbol, dv.AvgDailyVolume)
	}

	fmt.Printf("\n=== Top %d tickers by return ===\n", cfg.Bench.TopN)
	returns, err := rel.QueryTopTickersByReturn(ctx, cfg.Bench.TopN)
	if err != nil {
		return err
	}
	for _, tr := range returns {
		fmt.Printf("  %-6s first=%.2f last=%.2f return=%+.2f%%\n",
			tr.Symbol, tr.FirstPrice, tr.LastPrice, tr.ReturnPct)
	}

	fmt.Println("\n=== Daily first/last prices ===")
	daily, err := rel.QueryDailyFirstLastPrices(ctx)
	if err != nil {
		return err
	}
	for i, fl := range daily {
		if i >= 10 {
			fmt.Printf("  ... %d more rows\n", len(daily)-i)
			break
		}
		fmt.Printf("  %s %-6s first=%.2f@%s last=%.2f@%s\n",
			fl.TradeDate, fl.Symbol,
			fl.FirstPrice, fl.FirstTime.Format("15:04"),
			fl.LastPrice, fl.LastTime.Format("15:04"))
	}

	symbols, err := col.Symbols()
	if err != nil {
		return err
	}
	if len(symbols) > 0 {
		fmt.Printf("\n=== %d-period rolling average of close (%s) ===\n", cfg.Bench.Window, symbols[0])
		rolling, err := col.ComputeRollingAverage(symbols[0], cfg.Bench.Window, "close")
		if err != nil {
			return err
		}
		for i, p := range rolling {
			if i >= 10 {
				fmt.Printf("  ... %d more rows\n", len(rolling)-i)
				break
			}
			avg := "      -"
			if p.Rolling != nil {
				avg = fmt.Sprintf("%7.2f", *p.Rolling)
			}
			fmt.Printf("  %s close=%7.2f avg=%s\n",
				p.Timestamp.Format(types.TimestampLayout), p.Value, avg)
		}
	}

	fmt.Println("\n=== Partitions ===")
	infos, err := col.PartitionInfo()
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Printf("  ticker=%-6s rows=%-8d files=%d size=%d bytes\n",
			info.Symbol, info.RowCount, info.FileCount, info.SizeBytes)
	}

	return nil
}
