package columnar

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/tickbench/internal/logging"
	"github.com/xtxerr/tickbench/internal/storage/types"
)

// partitionFile is the single data file inside each partition directory.
const partitionFile = "bars.parquet"

// Options configures the Parquet layout.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// CompressionLevel for algorithms that support it (zstd: 1-22)
	CompressionLevel int

	// WriteWorkers is the number of partitions written in parallel.
	WriteWorkers int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:      CompressionZstd,
		CompressionLevel: 3,
		WriteWorkers:     4,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// barRow is the explicit on-disk schema. Every write goes through this
// struct, so the column types cannot drift between partition rewrites.
type barRow struct {
	Ticker      string  `parquet:"ticker,dict"`
	TimestampMs int64   `parquet:"timestamp_ms"`
	Open        float64 `parquet:"open"`
	High        float64 `parquet:"high"`
	Low         float64 `parquet:"low"`
	Close       float64 `parquet:"close"`
	Volume      int64   `parquet:"volume"`
}

// barToRow converts a Bar to its Parquet representation.
func barToRow(b *types.Bar) barRow {
	return barRow{
		Ticker:      b.Symbol,
		TimestampMs: b.Timestamp.UnixMilli(),
		Open:        b.Open,
		High:        b.High,
		Low:         b.Low,
		Close:       b.Close,
		Volume:      b.Volume,
	}
}

// rowToBar converts a Parquet row back to a Bar.
func rowToBar(r *barRow) types.Bar {
	return types.Bar{
		Symbol:    r.Ticker,
		Timestamp: time.UnixMilli(r.TimestampMs).UTC(),
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		Volume:    r.Volume,
	}
}

// Store is the column-oriented backend rooted at one partition directory.
// Construct one per process and pass it by reference; reads are safe
// concurrently with each other.
type Store struct {
	dir  string
	opts Options
	log  *slog.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create partition root: %w", err)
	}
	return &Store{
		dir:  dir,
		opts: opts,
		log:  logging.Component("columnar"),
	}, nil
}

// Dir returns the partition root directory.
func (s *Store) Dir() string {
	return s.dir
}

// partitionDir returns the directory of one ticker's partition.
func (s *Store) partitionDir(symbol string) string {
	return filepath.Join(s.dir, "ticker="+symbol)
}

// WritePartitioned groups bars by ticker symbol and writes one partition per
// symbol, each ordered by timestamp. A partition that already exists for a
// symbol in the input is replaced wholesale. Each partition file is written
// to a temporary name and renamed into place, so a concurrent reader sees
// the old file or the new one, never a torn write. Atomicity does not extend
// across partitions: on types.ErrPartitionWrite, partitions already renamed
// stay in place and the caller should re-run the whole batch.
func (s *Store) WritePartitioned(bars []types.Bar, tickers []types.Ticker) error {
	known := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		known[t.Symbol] = true
	}

	groups := make(map[string][]barRow)
	for i := range bars {
		b := &bars[i]
		if !known[b.Symbol] {
			return types.NewUnknownTicker(b.Symbol)
		}
		groups[b.Symbol] = append(groups[b.Symbol], barToRow(b))
	}

	workers := s.opts.WriteWorkers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for symbol, rows := range groups {
		symbol, rows := symbol, rows
		g.Go(func() error {
			sort.Slice(rows, func(i, j int) bool {
				return rows[i].TimestampMs < rows[j].TimestampMs
			})
			return s.writePartition(symbol, rows)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.log.Info("partitions written", "partitions", len(groups), "rows", len(bars))
	return nil
}

// writePartition writes one symbol's rows as a fresh partition file.
func (s *Store) writePartition(symbol string, rows []barRow) error {
	dir := s.partitionDir(symbol)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return partitionWriteError(symbol, err)
	}

	tmp := filepath.Join(dir, partitionFile+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return partitionWriteError(symbol, err)
	}

	w := parquet.NewGenericWriter[barRow](f,
		parquet.Compression(getCompression(s.opts.Compression)),
	)

	if _, err := w.Write(rows); err != nil {
		w.Close()
		f.Close()
		os.Remove(tmp)
		return partitionWriteError(symbol, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return partitionWriteError(symbol, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return partitionWriteError(symbol, err)
	}

	if err := os.Rename(tmp, filepath.Join(dir, partitionFile)); err != nil {
		os.Remove(tmp)
		return partitionWriteError(symbol, err)
	}

	return nil
}

func partitionWriteError(symbol string, err error) error {
	return fmt.Errorf("partition %s: %w: %v", symbol, types.ErrPartitionWrite, err)
}

// readPartition reads one symbol's partition in full. The rows come back in
// the order they were written, which is ascending by timestamp.
func (s *Store) readPartition(symbol string) ([]types.Bar, error) {
	path := filepath.Join(s.partitionDir(symbol), partitionFile)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewUnknownTicker(symbol)
		}
		return nil, fmt.Errorf("open partition %s: %w", symbol, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat partition %s: %w", symbol, err)
	}
	pf, err := parquet.OpenFile(f, info.Size(), parquet.ReadBufferSize(1024*1024))
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", symbol, err)
	}
	reader := parquet.NewGenericReader[barRow](pf)
	defer reader.Close()

	rows := make([]barRow, reader.NumRows())
	if len(rows) > 0 {
		n, err := reader.Read(rows)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read partition %s: %w", symbol, err)
		}
		rows = rows[:n]
	}

	bars := make([]types.Bar, len(rows))
	for i := range rows {
		bars[i] = rowToBar(&rows[i])
	}
	return bars, nil
}

// Symbols returns the symbols that have a partition, ascending.
func (s *Store) Symbols() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "ticker=") {
			symbols = append(symbols, strings.TrimPrefix(e.Name(), "ticker="))
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// QueryByDateRange returns the bars for symbol with
// start <= timestamp <= end, ascending. Only that symbol's partition is
// opened. Unlike the relational store, a symbol with no partition is an
// error: types.ErrUnknownTicker.
func (s *Store) QueryByDateRange(symbol string, start, end time.Time) ([]types.Bar, error) {
	bars, err := s.readPartition(symbol)
	if err != nil {
		return nil, err
	}

	var result []types.Bar
	for _, b := range bars {
		if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			result = append(result, b)
		}
	}
	return result, nil
}

// ReadAllData concatenates all partitions in symbol order. Rows are ordered
// by timestamp within each ticker but not across tickers.
func (s *Store) ReadAllData() ([]types.Bar, error) {
	symbols, err := s.Symbols()
	if err != nil {
		return nil, err
	}

	var all []types.Bar
	for _, symbol := range symbols {
		bars, err := s.readPartition(symbol)
		if err != nil {
			return nil, err
		}
		all = append(all, bars...)
	}
	return all, nil
}

// PartitionInfo returns per-partition row counts and on-disk sizes,
// ascending by symbol. Diagnostic only.
func (s *Store) PartitionInfo() ([]types.PartitionInfo, error) {
	symbols, err := s.Symbols()
	if err != nil {
		return nil, err
	}

	infos := make([]types.PartitionInfo, 0, len(symbols))
	for _, symbol := range symbols {
		dir := s.partitionDir(symbol)

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list partition %s: %w", symbol, err)
		}

		info := types.PartitionInfo{Symbol: symbol}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				return nil, fmt.Errorf("stat partition file: %w", err)
			}
			info.FileCount++
			info.SizeBytes += fi.Size()
		}

		rows, err := s.partitionRowCount(symbol)
		if err != nil {
			return nil, err
		}
		info.RowCount = rows

		infos = append(infos, info)
	}
	return infos, nil
}

// partitionRowCount reads the row count from the partition file's metadata.
func (s *Store) partitionRowCount(symbol string) (int64, error) {
	path := filepath.Join(s.partitionDir(symbol), partitionFile)

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open partition %s: %w", symbol, err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[barRow](f)
	defer reader.Close()

	return reader.NumRows(), nil
}

// StorageSize returns the total size in bytes of all partition files.
func (s *Store) StorageSize() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".parquet") {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk partitions: %w", err)
	}
	return total, nil
}
