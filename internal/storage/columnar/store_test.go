package columnar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/tickbench/internal/storage/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "partitions"), DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func bar(symbol string, ts time.Time, close float64, volume int64) types.Bar {
	return types.Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      close - 1,
		High:      close + 2,
		Low:       close - 2,
		Close:     close,
		Volume:    volume,
	}
}

func minuteTS(day, hour, min int) time.Time {
	return time.Date(2025, 11, day, hour, min, 0, 0, time.UTC)
}

var testTickers = []types.Ticker{
	{ID: 1, Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"},
	{ID: 2, Symbol: "TSLA", Name: "Tesla Inc.", Exchange: "NASDAQ"},
}

func seedBars() []types.Bar {
	return []types.Bar{
		// Deliberately unsorted: the writer must order each partition.
		bar("AAPL", minuteTS(17, 9, 32), 102, 1200),
		bar("AAPL", minuteTS(17, 9, 30), 100, 1000),
		bar("AAPL", minuteTS(18, 9, 30), 150, 3000),
		bar("TSLA", minuteTS(17, 9, 30), 200, 4000),
		bar("TSLA", minuteTS(17, 9, 31), 202, 4100),
	}
}

func TestWritePartitionedLayout(t *testing.T) {
	s := newTestStore(t)

	if err := s.WritePartitioned(seedBars(), testTickers); err != nil {
		t.Fatalf("WritePartitioned: %v", err)
	}

	// Partition key is embedded in the path.
	for _, sym := range []string{"AAPL", "TSLA"} {
		path := filepath.Join(s.Dir(), "ticker="+sym, "bars.parquet")
		stat, err := os.Stat(path)
		if err != nil {
			t.Fatalf("partition file for %s: %v", sym, err)
		}
		if stat.Size() == 0 {
			t.Errorf("partition file for %s is empty", sym)
		}
	}

	symbols, err := s.Symbols()
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "TSLA" {
		t.Errorf("Symbols() = %v", symbols)
	}
}

func TestWritePartitionedUnknownTicker(t *testing.T) {
	s := newTestStore(t)

	bars := []types.Bar{bar("ZZZZ", minuteTS(17, 9, 30), 10, 10)}
	err := s.WritePartitioned(bars, testTickers)
	if !errors.Is(err, types.ErrUnknownTicker) {
		t.Fatalf("expected ErrUnknownTicker, got %v", err)
	}
}

func TestReadAllDataRoundTrip(t *testing.T) {
	s := newTestStore(t)

	input := seedBars()
	if err := s.WritePartitioned(input, testTickers); err != nil {
		t.Fatal(err)
	}

	all, err := s.ReadAllData()
	if err != nil {
		t.Fatalf("ReadAllData: %v", err)
	}
	if len(all) != len(input) {
		t.Fatalf("expected %d bars, got %d", len(input), len(all))
	}

	want := make(map[string]types.Bar, len(input))
	for _, b := range input {
		want[b.Key()] = b
	}
	var prev map[string]time.Time = map[string]time.Time{}
	for _, b := range all {
		w, ok := want[b.Key()]
		if !ok {
			t.Errorf("unexpected bar %s", b.Key())
			continue
		}
		if b.Open != w.Open || b.High != w.High || b.Low != w.Low || b.Close != w.Close || b.Volume != w.Volume {
			t.Errorf("bar %s round-tripped as %+v, want %+v", b.Key(), b, w)
		}
		// Internally ordered within each ticker.
		if p, ok := prev[b.Symbol]; ok && b.Timestamp.Before(p) {
			t.Errorf("%s out of order: %v after %v", b.Symbol, b.Timestamp, p)
		}
		prev[b.Symbol] = b.Timestamp
	}
}

func TestQueryByDateRange(t *testing.T) {
	s := newTestStore(t)

	if err := s.WritePartitioned(seedBars(), testTickers); err != nil {
		t.Fatal(err)
	}

	got, err := s.QueryByDateRange("AAPL", minuteTS(17, 9, 30), minuteTS(17, 9, 32))
	if err != nil {
		t.Fatalf("QueryByDateRange: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	// Inclusive bounds, ascending, single ticker.
	if !got[0].Timestamp.Equal(minuteTS(17, 9, 30)) || !got[1].Timestamp.Equal(minuteTS(17, 9, 32)) {
		t.Errorf("got timestamps %v, %v", got[0].Timestamp, got[1].Timestamp)
	}
	for _, b := range got {
		if b.Symbol != "AAPL" {
			t.Errorf("foreign ticker %s in pruned query", b.Symbol)
		}
	}
}

func TestQueryByDateRangeUnknownTickerErrors(t *testing.T) {
	s := newTestStore(t)

	if err := s.WritePartitioned(seedBars(), testTickers); err != nil {
		t.Fatal(err)
	}

	// Contract differs from the relational store: missing partition is an
	// error here.
	_, err := s.QueryByDateRange("ZZZZ", minuteTS(1, 0, 0), minuteTS(30, 0, 0))
	if !errors.Is(err, types.ErrUnknownTicker) {
		t.Fatalf("expected ErrUnknownTicker, got %v", err)
	}
}

func TestPartitionReplace(t *testing.T) {
	s := newTestStore(t)

	if err := s.WritePartitioned(seedBars(), testTickers); err != nil {
		t.Fatal(err)
	}

	// Rewrite only AAPL with a single bar; TSLA must be untouched.
	rewrite := []types.Bar{bar("AAPL", minuteTS(20, 10, 0), 99, 42)}
	if err := s.WritePartitioned(rewrite, testTickers); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	aapl, err := s.QueryByDateRange("AAPL", minuteTS(1, 0, 0), minuteTS(30, 23, 59))
	if err != nil {
		t.Fatal(err)
	}
	if len(aapl) != 1 || aapl[0].Close != 99 {
		t.Errorf("AAPL partition should be replaced wholesale, got %d bars", len(aapl))
	}

	tsla, err := s.QueryByDateRange("TSLA", minuteTS(1, 0, 0), minuteTS(30, 23, 59))
	if err != nil {
		t.Fatal(err)
	}
	if len(tsla) != 2 {
		t.Errorf("TSLA partition should be untouched, got %d bars", len(tsla))
	}
}

func TestPartitionInfo(t *testing.T) {
	s := newTestStore(t)

	if err := s.WritePartitioned(seedBars(), testTickers); err != nil {
		t.Fatal(err)
	}

	infos, err := s.PartitionInfo()
	if err != nil {
		t.Fatalf("PartitionInfo: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(infos))
	}

	if infos[0].Symbol != "AAPL" || infos[0].RowCount != 3 {
		t.Errorf("AAPL info = %+v", infos[0])
	}
	if infos[1].Symbol != "TSLA" || infos[1].RowCount != 2 {
		t.Errorf("TSLA info = %+v", infos[1])
	}
	for _, info := range infos {
		if info.FileCount != 1 || info.SizeBytes <= 0 {
			t.Errorf("partition %s: files=%d size=%d", info.Symbol, info.FileCount, info.SizeBytes)
		}
	}
}

func TestStorageSize(t *testing.T) {
	s := newTestStore(t)

	if err := s.WritePartitioned(seedBars(), testTickers); err != nil {
		t.Fatal(err)
	}

	size, err := s.StorageSize()
	if err != nil {
		t.Fatalf("StorageSize: %v", err)
	}

	infos, err := s.PartitionInfo()
	if err != nil {
		t.Fatal(err)
	}
	var want int64
	for _, info := range infos {
		want += info.SizeBytes
	}
	if size != want {
		t.Errorf("StorageSize = %d, sum of partitions = %d", size, want)
	}
}

func TestEmptyStore(t *testing.T) {
	s := newTestStore(t)

	all, err := s.ReadAllData()
	if err != nil {
		t.Fatalf("ReadAllData on empty store: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no bars, got %d", len(all))
	}

	size, err := s.StorageSize()
	if err != nil || size != 0 {
		t.Errorf("StorageSize = %d, err %v", size, err)
	}
}

func TestParseCompressionType(t *testing.T) {
	cases := []struct {
		in   string
		want CompressionType
	}{
		{"snappy", CompressionSnappy},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
		{"gzip", CompressionGzip},
		{"none", CompressionNone},
		{"", CompressionNone},
		{"bogus", CompressionZstd},
	}

	for _, tc := range cases {
		if got := ParseCompressionType(tc.in); got != tc.want {
			t.Errorf("ParseCompressionType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWriteWithSnappy(t *testing.T) {
	opts := DefaultOptions()
	opts.Compression = CompressionSnappy

	s, err := New(filepath.Join(t.TempDir(), "partitions"), opts)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.WritePartitioned(seedBars(), testTickers); err != nil {
		t.Fatalf("WritePartitioned with snappy: %v", err)
	}

	all, err := s.ReadAllData()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(seedBars()) {
		t.Errorf("expected %d bars, got %d", len(seedBars()), len(all))
	}
}
