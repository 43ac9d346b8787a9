package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/tickbench/internal/storage/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const goodTickers = `ticker_id,symbol,name,exchange
1,AAPL,Apple Inc.,NASDAQ
2,TSLA,Tesla Inc.,NASDAQ
`

const goodBars = `timestamp,ticker,open,high,low,close,volume
2025-11-17 09:31:00,TSLA,400,402,399,401,2000
2025-11-17 09:30:00,AAPL,189,191,188,190,1000
2025-11-17 09:30:00,TSLA,399,401,398,400,1500
`

func TestLoadTickers(t *testing.T) {
	path := writeFile(t, "tickers.csv", goodTickers)

	tickers, err := LoadTickers(path)
	if err != nil {
		t.Fatalf("LoadTickers: %v", err)
	}
	if len(tickers) != 2 {
		t.Fatalf("expected 2 tickers, got %d", len(tickers))
	}
	if tickers[0].ID != 1 || tickers[0].Symbol != "AAPL" || tickers[0].Name != "Apple Inc." {
		t.Errorf("first ticker = %+v", tickers[0])
	}
	if tickers[1].Exchange != "NASDAQ" {
		t.Errorf("exchange = %q", tickers[1].Exchange)
	}
}

func TestLoadTickersAssignsIDs(t *testing.T) {
	path := writeFile(t, "tickers.csv", "symbol,name\nMSFT,Microsoft\nAAPL,Apple\n")

	tickers, err := LoadTickers(path)
	if err != nil {
		t.Fatal(err)
	}
	if tickers[0].ID != 1 || tickers[1].ID != 2 {
		t.Errorf("sequential IDs expected, got %d and %d", tickers[0].ID, tickers[1].ID)
	}
}

func TestLoadBarsSortedAndParsed(t *testing.T) {
	path := writeFile(t, "bars.csv", goodBars)

	bars, err := LoadBars(path)
	if err != nil {
		t.Fatalf("LoadBars: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}

	// Sorted by (timestamp, symbol): AAPL 09:30, TSLA 09:30, TSLA 09:31.
	if bars[0].Symbol != "AAPL" || bars[1].Symbol != "TSLA" || bars[2].Symbol != "TSLA" {
		t.Errorf("order: %s, %s, %s", bars[0].Symbol, bars[1].Symbol, bars[2].Symbol)
	}
	if !bars[2].Timestamp.Equal(time.Date(2025, 11, 17, 9, 31, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", bars[2].Timestamp)
	}
	if bars[0].Open != 189 || bars[0].Close != 190 || bars[0].Volume != 1000 {
		t.Errorf("first bar = %+v", bars[0])
	}
}

func TestLoadBarsNormalizesHeaders(t *testing.T) {
	content := "Timestamp, Ticker ,OPEN,High,Low,Close,Volume\n2025-11-17 09:30:00,AAPL,1,2,1,1.5,10\n"
	path := writeFile(t, "bars.csv", content)

	bars, err := LoadBars(path)
	if err != nil {
		t.Fatalf("headers should be normalized: %v", err)
	}
	if len(bars) != 1 || bars[0].High != 2 {
		t.Errorf("bars = %+v", bars)
	}
}

func TestLoadBarsMissingColumn(t *testing.T) {
	path := writeFile(t, "bars.csv", "timestamp,ticker,open,high,low,close\n")

	_, err := LoadBars(path)
	if err == nil || !strings.Contains(err.Error(), "volume") {
		t.Fatalf("expected missing volume column error, got %v", err)
	}
}

func TestLoadBarsBadTimestamp(t *testing.T) {
	path := writeFile(t, "bars.csv", "timestamp,ticker,open,high,low,close,volume\nnot-a-time,AAPL,1,2,1,1,10\n")

	_, err := LoadBars(path)
	if err == nil || !strings.Contains(err.Error(), "timestamp") {
		t.Fatalf("expected timestamp parse error, got %v", err)
	}
}

func TestValidateCleanData(t *testing.T) {
	tickers := []types.Ticker{{ID: 1, Symbol: "AAPL"}, {ID: 2, Symbol: "TSLA"}}
	bars := []types.Bar{
		{Symbol: "AAPL", Timestamp: time.Date(2025, 11, 17, 9, 30, 0, 0, time.UTC), Open: 1, High: 2, Low: 1, Close: 1.5, Volume: 10},
		{Symbol: "TSLA", Timestamp: time.Date(2025, 11, 17, 9, 30, 0, 0, time.UTC), Open: 1, High: 2, Low: 1, Close: 1.5, Volume: 0},
	}

	if err := Validate(bars, tickers); err != nil {
		t.Fatalf("clean data should validate: %v", err)
	}
}

func TestValidateCollectsIssues(t *testing.T) {
	tickers := []types.Ticker{{ID: 1, Symbol: "AAPL"}, {ID: 2, Symbol: "GOOG"}}
	ts := time.Date(2025, 11, 17, 9, 30, 0, 0, time.UTC)
	bars := []types.Bar{
		// high < low
		{Symbol: "AAPL", Timestamp: ts, Open: 1, High: 1, Low: 2, Close: 1.5, Volume: 10},
		// duplicate key
		{Symbol: "AAPL", Timestamp: ts, Open: 1, High: 2, Low: 1, Close: 1.5, Volume: 10},
		// unknown symbol
		{Symbol: "ZZZZ", Timestamp: ts, Open: 1, High: 2, Low: 1, Close: 1.5, Volume: 10},
	}

	err := Validate(bars, tickers)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"high < low", "duplicate bar", "missing from the ticker table", "GOOG has no bars"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q:\n%v", want, err)
		}
	}
}

func TestLoadEndToEnd(t *testing.T) {
	tickersPath := writeFile(t, "tickers.csv", goodTickers)
	barsPath := writeFile(t, "bars.csv", goodBars)

	bars, tickers, err := Load(tickersPath, barsPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(bars) != 3 || len(tickers) != 2 {
		t.Errorf("got %d bars, %d tickers", len(bars), len(tickers))
	}
}
