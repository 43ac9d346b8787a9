// Package ingest loads and validates the two CSV inputs: the ticker
// reference table and the multi-ticker minute-bar table.
//
// Both storage backends consume the validated output; neither re-validates
// rows. Header names are normalized (trimmed, lowercased) so feeds with
// inconsistent capitalization load unchanged.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/tickbench/internal/logging"
	"github.com/xtxerr/tickbench/internal/storage/types"
)

// timestampLayouts are the accepted naive-datetime formats, tried in order.
var timestampLayouts = []string{
	types.TimestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	types.DateLayout,
}

// parseTimestamp parses a naive datetime string.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// readCSV reads a CSV file and returns its normalized header and records.
func readCSV(path string) (header map[string]int, records [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}

	header = make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return header, rows[1:], nil
}

// LoadTickers loads the ticker reference table. A ticker_id column is
// honored when present; otherwise sequential IDs are assigned in file order.
func LoadTickers(path string) ([]types.Ticker, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	symCol, ok := header["symbol"]
	if !ok {
		return nil, fmt.Errorf("%s: missing symbol column", path)
	}
	idCol, hasID := header["ticker_id"]
	nameCol, hasName := header["name"]
	exchCol, hasExch := header["exchange"]

	tickers := make([]types.Ticker, 0, len(records))
	for i, rec := range records {
		t := types.Ticker{
			ID:     int64(i + 1),
			Symbol: strings.TrimSpace(rec[symCol]),
		}
		if hasID {
			id, err := strconv.ParseInt(strings.TrimSpace(rec[idCol]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad ticker_id: %w", path, i+2, err)
			}
			t.ID = id
		}
		if hasName {
			t.Name = strings.TrimSpace(rec[nameCol])
		}
		if hasExch {
			t.Exchange = strings.TrimSpace(rec[exchCol])
		}
		tickers = append(tickers, t)
	}

	return tickers, nil
}

// barColumns are the required price-bar columns.
var barColumns = []string{"timestamp", "ticker", "open", "high", "low", "close", "volume"}

// LoadBars loads the minute-bar table, sorted by (timestamp, symbol) for
// deterministic downstream order.
func LoadBars(path string) ([]types.Bar, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, len(barColumns))
	for _, name := range barColumns {
		idx, ok := header[name]
		if !ok {
			return nil, fmt.Errorf("%s: missing %s column", path, name)
		}
		cols[name] = idx
	}

	bars := make([]types.Bar, 0, len(records))
	for i, rec := range records {
		ts, err := parseTimestamp(rec[cols["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}

		b := types.Bar{
			Symbol:    strings.TrimSpace(rec[cols["ticker"]]),
			Timestamp: ts,
		}

		for _, pc := range []struct {
			name string
			dst  *float64
		}{
			{"open", &b.Open},
			{"high", &b.High},
			{"low", &b.Low},
			{"close", &b.Close},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[pc.name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad %s: %w", path, i+2, pc.name, err)
			}
			*pc.dst = v
		}

		vol, err := strconv.ParseInt(strings.TrimSpace(rec[cols["volume"]]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad volume: %w", path, i+2, err)
		}
		b.Volume = vol

		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool {
		if !bars[i].Timestamp.Equal(bars[j].Timestamp) {
			return bars[i].Timestamp.Before(bars[j].Timestamp)
		}
		return bars[i].Symbol < bars[j].Symbol
	})

	return bars, nil
}

// Load loads and validates both inputs. On validation failure the collected
// issues are returned as one error and nothing is usable.
func Load(tickersPath, barsPath string) ([]types.Bar, []types.Ticker, error) {
	tickers, err := LoadTickers(tickersPath)
	if err != nil {
		return nil, nil, err
	}
	bars, err := LoadBars(barsPath)
	if err != nil {
		return nil, nil, err
	}
	if err := Validate(bars, tickers); err != nil {
		return nil, nil, fmt.Errorf("validate input: %w", err)
	}

	logging.Component("ingest").Info("input loaded",
		"tickers", len(tickers), "bars", len(bars))
	return bars, tickers, nil
}
