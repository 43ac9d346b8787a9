package types

import (
	"fmt"
	"time"
)

// TimestampLayout is the canonical naive-datetime format used on disk and in
// query parameters. Bars are minute resolution; seconds are kept for
// faithfulness to the input feed.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the calendar-date format used by daily aggregations.
const DateLayout = "2006-01-02"

// Ticker is one instrument in the reference table. Tickers are created once
// at load time and never mutated; every Bar references one by symbol.
type Ticker struct {
	// ID is the surrogate integer key used by the relational store.
	ID int64

	// Symbol is the unique exchange symbol (e.g. "TSLA").
	Symbol string

	// Name is the company name. Optional.
	Name string

	// Exchange is the listing exchange. Optional.
	Exchange string
}

// Bar is a single OHLCV observation for one ticker at one minute.
// (Symbol, Timestamp) is unique across the dataset.
type Bar struct {
	Symbol    string
	Timestamp time.Time

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Key returns a unique identity string for the bar.
func (b *Bar) Key() string {
	return fmt.Sprintf("%s@%s", b.Symbol, b.Timestamp.Format(TimestampLayout))
}

// Date returns the bar's calendar date in DateLayout.
func (b *Bar) Date() string {
	return b.Timestamp.Format(DateLayout)
}

// TickerIndex maps ticker symbols to surrogate IDs. Built from the ticker
// table and passed to the relational bulk insert.
type TickerIndex map[string]int64

// BuildTickerIndex builds a TickerIndex from a ticker slice.
func BuildTickerIndex(tickers []Ticker) TickerIndex {
	idx := make(TickerIndex, len(tickers))
	for _, t := range tickers {
		idx[t.Symbol] = t.ID
	}
	return idx
}

// DailyVolume is one row of the average-daily-volume query: the mean over
// calendar dates of that ticker's per-date volume sum.
type DailyVolume struct {
	Symbol         string
	AvgDailyVolume float64
}

// TickerReturn is one row of the top-return query.
type TickerReturn struct {
	Symbol     string
	FirstPrice float64
	LastPrice  float64
	ReturnPct  float64
}

// DailyFirstLast is one row of the daily first/last price query: the close
// price and timestamp of the earliest and latest bar for one (ticker, date).
type DailyFirstLast struct {
	Symbol     string
	TradeDate  string
	FirstPrice float64
	FirstTime  time.Time
	LastPrice  float64
	LastTime   time.Time
}

// RollingPoint is one row of a rolling-average result. Rolling is nil for
// the first window-1 rows, where fewer than window observations exist.
type RollingPoint struct {
	Timestamp time.Time
	Symbol    string
	Value     float64
	Rolling   *float64
}

// VolatilityPoint is one row of the rolling-volatility result. Return is nil
// on the first row of each ticker's series; Volatility is nil until a full
// window of defined returns exists.
type VolatilityPoint struct {
	Timestamp  time.Time
	Symbol     string
	Close      float64
	Return     *float64
	Volatility *float64
}

// PartitionInfo describes one on-disk columnar partition. Diagnostic only.
type PartitionInfo struct {
	Symbol    string
	FileCount int
	RowCount  int64
	SizeBytes int64
}

// Float is a convenience constructor for optional float columns.
func Float(v float64) *float64 {
	return &v
}
