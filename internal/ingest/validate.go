package ingest

import (
	"errors"
	"fmt"

	"github.com/xtxerr/tickbench/internal/storage/types"
)

// Validate checks the loaded dataset for completeness and consistency. All
// issues are collected and returned joined, so a bad feed surfaces every
// problem at once rather than one per run.
func Validate(bars []types.Bar, tickers []types.Ticker) error {
	var errs []error

	expected := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		if t.Symbol == "" {
			errs = append(errs, fmt.Errorf("ticker id %d has an empty symbol", t.ID))
			continue
		}
		if expected[t.Symbol] {
			errs = append(errs, fmt.Errorf("ticker table repeats symbol %s", t.Symbol))
		}
		expected[t.Symbol] = true
	}

	seen := make(map[string]bool, len(bars))
	present := make(map[string]bool)
	var badPrices, badVolume, badTimes int

	for i := range bars {
		b := &bars[i]
		present[b.Symbol] = true

		if !expected[b.Symbol] {
			errs = append(errs, fmt.Errorf("row %s references a symbol missing from the ticker table", b.Key()))
			continue
		}
		if b.Timestamp.IsZero() {
			badTimes++
		}
		if b.High < b.Low || b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			badPrices++
		}
		if b.Volume < 0 {
			badVolume++
		}
		if seen[b.Key()] {
			errs = append(errs, fmt.Errorf("duplicate bar %s", b.Key()))
		}
		seen[b.Key()] = true
	}

	if badTimes > 0 {
		errs = append(errs, fmt.Errorf("found %d rows with missing timestamps", badTimes))
	}
	if badPrices > 0 {
		errs = append(errs, fmt.Errorf("found %d rows with high < low or non-positive prices", badPrices))
	}
	if badVolume > 0 {
		errs = append(errs, fmt.Errorf("found %d rows with negative volume", badVolume))
	}

	for sym := range expected {
		if !present[sym] {
			errs = append(errs, fmt.Errorf("ticker %s has no bars in the data", sym))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
