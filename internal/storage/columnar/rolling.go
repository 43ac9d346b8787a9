package columnar

import (
	"fmt"
	"math"

	"github.com/xtxerr/tickbench/internal/storage/types"
)

// columnAccessor returns the selector for a named bar column.
func columnAccessor(column string) (func(*types.Bar) float64, error) {
	switch column {
	case "open":
		return func(b *types.Bar) float64 { return b.Open }, nil
	case "high":
		return func(b *types.Bar) float64 { return b.High }, nil
	case "low":
		return func(b *types.Bar) float64 { return b.Low }, nil
	case "close":
		return func(b *types.Bar) float64 { return b.Close }, nil
	case "volume":
		return func(b *types.Bar) float64 { return float64(b.Volume) }, nil
	default:
		return nil, fmt.Errorf("column %q: %w", column, types.ErrInvalidColumn)
	}
}

// ComputeRollingAverage computes a trailing simple moving average of the
// named column over window consecutive rows of one ticker's partition. The
// result is row-aligned with the partition: the first window-1 rows carry a
// nil average because fewer than window observations exist yet; the value at
// row i is the mean of rows [i-window+1, i].
func (s *Store) ComputeRollingAverage(symbol string, window int, column string) ([]types.RollingPoint, error) {
	if window < 1 {
		return nil, fmt.Errorf("window %d: %w", window, types.ErrInvalidWindow)
	}

	value, err := columnAccessor(column)
	if err != nil {
		return nil, err
	}

	bars, err := s.readPartition(symbol)
	if err != nil {
		return nil, err
	}

	result := make([]types.RollingPoint, len(bars))
	var sum float64

	for i := range bars {
		v := value(&bars[i])
		sum += v
		if i >= window {
			sum -= value(&bars[i-window])
		}

		result[i] = types.RollingPoint{
			Timestamp: bars[i].Timestamp,
			Symbol:    symbol,
			Value:     v,
		}
		if i >= window-1 {
			result[i].Rolling = types.Float(sum / float64(window))
		}
	}

	return result, nil
}

// ComputeRollingVolatility computes, for every partition independently, the
// per-row fractional close-to-close return and its trailing sample standard
// deviation over window consecutive returns. The return at the first row of
// each ticker's series is nil - the prior-row reference never crosses a
// ticker boundary - and the volatility is nil until window defined returns
// exist, so the first defined value sits at row index window (0-indexed).
// Partitions are concatenated in symbol order, each row labeled with its
// ticker.
func (s *Store) ComputeRollingVolatility(window int) ([]types.VolatilityPoint, error) {
	// Sample standard deviation needs at least two observations.
	if window < 2 {
		return nil, fmt.Errorf("window %d: %w", window, types.ErrInvalidWindow)
	}

	symbols, err := s.Symbols()
	if err != nil {
		return nil, err
	}

	var result []types.VolatilityPoint
	for _, symbol := range symbols {
		bars, err := s.readPartition(symbol)
		if err != nil {
			return nil, err
		}
		result = append(result, rollingVolatility(symbol, bars, window)...)
	}
	return result, nil
}

// rollingVolatility computes the return and volatility series for one
// ticker.
func rollingVolatility(symbol string, bars []types.Bar, window int) []types.VolatilityPoint {
	points := make([]types.VolatilityPoint, len(bars))
	returns := make([]float64, len(bars)) // returns[0] is undefined

	for i := range bars {
		points[i] = types.VolatilityPoint{
			Timestamp: bars[i].Timestamp,
			Symbol:    symbol,
			Close:     bars[i].Close,
		}
		if i == 0 {
			continue
		}
		returns[i] = (bars[i].Close - bars[i-1].Close) / bars[i-1].Close
		points[i].Return = types.Float(returns[i])
	}

	// Trailing sample standard deviation over returns [i-window+1, i].
	// Row 0 has no return, so the earliest full window ends at row index
	// window.
	var sum, sumsq float64
	for i := 1; i < len(bars); i++ {
		r := returns[i]
		sum += r
		sumsq += r * r
		if i > window {
			old := returns[i-window]
			sum -= old
			sumsq -= old * old
		}

		if i >= window {
			n := float64(window)
			variance := (sumsq - sum*sum/n) / (n - 1)
			if variance < 0 {
				variance = 0 // float cancellation
			}
			points[i].Volatility = types.Float(math.Sqrt(variance))
		}
	}

	return points
}
