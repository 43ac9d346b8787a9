// Package types defines the core data types shared by both storage backends.
//
// Key types:
//   - Ticker: one instrument in the reference table
//   - Bar: a single minute-level OHLCV observation
//   - RollingPoint / VolatilityPoint: rolling-window statistic rows
//
// The package also holds the sentinel errors both backends surface, so
// callers can distinguish failure classes with errors.Is without importing
// either store.
package types
