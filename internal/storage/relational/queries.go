package relational

import (
	"context"
	"fmt"
	"time"

	"github.com/xtxerr/tickbench/internal/storage/types"
)

// QueryByDateRange returns all bars for symbol with
// start <= timestamp <= end, ascending by timestamp. An unknown symbol or
// an empty range yields an empty result, not an error.
func (s *Store) QueryByDateRange(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.timestamp, t.symbol, p.open, p.high, p.low, p.close, p.volume
		FROM prices p
		JOIN tickers t ON p.ticker_id = t.ticker_id
		WHERE t.symbol = $1
		  AND p.timestamp >= $2
		  AND p.timestamp <= $3
		ORDER BY p.timestamp
	`, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query date range: %w", err)
	}
	defer rows.Close()

	var bars []types.Bar
	for rows.Next() {
		var b types.Bar
		if err := rows.Scan(&b.Timestamp, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		bars = append(bars, b)
	}

	return bars, rows.Err()
}

// QueryAverageDailyVolume computes, for each ticker, the mean over calendar
// dates of the per-date volume sum, ordered descending by that mean.
// Tickers with no bars are omitted.
func (s *Store) QueryAverageDailyVolume(ctx context.Context) ([]types.DailyVolume, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.symbol, AVG(daily.daily_volume) AS avg_daily_volume
		FROM (
			SELECT p.ticker_id,
			       CAST(p.timestamp AS DATE) AS trade_date,
			       SUM(p.volume) AS daily_volume
			FROM prices p
			GROUP BY p.ticker_id, CAST(p.timestamp AS DATE)
		) daily
		JOIN tickers t ON daily.ticker_id = t.ticker_id
		GROUP BY t.symbol
		ORDER BY avg_daily_volume DESC, t.symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("query average daily volume: %w", err)
	}
	defer rows.Close()

	var result []types.DailyVolume
	for rows.Next() {
		var dv types.DailyVolume
		if err := rows.Scan(&dv.Symbol, &dv.AvgDailyVolume); err != nil {
			return nil, fmt.Errorf("scan daily volume: %w", err)
		}
		result = append(result, dv)
	}

	return result, rows.Err()
}

// QueryTopTickersByReturn ranks tickers by the percentage change between the
// close at their earliest bar and the close at their latest bar, and returns
// the top n. Ties on return are broken ascending by symbol. A ticker with a
// single bar has a return of zero.
func (s *Store) QueryTopTickersByReturn(ctx context.Context, n int) ([]types.TickerReturn, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.symbol,
		       p1.close AS first_price,
		       p2.close AS last_price,
		       (p2.close - p1.close) / p1.close * 100 AS return_pct
		FROM (
			SELECT ticker_id,
			       MIN(timestamp) AS first_time,
			       MAX(timestamp) AS last_time
			FROM prices
			GROUP BY ticker_id
		) times
		JOIN tickers t ON times.ticker_id = t.ticker_id
		JOIN prices p1 ON times.ticker_id = p1.ticker_id AND times.first_time = p1.timestamp
		JOIN prices p2 ON times.ticker_id = p2.ticker_id AND times.last_time = p2.timestamp
		ORDER BY return_pct DESC, t.symbol ASC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query top tickers by return: %w", err)
	}
	defer rows.Close()

	var result []types.TickerReturn
	for rows.Next() {
		var tr types.TickerReturn
		if err := rows.Scan(&tr.Symbol, &tr.FirstPrice, &tr.LastPrice, &tr.ReturnPct); err != nil {
			return nil, fmt.Errorf("scan ticker return: %w", err)
		}
		result = append(result, tr)
	}

	return result, rows.Err()
}

// QueryDailyFirstLastPrices returns, for every (ticker, calendar date) pair
// present, the close price and timestamp of the earliest and latest bar that
// day, ordered by date then symbol.
func (s *Store) QueryDailyFirstLastPrices(ctx context.Context) ([]types.DailyFirstLast, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.symbol,
		       strftime(first_times.trade_date, '%Y-%m-%d') AS trade_date,
		       fp.close AS first_price,
		       first_times.first_time,
		       lp.close AS last_price,
		       last_times.last_time
		FROM tickers t
		JOIN (
			SELECT ticker_id,
			       CAST(timestamp AS DATE) AS trade_date,
			       MIN(timestamp) AS first_time
			FROM prices
			GROUP BY ticker_id, CAST(timestamp AS DATE)
		) first_times ON t.ticker_id = first_times.ticker_id
		JOIN prices fp
			ON first_times.ticker_id = fp.ticker_id
			AND first_times.first_time = fp.timestamp
		JOIN (
			SELECT ticker_id,
			       CAST(timestamp AS DATE) AS trade_date,
			       MAX(timestamp) AS last_time
			FROM prices
			GROUP BY ticker_id, CAST(timestamp AS DATE)
		) last_times
			ON t.ticker_id = last_times.ticker_id
			AND first_times.trade_date = last_times.trade_date
		JOIN prices lp
			ON last_times.ticker_id = lp.ticker_id
			AND last_times.last_time = lp.timestamp
		ORDER BY first_times.trade_date, t.symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("query daily first/last prices: %w", err)
	}
	defer rows.Close()

	var result []types.DailyFirstLast
	for rows.Next() {
		var fl types.DailyFirstLast
		if err := rows.Scan(&fl.Symbol, &fl.TradeDate, &fl.FirstPrice, &fl.FirstTime, &fl.LastPrice, &fl.LastTime); err != nil {
			return nil, fmt.Errorf("scan daily first/last: %w", err)
		}
		fl.FirstTime = fl.FirstTime.UTC()
		fl.LastTime = fl.LastTime.UTC()
		result = append(result, fl)
	}

	return result, rows.Err()
}

// queryContext applies the configured query timeout, if any.
func (s *Store) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.QueryTimeout)
}
