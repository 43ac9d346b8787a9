package relational

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xtxerr/tickbench/internal/storage/types"
)

// InsertTickers bulk-inserts ticker rows in one transaction. A symbol
// collision, whether inside the batch or against already-stored rows,
// returns types.ErrDuplicateSymbol and commits nothing.
func (s *Store) InsertTickers(ctx context.Context, tickers []types.Ticker) error {
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		if seen[t.Symbol] {
			return fmt.Errorf("symbol %q: %w", t.Symbol, types.ErrDuplicateSymbol)
		}
		seen[t.Symbol] = true
	}

	err := s.TransactionContext(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tickers (ticker_id, symbol, name, exchange)
			VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return fmt.Errorf("prepare ticker insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range tickers {
			if _, err := stmt.ExecContext(ctx, t.ID, t.Symbol, t.Name, t.Exchange); err != nil {
				if isConstraintError(err) {
					return fmt.Errorf("symbol %q: %w", t.Symbol, types.ErrDuplicateSymbol)
				}
				return fmt.Errorf("insert ticker %s: %w", t.Symbol, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("tickers inserted", "count", len(tickers))
	return nil
}

// InsertBars bulk-inserts price bars, resolving each bar's symbol to a
// ticker_id through idx. The whole batch is one atomic unit: an unknown
// symbol (types.ErrUnknownTicker) or a uniqueness/foreign-key breach
// (types.ErrConstraintViolation) rolls back every row.
func (s *Store) InsertBars(ctx context.Context, bars []types.Bar, idx types.TickerIndex) error {
	err := s.TransactionContext(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO prices (timestamp, ticker_id, open, high, low, close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`)
		if err != nil {
			return fmt.Errorf("prepare bar insert: %w", err)
		}
		defer stmt.Close()

		for i := range bars {
			b := &bars[i]

			tickerID, ok := idx[b.Symbol]
			if !ok {
				return types.NewUnknownTicker(b.Symbol)
			}

			_, err := stmt.ExecContext(ctx,
				b.Timestamp, tickerID,
				b.Open, b.High, b.Low, b.Close, b.Volume,
			)
			if err != nil {
				if isConstraintError(err) {
					return fmt.Errorf("bar %s: %w", b.Key(), types.ErrConstraintViolation)
				}
				return fmt.Errorf("insert bar %s: %w", b.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("bars inserted", "count", len(bars))
	return nil
}
