package types

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the storage backends. All errors are returned
// synchronously to the caller of the failing operation; neither store
// retries on its own.
var (
	// ErrSchemaConflict means schema creation found an incompatible
	// pre-existing schema. The caller must drop or migrate.
	ErrSchemaConflict = errors.New("incompatible existing schema")

	// ErrDuplicateSymbol means a ticker symbol collided during insert.
	ErrDuplicateSymbol = errors.New("duplicate ticker symbol")

	// ErrUnknownTicker means a bar or query referenced a symbol with no
	// corresponding ticker row or partition.
	ErrUnknownTicker = errors.New("unknown ticker")

	// ErrConstraintViolation means a uniqueness or foreign-key constraint
	// failed at insert time. The enclosing bulk insert is rolled back.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrPartitionWrite means an I/O failure while writing a partition.
	// Previously written partitions in the batch are left intact.
	ErrPartitionWrite = errors.New("partition write failed")

	// ErrInvalidColumn means a rolling statistic referenced a column that
	// does not exist in the bar schema.
	ErrInvalidColumn = errors.New("invalid column")

	// ErrInvalidWindow means a rolling window size too small for the
	// requested statistic.
	ErrInvalidWindow = errors.New("invalid window size")
)

// IsInsertError reports whether err aborts a bulk insert.
func IsInsertError(err error) bool {
	return errors.Is(err, ErrDuplicateSymbol) ||
		errors.Is(err, ErrUnknownTicker) ||
		errors.Is(err, ErrConstraintViolation)
}

// NewUnknownTicker wraps ErrUnknownTicker with the offending symbol.
func NewUnknownTicker(symbol string) error {
	return fmt.Errorf("symbol %q: %w", symbol, ErrUnknownTicker)
}
