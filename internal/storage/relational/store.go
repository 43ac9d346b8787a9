package relational

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/tickbench/internal/logging"
	"github.com/xtxerr/tickbench/internal/storage/types"
)

// Config holds store configuration options.
type Config struct {
	// Path is the database file path. An empty path opens an in-memory
	// database, which is only useful for tests.
	Path string

	// MemoryLimit is the DuckDB memory limit (e.g. "512MB"). Empty leaves
	// the engine default.
	MemoryLimit string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// QueryTimeout is the default timeout applied to queries.
	QueryTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns: 4,
		QueryTimeout: 30 * time.Second,
	}
}

// Store is the row-oriented backend. It holds its own connection pool and
// file path; construct one per process and pass it by reference.
//
// Store is safe for concurrent readers once loaded.
type Store struct {
	db     *sql.DB
	config Config
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New opens (or creates) the database file and verifies connectivity.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.MemoryLimit != "" {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET memory_limit='%s'", cfg.MemoryLimit)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	return &Store{
		db:     db,
		config: cfg,
		log:    logging.Component("relational"),
	}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// DB returns the underlying database connection.
// Use with caution - prefer using Store methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// schemaDDL creates both tables. CREATE TABLE IF NOT EXISTS keeps the
// operation idempotent; compatibility with a pre-existing schema is checked
// separately so a mismatched layout fails instead of silently coexisting.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS tickers (
    ticker_id BIGINT PRIMARY KEY,
    symbol    VARCHAR NOT NULL UNIQUE,
    name      VARCHAR,
    exchange  VARCHAR
);

CREATE TABLE IF NOT EXISTS prices (
    timestamp TIMESTAMP NOT NULL,
    ticker_id BIGINT NOT NULL REFERENCES tickers (ticker_id),
    open      DOUBLE NOT NULL,
    high      DOUBLE NOT NULL,
    low       DOUBLE NOT NULL,
    close     DOUBLE NOT NULL,
    volume    BIGINT NOT NULL,
    UNIQUE (ticker_id, timestamp)
);
`

// expectedColumns is the column set each table must carry for an existing
// schema to be considered compatible.
var expectedColumns = map[string][]string{
	"tickers": {"ticker_id", "symbol", "name", "exchange"},
	"prices":  {"timestamp", "ticker_id", "open", "high", "low", "close", "volume"},
}

// CreateSchema idempotently creates the ticker and price tables. If one of
// the tables already exists with a different column layout it returns
// types.ErrSchemaConflict and changes nothing.
func (s *Store) CreateSchema(ctx context.Context) error {
	if err := s.checkExistingSchema(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	s.log.Info("schema ready", "path", s.config.Path)
	return nil
}

// checkExistingSchema compares any pre-existing tables against the expected
// layout.
func (s *Store) checkExistingSchema(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_name IN ('tickers', 'prices')
	`)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	defer rows.Close()

	found := make(map[string]map[string]bool)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return fmt.Errorf("scan schema row: %w", err)
		}
		if found[table] == nil {
			found[table] = make(map[string]bool)
		}
		found[table][strings.ToLower(column)] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}

	for table, columns := range found {
		expected, ok := expectedColumns[table]
		if !ok {
			continue
		}
		for _, col := range expected {
			if !columns[col] {
				return fmt.Errorf("table %s is missing column %s: %w",
					table, col, types.ErrSchemaConflict)
			}
		}
		if len(columns) != len(expected) {
			return fmt.Errorf("table %s has %d columns, want %d: %w",
				table, len(columns), len(expected), types.ErrSchemaConflict)
		}
	}

	return nil
}

// TransactionContext executes fn inside a transaction. On error the
// transaction is rolled back; on nil it is committed.
func (s *Store) TransactionContext(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DatabaseSize returns the on-disk size of the database file in bytes.
// A checkpoint is forced first so buffered data is reflected in the figure.
func (s *Store) DatabaseSize(ctx context.Context) (int64, error) {
	if s.config.Path == "" {
		return 0, nil
	}

	// Best effort; size is diagnostic.
	s.db.ExecContext(ctx, "CHECKPOINT")

	stat, err := os.Stat(s.config.Path)
	if err != nil {
		return 0, fmt.Errorf("stat database: %w", err)
	}
	return stat.Size(), nil
}

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ExecuteSQL executes a raw SQL query.
// This is useful for ad-hoc queries and debugging.
func (s *Store) ExecuteSQL(ctx context.Context, query string) ([]string, []map[string]interface{}, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	return columns, results, rows.Err()
}

// Tables lists the user tables in the main schema.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'main'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// isConstraintError reports whether a driver error is a constraint breach.
// go-duckdb surfaces these as plain errors, so the message is inspected.
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint") || strings.Contains(msg, "duplicate key")
}
