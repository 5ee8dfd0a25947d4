// Package database manages the embedded SQLite store backing the engine.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/apperrors"
)

// Config contains configuration for the SQLite store.
type Config struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// BusyTimeout is how long a query waits when the database is locked.
	BusyTimeout time.Duration

	// WALMode enables Write-Ahead Logging for better read concurrency.
	WALMode bool
}

// DefaultConfig returns the default SQLite configuration.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:         path,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		BusyTimeout:  5 * time.Second,
		WALMode:      true,
	}
}

// Store wraps the SQLite connection pool.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens (creating if necessary) the SQLite database at cfg.Path and
// verifies it is reachable.
func Open(cfg *Config, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", cfg.Path, cfg.BusyTimeout.Milliseconds())
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", apperrors.ErrStoreUnavailable, cfg.Path, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", apperrors.ErrStoreUnavailable, cfg.Path, err)
	}

	logger.Info("Opened SQLite store", zap.String("path", cfg.Path), zap.Bool("wal", cfg.WALMode))

	return &Store{db: db, path: cfg.Path, logger: logger.Named("store")}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying pool for provisioning and bulk loading.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ColumnInfo describes a result column with its declared type.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds the results of a SQL query execution. Column order and
// row order are exactly as returned by the store cursor; no sorting is
// added.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	ColCount int              `json:"col_count"`
}

// TableSample holds a small sample of a table plus typed column metadata,
// used for schema introspection.
type TableSample struct {
	Columns []ColumnInfo
	Rows    []map[string]any
}

// Execute runs a query and returns its full result set. A rejection by the
// store (bad syntax, unknown column) is returned as *apperrors.ExecutionError.
func (s *Store) Execute(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewExecutionError(query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.NewExecutionError(query, err)
	}

	resultRows, err := scanRows(rows, columns)
	if err != nil {
		return nil, apperrors.NewExecutionError(query, err)
	}

	return &QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		ColCount: len(columns),
	}, nil
}

// Sample fetches up to limit rows of a known table with declared column
// types, for schema introspection.
func (s *Store) Sample(ctx context.Context, table string, limit int) (*TableSample, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: sample %s: %v", apperrors.ErrStoreUnavailable, table, err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("%w: column types for %s: %v", apperrors.ErrStoreUnavailable, table, err)
	}

	columns := make([]ColumnInfo, len(columnTypes))
	names := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = ColumnInfo{Name: ct.Name(), Type: ct.DatabaseTypeName()}
		names[i] = ct.Name()
	}

	resultRows, err := scanRows(rows, names)
	if err != nil {
		return nil, fmt.Errorf("%w: sample %s: %v", apperrors.ErrStoreUnavailable, table, err)
	}

	return &TableSample{Columns: columns, Rows: resultRows}, nil
}

// scanRows reads every row into a map keyed by column name, preserving
// cursor order in the returned slice.
func scanRows(rows *sql.Rows, columns []string) ([]map[string]any, error) {
	var result []map[string]any

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			// SQLite hands TEXT back as []byte through database/sql.
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}

	return result, rows.Err()
}
