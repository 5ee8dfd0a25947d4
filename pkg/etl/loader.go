// Package etl loads tabular source files into the backing store. This is a
// one-time ingestion step, not part of the query pipeline.
package etl

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/database"
)

// tableFile maps a store table to the CSV file that feeds it.
type tableFile struct {
	Table string
	File  string
}

// tableFiles lists the expected source files, loaded in FK dependency order.
var tableFiles = []tableFile{
	{Table: "clients", File: "Clients.csv"},
	{Table: "invoices", File: "Invoices.csv"},
	{Table: "invoice_line_items", File: "InvoiceLineItems.csv"},
}

// Loader ingests CSV files into the store, replacing existing contents.
type Loader struct {
	store   *database.Store
	dataDir string
	logger  *zap.Logger
}

// NewLoader creates a Loader reading from dataDir.
func NewLoader(store *database.Store, dataDir string, logger *zap.Logger) *Loader {
	return &Loader{store: store, dataDir: dataDir, logger: logger.Named("etl")}
}

// LoadAll replaces the contents of every known table from its CSV file.
// All tables are loaded in a single transaction so a bad file never leaves
// the store half-replaced.
func (l *Loader) LoadAll(ctx context.Context) error {
	tx, err := l.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, tf := range tableFiles {
		path := filepath.Join(l.dataDir, tf.File)

		header, records, err := readCSV(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", tf.File, err)
		}

		// Line items reference invoices reference clients; deleting in
		// reverse insertion order is unnecessary because each table is
		// fully replaced within the same transaction.
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+tf.Table); err != nil {
			return fmt.Errorf("clear %s: %w", tf.Table, err)
		}

		if err := insertRecords(ctx, tx, tf.Table, header, records); err != nil {
			return fmt.Errorf("load %s: %w", tf.Table, err)
		}

		l.logger.Info("Loaded table",
			zap.String("table", tf.Table),
			zap.String("file", tf.File),
			zap.Int("rows", len(records)))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load transaction: %w", err)
	}

	return nil
}

// readCSV returns the header row and data records of a CSV file.
func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("file is empty")
	}

	return rows[0], rows[1:], nil
}

// insertRecords bulk-inserts CSV records through a prepared statement.
// Empty cells become NULL so the store's type affinity applies cleanly to
// numeric columns.
func insertRecords(ctx context.Context, tx *sql.Tx, table string, header []string, records [][]string) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(header)), ",")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(header, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		if len(record) != len(header) {
			return fmt.Errorf("row %d has %d fields, header has %d", i+1, len(record), len(header))
		}

		args := make([]any, len(record))
		for j, cell := range record {
			if cell == "" {
				args[j] = nil
			} else {
				args[j] = cell
			}
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	return nil
}
