package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/database"
)

func setupStore(t *testing.T) *database.Store {
	t.Helper()

	store, err := database.Open(database.DefaultConfig(filepath.Join(t.TempDir(), "test.db")), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, database.NewProvisioner(store, "../../migrations", zap.NewNop()).Provision(context.Background()))

	return store
}

func writeDataDir(t *testing.T, clients, invoices, lineItems string) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"Clients.csv":          clients,
		"Invoices.csv":         invoices,
		"InvoiceLineItems.csv": lineItems,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	return dir
}

const (
	clientsCSV = "client_id,client_name,industry,country\n" +
		"C001,Acme Corp,Manufacturing,US\n" +
		"C002,Borealis GmbH,Logistics,DE\n"

	invoicesCSV = "invoice_id,client_id,invoice_date,due_date,status,currency,fx_rate_to_usd\n" +
		"I1001,C001,2024-03-02,2024-04-01,Paid,USD,1.0\n" +
		"I1002,C002,2024-03-15,2024-04-14,Overdue,EUR,1.08\n"

	lineItemsCSV = "line_id,invoice_id,service_name,quantity,unit_price,tax_rate\n" +
		"L1,I1001,Consulting,10,150.0,0.2\n" +
		"L2,I1001,Support,5,80.0,0.2\n" +
		"L3,I1002,Consulting,3,150.0,0.19\n"
)

func TestLoader_LoadAll(t *testing.T) {
	store := setupStore(t)
	dir := writeDataDir(t, clientsCSV, invoicesCSV, lineItemsCSV)

	loader := NewLoader(store, dir, zap.NewNop())
	require.NoError(t, loader.LoadAll(context.Background()))

	counts := map[string]int{"clients": 2, "invoices": 2, "invoice_line_items": 3}
	for table, want := range counts {
		result, err := store.Execute(context.Background(), "SELECT * FROM "+table)
		require.NoError(t, err)
		assert.Equal(t, want, result.RowCount, "table %s", table)
	}

	// Numeric cells get numeric affinity despite arriving as CSV strings.
	result, err := store.Execute(context.Background(),
		"SELECT quantity * unit_price * (1 + tax_rate) AS total FROM invoice_line_items WHERE line_id = 'L1'")
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount)
	assert.InDelta(t, 1800.0, result.Rows[0]["total"], 0.001)
}

func TestLoader_LoadAll_ReplacesContents(t *testing.T) {
	store := setupStore(t)
	dir := writeDataDir(t, clientsCSV, invoicesCSV, lineItemsCSV)
	loader := NewLoader(store, dir, zap.NewNop())

	require.NoError(t, loader.LoadAll(context.Background()))
	require.NoError(t, loader.LoadAll(context.Background()))

	result, err := store.Execute(context.Background(), "SELECT * FROM clients")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount, "reload must replace, not append")
}

func TestLoader_LoadAll_MissingFile(t *testing.T) {
	store := setupStore(t)
	dir := writeDataDir(t, clientsCSV, invoicesCSV, lineItemsCSV)
	require.NoError(t, os.Remove(filepath.Join(dir, "Invoices.csv")))

	loader := NewLoader(store, dir, zap.NewNop())
	require.Error(t, loader.LoadAll(context.Background()))

	// The failed load must not leave a partially replaced store.
	result, err := store.Execute(context.Background(), "SELECT * FROM clients")
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
}

func TestLoader_EmptyCellsBecomeNull(t *testing.T) {
	store := setupStore(t)
	clients := "client_id,client_name,industry,country\nC001,Acme Corp,,US\n"
	dir := writeDataDir(t, clients, invoicesCSV, lineItemsCSV)

	loader := NewLoader(store, dir, zap.NewNop())
	require.NoError(t, loader.LoadAll(context.Background()))

	result, err := store.Execute(context.Background(),
		"SELECT * FROM clients WHERE industry IS NULL")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
}
