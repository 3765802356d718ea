package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"salon-ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SeedsDemoData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	stdout := new(bytes.Buffer)

	err := run([]string{"-db", dbPath}, stdout, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "done")

	db, err := storage.NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.CountEmployees()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	txs, err := db.ListTransactions()
	require.NoError(t, err)
	assert.Len(t, txs, 4)

	products, err := db.ListProducts()
	require.NoError(t, err)
	assert.Len(t, products, 4)

	sales, err := db.ListSales()
	require.NoError(t, err)
	require.Len(t, sales, 1)

	// The demo sale consumed stock from the first product.
	p, err := db.GetProduct(sales[0].Items[0].ProductID)
	require.NoError(t, err)
	assert.Equal(t, 11, p.Stock)
}

func TestRun_RefusesNonEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")

	require.NoError(t, run([]string{"-db", dbPath}, new(bytes.Buffer), new(bytes.Buffer)))

	err := run([]string{"-db", dbPath}, new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to seed")
}
