// Package laketest builds lake fixtures on disk for tests.
package laketest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// WriteLines gzip-compresses lines, one per row, into path.
func WriteLines(t testing.TB, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	for _, line := range lines {
		_, err := gz.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
}

// WriteRecords encodes each record as one JSON line into a gzip file.
func WriteRecords(t testing.TB, path string, records ...any) {
	t.Helper()
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		b, err := json.Marshal(rec)
		require.NoError(t, err)
		lines = append(lines, string(b))
	}
	WriteLines(t, path, lines...)
}

// Touch creates an empty, uncompressed file.
func Touch(t testing.TB, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

// PartitionDir returns root/date=<date>/hour=<hour>.
func PartitionDir(root, date, hour string) string {
	return filepath.Join(root, "date="+date, "hour="+hour)
}

type M = map[string]any

// ValidProduct returns a product that passes every rule.
func ValidProduct(sku any, price string) M {
	return M{"sku": sku, "name": "whpVcnUvCL", "price": price, "category": "misc", "popularity": 0.5}
}

// Transaction returns a transaction for customerID buying skus.
func Transaction(id, customerID string, total any, skus ...any) M {
	products := make([]any, 0, len(skus))
	for _, s := range skus {
		products = append(products, M{"sku": s})
	}
	return M{
		"transaction_id":   id,
		"transaction_time": "2024-01-01T00:00:00Z",
		"customer_id":      customerID,
		"delivery_address": "addr",
		"purchases":        M{"products": products, "total_cost": total},
	}
}
