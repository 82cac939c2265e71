package etl

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/lakecheck/internal/lake/laketest"
	"github.com/BartekS5/lakecheck/internal/metrics"
)

func writeProducts(t *testing.T, records ...any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json.gz")
	laketest.WriteRecords(t, path, records...)
	return path
}

func TestValidateProducts_ValidRecord(t *testing.T) {
	path := writeProducts(t, laketest.ValidProduct(1, "5.0"))

	catalog, err := ValidateProducts(path, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Processed)
	assert.Equal(t, 0, catalog.Invalid)
	assert.Equal(t, 1, catalog.SKUs.Cardinality())
	assert.True(t, catalog.SKUs.Contains(float64(1)))
	assert.True(t, decimal.RequireFromString("5").Equal(catalog.Prices[float64(1)]))
}

func TestValidateProducts_MissingFieldShortCircuits(t *testing.T) {
	// price and popularity are bad too, but the presence gate stops first
	path := writeProducts(t, laketest.M{"sku": "A", "name": "x", "price": "-1", "popularity": 0})

	catalog, err := ValidateProducts(path, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Processed)
	assert.Equal(t, 1, catalog.Invalid)
	assert.Equal(t, 0, catalog.SKUs.Cardinality())
	assert.Equal(t, map[string]int{"required_fields": 1}, catalog.InvalidByRule)
}

func TestValidateProducts_DuplicateSKU(t *testing.T) {
	path := writeProducts(t,
		laketest.ValidProduct("A", "5.0"),
		laketest.ValidProduct("A", "7.0"),
	)

	catalog, err := ValidateProducts(path, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Processed)
	assert.Equal(t, 1, catalog.Invalid)
	assert.Equal(t, 1, catalog.SKUs.Cardinality())
	assert.Equal(t, 1, catalog.InvalidByRule["unique_sku"])
	assert.True(t, decimal.RequireFromString("5").Equal(catalog.Prices["A"]), "first occurrence keeps its price")
}

func TestValidateProducts_IntegerAndFloatSKUCollide(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json.gz")
	laketest.WriteLines(t, path,
		`{"sku":1,"name":"a","price":"5.0","category":"x","popularity":0.5}`,
		`{"sku":1.0,"name":"b","price":"6.0","category":"x","popularity":0.5}`,
	)

	catalog, err := ValidateProducts(path, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.SKUs.Cardinality())
	assert.Equal(t, 1, catalog.Invalid)
}

func TestValidateProducts_ChecksAreNonExclusive(t *testing.T) {
	bad := laketest.ValidProduct("B", "0")
	bad["popularity"] = -3

	path := writeProducts(t, bad)
	catalog, err := ValidateProducts(path, StreamOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.Invalid, "price and popularity each count")
	assert.True(t, catalog.SKUs.Contains("B"), "sku is accepted regardless of price and popularity")
	assert.NotContains(t, catalog.Prices, "B")
}

func TestValidateProducts_NonNumericValues(t *testing.T) {
	p := laketest.ValidProduct("C", "abc")
	p["popularity"] = "lots"

	path := writeProducts(t, p)
	catalog, err := ValidateProducts(path, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Invalid)
	assert.Equal(t, 1, catalog.InvalidByRule["positive_price"])
	assert.Equal(t, 1, catalog.InvalidByRule["positive_popularity"])
	assert.True(t, catalog.SKUs.Contains("C"))
}

func TestValidateProducts_UnhashableSKU(t *testing.T) {
	path := writeProducts(t, laketest.ValidProduct([]any{1, 2}, "5.0"))

	catalog, err := ValidateProducts(path, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Invalid)
	assert.Equal(t, 0, catalog.SKUs.Cardinality())
}

func TestValidateProducts_ParseFailureIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json.gz")
	laketest.WriteLines(t, path, `{"sku":1,"name":"a","price":"5.0","category":"x","popularity":0.5}`, `{broken`)

	reg := metrics.NewRegistry()
	_, err := ValidateProducts(path, StreamOptions{Metrics: reg})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalParse)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ParseErrors.WithLabelValues(metrics.Products)))
}

func TestValidateProducts_ParseFailureRecovered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json.gz")
	laketest.WriteLines(t, path,
		`{"sku":1,"name":"a","price":"5.0","category":"x","popularity":0.5}`,
		`{broken`,
		`{"sku":2,"name":"b","price":"5.0","category":"x","popularity":0.5}`,
	)

	catalog, err := ValidateProducts(path, StreamOptions{RecoverParseErrors: true})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Processed, "reading stops at the bad line")
	assert.True(t, catalog.SKUs.Contains(float64(1)))
	assert.Contains(t, catalog.ParseError, "line 2")
}

func TestValidateProducts_Metrics(t *testing.T) {
	path := writeProducts(t,
		laketest.ValidProduct("A", "5.0"),
		laketest.ValidProduct("A", "5.0"),
		laketest.M{"sku": "B"},
	)

	reg := metrics.NewRegistry()
	_, err := ValidateProducts(path, StreamOptions{Metrics: reg})
	require.NoError(t, err)
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.Processed.WithLabelValues(metrics.Products)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Invalid.WithLabelValues(metrics.Products, "unique_sku")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Invalid.WithLabelValues(metrics.Products, "required_fields")))
}

func TestValidateProducts_PopularityMustBeNumber(t *testing.T) {
	quoted := laketest.ValidProduct("Q", "5.0")
	quoted["popularity"] = "0.5"

	path := writeProducts(t, quoted, laketest.ValidProduct("N", "5.0"))
	catalog, err := ValidateProducts(path, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Invalid)
	assert.Equal(t, 1, catalog.InvalidByRule["positive_popularity"])
	assert.True(t, catalog.SKUs.Contains("Q"))
}
