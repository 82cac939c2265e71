package etl

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/lakecheck/internal/lake/laketest"
	"github.com/BartekS5/lakecheck/internal/metrics"
	"github.com/BartekS5/lakecheck/pkg/models"
)

func TestLoadErasureRequests_BothKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erasure-requests.json.gz")
	laketest.WriteRecords(t, path, laketest.M{"customer-id": "c1", "email": "e1"})

	table, err := LoadErasureRequests(path, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ErasureTable{"c1": models.ErasureTagID, "e1": models.ErasureTagEmail}, table)
}

func TestLoadErasureRequests_PartialAndEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erasure-requests.json.gz")
	laketest.WriteRecords(t, path,
		laketest.M{"customer-id": "c1"},
		laketest.M{"email": "someone@example.com"},
		laketest.M{"reason": "neither"},
		laketest.M{"customer-id": 7},
	)

	reg := metrics.NewRegistry()
	table, err := LoadErasureRequests(path, StreamOptions{Metrics: reg})
	require.NoError(t, err)
	assert.Len(t, table, 3)
	assert.Equal(t, models.ErasureTagID, table["7"])
	assert.Equal(t, map[string]int{models.ErasureTagID: 2, models.ErasureTagEmail: 1}, table.CountByTag())
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.ErasureRequests))
}

func TestLoadErasureRequests_MissingFile(t *testing.T) {
	table, err := LoadErasureRequests(filepath.Join(t.TempDir(), "erasure-requests.json.gz"), StreamOptions{})
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestLoadErasureRequests_ParseFailureIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erasure-requests.json.gz")
	laketest.WriteLines(t, path, `{"customer-id":"c1"}`, `{"email":`)

	_, err := LoadErasureRequests(path, StreamOptions{})
	assert.ErrorIs(t, err, ErrFatalParse)

	table, err := LoadErasureRequests(path, StreamOptions{RecoverParseErrors: true})
	require.NoError(t, err)
	assert.Equal(t, models.ErasureTable{"c1": models.ErasureTagID}, table)
}
