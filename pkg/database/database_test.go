package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQL_SQLite(t *testing.T) {
	db, err := ConnectSQL(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer db.Close()

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestConnectSQL_UnknownDriver(t *testing.T) {
	_, err := ConnectSQL(context.Background(), "oracle", "dsn")
	assert.ErrorContains(t, err, "unsupported SQL driver")
}
