package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/lakecheck/internal/lake/laketest"
)

func testLake(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	laketest.WriteRecords(t, filepath.Join(root, "erasure-requests.json.gz"),
		laketest.M{"customer-id": "c1", "email": "c1@example.com"},
		laketest.M{"email": "c9@example.com"},
	)

	dir := laketest.PartitionDir(root, "2024-01-01", "00")
	laketest.WriteRecords(t, filepath.Join(dir, "products.json.gz"), laketest.ValidProduct("A", "5.0"))
	laketest.WriteRecords(t, filepath.Join(dir, "customers.json.gz"), laketest.M{"id": "c1"})
	laketest.WriteRecords(t, filepath.Join(dir, "transactions.json.gz"), laketest.Transaction("t1", "c1", 5.0, "A"))

	dir = laketest.PartitionDir(root, "2024-01-01", "01")
	laketest.WriteRecords(t, filepath.Join(dir, "customers.json.gz"), laketest.M{"id": "c2"})
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCmd_FileSink(t *testing.T) {
	t.Chdir(t.TempDir())
	root := testLake(t)
	out := filepath.Join(t.TempDir(), "processed_data.json")
	metricsFile := filepath.Join(t.TempDir(), "lakecheck.prom")

	_, err := execute(t, "run", "--root", root, "--output", out, "--workers", "2", "--metrics-file", metricsFile)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"customer_ids":["c1","c2"],"product_skus":["A"]}`, string(data))

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `lakecheck_partitions_total{status="processed"} 2`)
}

func TestRunCmd_EnvAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	root := testLake(t)
	envOut := filepath.Join(t.TempDir(), "env.json")
	t.Setenv("LAKECHECK_ROOT", root)
	t.Setenv("LAKECHECK_OUTPUT", envOut)

	_, err := execute(t, "run")
	require.NoError(t, err)
	assert.FileExists(t, envOut)

	flagOut := filepath.Join(t.TempDir(), "flag.json")
	_, err = execute(t, "run", "-o", flagOut)
	require.NoError(t, err)
	assert.FileExists(t, flagOut)
}

func TestRunCmd_DryRun(t *testing.T) {
	t.Chdir(t.TempDir())
	out := filepath.Join(t.TempDir(), "out.json")

	_, err := execute(t, "run", "--root", testLake(t), "--output", out, "--dry-run")
	require.NoError(t, err)
	assert.NoFileExists(t, out)
}

func TestRunCmd_SQLiteSinkWithCheckpoint(t *testing.T) {
	t.Chdir(t.TempDir())
	dsn := filepath.Join(t.TempDir(), "reports.db")

	_, err := execute(t, "run", "--root", testLake(t), "--sink", "sql",
		"--checkpoint-dir", filepath.Join(t.TempDir(), "ckpt"))
	require.Error(t, err, "sql sink needs a dsn")

	t.Setenv("LAKECHECK_SQL_DSN", dsn)
	_, err = execute(t, "run", "--root", testLake(t), "--sink", "sql",
		"--checkpoint-dir", filepath.Join(t.TempDir(), "ckpt"))
	require.NoError(t, err)
	assert.FileExists(t, dsn)
}

func TestRunCmd_InvalidWorkers(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "run", "--root", testLake(t), "--workers", "0")
	assert.ErrorContains(t, err, "workers")
}

func TestRunCmd_FatalParse(t *testing.T) {
	t.Chdir(t.TempDir())
	root := testLake(t)
	laketest.WriteLines(t, filepath.Join(root, "erasure-requests.json.gz"), `{"email":`)
	out := filepath.Join(t.TempDir(), "out.json")

	_, err := execute(t, "run", "--root", root, "--output", out)
	require.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestPartitionsCmd(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "partitions", "--root", testLake(t))
	require.NoError(t, err)

	assert.Contains(t, out, "PARTITION")
	assert.Regexp(t, `date=2024-01-01/hour=00\s+yes\s+yes\s+yes`, out)
	assert.Regexp(t, `date=2024-01-01/hour=01\s+-\s+yes\s+-`, out)
	assert.Contains(t, out, "2 partitions")
}

func TestErasureCmd(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "erasure", "--root", testLake(t))
	require.NoError(t, err)

	assert.Contains(t, out, "3 erasure keys")
	assert.Contains(t, out, "email: 2")
	assert.Contains(t, out, "id: 1")
}

func TestErasureCmd_CustomLayout(t *testing.T) {
	t.Chdir(t.TempDir())
	root := t.TempDir()
	laketest.WriteRecords(t, filepath.Join(root, "forget-me.json.gz"), laketest.M{"customer-id": "c1"})
	layoutPath := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(layoutPath, []byte("erasureFile: forget-me.json.gz\n"), 0o644))

	out, err := execute(t, "erasure", "--root", root, "--layout", layoutPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 erasure keys")
}
