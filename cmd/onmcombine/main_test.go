package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onmcombine/internal/config"
	"onmcombine/internal/sink"
)

// writeInputs lays out a data dir the way the default config expects it.
func writeInputs(t *testing.T, weightRows int) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"2022-05-22_full-data.csv":         "id,start_date\np1,2022-05-20\np2,2022-05-21\n",
		"2022-05-30_onm-adhoc.csv":         "id,start_time,how_are_you_feeling,symptom_last7_day_mc_2\na1,2022-05-30T01:00:00,2,\n",
		"2022-05-22_full-data_weights.csv": "id,weight_daily_national_13plus\n" + strings.Repeat("p,0.5\n", weightRows),
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func fixedNow(t *testing.T) {
	t.Helper()
	orig := nowFn
	nowFn = func() time.Time { return time.Date(2022, 5, 23, 10, 11, 12, 0, time.UTC) }
	t.Cleanup(func() { nowFn = orig })
}

func TestRoot_MergesAndPrintsPath(t *testing.T) {
	fixedNow(t)
	data := writeInputs(t, 2)
	out := t.TempDir()
	db := filepath.Join(t.TempDir(), "onm.db")

	stdout, _, err := execute(t, "--data-dir", data, "--out-dir", out, "--sqlite-dsn", db, "--table", "merged")
	require.NoError(t, err)

	want := filepath.Join(out, "2022-05-23T101112_onm-combined.csv")
	assert.Equal(t, want+"\n", stdout)

	b, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t,
		"id,start_date,start_time,how_are_you_feeling,symptom_last7_day_mc_2,weight_daily_national_13plus\n"+
			"p1,2022-05-20,NA,NA,NA,0.5\n"+
			"p2,2022-05-21,NA,NA,NA,0.5\n"+
			"a1,2022-05-30,2022-05-30T01:00:00,2,0,NA\n",
		string(b))

	conn, err := sql.Open("sqlite", db)
	require.NoError(t, err)
	defer conn.Close()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT count(*) FROM merged`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestRoot_RowCountMismatchFails(t *testing.T) {
	fixedNow(t)
	data := writeInputs(t, 1)
	out := t.TempDir()

	stdout, _, err := execute(t, "--data-dir", data, "--out-dir", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row count mismatch")
	assert.Empty(t, stdout)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRoot_ValidateOnly(t *testing.T) {
	_, stderr, err := execute(t, "--validate", "--data-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stderr, "configuration is valid")
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, stderr, err := execute(t, "--validate", "--adhoc-suffix", "")
	require.Error(t, err)
	assert.Contains(t, stderr, "input.adhoc_suffix")
}

func TestRoot_RejectsArgs(t *testing.T) {
	_, _, err := execute(t, "extra")
	require.Error(t, err)
}

func TestRoot_MirrorOpenFailureLeavesNoOutput(t *testing.T) {
	fixedNow(t)
	data := writeInputs(t, 2)
	out := t.TempDir()

	orig := openPostgresFn
	openPostgresFn = func(context.Context, config.DBConfig) (sink.Sink, error) {
		return nil, assert.AnError
	}
	t.Cleanup(func() { openPostgresFn = orig })

	_, _, err := execute(t, "--data-dir", data, "--out-dir", out, "--postgres-dsn", "postgresql://unused")
	require.ErrorIs(t, err, assert.AnError)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// failingCommit accepts every row and fails to commit.
type failingCommit struct{ aborted *bool }

func (failingCommit) WriteHeader(context.Context, []string) error { return nil }
func (failingCommit) WriteRow(context.Context, []string) error { return nil }
func (failingCommit) Commit(context.Context) error { return assert.AnError }

func (f failingCommit) Abort() error {
	*f.aborted = true
	return nil
}

func TestRoot_MirrorCommitFailureLeavesNoOutput(t *testing.T) {
	fixedNow(t)
	data := writeInputs(t, 2)
	out := t.TempDir()

	aborted := false
	orig := openSQLiteFn
	openSQLiteFn = func(context.Context, config.DBConfig) (sink.Sink, error) {
		return failingCommit{aborted: &aborted}, nil
	}
	t.Cleanup(func() { openSQLiteFn = orig })

	_, _, err := execute(t, "--data-dir", data, "--out-dir", out, "--sqlite-dsn", "unused.db")
	require.ErrorIs(t, err, assert.AnError)
	assert.True(t, aborted)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolveConfig_FileThenFlags(t *testing.T) {
	p := filepath.Join(t.TempDir(), "onm.yaml")
	require.NoError(t, os.WriteFile(p, []byte("input:\n  data_dir: /from/file\n  primary_file: p.csv\n"), 0o644))

	cmd := newRootCmd(&bytes.Buffer{})
	require.NoError(t, cmd.Flags().Set("data-dir", "/from/flag"))

	got, err := resolveConfig(cmd, flags{configPath: p, dataDir: "/from/flag"})
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", got.Input.DataDir)
	assert.Equal(t, "p.csv", got.Input.PrimaryFile)
	assert.Equal(t, "2022-05-22_full-data_weights.csv", got.Input.WeightsFile)
}

func TestResolveConfig_UnsetFlagsKeepFileValues(t *testing.T) {
	p := filepath.Join(t.TempDir(), "onm.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"output":{"dir":"/out"}}`), 0o644))

	got, err := resolveConfig(newRootCmd(&bytes.Buffer{}), flags{configPath: p})
	require.NoError(t, err)
	assert.Equal(t, "/out", got.Output.Dir)
	assert.Equal(t, "../data", got.Input.DataDir)
}
