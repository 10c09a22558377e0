package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/logfilt/internal/config"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func baseConfig(t *testing.T, root, expression string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.SearchRoot = root
	cfg.Expression = expression
	cfg.OutputFile = filepath.Join(t.TempDir(), "out.log")
	cfg.MaxWorkers = 2
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunMatchesAndWritesOutput(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.log", "2026-01-01 10:00:00 hello world\n2026-01-01 10:00:01 goodbye\n")

	cfg := baseConfig(t, dir, "hello")
	p, err := New(cfg)
	require.NoError(t, err)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, summary.Status)
	assert.EqualValues(t, 1, summary.Snapshot.RecordsMatched)

	out, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRunFailsFastOnParseError(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(t, dir, "((")
	p, err := New(cfg)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.Error(t, err)
}

func TestRunFailsWhenOutputExistsWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.log", "2026-01-01 10:00:00 hello\n")

	cfg := baseConfig(t, dir, "hello")
	require.NoError(t, os.WriteFile(cfg.OutputFile, []byte("existing"), 0o644))
	cfg.Overwrite = false

	p, err := New(cfg)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.Error(t, err, "expected an error because output exists and overwrite=false")
}

func TestRunDryRunProducesNoOutputFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.log", "2026-01-01 10:00:00 hello\n")

	cfg := baseConfig(t, dir, "hello")
	cfg.DryRun = true
	missing := filepath.Join(t.TempDir(), "never-created.log")
	cfg.OutputFile = missing

	p, err := New(cfg)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "dry run must not create the output file")
}

func TestRunCountsNoTimestampRecordsUnderADateWindow(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.log", "no timestamp on this line at all\n")

	cfg := baseConfig(t, dir, "timestamp")
	cfg.DateFrom = "2020-01-01"
	require.NoError(t, cfg.Validate())
	p, err := New(cfg)
	require.NoError(t, err)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.Snapshot.RecordsNoTimestamp)
}

func TestRunCancellationReportsCancelledStatus(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeTestFile(t, dir, "f"+string(rune('a'+i))+".log", "2026-01-01 10:00:00 hello world\n")
	}

	cfg := baseConfig(t, dir, "hello")
	p, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, summary.Status)
}
