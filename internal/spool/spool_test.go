package spool

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/workloop/pkg/logging"
)

func testLogger() *logging.Logger {
	log := logging.NewLogger(logging.FATAL, false)
	log.SetOutput(io.Discard)
	return log
}

func writeJob(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("job payload"), 0644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func TestNewRequiresCommand(t *testing.T) {
	_, err := New(t.TempDir(), nil, testLogger())
	assert.Error(t, err)
}

func TestProcessOneEmptySpool(t *testing.T) {
	p, err := New(t.TempDir(), []string{"true"}, testLogger())
	require.NoError(t, err)

	processed, err := p.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessOnePicksOldestAndMovesToDone(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir, []string{"true"}, testLogger())
	require.NoError(t, err)

	writeJob(t, dir, "newer.job", time.Minute)
	writeJob(t, dir, "older.job", time.Hour)

	processed, err := p.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.FileExists(t, filepath.Join(dir, doneDirName, "older.job"))
	assert.FileExists(t, filepath.Join(dir, "newer.job"), "newer file should still be queued")
}

func TestProcessOneQuarantinesFailedJob(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir, []string{"false"}, testLogger())
	require.NoError(t, err)

	writeJob(t, dir, "bad.job", time.Minute)

	processed, err := p.ProcessOne(context.Background())
	require.NoError(t, err, "a nonzero command exit is not unrecoverable")
	assert.True(t, processed)

	assert.FileExists(t, filepath.Join(dir, failedDirName, "bad.job"))
	assert.NoFileExists(t, filepath.Join(dir, doneDirName, "bad.job"))
}

func TestProcessOneMissingCommandIsUnrecoverable(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir, []string{"/nonexistent/workloop-test-cmd"}, testLogger())
	require.NoError(t, err)

	writeJob(t, dir, "stuck.job", time.Minute)

	processed, err := p.ProcessOne(context.Background())
	assert.Error(t, err)
	assert.False(t, processed)
	assert.FileExists(t, filepath.Join(dir, "stuck.job"), "file must stay queued on unrecoverable failure")
}

func TestProcessOneAppendsFilePath(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(t.TempDir(), "seen")

	// cp <job file> <marker>: proves the file path arrives as the last argument
	p, err := New(dir, []string{"cp", "-t", filepath.Dir(marker)}, testLogger())
	require.NoError(t, err)

	writeJob(t, dir, "seen", time.Minute)

	processed, err := p.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.FileExists(t, marker)
}

func TestProcessOneSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir, []string{"true"}, testLogger())
	require.NoError(t, err)

	// done/ and failed/ live inside the spool dir and must never be picked
	processed, err := p.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}
