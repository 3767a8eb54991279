package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonEmpty(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestProfiler_AllProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}

	// Given every profile requested
	require.True(t, opts.Enabled())
	p, err := Start(opts)
	require.NoError(t, err)

	// When some work runs and the profiler stops
	sum := 0
	for i := 0; i < 1000000; i++ {
		sum += i
	}
	_ = sum
	require.NoError(t, p.Stop())

	// Then every file has content
	nonEmpty(t, opts.CPU)
	nonEmpty(t, opts.Heap)
	nonEmpty(t, opts.Trace)
}

func TestProfiler_NothingRequested(t *testing.T) {
	assert.False(t, Options{}.Enabled())

	p, err := Start(Options{})
	require.NoError(t, err)
	assert.NoError(t, p.Stop())

	var nilProfiler *Profiler
	assert.NoError(t, nilProfiler.Stop())
}

func TestProfiler_BadPath(t *testing.T) {
	_, err := Start(Options{CPU: filepath.Join(t.TempDir(), "missing", "cpu.prof")})
	assert.Error(t, err)
}

func TestWriteHeap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.prof")
	require.NoError(t, WriteHeap(path))
	nonEmpty(t, path)
}
