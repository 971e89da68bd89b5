package diskprobe

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMeasuresThroughput(t *testing.T) {
	dir := t.TempDir()
	results, err := Run(&Input{
		Dir:            dir,
		FileSizesBytes: []int{64 * 1024},
		Trials:         2,
		ChunkSizeBytes: 4048,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, 64*1024, result.SizeBytes)
	require.Len(t, result.WriteMBps, 2)
	require.Len(t, result.ReadMBps, 2)
	for i := range result.WriteMBps {
		assert.Greater(t, result.WriteMBps[i], 0.0)
		assert.Greater(t, result.ReadMBps[i], 0.0)
	}
	assert.Greater(t, result.ParallelReadMBps, 0.0)

	// probe files are removed afterwards
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunMultipleSizes(t *testing.T) {
	results, err := Run(&Input{
		Dir:            t.TempDir(),
		FileSizesBytes: []int{4 * 1024, 16 * 1024},
		Trials:         1,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 4*1024, results[0].SizeBytes)
	assert.Equal(t, 16*1024, results[1].SizeBytes)
}

func TestWriteFileInChunksWritesExactSize(t *testing.T) {
	dir := t.TempDir()
	filename := dir + "/chunked.dat"

	// size not divisible by the chunk size
	_, err := writeFileInChunks(filename, 10000, 4048)
	require.NoError(t, err)

	info, err := os.Stat(filename)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), info.Size())
}

func TestClearCacheFailurePropagates(t *testing.T) {
	_, err := Run(&Input{
		Dir:               t.TempDir(),
		FileSizesBytes:    []int{4 * 1024},
		Trials:            1,
		ClearCacheCommand: "exit 1",
	})
	assert.Error(t, err)
}
