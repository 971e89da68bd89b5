package hosts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHostsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slaves")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeHostsFile(t, "ec2-1.compute.internal\nec2-2.compute.internal\nec2-3.compute.internal\n")

	workers, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, workers, 3)
	assert.Equal(t, "ec2-1.compute.internal", workers[0])
	assert.Equal(t, "ec2-3.compute.internal", workers[2])
	for _, w := range workers {
		assert.NotContains(t, w, "\n")
	}
}

func TestLoadFileWithoutTrailingNewline(t *testing.T) {
	path := writeHostsFile(t, "host1\nhost2")

	workers, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"host1", "host2"}, workers)
}

func TestLoadFileCRLF(t *testing.T) {
	path := writeHostsFile(t, "host1\r\nhost2\r\n")

	workers, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"host1", "host2"}, workers)
}

func TestLoadFileEmpty(t *testing.T) {
	path := writeHostsFile(t, "")

	workers, err := LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, workers)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
