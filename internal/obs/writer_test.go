package obs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter_WritesAppendToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctxd.log")
	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("line one\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("line two\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(data))
}

func TestRotatingWriter_RotatesPastMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctxd.log")
	w, err := NewRotatingWriter(path, 0, 3) // maxSizeMB*1MB == 0 bytes: rotate on every write
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	rotatedPath := path + ".1"
	_, statErr := os.Stat(rotatedPath)
	assert.NoError(t, statErr, "oversized write should have rotated the prior contents into ctxd.log.1")

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(current))
}

func TestRotatingWriter_PrunesBeyondMaxFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctxd.log")
	w, err := NewRotatingWriter(path, 0, 2)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte("entry\n"))
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(matches), 2, "rotation must not keep more than maxFiles generations")
}

func TestNewRotatingWriter_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "ctxd.log")
	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer w.Close()

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestRotatingWriter_SyncFlushesWithoutError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctxd.log")
	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("data\n"))
	require.NoError(t, err)
	assert.NoError(t, w.Sync())
}

func TestDefaultLogPath_EndsWithCtxdLog(t *testing.T) {
	assert.True(t, strings.HasSuffix(DefaultLogPath(), filepath.Join("logs", "ctxd.log")))
}
