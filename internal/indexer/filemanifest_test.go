package indexer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/ctxd/internal/model"
)

func TestLoadFileManifest_NilOnFreshContextDir(t *testing.T) {
	dir := t.TempDir()
	entries, err := loadFileManifest(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestSaveFileManifest_LoadFileManifest_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	entries := map[string]model.FileManifestEntry{
		"src/a.go": {Path: "src/a.go", ContentHash: "h1", Size: 10, ModTime: time.Unix(1000, 0).UTC()},
		"src/b.go": {Path: "src/b.go", ContentHash: "h2", Size: 20, ModTime: time.Unix(2000, 0).UTC()},
	}
	require.NoError(t, saveFileManifest(dir, entries))

	loaded, err := loadFileManifest(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "h1", loaded["src/a.go"].ContentHash)
	assert.Equal(t, int64(20), loaded["src/b.go"].Size)
}

func TestSaveFileManifest_OverwritesPriorEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveFileManifest(dir, map[string]model.FileManifestEntry{
		"src/old.go": {Path: "src/old.go", ContentHash: "stale", Size: 1, ModTime: time.Unix(1, 0).UTC()},
	}))
	require.NoError(t, saveFileManifest(dir, map[string]model.FileManifestEntry{
		"src/new.go": {Path: "src/new.go", ContentHash: "fresh", Size: 2, ModTime: time.Unix(2, 0).UTC()},
	}))

	loaded, err := loadFileManifest(dir)
	require.NoError(t, err)
	_, hasOld := loaded["src/old.go"]
	assert.False(t, hasOld)
	assert.Contains(t, loaded, "src/new.go")
}

// TestSaveLoadLastStats_RoundTrip underlies the no-op incremental path (it preserves
// stats): the persisted Stats must come back byte-for-byte equal.
func TestSaveLoadLastStats_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	stats := model.Stats{
		IndexedFiles: 42,
		TotalChunks:  100,
		TotalFiles:   50,
		Incremental:  &model.IncrementalStats{Added: 1, Changed: 2, Deleted: 3, Unchanged: 44},
	}
	require.NoError(t, saveLastStats(dir, stats))

	got, ok := loadLastStats(dir)
	require.True(t, ok)
	assert.Equal(t, stats.IndexedFiles, got.IndexedFiles)
	assert.Equal(t, stats.TotalChunks, got.TotalChunks)
	assert.Equal(t, stats.TotalFiles, got.TotalFiles)
	require.NotNil(t, got.Incremental)
	assert.Equal(t, *stats.Incremental, *got.Incremental)
}

func TestLoadLastStats_FalseWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	_, ok := loadLastStats(dir)
	assert.False(t, ok)
}
