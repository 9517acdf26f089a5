package indexer

import (
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLock_LockThenUnlock_Succeeds(t *testing.T) {
	dir := t.TempDir()
	l := newWriteLock(dir)
	require.NoError(t, l.Lock())
	assert.NoError(t, l.Unlock())
}

func TestNewWriteLock_CreatesParentDirectoryOnLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "ctx")
	l := newWriteLock(dir)
	require.NoError(t, l.Lock())
	defer l.Unlock()
	assert.FileExists(t, filepath.Join(dir, ".write.lock"))
}

func TestWriteLock_BlocksConcurrentHolder(t *testing.T) {
	dir := t.TempDir()
	l := newWriteLock(dir)
	require.NoError(t, l.Lock())
	defer l.Unlock()

	other := flock.New(filepath.Join(dir, ".write.lock"))
	locked, err := other.TryLock()
	require.NoError(t, err)
	assert.False(t, locked, "a second holder must not acquire the lock while the first holds it")
}

func TestWriteLock_ReleasedAfterUnlockAllowsNewHolder(t *testing.T) {
	dir := t.TempDir()
	l := newWriteLock(dir)
	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())

	other := flock.New(filepath.Join(dir, ".write.lock"))
	locked, err := other.TryLock()
	require.NoError(t, err)
	assert.True(t, locked)
	other.Unlock()
}
