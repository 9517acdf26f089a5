package indexer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// writeLock is the advisory lock that enforces a single index writer per
// context directory.
type writeLock struct {
	path string
	fl   *flock.Flock
}

func newWriteLock(contextDir string) *writeLock {
	path := filepath.Join(contextDir, ".write.lock")
	return &writeLock{path: path, fl: flock.New(path)}
}

// Lock acquires the exclusive writer lock, blocking until held.
func (l *writeLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.fl.Lock(); err != nil {
		return fmt.Errorf("acquire index write lock: %w", err)
	}
	return nil
}

func (l *writeLock) Unlock() error {
	return l.fl.Unlock()
}
