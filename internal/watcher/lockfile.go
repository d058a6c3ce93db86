package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLockHeld means another process is already watching this project.
var ErrLockHeld = errors.New("watch lock held by another process")

// Lock is the single-instance guard for watch mode. Only one watcher per
// project may hold it; the lock dies with the process, so a crashed watcher
// never strands a stale lock.
type Lock struct {
	path string
	file *os.File
}

// LockPath is where the watch lock for a project root lives.
func LockPath(root string) string {
	return filepath.Join(root, ".stratum", "watch.lock")
}

func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Acquire takes the lock without blocking. It returns ErrLockHeld when
// another process holds it.
func (l *Lock) Acquire() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := platformLock(f); err != nil {
		f.Close()
		return err
	}

	// pid in the file helps a human find the other watcher
	f.Truncate(0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	platformUnlock(l.file)
	err := l.file.Close()
	l.file = nil
	os.Remove(l.path)
	return err
}
