//go:build unix

package watcher

import (
	"fmt"
	"os"
	"syscall"
)

// platformLock takes an exclusive non-blocking flock on the open file.
func platformLock(f *os.File) error {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if err == syscall.EWOULDBLOCK {
			return ErrLockHeld
		}
		return fmt.Errorf("acquire lock: %w", err)
	}
	return nil
}

func platformUnlock(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
