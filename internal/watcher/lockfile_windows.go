//go:build windows

package watcher

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

var (
	modkernel32      = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = modkernel32.NewProc("LockFileEx")
	procUnlockFileEx = modkernel32.NewProc("UnlockFileEx")
)

const (
	lockfileExclusiveLock   = 0x00000002
	lockfileFailImmediately = 0x00000001
)

// platformLock takes an exclusive non-blocking lock via LockFileEx.
func platformLock(f *os.File) error {
	var ol syscall.Overlapped
	r1, _, err := procLockFileEx.Call(
		uintptr(syscall.Handle(f.Fd())),
		uintptr(lockfileExclusiveLock|lockfileFailImmediately),
		0,
		1, 0,
		uintptr(unsafe.Pointer(&ol)),
	)
	if r1 == 0 {
		// ERROR_LOCK_VIOLATION: held by another process
		if err == syscall.Errno(33) {
			return ErrLockHeld
		}
		return fmt.Errorf("acquire lock: %w", err)
	}
	return nil
}

func platformUnlock(f *os.File) {
	var ol syscall.Overlapped
	procUnlockFileEx.Call(
		uintptr(syscall.Handle(f.Fd())),
		0,
		1, 0,
		uintptr(unsafe.Pointer(&ol)),
	)
}
