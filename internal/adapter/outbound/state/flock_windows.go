//go:build windows

package state

import (
	"os"

	"golang.org/x/sys/windows"
)

// lockExclusive blocks until f holds an exclusive lock on its first byte and
// returns the matching unlock.
func lockExclusive(f *os.File) (unlock func() error, err error) {
	h := windows.Handle(f.Fd())
	var ol windows.Overlapped
	if err := windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &ol); err != nil {
		return nil, err
	}
	return func() error {
		var ol windows.Overlapped
		return windows.UnlockFileEx(h, 0, 1, 0, &ol)
	}, nil
}

// syncDir is a no-op on Windows, where a directory handle cannot be flushed.
func syncDir(string) error {
	return nil
}
