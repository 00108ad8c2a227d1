//go:build unix

package update

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// withSidecarLock holds an exclusive advisory flock on path's lock file for
// the duration of fn, guaranteeing release even if fn panics or returns an
// error. The lock is cross-process, matching the cross-process nature of
// the sidecar file itself: two resolver invocations racing on the same
// local repository must not interleave their read-modify-write cycles.
func withSidecarLock(path string, fn func() error) error {
	lockPath := path + ".lock"

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("update: open sidecar lock file %s: %w", lockPath, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("update: acquire sidecar lock %s: %w", lockPath, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return fn()
}
