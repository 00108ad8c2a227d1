//go:build !unix

package update

import "sync"

// pathLocks provides in-process mutual exclusion on platforms without the
// unix flock syscall. It only protects against concurrent goroutines within
// this process, not concurrent processes, since there is no portable
// cross-process advisory lock available here.
var pathLocks sync.Map // path -> *sync.Mutex

func withSidecarLock(path string, fn func() error) error {
	muAny, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}
