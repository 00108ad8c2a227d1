package update

import "sync"

// sessionState is the per-key dedup outcome cached for the lifetime of a
// Manager (conceptually "one session" in the sense the sidecar file
// represents "one day" or "one policy window").
type sessionState struct {
	checked bool
	result  Result
}

// sessionMode controls whether the per-key dedup cache is consulted at all.
type sessionMode int

const (
	// sessionEnabled is the default: once a key is checked in this
	// session, subsequent requests for it reuse the cached Result instead
	// of re-evaluating policy or touching the sidecar.
	sessionEnabled sessionMode = iota

	// sessionDisabled turns off the dedup cache: every request re-runs
	// full policy evaluation, though the sidecar file itself is still
	// consulted and updated.
	sessionDisabled

	// sessionBypass skips dedup AND forces RequiredCheck true
	// unconditionally, ignoring policy and sidecar state entirely. This is
	// the "force a refresh" escape hatch.
	sessionBypass
)

// parseSessionMode accepts both the current names and the legacy
// "true"/"false" string aliases that callers may still carry over from an
// older configuration format.
func parseSessionMode(s string) sessionMode {
	switch s {
	case "enabled", "true":
		return sessionEnabled
	case "disabled", "false":
		return sessionDisabled
	case "bypass":
		return sessionBypass
	default:
		return sessionEnabled
	}
}

// sessionCache deduplicates update checks for the lifetime of a Manager.
type sessionCache struct {
	mu    sync.Mutex
	items map[Key]sessionState
}

func newSessionCache() *sessionCache {
	return &sessionCache{items: make(map[Key]sessionState)}
}

func (c *sessionCache) lookup(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.items[key]
	if !ok || !st.checked {
		return Result{}, false
	}
	return st.result, true
}

func (c *sessionCache) store(key Key, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = sessionState{checked: true, result: result}
}
