package update

import (
	"strconv"
	"strings"
	"time"
)

// Policy governs how often a cached artifact or metadata file is allowed to
// go stale before a remote update check is required.
type Policy struct {
	kind     policyKind
	interval time.Duration
}

type policyKind int

const (
	policyNever policyKind = iota
	policyAlways
	policyDaily
	policyInterval
)

// Never means a cached file is never re-checked once present.
var Never = Policy{kind: policyNever}

// Always means every resolution re-checks, regardless of cache age.
var Always = Policy{kind: policyAlways}

// Daily means a check is required once per calendar day (local time).
var Daily = Policy{kind: policyDaily}

// IntervalPolicy requires a check once the cached file is older than d.
func IntervalPolicy(d time.Duration) Policy {
	if d <= 0 {
		return Never
	}
	return Policy{kind: policyInterval, interval: d}
}

// ParsePolicy decodes a repository update-policy string. Recognized forms
// are "never", "always", "daily", and "interval:<minutes>". Any
// unrecognized policy string, including an empty one or a malformed
// interval, is treated as Never.
func ParsePolicy(s string) Policy {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "never":
		return Never
	case s == "always":
		return Always
	case s == "daily":
		return Daily
	case strings.HasPrefix(s, "interval"):
		minutesStr := strings.TrimPrefix(s, "interval")
		minutesStr = strings.TrimPrefix(minutesStr, ":")
		minutes, err := strconv.Atoi(strings.TrimSpace(minutesStr))
		if err != nil || minutes <= 0 {
			return Never
		}
		return IntervalPolicy(time.Duration(minutes) * time.Minute)
	default:
		return Never
	}
}

// requiresCheck reports whether, given the last-checked time lastUpdated as
// observed at "now", this policy demands a fresh remote check.
func (p Policy) requiresCheck(now, lastUpdated time.Time) bool {
	switch p.kind {
	case policyNever:
		return false
	case policyAlways:
		return true
	case policyDaily:
		y1, m1, d1 := lastUpdated.Date()
		y2, m2, d2 := now.Date()
		return y1 != y2 || m1 != m2 || d1 != d2
	case policyInterval:
		return now.Sub(lastUpdated) >= p.interval
	default:
		return true
	}
}

func (p Policy) String() string {
	switch p.kind {
	case policyNever:
		return "never"
	case policyAlways:
		return "always"
	case policyDaily:
		return "daily"
	case policyInterval:
		return "interval:" + strconv.Itoa(int(p.interval/time.Minute))
	default:
		return "daily"
	}
}
