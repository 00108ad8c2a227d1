// Package update implements the update-check policy engine: given a
// cached local file, its update policy, and history recorded in a sidecar
// file, it decides whether a caller must perform a fresh remote check
// before trusting the cache.
package update

import (
	"fmt"
	"os"

	"github.com/mgdigital/resolvelock/clock"
	"github.com/mgdigital/resolvelock/logger"
	"github.com/mgdigital/resolvelock/metrics"
)

// Manager evaluates Requests against sidecar history and a per-session
// dedup cache. A Manager is safe for concurrent use.
type Manager struct {
	clock   clock.Clock
	log     logger.Logger
	metrics metrics.UpdateCheckMetrics
	session *sessionCache
	mode    sessionMode
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used to read "now" and to stamp sidecar
// records. Defaults to the system clock.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger overrides the logger. Defaults to a no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithSessionMode sets the dedup cache behavior: "enabled" (default),
// "disabled", "bypass", or either of the legacy aliases "true"/"false".
func WithSessionMode(mode string) Option {
	return func(m *Manager) { m.mode = parseSessionMode(mode) }
}

// WithMetrics overrides the metrics collector. Defaults to a no-op.
func WithMetrics(m metrics.UpdateCheckMetrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// NewManager constructs a Manager ready to evaluate Requests.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		clock:   clock.New(),
		log:     logger.NewNoOpLogger(),
		metrics: metrics.NewNoOpUpdateCheckMetrics(),
		session: newSessionCache(),
		mode:    sessionEnabled,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check evaluates req and decides whether a fresh remote check is needed.
func (m *Manager) Check(req Request) (Result, error) {
	log := m.log.WithComponent("updatecheck")
	m.metrics.IncrCheckRequested()
	start := m.clock.Now()
	defer func() { m.metrics.ObserveCheckDuration(m.clock.Now().Sub(start)) }()

	if m.mode == sessionBypass {
		return Result{RequiredCheck: true, Reason: "session state is bypass"}, nil
	}

	if m.mode == sessionEnabled {
		if cached, ok := m.session.lookup(req.Key); ok {
			log.Debugw("reusing session-cached update-check result",
				"repository", req.Key.RepositoryID, "url", req.Key.URL)
			m.metrics.IncrCheckSkipped("session-dedup")
			return cached, nil
		}
	}

	if req.LocalFile == "" {
		return Result{}, ErrNoLocalFile
	}

	result, err := m.evaluate(req)
	if err != nil {
		return Result{}, err
	}

	if result.RequiredCheck {
		m.metrics.IncrCheckRequired()
	} else {
		m.metrics.IncrCheckSkipped(metricsSkipReason(result.Reason))
	}

	if m.mode == sessionEnabled {
		m.session.store(req.Key, result)
	}
	return result, nil
}

func metricsSkipReason(reason string) string {
	switch reason {
	case "replaying cached transfer error":
		return "error-replay"
	case "replaying cached not-found result":
		return "not-found-replay"
	case "within policy window":
		return "policy-window"
	default:
		return "other"
	}
}

func (m *Manager) evaluate(req Request) (Result, error) {
	_, statErr := os.Stat(req.LocalFile)
	missing := os.IsNotExist(statErr)
	if statErr != nil && !missing {
		return Result{}, fmt.Errorf("update: stat local file %s: %w", req.LocalFile, statErr)
	}

	sidecarPath := req.SidecarFile
	if sidecarPath == "" {
		sidecarPath = defaultSidecarPath(req.LocalFile)
	}

	var result Result
	lockErr := withSidecarLock(sidecarPath, func() error {
		sf, err := loadSidecar(sidecarPath)
		if err != nil {
			return err
		}
		rec := sf.record(req.Key)
		if missing || !req.FileValid {
			result = m.decideMissingOrInvalid(req, rec)
		} else {
			result = m.decidePresent(req, rec)
		}
		return nil
	})
	if lockErr != nil {
		return Result{}, lockErr
	}
	return result, nil
}

// decideMissingOrInvalid handles a LocalFile that does not exist, or whose
// content the caller could not validate. A cached error is replayed
// unconditionally on Policy whenever the matching cache-error flag is set
// and a matching record exists; otherwise a fresh check is always required,
// regardless of Policy.
func (m *Manager) decideMissingOrInvalid(req Request, rec sidecarRecord) Result {
	if rec.notFound && req.CacheNotFound {
		return Result{
			RequiredCheck: false,
			Reason:        "replaying cached not-found result",
			Exception:     &NotFoundError{Key: req.Key},
		}
	}
	if rec.hasError && req.CacheTransferError {
		return Result{
			RequiredCheck: false,
			Reason:        "replaying cached transfer error",
			Exception:     &TransferError{Key: req.Key, Message: rec.errMessage},
		}
	}
	return Result{RequiredCheck: true, Reason: "local file missing or invalid"}
}

// decidePresent handles a LocalFile that exists and validated successfully.
// A prior cached error plays no part here; only staleness against Policy
// matters.
func (m *Manager) decidePresent(req Request, rec sidecarRecord) Result {
	now := m.clock.Now()
	if req.Policy.requiresCheck(now, rec.lastUpdated) {
		return Result{RequiredCheck: true, Reason: "policy window elapsed or no prior record"}
	}
	return Result{RequiredCheck: false, Reason: "within policy window"}
}

// RecordSuccess persists that key was just checked successfully (whether
// or not the check found a new version), clearing any previously cached
// error or not-found marker, and replaces the session dedup entry with a
// not-required result so a subsequent Check in this session reflects the
// fresh state.
func (m *Manager) RecordSuccess(rec RecordSuccess) error {
	err := withSidecarLock(rec.Sidecar, func() error {
		sf, err := loadSidecar(rec.Sidecar)
		if err != nil {
			return err
		}
		sf.setSuccess(rec.Key, rec.When)
		return sf.save()
	})
	if err != nil {
		return err
	}
	if m.mode == sessionEnabled {
		m.session.store(rec.Key, Result{RequiredCheck: false, Reason: "just checked"})
	}
	return nil
}

// RecordNotFound persists that the remote check determined key does not
// exist upstream, to be replayed while the local file is missing or invalid
// and the request sets CacheNotFound, whatever the Policy.
func (m *Manager) RecordNotFound(key Key, sidecar string) error {
	now := m.clock.Now()
	err := withSidecarLock(sidecar, func() error {
		sf, err := loadSidecar(sidecar)
		if err != nil {
			return err
		}
		sf.setNotFound(key, now)
		return sf.save()
	})
	if err != nil {
		return err
	}
	if m.mode == sessionEnabled {
		m.session.store(key, Result{
			RequiredCheck: false,
			Reason:        "replaying cached not-found result",
			Exception:     &NotFoundError{Key: key},
		})
	}
	return nil
}

// RecordFailure persists a transfer failure from the remote check, to be
// replayed instead of retrying while the local file is missing or invalid
// and the request sets CacheTransferError, whatever the Policy.
func (m *Manager) RecordFailure(rec RecordFailure) error {
	err := withSidecarLock(rec.Sidecar, func() error {
		sf, err := loadSidecar(rec.Sidecar)
		if err != nil {
			return err
		}
		sf.setError(rec.Key, rec.When, rec.Err.Error())
		return sf.save()
	})
	if err != nil {
		return err
	}
	if m.mode == sessionEnabled {
		m.session.store(rec.Key, Result{
			RequiredCheck: false,
			Reason:        "replaying cached transfer error",
			Exception:     &TransferError{Key: rec.Key, Message: rec.Err.Error()},
		})
	}
	return nil
}
