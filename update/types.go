package update

import "time"

// ItemKind distinguishes a repository metadata file from an artifact file;
// the two are tracked independently in the dedup and sidecar caches even
// when they share a URL prefix.
type ItemKind int

const (
	KindMetadata ItemKind = iota
	KindArtifact
)

func (k ItemKind) String() string {
	if k == KindArtifact {
		return "artifact"
	}
	return "metadata"
}

// Key identifies one checkable item for session dedup and sidecar lookup.
// Two requests for the same repository, URL and item, of the same kind,
// are the same session cache entry even if their local file paths differ.
// Sidecar entries are keyed by repository, URL and kind only; ItemID is
// not part of them.
type Key struct {
	RepositoryID string
	URL          string
	ItemID       string
	Kind         ItemKind
}

// Request describes a single update-check evaluation.
type Request struct {
	Key Key

	// Policy governs how often the item is re-checked once cached.
	Policy Policy

	// LocalFile is the path of the cached artifact/metadata on disk. A
	// request with no LocalFile is a precondition violation: there is
	// nothing to decide staleness against.
	LocalFile string

	// FileValid reports whether the caller has verified LocalFile's
	// contents (checksum, archive integrity, etc). A present-but-invalid
	// file is evaluated exactly like a missing one.
	FileValid bool

	// SidecarFile is the path of the ".lastUpdated"-style properties file
	// recording check history. If empty, it defaults to LocalFile's own
	// path with ".resolver-status.properties" appended.
	SidecarFile string

	// CacheNotFound, if true, allows a cached NotFound-class result to be
	// replayed while LocalFile is absent or invalid, instead of forcing a
	// fresh remote check.
	CacheNotFound bool

	// CacheTransferError, if true, allows a cached transfer error to be
	// replayed while LocalFile is absent or invalid, instead of forcing a
	// fresh remote check.
	CacheTransferError bool
}

// Result is the outcome of evaluating a Request.
type Result struct {
	// RequiredCheck reports whether the caller must perform a remote
	// update check before trusting LocalFile.
	RequiredCheck bool

	// Reason is a short, human-readable explanation, useful for logging.
	Reason string

	// Exception, if non-nil, is a cached failure from a previous check of
	// the same Key that should be replayed instead of re-attempting the
	// network operation.
	Exception error
}

// RecordSuccess must be called by the caller after a successful remote
// check (whether or not it found a new version) so the sidecar and session
// cache reflect that the item was just checked.
type RecordSuccess struct {
	Key     Key
	When    time.Time
	Sidecar string
}

// RecordFailure is the failure-path equivalent of RecordSuccess: it caches
// the error so a subsequent request whose local file is missing or invalid,
// and which sets CacheTransferError, replays it instead of retrying the
// network.
type RecordFailure struct {
	Key     Key
	When    time.Time
	Sidecar string
	Err     error
}
