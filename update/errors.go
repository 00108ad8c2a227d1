package update

import (
	"errors"
	"fmt"
)

// ErrNoLocalFile is returned when a Request names no LocalFile: there is
// nothing to evaluate staleness against.
var ErrNoLocalFile = errors.New("update: request has no local file")

// ErrInvalidSidecar is returned when a sidecar properties file exists but
// cannot be parsed.
var ErrInvalidSidecar = errors.New("update: sidecar file is not a valid properties file")

// TransferError records a cached failure from a prior remote check,
// replayed instead of re-attempting the network operation while the local
// file is missing or invalid and the request sets CacheTransferError,
// whatever the Policy.
type TransferError struct {
	Key     Key
	Message string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("update: cached failure for %s %s (%s): %s", e.Key.Kind, e.Key.URL, e.Key.RepositoryID, e.Message)
}

// NotFoundError records that a prior remote check determined the item does
// not exist upstream. It is cached and replayed the same way TransferError
// is.
type NotFoundError struct {
	Key Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("update: %s %s not found in repository %s", e.Key.Kind, e.Key.URL, e.Key.RepositoryID)
}
