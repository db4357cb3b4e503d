package types

import "errors"

var (
	// ErrNotFound is returned for an unknown device id or profile name.
	ErrNotFound = errors.New("not found")

	// ErrPersistenceFailed wraps disk I/O and serialization failures of the JSON stores.
	ErrPersistenceFailed = errors.New("persistence failed")
)
