package registry

import "errors"

var (
	// ErrRegistryNotFound is returned by Open when the registry path does not exist.
	ErrRegistryNotFound = errors.New("registry file not found")

	// ErrTruncatedRecord is returned by callers that run in strict mode and
	// want a cut-short final record to fail the inspection.
	ErrTruncatedRecord = errors.New("truncated registry record")
)
