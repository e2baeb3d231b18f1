package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still printing a readable message.
var (
	// ErrNoRegistry is returned when the registry path is empty.
	ErrNoRegistry = errors.New("no registry specified: provide a registry path or use --file")

	// ErrInvalidByteOrder is returned when the byte order is neither
	// "little" nor "big".
	ErrInvalidByteOrder = errors.New(`invalid byte order: must be "little" or "big"`)

	// ErrInvalidLengthLimit is returned when the length limit is not positive.
	ErrInvalidLengthLimit = errors.New("invalid length limit: must be positive")

	// ErrInvalidBucketCap is returned when the histogram bucket cap is not positive.
	// A cap of zero would render an empty histogram.
	ErrInvalidBucketCap = errors.New("invalid bucket count: must be positive")

	// ErrInvalidAnomalyLimit is returned when the anomaly row limit is negative.
	// Zero is allowed and shows only the anomaly count.
	ErrInvalidAnomalyLimit = errors.New("invalid anomaly limit: must be non-negative")

	// ErrInvalidSampleWidth is returned when the token sample width is not positive.
	ErrInvalidSampleWidth = errors.New("invalid sample width: must be positive")

	// ErrInvalidConcurrency is returned when the corpus scan concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
