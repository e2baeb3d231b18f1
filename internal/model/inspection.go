package model

import (
	"time"

	"github.com/google/uuid"
)

// Inspection is the result of inspecting one registry file.
//
// An Inspection is filled in by the pipeline steps, then handed to a report
// writer and optionally to the history database.
type Inspection struct {
	// ID identifies the run in the history database.
	ID string `json:"id"`

	// RegistryPath is the inspected file as given by the user.
	RegistryPath string `json:"registry_path"`

	// RegistryBytes is the size of the registry file.
	RegistryBytes int64 `json:"registry_bytes"`

	// DateInspected is when the inspection started.
	DateInspected time.Time `json:"date_inspected"`

	// ByteOrder is the byte order used for token ids ("little" or "big").
	ByteOrder string `json:"byte_order"`

	// LengthLimit is the longest token length that was not flagged.
	LengthLimit int `json:"length_limit"`

	// End is how decoding stopped: "clean", "truncated" or "error".
	End string `json:"end"`

	// TruncatedAt is the byte offset of the partial final record when End
	// is "truncated".
	TruncatedAt int64 `json:"truncated_at,omitempty"`

	// Analysis holds the statistics and anomalies.
	Analysis *Analysis `json:"analysis"`

	// Density is set when the registry was compared against a corpus.
	Density *Density `json:"density,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps"`

	// Cancelled is set when the run was interrupted before all steps ran.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error records the first error of a failed step.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// End values recorded in Inspection.End.
const (
	EndClean     = "clean"
	EndTruncated = "truncated"
	EndError     = "error"
)

// NewInspection creates an Inspection for the given registry path.
func NewInspection(registryPath string) *Inspection {
	return &Inspection{
		ID:            uuid.NewString(),
		RegistryPath:  registryPath,
		DateInspected: time.Now(),
	}
}

// IsEmpty reports whether the registry held no tokens.
func (i *Inspection) IsEmpty() bool {
	return i.Analysis.IsEmpty()
}

// CorpusSummary describes the source corpus the registry was built from.
type CorpusSummary struct {
	// Root is the scanned directory.
	Root string `json:"root"`

	// TotalBytes is the summed size of all matching source files.
	TotalBytes int64 `json:"total_bytes"`

	// Files counts matching files per kind ("c", "h", "cpp", "other").
	Files map[string]int `json:"files"`

	// Elapsed is how long the scan took.
	Elapsed time.Duration `json:"elapsed"`
}

// TotalFiles returns the number of matching files.
func (c *CorpusSummary) TotalFiles() int {
	total := 0
	for _, n := range c.Files {
		total += n
	}
	return total
}

// Density compares the registry size with the corpus it was built from.
type Density struct {
	// Corpus is the scanned corpus.
	Corpus CorpusSummary `json:"corpus"`

	// RegistryBytes is the registry file size.
	RegistryBytes int64 `json:"registry_bytes"`

	// Ratio is RegistryBytes / Corpus.TotalBytes * 100. It is zero when the
	// corpus is empty; check HasRatio.
	Ratio float64 `json:"ratio"`
}

// NewDensity computes the registry/corpus ratio.
func NewDensity(corpus CorpusSummary, registryBytes int64) *Density {
	d := &Density{
		Corpus:        corpus,
		RegistryBytes: registryBytes,
	}
	if corpus.TotalBytes > 0 {
		d.Ratio = float64(registryBytes) / float64(corpus.TotalBytes) * 100
	}
	return d
}

// HasRatio reports whether the corpus was large enough to compute a ratio.
func (d *Density) HasRatio() bool {
	return d != nil && d.Corpus.TotalBytes > 0
}
