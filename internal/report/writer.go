package report

import (
	"io"

	"github.com/nao1215/nsetinspect/internal/histogram"
	"github.com/nao1215/nsetinspect/internal/model"
)

// Default layout values.
const (
	// DefaultAnomalyLimit is the number of anomaly rows shown.
	DefaultAnomalyLimit = 20

	// DefaultSampleWidth is the number of characters of each token sample shown.
	DefaultSampleWidth = 25
)

// Writer defines the interface for report output.
// Implementations write inspection results in various formats.
type Writer interface {
	// Write outputs the inspection to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(inspection *model.Inspection) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the inspection to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(inspection *model.Inspection) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(inspection)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// layout holds the settings shared by the text and Markdown writers.
type layout struct {
	anomalyLimit int
	sampleWidth  int
	bucketCap    int
	verbose      bool
}

func defaultLayout() layout {
	return layout{
		anomalyLimit: DefaultAnomalyLimit,
		sampleWidth:  DefaultSampleWidth,
		bucketCap:    histogram.DefaultBucketCap,
	}
}

// Option configures the text and Markdown writers.
type Option func(*layout)

// WithAnomalyLimit sets the number of anomaly rows shown.
// Negative values are ignored; zero hides every row but keeps the count.
func WithAnomalyLimit(n int) Option {
	return func(l *layout) {
		if n >= 0 {
			l.anomalyLimit = n
		}
	}
}

// WithSampleWidth sets the number of characters of each token sample.
// Values below 1 are ignored.
func WithSampleWidth(n int) Option {
	return func(l *layout) {
		if n > 0 {
			l.sampleWidth = n
		}
	}
}

// WithBucketCap sets the number of distinct lengths shown in the histogram.
// Values below 1 are ignored.
func WithBucketCap(n int) Option {
	return func(l *layout) {
		if n > 0 {
			l.bucketCap = n
		}
	}
}

// WithVerbose adds registry details (end of stream, binary tokens,
// duplicate ids) to the report.
func WithVerbose(verbose bool) Option {
	return func(l *layout) {
		l.verbose = verbose
	}
}

// visibleAnomalies returns the rows to show and the number hidden.
func (l layout) visibleAnomalies(anomalies []model.Anomaly) ([]model.Anomaly, int) {
	if len(anomalies) <= l.anomalyLimit {
		return anomalies, 0
	}
	return anomalies[:l.anomalyLimit], len(anomalies) - l.anomalyLimit
}

// chart renders the length histogram of an analysis.
func (l layout) chart(a *model.Analysis) histogram.Chart {
	return histogram.Render(a.Histogram, a.TotalTokens(), histogram.WithBucketCap(l.bucketCap))
}
