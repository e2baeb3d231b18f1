package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/nsetinspect/internal/model"
)

// JSONWriter outputs the whole inspection in JSON format.
// This format is designed for tool integration and programmatic processing.
// Unlike the text report, every anomaly is included.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is written into the wrapper when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion wraps the inspection in a JSONReport carrying the tool version.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the inspection in JSON format.
func (w *JSONWriter) Write(inspection *model.Inspection) (int, error) {
	if w.version != "" {
		return w.writeJSON(NewJSONReport(inspection, w.version))
	}
	return w.writeJSON(inspection)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps an inspection with metadata about the tool run.
type JSONReport struct {
	// Version is the nsetinspect version that generated this report.
	Version string `json:"version"`

	// Inspection is the full inspection result.
	Inspection *model.Inspection `json:"inspection"`

	// Categories counts anomalies per category key.
	Categories map[string]int `json:"categories"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(inspection *model.Inspection, version string) *JSONReport {
	counts := inspection.Analysis.CountByCategory()
	categories := make(map[string]int, len(model.Categories))
	for _, c := range model.Categories {
		categories[c.Key()] = counts[c]
	}

	return &JSONReport{
		Version:    version,
		Inspection: inspection,
		Categories: categories,
	}
}
