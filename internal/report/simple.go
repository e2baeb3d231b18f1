package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/nsetinspect/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SimpleWriter outputs the plain text report.
//
// Sections appear in a fixed order: header, statistics, length
// distribution, anomalies. An empty registry stops after the header.
type SimpleWriter struct {
	baseWriter
	layout

	// printer formats counts with thousands separators.
	printer *message.Printer
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...Option) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		layout:     defaultLayout(),
		printer:    message.NewPrinter(language.English),
	}

	for _, opt := range opts {
		opt(&w.layout)
	}

	return w
}

// Write outputs the inspection in plain text.
func (w *SimpleWriter) Write(inspection *model.Inspection) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, inspection)

	if inspection.IsEmpty() {
		sb.WriteString("Registry is empty.\n")
		return io.WriteString(w.output, sb.String())
	}

	w.writeStatistics(&sb, inspection.Analysis)
	w.writeDistribution(&sb, inspection.Analysis)
	w.writeAnomalies(&sb, inspection)

	if w.verbose {
		w.writeDetails(&sb, inspection)
	}
	if inspection.Density != nil {
		w.writeComparison(&sb, inspection.Density)
	}

	return io.WriteString(w.output, sb.String())
}

// WriteDensity outputs a corpus summary and the registry/corpus comparison.
func (w *SimpleWriter) WriteDensity(density *model.Density) (int, error) {
	var sb strings.Builder
	w.writeCorpus(&sb, density.Corpus)
	w.writeComparison(&sb, density)
	return io.WriteString(w.output, sb.String())
}

// WriteCorpus outputs a corpus summary without a registry to compare against.
func (w *SimpleWriter) WriteCorpus(corpus model.CorpusSummary) (int, error) {
	var sb strings.Builder
	w.writeCorpus(&sb, corpus)
	return io.WriteString(w.output, sb.String())
}

// writeCorpus writes the corpus size and file kind counts.
func (w *SimpleWriter) writeCorpus(sb *strings.Builder, corpus model.CorpusSummary) {
	sb.WriteString(fmt.Sprintf("[*] Scanning Corpus at: %s\n", corpus.Root))
	sb.WriteString("\n[Corpus Summary]\n")
	sb.WriteString(fmt.Sprintf("  Scan Time:    %.2fs\n", corpus.Elapsed.Seconds()))
	sb.WriteString(fmt.Sprintf("  Total Size:   %s\n", humanize.Bytes(uint64(max(corpus.TotalBytes, 0)))))
	sb.WriteString(w.printer.Sprintf("  Total Bytes:  %d\n", corpus.TotalBytes))

	sb.WriteString("\n[File Types]\n")
	sb.WriteString(w.printer.Sprintf("  .c / .cc:     %d files\n", corpus.Files["c"]))
	sb.WriteString(w.printer.Sprintf("  .h / .hpp:    %d files\n", corpus.Files["h"]))
	sb.WriteString(w.printer.Sprintf("  .cpp:         %d files\n", corpus.Files["cpp"]))
	if n := corpus.Files["other"]; n > 0 {
		sb.WriteString(w.printer.Sprintf("  other:        %d files\n", n))
	}
}

// writeHeader names the inspected file.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, inspection *model.Inspection) {
	sb.WriteString(fmt.Sprintf("[*] Inspecting NSET Registry: %s\n", inspection.RegistryPath))
}

// writeStatistics writes token count and length statistics.
func (w *SimpleWriter) writeStatistics(sb *strings.Builder, a *model.Analysis) {
	s := a.Summary
	sb.WriteString("\n[Statistics]\n")
	sb.WriteString(w.printer.Sprintf("  Total Unique Tokens: %d\n", s.Count))
	sb.WriteString(fmt.Sprintf("  Average Length:      %.2f chars\n", s.Mean))
	sb.WriteString(fmt.Sprintf("  Max Length:          %d chars\n", s.Max))
	sb.WriteString(fmt.Sprintf("  Min Length:          %d chars\n", s.Min))
}

// writeDistribution writes the length histogram.
func (w *SimpleWriter) writeDistribution(sb *strings.Builder, a *model.Analysis) {
	sb.WriteString("\n--- Token Length Distribution ---\n")
	sb.WriteString(w.chart(a).String())
}

// writeAnomalies writes the anomaly table or the clean verdict.
func (w *SimpleWriter) writeAnomalies(sb *strings.Builder, inspection *model.Inspection) {
	a := inspection.Analysis
	if !a.HasAnomalies() {
		sb.WriteString("\n[+] No obvious anomalies detected (clean vocabulary).\n")
		return
	}

	sb.WriteString(fmt.Sprintf("\n[!] Anomalies Detected (%d)\n", len(a.Anomalies)))
	sb.WriteString("    ID      | Issue           | Token Sample\n")
	sb.WriteString("    " + strings.Repeat("-", 50) + "\n")

	rows, hidden := w.visibleAnomalies(a.Anomalies)
	for _, an := range rows {
		sb.WriteString(fmt.Sprintf("    %-8d| %-16s| %s\n",
			an.ID,
			IssueLabel(an.Category, inspection.LengthLimit),
			Sample(an.Text, w.sampleWidth),
		))
	}
	if hidden > 0 {
		sb.WriteString(fmt.Sprintf("    ... %d more hidden.\n", hidden))
	}
}

// writeDetails writes registry-level facts beyond the length statistics.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, inspection *model.Inspection) {
	a := inspection.Analysis
	sb.WriteString("\n[Registry]\n")
	sb.WriteString(fmt.Sprintf("  File Size:      %s\n", humanize.Bytes(uint64(max(inspection.RegistryBytes, 0)))))
	sb.WriteString(fmt.Sprintf("  Byte Order:     %s\n", inspection.ByteOrder))
	sb.WriteString(w.printer.Sprintf("  Text Bytes:     %d\n", a.TextBytes))
	sb.WriteString(w.printer.Sprintf("  Binary Tokens:  %d\n", a.BinaryTokens))
	sb.WriteString(w.printer.Sprintf("  Duplicate IDs:  %d\n", a.DuplicateIDs))
	if inspection.End == model.EndTruncated {
		sb.WriteString(fmt.Sprintf("  End:            %s (partial record at byte %d)\n", inspection.End, inspection.TruncatedAt))
	} else {
		sb.WriteString(fmt.Sprintf("  End:            %s\n", inspection.End))
	}
}

// writeComparison writes the registry/corpus size ratio.
func (w *SimpleWriter) writeComparison(sb *strings.Builder, density *model.Density) {
	sb.WriteString("\n[Comparison]\n")
	sb.WriteString(fmt.Sprintf("  Vocab Size:   %s\n", humanize.Bytes(uint64(max(density.RegistryBytes, 0)))))
	sb.WriteString(fmt.Sprintf("  Corpus Size:  %s\n", humanize.Bytes(uint64(max(density.Corpus.TotalBytes, 0)))))
	if !density.HasRatio() {
		sb.WriteString("  Vocab/Corpus Ratio: n/a (empty corpus)\n")
		return
	}
	sb.WriteString(fmt.Sprintf("  Vocab/Corpus Ratio: %.4f%%\n", density.Ratio))
}
