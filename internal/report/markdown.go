package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/nsetinspect/internal/model"
)

// MarkdownWriter outputs the inspection as a Markdown document.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
	layout
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...Option) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		layout:     defaultLayout(),
	}

	for _, opt := range opts {
		opt(&w.layout)
	}

	return w
}

// Write outputs the inspection in Markdown format.
func (w *MarkdownWriter) Write(inspection *model.Inspection) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, inspection)

	if inspection.IsEmpty() {
		md.Note("Registry is empty.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	w.writeStatistics(md, inspection.Analysis)
	w.writeDistribution(md, inspection.Analysis)
	w.writeAnomalies(md, inspection)
	if inspection.Density != nil {
		w.writeComparison(md, inspection.Density)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the registry property table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, inspection *model.Inspection) {
	md.H1("NSET Registry Inspection")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Registry", "`" + inspection.RegistryPath + "`"},
			{"Inspected", inspection.DateInspected.Format("2006-01-02 15:04:05 MST")},
			{"File Size", humanize.Bytes(uint64(max(inspection.RegistryBytes, 0)))},
			{"Byte Order", inspection.ByteOrder},
			{"End", w.getEndText(inspection)},
		},
	})
	md.PlainText("")
}

// getEndText describes how decoding stopped.
func (w *MarkdownWriter) getEndText(inspection *model.Inspection) string {
	switch inspection.End {
	case model.EndTruncated:
		return fmt.Sprintf("⚠️ Truncated (partial record at byte %d)", inspection.TruncatedAt)
	case model.EndError:
		return "❌ Read error"
	default:
		return "✅ Clean"
	}
}

// writeStatistics writes the token count and length statistics table.
func (w *MarkdownWriter) writeStatistics(md *markdown.Markdown, a *model.Analysis) {
	s := a.Summary
	md.H2("Statistics")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Unique Tokens", humanize.Comma(int64(s.Count))},
			{"Average Length", fmt.Sprintf("%.2f chars", s.Mean)},
			{"Max Length", strconv.Itoa(s.Max) + " chars"},
			{"Min Length", strconv.Itoa(s.Min) + " chars"},
			{"Binary Tokens", strconv.Itoa(a.BinaryTokens)},
			{"Duplicate IDs", strconv.Itoa(a.DuplicateIDs)},
		},
	})
	md.PlainText("")
}

// writeDistribution writes the length histogram as a text block.
func (w *MarkdownWriter) writeDistribution(md *markdown.Markdown, a *model.Analysis) {
	md.H2("Token Length Distribution")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightText, w.chart(a).String())
	md.PlainText("")
}

// writeAnomalies writes the category summary, pie chart and anomaly table.
func (w *MarkdownWriter) writeAnomalies(md *markdown.Markdown, inspection *model.Inspection) {
	a := inspection.Analysis
	md.H2("Anomalies")
	md.PlainText("")

	if !a.HasAnomalies() {
		md.Tip("No obvious anomalies detected (clean vocabulary).")
		md.PlainText("")
		return
	}

	md.Warningf("%d anomalies detected.", len(a.Anomalies))
	md.PlainText("")

	counts := a.CountByCategory()
	rows := make([][]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		info := model.GetCategoryInfo(c)
		rows = append(rows, []string{
			IssueLabel(c, inspection.LengthLimit),
			strconv.Itoa(counts[c]),
			info.Recommendation,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Issue", "Count", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, counts)

	visible, hidden := w.visibleAnomalies(a.Anomalies)
	tokenRows := make([][]string, len(visible))
	for i, an := range visible {
		tokenRows[i] = []string{
			strconv.FormatUint(uint64(an.ID), 10),
			IssueLabel(an.Category, inspection.LengthLimit),
			"`" + escapeCell(Sample(an.Text, w.sampleWidth)) + "`",
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Issue", "Token Sample"},
		Rows:   tokenRows,
	})
	md.PlainText("")

	if hidden > 0 {
		md.PlainTextf("... %d more hidden.", hidden)
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart of anomaly categories.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Category]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Anomaly Categories"),
		piechart.WithShowData(true),
	)

	for _, c := range model.Categories {
		if counts[c] > 0 {
			chart.LabelAndIntValue(c.String(), uint64(counts[c]))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeComparison writes the registry/corpus size comparison.
func (w *MarkdownWriter) writeComparison(md *markdown.Markdown, density *model.Density) {
	ratio := "n/a (empty corpus)"
	if density.HasRatio() {
		ratio = fmt.Sprintf("%.4f%%", density.Ratio)
	}

	md.H2("Corpus Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Corpus Root", "`" + density.Corpus.Root + "`"},
			{"Corpus Files", strconv.Itoa(density.Corpus.TotalFiles())},
			{"Corpus Size", humanize.Bytes(uint64(max(density.Corpus.TotalBytes, 0)))},
			{"Vocab Size", humanize.Bytes(uint64(max(density.RegistryBytes, 0)))},
			{"Vocab/Corpus Ratio", ratio},
		},
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [nsetinspect](https://github.com/nao1215/nsetinspect)*")
}

// escapeCell keeps token text from splitting a table row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
