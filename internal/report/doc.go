// Package report renders an inspection for people and tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: the plain text report shown in the terminal
//   - JSONWriter: the whole inspection as JSON for tool integration
//   - MarkdownWriter: a Markdown document with tables and a mermaid chart
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output. The text and
// Markdown writers share their layout options (anomaly row limit, sample
// width, histogram buckets).
package report
