package report

import (
	"fmt"
	"strings"

	"github.com/nao1215/nsetinspect/internal/model"
)

// Sample returns token text fit for a single table cell: newlines become
// `\n`, other control characters `\xNN`, and the result is cut to width
// characters.
func Sample(text string, width int) string {
	var sb strings.Builder
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteString(`\n`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, r)
		default:
			sb.WriteRune(r)
		}
	}
	return truncateRunes(sb.String(), width)
}

// IssueLabel returns the issue column text for an anomaly category.
// Length anomalies name the limit that was exceeded.
func IssueLabel(c model.Category, lengthLimit int) string {
	if c == model.CategoryLengthExceeded && lengthLimit > 0 {
		return fmt.Sprintf("Length > %d", lengthLimit)
	}
	return c.String()
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
