package analysis

import (
	"bytes"

	"github.com/nao1215/nsetinspect/internal/model"
	"github.com/nao1215/nsetinspect/internal/registry"
)

// DefaultLengthLimit is the longest token length that is not flagged.
// It matches the tokenizer's force-split guard.
const DefaultLengthLimit = 32

// escapeMarker is the two-character sequence matched by MatchEscapes.
var escapeMarker = []byte(`\x`)

// Classifier assigns at most one anomaly category to a token.
type Classifier struct {
	// LengthLimit is the longest accepted token length in characters.
	LengthLimit int

	// MatchEscapes also flags valid text containing a literal `\x` as a
	// binary artifact. Legitimate C string literals match as well.
	MatchEscapes bool
}

// DefaultClassifier returns a Classifier with the default length limit and
// escape matching disabled.
func DefaultClassifier() Classifier {
	return Classifier{LengthLimit: DefaultLengthLimit}
}

// Classify returns the category of tok and true, or false if the token is
// not anomalous. Rules, first match wins:
//  1. length of the materialized text above LengthLimit
//  2. a control character other than \n, \t and \r
//  3. bytes that are not valid UTF-8, or a literal `\x` when MatchEscapes
//     is set
//
// MatchEscapes is off in DefaultClassifier, so valid text such as `a\x41`
// is not flagged unless the caller opts in.
func (c Classifier) Classify(tok registry.Token) (model.Category, bool) {
	if tok.Text.Len() > c.LengthLimit {
		return model.CategoryLengthExceeded, true
	}

	if !tok.Text.Binary && hasControlChar(tok.Text.Raw) {
		return model.CategoryControlChar, true
	}

	if tok.Text.Binary {
		return model.CategoryBinaryArtifact, true
	}
	if c.MatchEscapes && bytes.Contains(tok.Text.Raw, escapeMarker) {
		return model.CategoryBinaryArtifact, true
	}

	return 0, false
}

// hasControlChar reports whether text contains a byte below 0x20 other than
// newline, tab or carriage return. In valid UTF-8 such bytes only occur as
// single-byte runes, so a byte scan is exact.
func hasControlChar(text []byte) bool {
	for _, b := range text {
		if b < 0x20 && b != '\n' && b != '\t' && b != '\r' {
			return true
		}
	}
	return false
}
