package model

import "fmt"

// Category is the kind of anomaly assigned to a token.
// A token carries at most one category.
type Category int

const (
	// CategoryLengthExceeded flags tokens longer than the length limit.
	// The tokenizer force-splits anything over 32 characters, so longer
	// tokens point at a bypassed guard.
	CategoryLengthExceeded Category = iota

	// CategoryControlChar flags tokens containing control characters other
	// than newline, tab and carriage return.
	CategoryControlChar

	// CategoryBinaryArtifact flags tokens whose bytes are not valid UTF-8.
	CategoryBinaryArtifact
)

// Categories lists every category in classification order.
var Categories = []Category{
	CategoryLengthExceeded,
	CategoryControlChar,
	CategoryBinaryArtifact,
}

// String returns the label shown in reports.
func (c Category) String() string {
	switch c {
	case CategoryLengthExceeded:
		return "Length Exceeded"
	case CategoryControlChar:
		return "Control Char"
	case CategoryBinaryArtifact:
		return "Binary Artifact"
	default:
		return "Unknown"
	}
}

// Key returns the stable identifier used in JSON and in the history database.
func (c Category) Key() string {
	switch c {
	case CategoryLengthExceeded:
		return "length_exceeded"
	case CategoryControlChar:
		return "control_char"
	case CategoryBinaryArtifact:
		return "binary_artifact"
	default:
		return "unknown"
	}
}

// MarshalText encodes the category as its key.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.Key()), nil
}

// UnmarshalText decodes a category key.
func (c *Category) UnmarshalText(text []byte) error {
	for _, cat := range Categories {
		if cat.Key() == string(text) {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown anomaly category %q", string(text))
}

// CategoryInfo describes what a category means for the vocabulary and what
// to do about it.
type CategoryInfo struct {
	Impact         string
	Recommendation string
}

// categoryInfoMapping holds the description of every category.
var categoryInfoMapping = map[Category]CategoryInfo{
	CategoryLengthExceeded: {
		Impact:         "The token is longer than the tokenizer's split guard allows. Long tokens are usually unsplit macro bodies or string literals.",
		Recommendation: "Check the length guard in the tokenizer and re-run it on the affected sources.",
	},
	CategoryControlChar: {
		Impact:         "The token contains non-printable control characters, which usually means binary data leaked into the text stream.",
		Recommendation: "Exclude generated or binary files from the corpus and rebuild the registry.",
	},
	CategoryBinaryArtifact: {
		Impact:         "The token bytes are not valid UTF-8 and cannot be shown as text.",
		Recommendation: "Check the corpus encoding. Non-UTF-8 sources should be converted before tokenizing.",
	},
}

// GetCategoryInfo returns the description of a category.
func GetCategoryInfo(c Category) CategoryInfo {
	if info, ok := categoryInfoMapping[c]; ok {
		return info
	}
	return CategoryInfo{
		Impact:         "Unknown anomaly category. Review manually.",
		Recommendation: "Inspect the token bytes directly.",
	}
}
