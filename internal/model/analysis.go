package model

import (
	"slices"
)

// Anomaly is one token flagged by the classifier.
type Anomaly struct {
	// ID is the token identifier as stored in the registry.
	ID uint32 `json:"id"`

	// Text is the materialized token text. Text that is not valid UTF-8
	// appears as its binary placeholder.
	Text string `json:"text"`

	// Category is the first classification rule the token matched.
	Category Category `json:"category"`
}

// LengthHistogram maps a text length in characters to the number of tokens
// with that length.
type LengthHistogram map[int]int

// Add counts one token of the given length.
func (h LengthHistogram) Add(length int) {
	h[length]++
}

// Lengths returns the distinct lengths in ascending order.
func (h LengthHistogram) Lengths() []int {
	lengths := make([]int, 0, len(h))
	for k := range h {
		lengths = append(lengths, k)
	}
	slices.Sort(lengths)
	return lengths
}

// Total returns the number of tokens counted.
func (h LengthHistogram) Total() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

// Summary holds length statistics over all tokens of a registry.
// It is only defined for a non-empty registry.
type Summary struct {
	// Count is the number of decoded tokens.
	Count int `json:"count"`

	// Mean is the arithmetic mean token length in characters.
	Mean float64 `json:"mean"`

	// Min is the shortest token length.
	Min int `json:"min"`

	// Max is the longest token length.
	Max int `json:"max"`
}

// Analysis is the result of one aggregation pass over a registry.
type Analysis struct {
	// Summary is nil when the registry holds no tokens.
	Summary *Summary `json:"summary,omitempty"`

	// Histogram is the token length distribution.
	Histogram LengthHistogram `json:"histogram"`

	// Anomalies lists every flagged token in registry order.
	Anomalies []Anomaly `json:"anomalies"`

	// BinaryTokens is the number of tokens whose bytes are not valid UTF-8.
	BinaryTokens int `json:"binary_tokens"`

	// DuplicateIDs is the number of tokens whose id was already seen
	// earlier in the registry.
	DuplicateIDs int `json:"duplicate_ids"`

	// TextBytes is the total number of text bytes across all tokens.
	TextBytes int64 `json:"text_bytes"`
}

// IsEmpty reports whether the registry held no tokens.
func (a *Analysis) IsEmpty() bool {
	return a == nil || a.Summary == nil
}

// TotalTokens returns the number of decoded tokens.
func (a *Analysis) TotalTokens() int {
	if a.IsEmpty() {
		return 0
	}
	return a.Summary.Count
}

// HasAnomalies reports whether any token was flagged.
func (a *Analysis) HasAnomalies() bool {
	return a != nil && len(a.Anomalies) > 0
}

// CountByCategory returns the number of anomalies per category.
func (a *Analysis) CountByCategory() map[Category]int {
	counts := make(map[Category]int, len(Categories))
	if a == nil {
		return counts
	}
	for _, an := range a.Anomalies {
		counts[an.Category]++
	}
	return counts
}

// GetAnomaliesByCategory returns the anomalies of one category in registry order.
func (a *Analysis) GetAnomaliesByCategory(c Category) []Anomaly {
	var result []Anomaly
	if a == nil {
		return result
	}
	for _, an := range a.Anomalies {
		if an.Category == c {
			result = append(result, an)
		}
	}
	return result
}
