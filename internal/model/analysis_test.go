package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestLengthHistogram tests histogram bookkeeping.
func TestLengthHistogram(t *testing.T) {
	t.Parallel()

	h := LengthHistogram{}
	for _, n := range []int{5, 3, 5, 12, 3, 5} {
		h.Add(n)
	}

	if diff := cmp.Diff([]int{3, 5, 12}, h.Lengths()); diff != "" {
		t.Errorf("lengths mismatch (-want +got):\n%s", diff)
	}
	if h.Total() != 6 {
		t.Errorf("expected total 6, got %d", h.Total())
	}
	if h[5] != 3 {
		t.Errorf("expected 3 tokens of length 5, got %d", h[5])
	}
}

// TestAnalysis tests the Analysis helpers.
func TestAnalysis(t *testing.T) {
	t.Parallel()

	t.Run("nil analysis is empty", func(t *testing.T) {
		t.Parallel()

		var a *Analysis
		if !a.IsEmpty() {
			t.Error("expected nil analysis to be empty")
		}
		if a.TotalTokens() != 0 {
			t.Error("expected zero tokens")
		}
		if a.HasAnomalies() {
			t.Error("expected no anomalies")
		}
	})

	t.Run("groups anomalies by category", func(t *testing.T) {
		t.Parallel()

		a := &Analysis{
			Summary: &Summary{Count: 4, Mean: 10, Min: 1, Max: 40},
			Anomalies: []Anomaly{
				{ID: 1, Text: "a", Category: CategoryControlChar},
				{ID: 2, Text: "b", Category: CategoryBinaryArtifact},
				{ID: 3, Text: "c", Category: CategoryControlChar},
			},
		}

		counts := a.CountByCategory()
		if counts[CategoryControlChar] != 2 || counts[CategoryBinaryArtifact] != 1 {
			t.Errorf("unexpected counts: %v", counts)
		}
		if counts[CategoryLengthExceeded] != 0 {
			t.Errorf("expected no length anomalies, got %d", counts[CategoryLengthExceeded])
		}

		got := a.GetAnomaliesByCategory(CategoryControlChar)
		if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
			t.Errorf("unexpected anomalies: %+v", got)
		}
		if a.TotalTokens() != 4 {
			t.Errorf("expected 4 tokens, got %d", a.TotalTokens())
		}
	})
}
