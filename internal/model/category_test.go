package model

import (
	"encoding/json"
	"testing"
)

// TestCategoryString tests the String method of Category.
func TestCategoryString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		category Category
		expected string
	}{
		{CategoryLengthExceeded, "Length Exceeded"},
		{CategoryControlChar, "Control Char"},
		{CategoryBinaryArtifact, "Binary Artifact"},
		{Category(999), "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.category.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.category.String(), tc.expected)
			}
		})
	}
}

// TestCategoryJSON tests that categories encode as their keys.
func TestCategoryJSON(t *testing.T) {
	t.Parallel()

	for _, c := range Categories {
		t.Run(c.Key(), func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != `"`+c.Key()+`"` {
				t.Errorf("got %s, expected %q", data, c.Key())
			}

			var decoded Category
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decoded != c {
				t.Errorf("got %v, expected %v", decoded, c)
			}
		})
	}

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		var c Category
		if err := json.Unmarshal([]byte(`"bogus"`), &c); err == nil {
			t.Error("expected error for unknown key")
		}
	})
}

// TestGetCategoryInfo tests that every category has a description.
func TestGetCategoryInfo(t *testing.T) {
	t.Parallel()

	for _, c := range Categories {
		info := GetCategoryInfo(c)
		if info.Impact == "" || info.Recommendation == "" {
			t.Errorf("category %s has no description", c)
		}
	}

	unknown := GetCategoryInfo(Category(42))
	if unknown.Impact == "" {
		t.Error("expected fallback description for unknown category")
	}
}
