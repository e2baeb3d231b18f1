package analysis

import (
	"bytes"
	"encoding/binary"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/nsetinspect/internal/model"
	"github.com/nao1215/nsetinspect/internal/registry"
)

// record is one registry entry used to build test streams.
type record struct {
	id   uint32
	text []byte
}

// encode builds a little-endian registry stream.
func encode(records ...record) []byte {
	var buf []byte
	for _, r := range records {
		buf = binary.LittleEndian.AppendUint32(buf, r.id)
		buf = append(buf, byte(len(r.text)))
		buf = append(buf, r.text...)
	}
	return buf
}

// analyzeBytes decodes data and aggregates it with the default classifier.
func analyzeBytes(data []byte) *model.Analysis {
	dec := registry.NewDecoder(bytes.NewReader(data))
	return Analyze(dec.All(), DefaultClassifier())
}

// TestAnalyze_Scenarios tests the end-to-end aggregation scenarios.
func TestAnalyze_Scenarios(t *testing.T) {
	t.Parallel()

	t.Run("empty registry", func(t *testing.T) {
		t.Parallel()

		a := analyzeBytes(nil)
		if !a.IsEmpty() {
			t.Fatal("expected empty analysis")
		}
		if a.Summary != nil {
			t.Errorf("expected no summary, got %+v", a.Summary)
		}
		if len(a.Histogram) != 0 {
			t.Errorf("expected empty histogram, got %v", a.Histogram)
		}
		if a.HasAnomalies() {
			t.Errorf("expected no anomalies, got %v", a.Anomalies)
		}
	})

	t.Run("single token", func(t *testing.T) {
		t.Parallel()

		a := analyzeBytes(encode(record{id: 1, text: []byte("cat")}))

		want := &model.Summary{Count: 1, Mean: 3, Min: 3, Max: 3}
		if diff := cmp.Diff(want, a.Summary); diff != "" {
			t.Errorf("summary mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(model.LengthHistogram{3: 1}, a.Histogram); diff != "" {
			t.Errorf("histogram mismatch (-want +got):\n%s", diff)
		}
		if a.HasAnomalies() {
			t.Errorf("expected no anomalies, got %v", a.Anomalies)
		}
	})

	t.Run("one anomaly of each category in input order", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("x", 40)
		a := analyzeBytes(encode(
			record{id: 10, text: []byte(long)},
			record{id: 11, text: []byte("ok")},
			record{id: 12, text: []byte("be\x07ll")},
			record{id: 13, text: []byte{0xfe, 0xed}},
		))

		want := []model.Anomaly{
			{ID: 10, Text: long, Category: model.CategoryLengthExceeded},
			{ID: 12, Text: "be\x07ll", Category: model.CategoryControlChar},
			{ID: 13, Text: "<BINARY_DATA_feed>", Category: model.CategoryBinaryArtifact},
		}
		if diff := cmp.Diff(want, a.Anomalies); diff != "" {
			t.Errorf("anomalies mismatch (-want +got):\n%s", diff)
		}
		if a.BinaryTokens != 1 {
			t.Errorf("expected 1 binary token, got %d", a.BinaryTokens)
		}
	})
}

// TestAnalyze_Properties tests invariants that hold for any registry.
func TestAnalyze_Properties(t *testing.T) {
	t.Parallel()

	texts := [][]byte{
		[]byte("int"),
		[]byte("uint32_t"),
		[]byte(""),
		[]byte("größe"),
		[]byte(strings.Repeat("y", 70)),
		{0x80},
		[]byte("a\tb"),
	}
	var records []record
	for i, text := range texts {
		records = append(records, record{id: uint32(i), text: text})
	}

	a := analyzeBytes(encode(records...))

	if a.Histogram.Total() != a.Summary.Count {
		t.Errorf("histogram total %d != count %d", a.Histogram.Total(), a.Summary.Count)
	}

	lengths := make([]int, 0, len(texts))
	sum := 0
	for _, text := range texts {
		n := registry.NewText(text).Len()
		lengths = append(lengths, n)
		sum += n
	}
	wantMean := float64(sum) / float64(len(texts))
	if math.Abs(a.Summary.Mean-wantMean) > 1e-9 {
		t.Errorf("mean = %f, want %f", a.Summary.Mean, wantMean)
	}
	if a.Summary.Min != slices.Min(lengths) || a.Summary.Max != slices.Max(lengths) {
		t.Errorf("min/max = %d/%d, want %d/%d", a.Summary.Min, a.Summary.Max, slices.Min(lengths), slices.Max(lengths))
	}
	if float64(a.Summary.Min) > a.Summary.Mean || a.Summary.Mean > float64(a.Summary.Max) {
		t.Errorf("mean %f outside [%d, %d]", a.Summary.Mean, a.Summary.Min, a.Summary.Max)
	}

	// the umlauts count as single characters
	if a.Histogram[5] != 1 {
		t.Errorf("expected one token of length 5, got %d", a.Histogram[5])
	}

	seen := make(map[uint32]bool)
	for _, an := range a.Anomalies {
		if seen[an.ID] {
			t.Errorf("token %d flagged more than once", an.ID)
		}
		seen[an.ID] = true
	}
}

// TestAnalyze_Extras tests the supplementary counters.
func TestAnalyze_Extras(t *testing.T) {
	t.Parallel()

	a := analyzeBytes(encode(
		record{id: 1, text: []byte("for")},
		record{id: 2, text: []byte("while")},
		record{id: 1, text: []byte("for")},
		record{id: 1, text: []byte("for")},
	))

	if a.DuplicateIDs != 2 {
		t.Errorf("expected 2 duplicate ids, got %d", a.DuplicateIDs)
	}
	if a.TextBytes != 14 {
		t.Errorf("expected 14 text bytes, got %d", a.TextBytes)
	}
}

// TestAnalyze_TruncatedTail tests that a cut-short final record is ignored.
func TestAnalyze_TruncatedTail(t *testing.T) {
	t.Parallel()

	data := encode(record{id: 1, text: []byte("cat")}, record{id: 2, text: []byte("dogs")})
	a := analyzeBytes(data[:len(data)-1])

	if a.TotalTokens() != 1 {
		t.Errorf("expected 1 token, got %d", a.TotalTokens())
	}
}
