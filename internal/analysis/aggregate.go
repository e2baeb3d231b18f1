package analysis

import (
	"iter"

	"github.com/nao1215/nsetinspect/internal/model"
	"github.com/nao1215/nsetinspect/internal/registry"
)

// accumulator carries the running totals of one aggregation pass.
type accumulator struct {
	classifier Classifier

	count     int
	sum       int
	min       int
	max       int
	textBytes int64
	binary    int
	dupIDs    int

	seen      map[uint32]struct{}
	histogram model.LengthHistogram
	anomalies []model.Anomaly
}

// add folds one token into the totals.
func (acc *accumulator) add(tok registry.Token) {
	length := tok.Text.Len()

	if acc.count == 0 || length < acc.min {
		acc.min = length
	}
	if acc.count == 0 || length > acc.max {
		acc.max = length
	}
	acc.count++
	acc.sum += length
	acc.textBytes += int64(tok.Text.ByteLen())
	acc.histogram.Add(length)

	if tok.Text.Binary {
		acc.binary++
	}
	if _, ok := acc.seen[tok.ID]; ok {
		acc.dupIDs++
	} else {
		acc.seen[tok.ID] = struct{}{}
	}

	if cat, ok := acc.classifier.Classify(tok); ok {
		acc.anomalies = append(acc.anomalies, model.Anomaly{
			ID:       tok.ID,
			Text:     tok.Text.String(),
			Category: cat,
		})
	}
}

// result freezes the totals into an Analysis.
func (acc *accumulator) result() *model.Analysis {
	a := &model.Analysis{
		Histogram:    acc.histogram,
		Anomalies:    acc.anomalies,
		BinaryTokens: acc.binary,
		DuplicateIDs: acc.dupIDs,
		TextBytes:    acc.textBytes,
	}
	if acc.anomalies == nil {
		a.Anomalies = []model.Anomaly{}
	}
	if acc.count > 0 {
		a.Summary = &model.Summary{
			Count: acc.count,
			Mean:  float64(acc.sum) / float64(acc.count),
			Min:   acc.min,
			Max:   acc.max,
		}
	}
	return a
}

// Analyze consumes tokens once and returns their statistics and anomalies.
// An empty sequence yields an Analysis with a nil Summary.
func Analyze(tokens iter.Seq[registry.Token], c Classifier) *model.Analysis {
	acc := &accumulator{
		classifier: c,
		seen:       make(map[uint32]struct{}),
		histogram:  model.LengthHistogram{},
	}
	for tok := range tokens {
		acc.add(tok)
	}
	return acc.result()
}
