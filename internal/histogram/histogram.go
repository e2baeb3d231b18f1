// Package histogram renders a token length distribution as a bounded ASCII
// bar chart.
package histogram

import (
	"fmt"
	"strings"

	"github.com/nao1215/nsetinspect/internal/model"
)

const (
	// DefaultBucketCap is the number of distinct lengths rendered.
	DefaultBucketCap = 15

	// DefaultBarWidth is the width of a bar holding every token.
	DefaultBarWidth = 50

	// DefaultFill is the bar glyph.
	DefaultFill = '#'
)

// Bar is one rendered bucket.
type Bar struct {
	// Length is the token length of the bucket.
	Length int `json:"length"`

	// Count is the number of tokens with that length.
	Count int `json:"count"`

	// Width is the bar width in glyphs, count/total*barWidth truncated.
	Width int `json:"width"`
}

// Chart is a rendered histogram.
type Chart struct {
	// Bars holds the rendered buckets in ascending length order.
	Bars []Bar `json:"bars"`

	// Omitted is the number of distinct lengths beyond the bucket cap.
	Omitted int `json:"omitted"`

	fill rune
}

// Option configures Render.
type Option func(*renderer)

type renderer struct {
	bucketCap int
	barWidth  int
	fill      rune
}

// WithBucketCap sets how many distinct lengths are rendered.
// Values below 1 are ignored.
func WithBucketCap(n int) Option {
	return func(r *renderer) {
		if n > 0 {
			r.bucketCap = n
		}
	}
}

// WithBarWidth sets the width of a bar holding every token.
// Values below 1 are ignored.
func WithBarWidth(n int) Option {
	return func(r *renderer) {
		if n > 0 {
			r.barWidth = n
		}
	}
}

// WithFill sets the bar glyph.
func WithFill(fill rune) Option {
	return func(r *renderer) {
		r.fill = fill
	}
}

// Render builds the chart for h. total is the number of tokens the bar
// widths are relative to; it is normally h.Total().
func Render(h model.LengthHistogram, total int, opts ...Option) Chart {
	r := &renderer{
		bucketCap: DefaultBucketCap,
		barWidth:  DefaultBarWidth,
		fill:      DefaultFill,
	}
	for _, opt := range opts {
		opt(r)
	}

	chart := Chart{fill: r.fill}
	if len(h) == 0 || total <= 0 {
		return chart
	}

	lengths := h.Lengths()
	if len(lengths) > r.bucketCap {
		chart.Omitted = len(lengths) - r.bucketCap
		lengths = lengths[:r.bucketCap]
	}

	chart.Bars = make([]Bar, 0, len(lengths))
	for _, k := range lengths {
		c := h[k]
		chart.Bars = append(chart.Bars, Bar{
			Length: k,
			Count:  c,
			Width:  c * r.barWidth / total,
		})
	}
	return chart
}

// Lines returns the text rows of the chart, including the overflow line.
func (c Chart) Lines() []string {
	fill := c.fill
	if fill == 0 {
		fill = DefaultFill
	}

	lines := make([]string, 0, len(c.Bars)+1)
	for _, b := range c.Bars {
		lines = append(lines, fmt.Sprintf("%3d: %s (%d)", b.Length, strings.Repeat(string(fill), b.Width), b.Count))
	}
	if c.Omitted > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more tail buckets", c.Omitted))
	}
	return lines
}

// String returns the chart as newline-terminated rows.
func (c Chart) String() string {
	var sb strings.Builder
	for _, line := range c.Lines() {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
