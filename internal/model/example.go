package model

import (
	"fmt"
	"strings"
)

// Span marks a labeled region of an example's text using half-open byte offsets
type Span struct {
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether the two spans share at least one byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Valid reports whether the span lies inside a text of the given length and is non-empty
func (s Span) Valid(textLen int) bool {
	return s.Start >= 0 && s.End <= textLen && s.Start < s.End
}

func (s Span) String() string {
	if s.Label == "" {
		return fmt.Sprintf("[%d,%d)", s.Start, s.End)
	}
	return fmt.Sprintf("%s[%d,%d)", s.Label, s.Start, s.End)
}

// Example is one annotated training snippet
type Example struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Text      string `json:"text" yaml:"text"`
	Positives []Span `json:"positives,omitempty" yaml:"positives,omitempty"`
	Negatives []Span `json:"negatives,omitempty" yaml:"negatives,omitempty"`
}

// PositivesFor returns the positive spans carrying the given label.
// An empty label selects every positive span.
func (e Example) PositivesFor(label string) []Span {
	if label == "" {
		return e.Positives
	}
	var out []Span
	for _, s := range e.Positives {
		if strings.EqualFold(s.Label, label) {
			out = append(out, s)
		}
	}
	return out
}

// SpanText returns the text covered by the span, or "" when out of range
func (e Example) SpanText(s Span) string {
	if !s.Valid(len(e.Text)) {
		return ""
	}
	return e.Text[s.Start:s.End]
}

// Labels returns the distinct positive labels in first-seen order
func Labels(examples []Example) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, ex := range examples {
		for _, s := range ex.Positives {
			key := strings.ToLower(s.Label)
			if s.Label == "" || seen[key] {
				continue
			}
			seen[key] = true
			labels = append(labels, s.Label)
		}
	}
	return labels
}
