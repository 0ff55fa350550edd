package model

import (
	"sort"
	"time"
)

// EngineKind selects the matching engine for a whole induction run or extraction session
type EngineKind string

const (
	EngineBacktracking EngineKind = "backtracking" // Full syntax, worst-case exponential
	EngineLinear       EngineKind = "linear"       // RE2 syntax, linear time
)

// WeightedPattern is a rendered pattern and its weight (sensitivity when measured)
type WeightedPattern struct {
	Pattern string  `json:"pattern" yaml:"pattern"`
	Weight  float64 `json:"weight" yaml:"weight"`
}

// Tier is a ranked collection of patterns sharing a precision/recall bias
type Tier struct {
	Patterns []WeightedPattern `json:"patterns" yaml:"patterns"`
}

// Rank orders the tier by descending weight, keeping insertion order for ties
func (t *Tier) Rank() {
	sort.SliceStable(t.Patterns, func(i, j int) bool {
		return t.Patterns[i].Weight > t.Patterns[j].Weight
	})
}

// Len returns the number of patterns in the tier
func (t Tier) Len() int {
	return len(t.Patterns)
}

// Model is the persisted result of induction. Tier index 0 is the precision tier.
// A Model is read-only once induction returns it.
type Model struct {
	ID              string            `json:"id" yaml:"id"`
	Label           string            `json:"label" yaml:"label"`
	Engine          EngineKind        `json:"engine" yaml:"engine"`
	CaseInsensitive bool              `json:"case_insensitive" yaml:"case_insensitive"`
	CreatedAt       time.Time         `json:"created_at" yaml:"created_at"`
	Tiers           []Tier            `json:"tiers" yaml:"tiers"`
	Flagged         []string          `json:"flagged,omitempty" yaml:"flagged,omitempty"` // Examples flagged for review
	Metadata        map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Tier returns the tier at index i, or nil when the model has no such tier
func (m *Model) Tier(i int) *Tier {
	if m == nil || i < 0 || i >= len(m.Tiers) {
		return nil
	}
	return &m.Tiers[i]
}

// PatternCount returns the number of patterns across all tiers
func (m *Model) PatternCount() int {
	n := 0
	for _, t := range m.Tiers {
		n += len(t.Patterns)
	}
	return n
}

// MatchedElement is one extracted span. Identity is (Start, End).
type MatchedElement struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Text     string   `json:"text"`
	Patterns []string `json:"patterns"` // Contributing patterns, sorted
	Weight   float64  `json:"weight"`
	Label    string   `json:"label,omitempty"`
}

// Span returns the element's span
func (e MatchedElement) Span() Span {
	return Span{Start: e.Start, End: e.End, Label: e.Label}
}

// SortElements orders matches by start then end offset
func SortElements(elems []MatchedElement) {
	sort.Slice(elems, func(i, j int) bool {
		if elems[i].Start != elems[j].Start {
			return elems[i].Start < elems[j].Start
		}
		return elems[i].End < elems[j].End
	})
}
