// Package score evaluates candidate pattern sets against the training corpus.
package score

import (
	"strings"

	"github.com/ppiankov/reginduce/internal/model"
)

// Snippet is one training text with its annotated spans for a single label
type Snippet struct {
	ID        string
	Text      string
	Positives []model.Span
	Negatives []model.Span
}

// Corpus is the read-only training set shared by every scoring call
type Corpus struct {
	Label    string
	Snippets []Snippet
}

// NewCorpus builds the corpus for label. Examples without positives stay in as pure negatives.
func NewCorpus(examples []model.Example, label string) *Corpus {
	c := &Corpus{Label: label, Snippets: make([]Snippet, 0, len(examples))}
	for _, ex := range examples {
		s := Snippet{ID: ex.ID, Text: ex.Text, Positives: validSpans(ex.PositivesFor(label), len(ex.Text))}
		for _, n := range ex.Negatives {
			if label == "" || n.Label == "" || strings.EqualFold(n.Label, label) {
				s.Negatives = append(s.Negatives, n)
			}
		}
		s.Negatives = validSpans(s.Negatives, len(ex.Text))
		c.Snippets = append(c.Snippets, s)
	}
	return c
}

func validSpans(spans []model.Span, textLen int) []model.Span {
	var out []model.Span
	for _, s := range spans {
		if s.Valid(textLen) {
			out = append(out, s)
		}
	}
	return out
}

// Positives returns the total number of positive spans
func (c *Corpus) Positives() int {
	n := 0
	for _, s := range c.Snippets {
		n += len(s.Positives)
	}
	return n
}

// Len returns the number of snippets
func (c *Corpus) Len() int {
	return len(c.Snippets)
}

// Policy decides when a match counts as hitting an annotated span
type Policy struct {
	// AllowOverMatches accepts any overlapping match whose text contains the annotated text
	AllowOverMatches bool
}

// Hits reports whether the matched span m counts as the annotated span p inside text
func (p Policy) Hits(text string, m, target model.Span) bool {
	if m.Start == target.Start && m.End == target.End {
		return true
	}
	if !p.AllowOverMatches || !m.Overlaps(target) {
		return false
	}
	return strings.Contains(text[m.Start:m.End], text[target.Start:target.End])
}

// Compare counts the distinct matched spans against the snippet's annotations
func (p Policy) Compare(s *Snippet, spans []model.Span) Counts {
	counts := Counts{Positives: len(s.Positives)}
	covered := make([]bool, len(s.Positives))
	for _, m := range spans {
		hit := false
		for i, target := range s.Positives {
			if p.Hits(s.Text, m, target) {
				covered[i] = true
				hit = true
			}
		}
		if hit {
			continue
		}
		counts.FP++
		for _, n := range s.Negatives {
			if m.Overlaps(n) {
				counts.NegativeHits++
				break
			}
		}
	}
	for _, c := range covered {
		if c {
			counts.TP++
		}
	}
	counts.FN = counts.Positives - counts.TP
	return counts
}
