package pattern

import (
	"strings"

	"github.com/ppiankov/reginduce/internal/token"
)

// Holdout is the set of words the generalization engine may neither trim nor abstract.
// A nil *Holdout protects nothing.
type Holdout struct {
	words           map[string]bool
	caseInsensitive bool
}

// NewHoldout builds the holdout set; with caseInsensitive, words compare case-folded
func NewHoldout(words []string, caseInsensitive bool) *Holdout {
	h := &Holdout{words: make(map[string]bool, len(words)), caseInsensitive: caseInsensitive}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		h.words[h.Fold(w)] = true
	}
	return h
}

// Fold normalizes text for comparison and frequency keys
func (h *Holdout) Fold(s string) string {
	if h != nil && h.caseInsensitive {
		return strings.ToLower(s)
	}
	return s
}

// Contains reports whether the token is protected
func (h *Holdout) Contains(t token.Token) bool {
	if h == nil || len(h.words) == 0 || t.IsLiteral() {
		return false
	}
	return h.words[h.Fold(t.Text)]
}

// Len returns the number of protected words
func (h *Holdout) Len() int {
	if h == nil {
		return 0
	}
	return len(h.words)
}
