// Package pattern models one training example as alternating unlabeled and labeled
// token segments and implements the generalization operators applied to it.
package pattern

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/token"
)

// Segment is a run of tokens that is either context (unlabeled) or the value to extract (labeled)
type Segment struct {
	Tokens  []token.Token
	Labeled bool
}

func (s Segment) clone() Segment {
	return Segment{Tokens: append([]token.Token(nil), s.Tokens...), Labeled: s.Labeled}
}

// Render returns the segment's regex; labeled segments become one capturing group
func (s Segment) Render() string {
	body := token.Render(s.Tokens)
	if s.Labeled {
		return "(" + body + ")"
	}
	return body
}

// Origin ties a pattern back to the example and span it was built from
type Origin struct {
	Example int
	Span    model.Span
}

// Position addresses one token inside a pattern
type Position struct {
	Segment int
	Index   int
}

// ExamplePattern is the generalizable pattern built from one training example.
// Segments always alternate and start and end with an unlabeled segment.
type ExamplePattern struct {
	segments []Segment
	Origin   Origin
}

// New slices text into alternating unlabeled/labeled segments at the span boundaries.
// Out-of-range, empty, whitespace-only and overlapping spans are skipped (first wins) with a warning.
func New(text string, spans []model.Span, logger *zap.Logger) (*ExamplePattern, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	kept := SanitizeSpans(text, spans, logger)
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no usable labeled span", model.ErrMalformedExample)
	}

	p := &ExamplePattern{Origin: Origin{Example: -1, Span: kept[0]}}
	prev := 0
	for _, s := range kept {
		p.segments = append(p.segments,
			Segment{Tokens: token.Tokenize(text[prev:s.Start])},
			Segment{Tokens: token.Tokenize(text[s.Start:s.End]), Labeled: true},
		)
		prev = s.End
	}
	p.segments = append(p.segments, Segment{Tokens: token.Tokenize(text[prev:])})

	return p, nil
}

// SanitizeSpans returns spans sorted by start with malformed and overlapping spans removed
func SanitizeSpans(text string, spans []model.Span, logger *zap.Logger) []model.Span {
	if logger == nil {
		logger = zap.NewNop()
	}

	sorted := append([]model.Span(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var kept []model.Span
	consumed := 0
	for _, s := range sorted {
		switch {
		case !s.Valid(len(text)):
			logger.Warn("skipping span with bad offsets",
				zap.Stringer("span", s), zap.Int("text_len", len(text)))
		case strings.TrimSpace(text[s.Start:s.End]) == "":
			logger.Warn("skipping empty labeled span", zap.Stringer("span", s))
		case len(kept) > 0 && s.Start < consumed:
			logger.Warn("skipping span overlapping an earlier span",
				zap.Stringer("span", s), zap.Stringer("kept", kept[len(kept)-1]))
		default:
			kept = append(kept, s)
			consumed = s.End
		}
	}
	return kept
}

// Clone returns a deep copy
func (p *ExamplePattern) Clone() *ExamplePattern {
	c := &ExamplePattern{segments: make([]Segment, len(p.segments)), Origin: p.Origin}
	for i, s := range p.segments {
		c.segments[i] = s.clone()
	}
	return c
}

// Segments returns a copy of the segment list
func (p *ExamplePattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	for i, s := range p.segments {
		out[i] = s.clone()
	}
	return out
}

// Render returns the matchable pattern string
func (p *ExamplePattern) Render(caseInsensitive bool) string {
	var b strings.Builder
	if caseInsensitive {
		b.WriteString("(?i)")
	}
	for _, s := range p.segments {
		b.WriteString(s.Render())
	}
	return b.String()
}

func (p *ExamplePattern) String() string {
	return p.Render(false)
}

// Key is a structural identity over the ordered segment and token sequence
func (p *ExamplePattern) Key() string {
	var b strings.Builder
	for _, s := range p.segments {
		if s.Labeled {
			b.WriteString("\x00L")
		} else {
			b.WriteString("\x00U")
		}
		for _, t := range s.Tokens {
			fmt.Fprintf(&b, "\x01%d\x02%s", t.Kind, t.Text)
		}
	}
	return b.String()
}

// Equal reports structural equality
func (p *ExamplePattern) Equal(o *ExamplePattern) bool {
	return o != nil && p.Key() == o.Key()
}

// replaceTokens swaps every token for which fn returns a replacement
func (p *ExamplePattern) replaceTokens(fn func(token.Token) (token.Token, bool)) bool {
	changed := false
	for si := range p.segments {
		tokens := p.segments[si].Tokens
		for ti, t := range tokens {
			if t.IsLiteral() {
				continue
			}
			if repl, ok := fn(t); ok && repl != t {
				tokens[ti] = repl
				changed = true
			}
		}
	}
	return changed
}

// ReplaceDigits swaps digit runs and number words for the digit class
func (p *ExamplePattern) ReplaceDigits() bool {
	return p.replaceTokens(func(t token.Token) (token.Token, bool) {
		if t.Kind == token.Integer || (t.Kind == token.Word && isNumberWord(t.Text)) {
			return token.NewLiteral(DigitClass), true
		}
		return t, false
	})
}

// ReplacePunctuation swaps grouped punctuation for its similarity class
func (p *ExamplePattern) ReplacePunctuation() bool {
	return p.replaceTokens(func(t token.Token) (token.Token, bool) {
		if t.Kind != token.Punctuation {
			return t, false
		}
		class, ok := PunctClass(t.Text)
		if !ok {
			return t, false
		}
		return token.NewLiteral(class), true
	})
}

// ReplaceWhitespace swaps whitespace runs for bounded non-greedy \s classes
func (p *ExamplePattern) ReplaceWhitespace() bool {
	return p.replaceTokens(func(t token.Token) (token.Token, bool) {
		if t.Kind != token.Whitespace {
			return t, false
		}
		return token.NewLiteral(WhitespaceClass(t.RuneLen())), true
	})
}

func (p *ExamplePattern) front() *Segment {
	if len(p.segments) == 0 || p.segments[0].Labeled {
		return nil
	}
	return &p.segments[0]
}

func (p *ExamplePattern) back() *Segment {
	n := len(p.segments)
	if n == 0 || p.segments[n-1].Labeled {
		return nil
	}
	return &p.segments[n-1]
}

// FrontLen is the token count of the leading unlabeled segment
func (p *ExamplePattern) FrontLen() int {
	if s := p.front(); s != nil {
		return len(s.Tokens)
	}
	return 0
}

// BackLen is the token count of the trailing unlabeled segment
func (p *ExamplePattern) BackLen() int {
	if s := p.back(); s != nil {
		return len(s.Tokens)
	}
	return 0
}

// FrontToken returns the first token of the leading unlabeled segment
func (p *ExamplePattern) FrontToken() (token.Token, bool) {
	if s := p.front(); s != nil && len(s.Tokens) > 0 {
		return s.Tokens[0], true
	}
	return token.Token{}, false
}

// BackToken returns the last token of the trailing unlabeled segment
func (p *ExamplePattern) BackToken() (token.Token, bool) {
	if s := p.back(); s != nil && len(s.Tokens) > 0 {
		return s.Tokens[len(s.Tokens)-1], true
	}
	return token.Token{}, false
}

// TrimFront removes and returns the first token of the leading unlabeled segment
func (p *ExamplePattern) TrimFront() (token.Token, bool) {
	t, ok := p.FrontToken()
	if !ok {
		return t, false
	}
	s := p.front()
	s.Tokens = s.Tokens[1:]
	return t, true
}

// TrimBack removes and returns the last token of the trailing unlabeled segment
func (p *ExamplePattern) TrimBack() (token.Token, bool) {
	t, ok := p.BackToken()
	if !ok {
		return t, false
	}
	s := p.back()
	s.Tokens = s.Tokens[:len(s.Tokens)-1]
	return t, true
}

// TokenFrequencies counts word and punctuation tokens in unlabeled segments, skipping holdout words
func (p *ExamplePattern) TokenFrequencies(holdout *Holdout) map[string]int {
	counts := make(map[string]int)
	for _, s := range p.segments {
		if s.Labeled {
			continue
		}
		for _, t := range s.Tokens {
			if t.Kind != token.Word && t.Kind != token.Punctuation {
				continue
			}
			if holdout.Contains(t) {
				continue
			}
			counts[holdout.Fold(t.Text)]++
		}
	}
	return counts
}

// Occurrences lists positions of unlabeled word/punctuation tokens whose folded text equals key
func (p *ExamplePattern) Occurrences(key string, holdout *Holdout) []Position {
	var out []Position
	for si, s := range p.segments {
		if s.Labeled {
			continue
		}
		for ti, t := range s.Tokens {
			if t.Kind != token.Word && t.Kind != token.Punctuation {
				continue
			}
			if holdout.Fold(t.Text) == key && !holdout.Contains(t) {
				out = append(out, Position{Segment: si, Index: ti})
			}
		}
	}
	return out
}

// TokenAt returns the token at pos
func (p *ExamplePattern) TokenAt(pos Position) (token.Token, bool) {
	if pos.Segment < 0 || pos.Segment >= len(p.segments) {
		return token.Token{}, false
	}
	tokens := p.segments[pos.Segment].Tokens
	if pos.Index < 0 || pos.Index >= len(tokens) {
		return token.Token{}, false
	}
	return tokens[pos.Index], true
}

// ReplaceAt swaps the token at pos
func (p *ExamplePattern) ReplaceAt(pos Position, t token.Token) bool {
	if _, ok := p.TokenAt(pos); !ok {
		return false
	}
	p.segments[pos.Segment].Tokens[pos.Index] = t
	return true
}

// LabeledTokens returns a copy of the first labeled segment's tokens
func (p *ExamplePattern) LabeledTokens() []token.Token {
	for _, s := range p.segments {
		if s.Labeled {
			return append([]token.Token(nil), s.Tokens...)
		}
	}
	return nil
}

// RenderLabeled renders the first labeled segment without its capturing group
func (p *ExamplePattern) RenderLabeled() string {
	return token.Render(p.LabeledTokens())
}

// LabeledCount returns the number of labeled segments (capturing groups)
func (p *ExamplePattern) LabeledCount() int {
	n := 0
	for _, s := range p.segments {
		if s.Labeled {
			n++
		}
	}
	return n
}

// MergeLabeledSegments replaces every labeled segment with the given token sequence
func (p *ExamplePattern) MergeLabeledSegments(tokens []token.Token) {
	for i := range p.segments {
		if p.segments[i].Labeled {
			p.segments[i].Tokens = append([]token.Token(nil), tokens...)
		}
	}
}
