// Package token splits snippet text into typed tokens and renders them as regex fragments.
package token

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a token
type Kind int

const (
	Word        Kind = iota // Run of letters and other non-separator characters
	Integer                 // Run of ASCII digits
	Whitespace              // Run of whitespace
	Punctuation             // Single punctuation or symbol rune
	Literal                 // Ready-made regex fragment produced by generalization
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Integer:
		return "integer"
	case Whitespace:
		return "whitespace"
	case Punctuation:
		return "punctuation"
	case Literal:
		return "literal"
	default:
		return "unknown"
	}
}

// Token is an immutable piece of snippet text
type Token struct {
	Text string
	Kind Kind
}

// New creates a token of the given kind
func New(text string, kind Kind) Token {
	return Token{Text: text, Kind: kind}
}

// NewLiteral creates a token carrying a regex fragment
func NewLiteral(expr string) Token {
	return Token{Text: expr, Kind: Literal}
}

// Regex renders the token as a regex fragment
func (t Token) Regex() string {
	if t.Kind == Literal {
		return t.Text
	}
	return regexp.QuoteMeta(t.Text)
}

// IsLiteral reports whether the token was produced by generalization
func (t Token) IsLiteral() bool {
	return t.Kind == Literal
}

// RuneLen returns the token length in runes
func (t Token) RuneLen() int {
	return utf8.RuneCountInString(t.Text)
}

func (t Token) String() string {
	return t.Kind.String() + ":" + t.Text
}

// IsPunct reports whether r is tokenized as punctuation
func IsPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func classify(r rune) Kind {
	switch {
	case unicode.IsSpace(r):
		return Whitespace
	case isDigit(r):
		return Integer
	case IsPunct(r):
		return Punctuation
	default:
		return Word
	}
}

// Tokenize splits text into whitespace runs, digit runs, single punctuation runes and word runs.
// Concatenating the token texts reproduces the input.
func Tokenize(text string) []Token {
	if text == "" {
		return nil
	}

	var tokens []Token
	start := 0
	current := Kind(-1)

	flush := func(end int) {
		if end > start {
			tokens = append(tokens, Token{Text: text[start:end], Kind: current})
		}
		start = end
	}

	for i, r := range text {
		kind := classify(r)
		if kind == Punctuation {
			flush(i)
			current = Punctuation
			continue
		}
		if kind != current {
			flush(i)
			current = kind
		}
	}
	flush(len(text))

	return tokens
}

// Join concatenates the token texts
func Join(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Render concatenates the regex rendering of each token
func Render(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Regex())
	}
	return b.String()
}
