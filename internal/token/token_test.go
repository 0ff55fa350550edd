package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_Kinds(t *testing.T) {
	tokens := Tokenize("Weight: 184 lbs")

	require.Len(t, tokens, 6)
	assert.Equal(t, Token{Text: "Weight", Kind: Word}, tokens[0])
	assert.Equal(t, Token{Text: ":", Kind: Punctuation}, tokens[1])
	assert.Equal(t, Token{Text: " ", Kind: Whitespace}, tokens[2])
	assert.Equal(t, Token{Text: "184", Kind: Integer}, tokens[3])
	assert.Equal(t, Token{Text: " ", Kind: Whitespace}, tokens[4])
	assert.Equal(t, Token{Text: "lbs", Kind: Word}, tokens[5])
}

func TestTokenize_PunctuationIsSingleRune(t *testing.T) {
	tokens := Tokenize("a--b")

	require.Len(t, tokens, 4)
	assert.Equal(t, "-", tokens[1].Text)
	assert.Equal(t, "-", tokens[2].Text)
}

func TestTokenize_GreedyRuns(t *testing.T) {
	tokens := Tokenize("BP\n\t 120/80")

	require.Len(t, tokens, 5)
	assert.Equal(t, "\n\t ", tokens[1].Text)
	assert.Equal(t, Whitespace, tokens[1].Kind)
	assert.Equal(t, "120", tokens[2].Text)
	assert.Equal(t, "/", tokens[3].Text)
	assert.Equal(t, "80", tokens[4].Text)
}

func TestTokenize_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"Weight: 184 lbs",
		"  leading and trailing  ",
		"Temp 38,5°C — stable (no fever)!",
		"naïve café x2 ۳",
		"a\r\nb",
	}
	for _, in := range inputs {
		assert.Equal(t, in, Join(Tokenize(in)), "input %q", in)
	}
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
}

func TestToken_Regex(t *testing.T) {
	assert.Equal(t, `\.`, New(".", Punctuation).Regex())
	assert.Equal(t, `lbs`, New("lbs", Word).Regex())
	assert.Equal(t, `\d+`, NewLiteral(`\d+`).Regex())
	assert.Equal(t, `a\(b`, Render([]Token{New("a", Word), New("(", Punctuation), New("b", Word)}))
}
