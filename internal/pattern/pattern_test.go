package pattern

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/token"
)

func weightPattern(t *testing.T) *ExamplePattern {
	t.Helper()
	p, err := New("Weight: 184 lbs", []model.Span{{Start: 8, End: 11}}, nil)
	require.NoError(t, err)
	return p
}

func TestNew_Segments(t *testing.T) {
	p := weightPattern(t)

	segs := p.Segments()
	require.Len(t, segs, 3)
	assert.False(t, segs[0].Labeled)
	assert.True(t, segs[1].Labeled)
	assert.False(t, segs[2].Labeled)
	assert.Equal(t, "Weight: ", token.Join(segs[0].Tokens))
	assert.Equal(t, "184", token.Join(segs[1].Tokens))
	assert.Equal(t, " lbs", token.Join(segs[2].Tokens))
	assert.Equal(t, `Weight: (184) lbs`, p.Render(false))
	assert.Equal(t, `(?i)Weight: (184) lbs`, p.Render(true))
}

func TestNew_LabeledAtEdges(t *testing.T) {
	p, err := New("184 lbs", []model.Span{{Start: 0, End: 3}}, nil)
	require.NoError(t, err)

	segs := p.Segments()
	require.Len(t, segs, 3)
	assert.Empty(t, segs[0].Tokens)
	assert.Equal(t, 0, p.FrontLen())
	assert.Equal(t, 2, p.BackLen())
}

func TestNew_SkipsBadSpans(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	text := "BP 120/80 HR 72"
	p, err := New(text, []model.Span{
		{Start: 3, End: 9},
		{Start: 5, End: 12}, // overlaps the first
		{Start: 40, End: 50},
		{Start: 9, End: 10}, // whitespace only
		{Start: 13, End: 15},
	}, logger)
	require.NoError(t, err)

	assert.Equal(t, 2, p.LabeledCount())
	assert.Equal(t, 3, logs.Len())
}

func TestNew_NoUsableSpan(t *testing.T) {
	_, err := New("abc", []model.Span{{Start: 2, End: 1}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMalformedExample))
}

func TestReplace_GeneralizesToSiblingValue(t *testing.T) {
	p := weightPattern(t)

	assert.True(t, p.ReplaceWhitespace())
	assert.True(t, p.ReplaceDigits())
	assert.True(t, p.ReplacePunctuation())

	re := regexp.MustCompile(p.Render(false))
	m := re.FindStringSubmatch("Weight: 201 lbs")
	require.NotNil(t, m)
	assert.Equal(t, "201", m[1])

	m = re.FindStringSubmatch("Weight:  five lbs")
	require.NotNil(t, m)
	assert.Equal(t, "five", m[1])
}

func TestReplace_Idempotent(t *testing.T) {
	p := weightPattern(t)
	p.ReplaceWhitespace()
	p.ReplaceDigits()

	before := p.Render(false)
	assert.False(t, p.ReplaceWhitespace())
	assert.False(t, p.ReplaceDigits())
	assert.Equal(t, before, p.Render(false))
}

func TestPunctClass(t *testing.T) {
	class, ok := PunctClass(":")
	require.True(t, ok)
	re := regexp.MustCompile("^" + class + "$")
	for _, s := range []string{",", ":", "/", `\`, "|", "-", "_"} {
		assert.True(t, re.MatchString(s), "separator %q", s)
	}
	assert.False(t, re.MatchString("."))

	_, ok = PunctClass("°")
	assert.False(t, ok)
}

func TestTrim(t *testing.T) {
	p := weightPattern(t)

	tok, ok := p.TrimFront()
	require.True(t, ok)
	assert.Equal(t, "Weight", tok.Text)
	tok, ok = p.TrimBack()
	require.True(t, ok)
	assert.Equal(t, "lbs", tok.Text)
	assert.Equal(t, `: (184) `, p.Render(false))

	p.TrimFront()
	p.TrimFront()
	_, ok = p.TrimFront()
	assert.False(t, ok)
}

func TestClone_IsDeep(t *testing.T) {
	p := weightPattern(t)
	c := p.Clone()
	c.TrimFront()

	assert.Equal(t, `Weight: (184) lbs`, p.Render(false))
	assert.False(t, p.Equal(c))
	assert.True(t, p.Equal(p.Clone()))
}

func TestTokenFrequencies_Holdout(t *testing.T) {
	p, err := New("Weight: 184 lbs, weight", []model.Span{{Start: 8, End: 11}}, nil)
	require.NoError(t, err)

	counts := p.TokenFrequencies(NewHoldout(nil, true))
	assert.Equal(t, 2, counts["weight"])
	assert.Equal(t, 1, counts[":"])
	assert.NotContains(t, counts, "184")

	holdout := NewHoldout([]string{"Weight"}, true)
	counts = p.TokenFrequencies(holdout)
	assert.NotContains(t, counts, "weight")
	assert.Empty(t, p.Occurrences("weight", holdout))
}

func TestReplaceAt(t *testing.T) {
	p := weightPattern(t)
	holdout := NewHoldout(nil, false)

	positions := p.Occurrences("lbs", holdout)
	require.Len(t, positions, 1)

	tok, _ := p.TokenAt(positions[0])
	abstract, ok := Abstract(tok)
	require.True(t, ok)
	require.True(t, p.ReplaceAt(positions[0], abstract))

	re := regexp.MustCompile(p.Render(false))
	m := re.FindStringSubmatch("Weight: 184 kgs")
	require.NotNil(t, m)
	assert.Equal(t, "184", m[1])
}

func TestMergeLabeledSegments(t *testing.T) {
	a := weightPattern(t)
	b, err := New("Weight: heavy lbs", []model.Span{{Start: 8, End: 13}}, nil)
	require.NoError(t, err)

	merged := "(?:" + a.RenderLabeled() + "|" + b.RenderLabeled() + ")"
	a.MergeLabeledSegments([]token.Token{token.NewLiteral(merged)})

	re := regexp.MustCompile(a.Render(false))
	m := re.FindStringSubmatch("Weight: heavy lbs")
	require.NotNil(t, m)
	assert.Equal(t, "heavy", m[1])
	assert.True(t, re.MatchString("Weight: 184 lbs"))
}
