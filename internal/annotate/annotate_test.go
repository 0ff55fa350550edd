package annotate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/reginduce/internal/model"
)

func TestReadJSONL(t *testing.T) {
	input := `{"id":"a","text":"BP 120/80","positives":[{"start":3,"end":9,"label":"bp"}]}

{"text":"Ratio 3/4","negatives":[{"start":6,"end":9,"label":"bp"}]}
`
	examples, err := ReadJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, examples, 2)

	assert.Equal(t, "a", examples[0].ID)
	assert.Equal(t, "120/80", examples[0].SpanText(examples[0].Positives[0]))
	assert.Equal(t, "line-3", examples[1].ID)
	assert.Len(t, examples[1].Negatives, 1)
}

func TestReadJSONL_BadLine(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{\"text\":\"ok\"}\n{not json\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMalformedExample))
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseTagged(t *testing.T) {
	ex, err := ParseTagged("Patient BP <bp>120/80</bp>, ratio <bp negative>3/4</bp> &amp; more")
	require.NoError(t, err)

	assert.Equal(t, "Patient BP 120/80, ratio 3/4 & more", ex.Text)
	require.Len(t, ex.Positives, 1)
	require.Len(t, ex.Negatives, 1)
	assert.Equal(t, model.Span{Start: 11, End: 17, Label: "bp"}, ex.Positives[0])
	assert.Equal(t, "3/4", ex.SpanText(ex.Negatives[0]))
}

func TestParseTagged_Malformed(t *testing.T) {
	for _, line := range []string{
		"BP <bp>120/80",
		"BP <bp>120/<x>80</x></bp>",
		"BP 120/80</bp>",
		"BP <bp>120</pulse>",
		"BP <bp/>",
	} {
		_, err := ParseTagged(line)
		assert.True(t, errors.Is(err, model.ErrMalformedExample), line)
	}
}

func TestReadTagged(t *testing.T) {
	input := "# vitals\nBP <bp>120/80</bp>\n\nPulse <Pulse>72</Pulse>\n"
	examples, err := ReadTagged(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, "line-2", examples[0].ID)
	assert.Equal(t, "pulse", examples[1].Positives[0].Label)
	assert.Equal(t, []string{"bp", "pulse"}, model.Labels(examples))
}

func TestReadFile_PicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonl := filepath.Join(dir, "examples.jsonl")
	tagged := filepath.Join(dir, "examples.txt")
	require.NoError(t, os.WriteFile(jsonl, []byte(`{"text":"BP 120/80","positives":[{"start":3,"end":9,"label":"bp"}]}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(tagged, []byte("BP <bp>120/80</bp>\n"), 0o644))

	fromJSON, err := ReadFile(jsonl)
	require.NoError(t, err)
	fromTagged, err := ReadFile(tagged)
	require.NoError(t, err)

	require.Len(t, fromJSON, 1)
	require.Len(t, fromTagged, 1)
	assert.Equal(t, fromJSON[0].Text, fromTagged[0].Text)
	assert.Equal(t, fromJSON[0].Positives, fromTagged[0].Positives)

	_, err = ReadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestVisibleText(t *testing.T) {
	doc := `<html><head><style>p{}</style><script>var bp = "1/2";</script></head>
	<body><p>BP   120/80</p><noscript>enable js</noscript><p>Pulse 72</p></body></html>`

	text, err := VisibleText(doc)
	require.NoError(t, err)
	assert.Equal(t, "BP 120/80 Pulse 72", text)

	assert.True(t, LooksLikeHTML(doc))
	assert.False(t, LooksLikeHTML("BP 120/80"))
}

func TestFormatTagged_RoundTrip(t *testing.T) {
	ex := model.Example{
		Text: "BP 120/80 & pulse 72",
		Positives: []model.Span{
			{Start: 18, End: 20, Label: "pulse"},
			{Start: 3, End: 9, Label: "bp"},
		},
	}

	line := FormatTagged(ex, "bp")
	assert.Equal(t, "BP <bp>120/80</bp> &amp; pulse 72", line)

	parsed, err := ParseTagged(line)
	require.NoError(t, err)
	assert.Equal(t, ex.Text, parsed.Text)
	assert.Equal(t, []model.Span{{Start: 3, End: 9, Label: "bp"}}, parsed.Positives)

	all := FormatTagged(ex, "")
	assert.Equal(t, "BP <bp>120/80</bp> &amp; pulse <pulse>72</pulse>", all)
}
