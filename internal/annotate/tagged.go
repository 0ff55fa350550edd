package annotate

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/reginduce/internal/model"
)

// negativeAttr marks a tagged span as a negative example
const negativeAttr = "negative"

// ReadTagged reads one example per line with values marked inline, e.g.
//
//	Patient BP <bp>120/80</bp>, ratio <bp negative>3/4</bp>
//
// Entities in text are unescaped and offsets refer to the unescaped text.
// Blank lines and lines starting with # are skipped. Labels are lower-cased.
func ReadTagged(r io.Reader) ([]model.Example, error) {
	var examples []model.Example
	err := scanLines(r, func(n int, line string) error {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return nil
		}
		ex, err := ParseTagged(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		ex.ID = lineID(n)
		examples = append(examples, ex)
		return nil
	})
	return examples, err
}

// ParseTagged parses a single tagged line into an example
func ParseTagged(line string) (model.Example, error) {
	var (
		ex       model.Example
		text     strings.Builder
		open     *model.Span
		negative bool
	)

	z := html.NewTokenizer(strings.NewReader(line))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return ex, fmt.Errorf("%w: %v", model.ErrMalformedExample, err)
			}
			if open != nil {
				return ex, fmt.Errorf("%w: unclosed <%s>", model.ErrMalformedExample, open.Label)
			}
			ex.Text = text.String()
			return ex, nil

		case html.TextToken:
			text.Write(z.Text())

		case html.StartTagToken:
			if open != nil {
				return ex, fmt.Errorf("%w: <%s> nested inside <%s>", model.ErrMalformedExample, tagName(z), open.Label)
			}
			name, hasAttr := z.TagName()
			negative = false
			for hasAttr {
				var key []byte
				key, _, hasAttr = z.TagAttr()
				if string(key) == negativeAttr {
					negative = true
				}
			}
			open = &model.Span{Start: text.Len(), Label: string(name)}

		case html.EndTagToken:
			name := tagName(z)
			if open == nil || open.Label != name {
				return ex, fmt.Errorf("%w: unexpected </%s>", model.ErrMalformedExample, name)
			}
			open.End = text.Len()
			if negative {
				ex.Negatives = append(ex.Negatives, *open)
			} else {
				ex.Positives = append(ex.Positives, *open)
			}
			open = nil

		case html.SelfClosingTagToken:
			return ex, fmt.Errorf("%w: empty <%s/>", model.ErrMalformedExample, tagName(z))
		}
	}
}

func tagName(z *html.Tokenizer) string {
	name, _ := z.TagName()
	return string(name)
}

// FormatTagged renders an example's positive spans for label inline, the inverse of ParseTagged.
// Spans that are invalid or overlap an earlier span are left untagged.
func FormatTagged(ex model.Example, label string) string {
	spans := append([]model.Span(nil), ex.PositivesFor(label)...)
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	var b strings.Builder
	cursor := 0
	for _, s := range spans {
		if !s.Valid(len(ex.Text)) || s.Start < cursor {
			continue
		}
		tag := strings.ToLower(s.Label)
		if tag == "" {
			tag = strings.ToLower(label)
		}
		b.WriteString(html.EscapeString(ex.Text[cursor:s.Start]))
		fmt.Fprintf(&b, "<%s>%s</%s>", tag, html.EscapeString(ex.Text[s.Start:s.End]), tag)
		cursor = s.End
	}
	b.WriteString(html.EscapeString(ex.Text[cursor:]))
	return b.String()
}
