package pattern

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/reginduce/internal/token"
)

// numberWords are spelled-out numbers folded into the digit class
var numberWords = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

// DigitClass matches a digit run or a whole spelled-out number zero to ten
var DigitClass = `(?:\d+|\b(?i:` + strings.Join(numberWords, "|") + `)\b)`

// punctGroup is a set of punctuation runes considered interchangeable
type punctGroup struct {
	name  string
	runes string
}

// punctGroups are checked in order; a rune belongs to the first group listing it
var punctGroups = []punctGroup{
	{name: "brackets", runes: "()[]{}"},
	{name: "terminators", runes: ".!?;"},
	{name: "separators", runes: ",:/\\|-_"},
	{name: "comparisons", runes: "<>=~≤≥"},
	{name: "quotes", runes: "\"'`“”‘’«»"},
}

func isNumberWord(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range numberWords {
		if lower == w {
			return true
		}
	}
	return false
}

// charClass renders runes as a bracket expression valid for both engines
func charClass(runes string) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range runes {
		if strings.ContainsRune(`\[]^-`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte(']')
	return b.String()
}

// PunctClass returns the similarity-group class for a punctuation token, or false if the rune is ungrouped
func PunctClass(text string) (string, bool) {
	for _, g := range punctGroups {
		if strings.Contains(g.runes, text) && text != "" {
			return charClass(g.runes), true
		}
	}
	return "", false
}

// WhitespaceClass bounds a whitespace run of n runes
func WhitespaceClass(n int) string {
	return fmt.Sprintf(`\s{1,%d}?`, int(math.Ceil(float64(n)*2.1)))
}

// WordClass bounds a word of n runes; ascii selects the Latin letter class
func WordClass(n int, ascii bool) string {
	upper := int(math.Ceil(float64(n) * 1.2))
	if ascii {
		return fmt.Sprintf(`[A-Za-z]{1,%d}?`, upper)
	}
	return fmt.Sprintf(`\p{L}{1,%d}?`, upper)
}

// PunctRunClass bounds a punctuation run of n runes
func PunctRunClass(n int) string {
	return fmt.Sprintf(`[\p{P}\p{S}]{1,%d}?`, int(math.Ceil(float64(n)*1.2)))
}

// Abstract returns the length-bounded class replacing a word or punctuation token
// during frequency-driven generalization.
func Abstract(t token.Token) (token.Token, bool) {
	switch t.Kind {
	case token.Word:
		ascii := true
		for _, r := range t.Text {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
				ascii = false
				break
			}
		}
		return token.NewLiteral(WordClass(t.RuneLen(), ascii)), true
	case token.Punctuation:
		return token.NewLiteral(PunctRunClass(t.RuneLen())), true
	default:
		return t, false
	}
}
