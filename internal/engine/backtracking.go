package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/metrics"
	"github.com/ppiankov/reginduce/internal/model"
)

// Backtracking compiles patterns with regexp2 (full syntax, worst-case exponential)
type Backtracking struct {
	matchTimeout time.Duration
	logger       *zap.Logger
}

// MatchTimeout returns the bound on a single match
func (b *Backtracking) MatchTimeout() time.Duration {
	return b.matchTimeout
}

// Kind returns the engine kind
func (b *Backtracking) Kind() model.EngineKind {
	return model.EngineBacktracking
}

// Compile compiles the pattern
func (b *Backtracking) Compile(pattern string) (Compiled, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		metrics.CompileErrors.WithLabelValues(string(model.EngineBacktracking)).Inc()
		return nil, compileError(model.EngineBacktracking, pattern, err)
	}
	re.MatchTimeout = b.matchTimeout
	return &backtrackingPattern{re: re, groups: len(re.GetGroupNumbers()) - 1}, nil
}

type backtrackingPattern struct {
	re     *regexp2.Regexp
	groups int
}

func (p *backtrackingPattern) String() string {
	return p.re.String()
}

func (p *backtrackingPattern) NumGroups() int {
	return p.groups
}

// FindAll walks matches with FindNextMatch; regexp2 reports rune offsets, converted here to bytes
func (p *backtrackingPattern) FindAll(ctx context.Context, text string) ([]Match, error) {
	offsets := byteOffsets(text)

	var out []Match
	m, err := p.re.FindStringMatch(text)
	for m != nil && err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, fmt.Errorf("%w: %v", model.ErrMatchTimeout, ctxErr)
		}

		match := Match{
			Start:  offsets[m.Index],
			End:    offsets[m.Index+m.Length],
			Groups: make([]Group, p.groups+1),
		}
		for i := 0; i <= p.groups; i++ {
			g := m.GroupByNumber(i)
			if g == nil || len(g.Captures) == 0 {
				continue
			}
			match.Groups[i] = Group{
				Start:   offsets[g.Index],
				End:     offsets[g.Index+g.Length],
				Matched: true,
			}
		}
		out = append(out, match)

		m, err = p.re.FindNextMatch(m)
	}
	if err != nil {
		// regexp2 only fails at match time when MatchTimeout elapses
		return out, fmt.Errorf("%w: %v", model.ErrMatchTimeout, err)
	}
	return out, nil
}

// byteOffsets maps rune index to byte offset, with one trailing entry for len(text)
func byteOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
