package engine

import (
	"context"
	"fmt"

	re2 "github.com/wasilibs/go-re2"
	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/metrics"
	"github.com/ppiankov/reginduce/internal/model"
)

// Linear compiles patterns with RE2, which guarantees time linear in the input
type Linear struct {
	logger *zap.Logger
}

// Kind returns the engine kind
func (l *Linear) Kind() model.EngineKind {
	return model.EngineLinear
}

// Compile compiles the pattern; backreferences and lookaround are rejected
func (l *Linear) Compile(pattern string) (Compiled, error) {
	re, err := re2.Compile(pattern)
	if err != nil {
		metrics.CompileErrors.WithLabelValues(string(model.EngineLinear)).Inc()
		return nil, compileError(model.EngineLinear, pattern, err)
	}
	return &linearPattern{re: re}, nil
}

type linearPattern struct {
	re *re2.Regexp
}

func (p *linearPattern) String() string {
	return p.re.String()
}

func (p *linearPattern) NumGroups() int {
	return p.re.NumSubexp()
}

func (p *linearPattern) FindAll(ctx context.Context, text string) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMatchTimeout, err)
	}

	all := p.re.FindAllStringSubmatchIndex(text, -1)
	out := make([]Match, 0, len(all))
	for _, loc := range all {
		match := Match{Start: loc[0], End: loc[1], Groups: make([]Group, len(loc)/2)}
		for i := range match.Groups {
			start, end := loc[2*i], loc[2*i+1]
			if start < 0 {
				continue
			}
			match.Groups[i] = Group{Start: start, End: end, Matched: true}
		}
		out = append(out, match)
	}
	return out, nil
}
