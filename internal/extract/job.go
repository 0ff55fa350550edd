package extract

import (
	"context"
	"fmt"

	"github.com/ppiankov/reginduce/internal/engine"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/worker"
)

// PatternJob compiles and runs one weighted pattern against the target text
type PatternJob struct {
	Pattern model.WeightedPattern
	Label   string
	Text    string
	Engine  engine.Engine
}

// PatternResult is the outcome of one pattern for one call
type PatternResult struct {
	Pattern  string
	Elements []model.MatchedElement
	NoGroups bool
	Err      error
}

// GetError returns the compile, match or timeout error
func (r *PatternResult) GetError() error {
	return r.Err
}

type outcome struct {
	elements []model.MatchedElement
	noGroups bool
	err      error
}

// Execute runs the match in its own goroutine and gives up at the context deadline.
// An abandoned backtracking match stops on its own once its match timeout elapses.
func (j *PatternJob) Execute(ctx context.Context) worker.Result {
	done := make(chan outcome, 1)
	go func() {
		done <- j.run(ctx)
	}()

	select {
	case o := <-done:
		return &PatternResult{Pattern: j.Pattern.Pattern, Elements: o.elements, NoGroups: o.noGroups, Err: o.err}
	case <-ctx.Done():
		return &PatternResult{
			Pattern: j.Pattern.Pattern,
			Err:     fmt.Errorf("%w: %v", model.ErrMatchTimeout, ctx.Err()),
		}
	}
}

func (j *PatternJob) run(ctx context.Context) outcome {
	compiled, err := j.Engine.Compile(j.Pattern.Pattern)
	if err != nil {
		return outcome{err: err}
	}
	if compiled.NumGroups() == 0 {
		return outcome{noGroups: true}
	}

	matches, err := compiled.FindAll(ctx, j.Text)
	if err != nil {
		return outcome{err: err}
	}

	var elements []model.MatchedElement
	for _, m := range matches {
		g := m.Group(1)
		if !g.Matched || g.End <= g.Start {
			continue
		}
		elements = append(elements, model.MatchedElement{
			Start:    g.Start,
			End:      g.End,
			Text:     j.Text[g.Start:g.End],
			Patterns: []string{j.Pattern.Pattern},
			Weight:   j.Pattern.Weight,
			Label:    j.Label,
		})
	}
	return outcome{elements: elements}
}
