package score

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/reginduce/internal/engine"
	"github.com/ppiankov/reginduce/internal/model"
)

// Counts aggregates match outcomes over the corpus
type Counts struct {
	TP           int // Positive spans hit by at least one match
	FP           int // Distinct matched spans that hit no positive span
	FN           int // Positive spans no match hit
	Positives    int
	NegativeHits int // False positives landing on an explicit negative span
}

// Add sums two counts
func (c Counts) Add(o Counts) Counts {
	return Counts{
		TP:           c.TP + o.TP,
		FP:           c.FP + o.FP,
		FN:           c.FN + o.FN,
		Positives:    c.Positives + o.Positives,
		NegativeHits: c.NegativeHits + o.NegativeHits,
	}
}

func (c Counts) String() string {
	return fmt.Sprintf("tp=%d fp=%d fn=%d positives=%d", c.TP, c.FP, c.FN, c.Positives)
}

// Evaluator runs pattern sets over a corpus with one engine and policy
type Evaluator struct {
	engine      engine.Engine
	corpus      *Corpus
	policy      Policy
	concurrency int
}

// NewEvaluator creates an evaluator; concurrency <= 0 uses GOMAXPROCS
func NewEvaluator(e engine.Engine, corpus *Corpus, policy Policy, concurrency int) *Evaluator {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Evaluator{engine: e, corpus: corpus, policy: policy, concurrency: concurrency}
}

// Corpus returns the evaluated corpus
func (ev *Evaluator) Corpus() *Corpus {
	return ev.corpus
}

// Policy returns the match policy
func (ev *Evaluator) Policy() Policy {
	return ev.policy
}

// Engine returns the matching engine
func (ev *Evaluator) Engine() engine.Engine {
	return ev.engine
}

func (ev *Evaluator) compileAll(patterns []string) ([]engine.Compiled, error) {
	compiled := make([]engine.Compiled, 0, len(patterns))
	for _, p := range patterns {
		c, err := ev.engine.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

// Evaluate matches every pattern against every snippet, fanning out per snippet
func (ev *Evaluator) Evaluate(ctx context.Context, patterns []string) (Counts, error) {
	compiled, err := ev.compileAll(patterns)
	if err != nil {
		return Counts{}, err
	}

	perSnippet := make([]Counts, len(ev.corpus.Snippets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ev.concurrency)
	for i := range ev.corpus.Snippets {
		g.Go(func() error {
			c, err := ev.evaluateSnippet(gctx, compiled, &ev.corpus.Snippets[i])
			if err != nil {
				return err
			}
			perSnippet[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Counts{}, err
	}

	var total Counts
	for _, c := range perSnippet {
		total = total.Add(c)
	}
	return total, nil
}

func (ev *Evaluator) evaluateSnippet(ctx context.Context, compiled []engine.Compiled, s *Snippet) (Counts, error) {
	spans, err := capturedSpans(ctx, compiled, s.Text)
	if err != nil {
		return Counts{}, err
	}
	return ev.policy.Compare(s, spans), nil
}

// capturedSpans returns the distinct non-empty spans captured by any group of any pattern.
// A pattern without groups contributes its whole match.
func capturedSpans(ctx context.Context, compiled []engine.Compiled, text string) ([]model.Span, error) {
	seen := make(map[model.Span]bool)
	var out []model.Span
	add := func(g engine.Group) {
		if !g.Matched || g.End <= g.Start {
			return
		}
		s := model.Span{Start: g.Start, End: g.End}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, c := range compiled {
		matches, err := c.FindAll(ctx, text)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if c.NumGroups() == 0 {
				add(m.Group(0))
				continue
			}
			for i := 1; i <= c.NumGroups(); i++ {
				add(m.Group(i))
			}
		}
	}
	return out, nil
}

// MatchesSpan reports whether pattern captures target inside text under the evaluator's policy
func (ev *Evaluator) MatchesSpan(ctx context.Context, pattern, text string, target model.Span) (bool, error) {
	c, err := ev.engine.Compile(pattern)
	if err != nil {
		return false, err
	}
	spans, err := capturedSpans(ctx, []engine.Compiled{c}, text)
	if err != nil {
		return false, err
	}
	for _, s := range spans {
		if ev.policy.Hits(text, s, target) {
			return true, nil
		}
	}
	return false, nil
}

// Sensitivity is the fraction of positive spans the pattern hits
func (ev *Evaluator) Sensitivity(ctx context.Context, pattern string) (float64, error) {
	c, err := ev.Evaluate(ctx, []string{pattern})
	if err != nil {
		return 0, err
	}
	if c.Positives == 0 {
		return 0, nil
	}
	return float64(c.TP) / float64(c.Positives), nil
}

