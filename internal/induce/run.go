package induce

import (
	"context"
	"errors"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/metrics"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/pattern"
	"github.com/ppiankov/reginduce/internal/score"
	"github.com/ppiankov/reginduce/internal/token"
)

// slot holds one example pattern's lineage through the phases
type slot struct {
	lineage *Lineage
}

func (s *slot) current() *pattern.ExamplePattern {
	return s.lineage.Current()
}

// run is the state of one induction call. Examples, corpus and holdout are read-only once built.
type run struct {
	in       *Inducer
	examples []model.Example
	ev       *score.Evaluator
	holdout  *pattern.Holdout
	memo     *lru.Cache[string, score.Counts]
	slots    []*slot
	flagged  map[int]bool
}

func (r *run) render(p *pattern.ExamplePattern) string {
	return p.Render(r.in.cfg.CaseInsensitive)
}

// counts evaluates a pattern set over the corpus, memoized by the set
func (r *run) counts(ctx context.Context, patterns ...string) (score.Counts, error) {
	key := strings.Join(patterns, "\x00")
	if c, ok := r.memo.Get(key); ok {
		return c, nil
	}
	c, err := r.ev.Evaluate(ctx, patterns)
	if err != nil {
		return score.Counts{}, err
	}
	r.memo.Add(key, c)
	return c, nil
}

func (r *run) score(ctx context.Context, s score.Scorer, patterns ...string) (float64, error) {
	c, err := r.counts(ctx, patterns...)
	if err != nil {
		return 0, err
	}
	return s.FromCounts(c), nil
}

// selfMatch reports whether p still captures the span it was built from
func (r *run) selfMatch(ctx context.Context, p *pattern.ExamplePattern) bool {
	ex := r.examples[p.Origin.Example]
	ok, err := r.ev.MatchesSpan(ctx, r.render(p), ex.Text, p.Origin.Span)
	return err == nil && ok
}

// consider scores candidate and accepts it when the score does not regress and it still self-matches
func (r *run) consider(ctx context.Context, phase string, s score.Scorer, candidate *pattern.ExamplePattern, before float64) (float64, bool) {
	after, err := r.score(ctx, s, r.render(candidate))
	if err != nil {
		r.in.logger.Debug("candidate rejected",
			zap.String("phase", phase),
			zap.String("pattern", r.render(candidate)),
			zap.Error(err))
		metrics.Decision(phase, false)
		return before, false
	}
	if after < before || !r.selfMatch(ctx, candidate) {
		metrics.Decision(phase, false)
		return before, false
	}
	metrics.Decision(phase, true)
	return after, true
}

// prepare runs the unconditional literal-class phases with their consistency checks, then deduplicates
func (r *run) prepare(ctx context.Context) error {
	r.apply(PhaseWhitespace, (*pattern.ExamplePattern).ReplaceWhitespace)
	if err := r.checkConsistency(ctx, PhaseWhitespace); err != nil {
		return err
	}

	r.apply(PhaseDigits, (*pattern.ExamplePattern).ReplaceDigits)
	r.apply(PhasePunctuation, (*pattern.ExamplePattern).ReplacePunctuation)
	if err := r.checkConsistency(ctx, PhasePunctuation); err != nil {
		return err
	}

	r.slots = r.dedup(r.slots)
	return nil
}

func (r *run) apply(phase string, op func(*pattern.ExamplePattern) bool) {
	for _, s := range r.slots {
		candidate := s.current().Clone()
		if op(candidate) {
			s.lineage.Push(phase, candidate)
		}
	}
}

// checkConsistency logs patterns that miss their own span or hit anything outside the positives.
// Inconsistent patterns are kept and their examples flagged.
func (r *run) checkConsistency(ctx context.Context, phase string) error {
	for _, s := range r.slots {
		if err := ctx.Err(); err != nil {
			return err
		}

		p := s.current()
		rendered := r.render(p)
		ex := r.examples[p.Origin.Example]

		if !r.selfMatch(ctx, p) {
			r.flag(p.Origin.Example)
			r.in.logger.Warn("pattern does not match its own example",
				zap.String("phase", phase),
				zap.String("example", exampleID(ex, p.Origin.Example)),
				zap.String("pattern", rendered),
				zap.Error(model.ErrInconsistentAnnotation))
			continue
		}

		c, err := r.counts(ctx, rendered)
		if err != nil {
			r.flag(p.Origin.Example)
			r.in.logger.Warn("pattern cannot be evaluated",
				zap.String("phase", phase),
				zap.String("example", exampleID(ex, p.Origin.Example)),
				zap.Error(err))
			continue
		}
		if c.FP > 0 {
			r.flag(p.Origin.Example)
			r.in.logger.Warn("pattern matches outside the annotated spans",
				zap.String("phase", phase),
				zap.String("example", exampleID(ex, p.Origin.Example)),
				zap.String("pattern", rendered),
				zap.Int("false_positives", c.FP),
				zap.Error(model.ErrInconsistentAnnotation))
		}
	}
	return nil
}

func (r *run) flag(example int) {
	r.flagged[example] = true
}

func (r *run) flaggedIDs() []string {
	idx := make([]int, 0, len(r.flagged))
	for i := range r.flagged {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	ids := make([]string, len(idx))
	for i, e := range idx {
		ids[i] = exampleID(r.examples[e], e)
	}
	return ids
}

// dedup drops slots whose rendered pattern equals an earlier one
func (r *run) dedup(slots []*slot) []*slot {
	seen := make(map[string]bool, len(slots))
	out := slots[:0:0]
	for _, s := range slots {
		key := r.render(s.current())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	if dropped := len(slots) - len(out); dropped > 0 {
		r.in.logger.Debug("deduplicated patterns", zap.Int("dropped", dropped), zap.Int("kept", len(out)))
	}
	return out
}

// generalize runs trim, frequency abstraction, dedup and the optional labeled merge under one scorer
func (r *run) generalize(ctx context.Context, slots []*slot, s score.Scorer) ([]*slot, error) {
	if err := r.forEach(ctx, PhaseTrim, slots, func(ctx context.Context, p *pattern.ExamplePattern) *pattern.ExamplePattern {
		return r.trim(ctx, p, s)
	}); err != nil {
		return nil, err
	}

	order := r.frequencyOrder(slots)
	if err := r.forEach(ctx, PhaseFrequency, slots, func(ctx context.Context, p *pattern.ExamplePattern) *pattern.ExamplePattern {
		return r.abstract(ctx, p, s, order)
	}); err != nil {
		return nil, err
	}

	slots = r.dedup(slots)

	if r.in.cfg.GeneralizeLabeled {
		if err := r.mergeLabeled(ctx, slots, s); err != nil {
			return nil, err
		}
		slots = r.dedup(slots)
	}

	r.in.logger.Debug("generalization pass finished",
		zap.String("scorer", s.Name()),
		zap.Int("patterns", len(slots)))
	return slots, nil
}

// trim removes boundary tokens from the longer unlabeled end (front on ties) until neither end can progress
func (r *run) trim(ctx context.Context, p *pattern.ExamplePattern, s score.Scorer) *pattern.ExamplePattern {
	before, err := r.score(ctx, s, r.render(p))
	if err != nil {
		return p
	}

	var rejectedFront, rejectedBack bool
	for ctx.Err() == nil {
		front := !rejectedFront && r.trimmable(p.FrontToken())
		back := !rejectedBack && r.trimmable(p.BackToken())
		if !front && !back {
			break
		}

		fromFront := front && (!back || p.FrontLen() >= p.BackLen())
		candidate := p.Clone()
		if fromFront {
			candidate.TrimFront()
		} else {
			candidate.TrimBack()
		}

		after, ok := r.consider(ctx, PhaseTrim, s, candidate, before)
		switch {
		case ok:
			p, before = candidate, after
			rejectedFront, rejectedBack = false, false
		case fromFront:
			rejectedFront = true
		default:
			rejectedBack = true
		}
	}
	return p
}

func (r *run) trimmable(t token.Token, ok bool) bool {
	return ok && !r.holdout.Contains(t)
}

// frequencyOrder builds the shared token table over all slots and orders keys by ascending count, then text
func (r *run) frequencyOrder(slots []*slot) []string {
	table := make(map[string]int)
	for _, s := range slots {
		for k, n := range s.current().TokenFrequencies(r.holdout) {
			table[k] += n
		}
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if table[keys[i]] != table[keys[j]] {
			return table[keys[i]] < table[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// abstract replaces each occurrence of each key with its length-bounded class, keeping non-regressing changes
func (r *run) abstract(ctx context.Context, p *pattern.ExamplePattern, s score.Scorer, order []string) *pattern.ExamplePattern {
	before, err := r.score(ctx, s, r.render(p))
	if err != nil {
		return p
	}

	for _, key := range order {
		for _, pos := range p.Occurrences(key, r.holdout) {
			if ctx.Err() != nil {
				return p
			}
			tok, ok := p.TokenAt(pos)
			if !ok {
				continue
			}
			class, ok := pattern.Abstract(tok)
			if !ok {
				continue
			}

			candidate := p.Clone()
			candidate.ReplaceAt(pos, class)
			if after, ok := r.consider(ctx, PhaseFrequency, s, candidate, before); ok {
				p, before = candidate, after
			}
		}
	}
	return p
}

// mergeLabeled tries one alternation of every distinct labeled segment in all patterns at once
func (r *run) mergeLabeled(ctx context.Context, slots []*slot, s score.Scorer) error {
	var alternatives []string
	seen := make(map[string]bool)
	for _, sl := range slots {
		body := sl.current().RenderLabeled()
		if body == "" || seen[body] {
			continue
		}
		seen[body] = true
		alternatives = append(alternatives, body)
	}
	if len(alternatives) < 2 {
		return nil
	}
	merged := token.NewLiteral("(?:" + strings.Join(alternatives, "|") + ")")

	current := make([]string, len(slots))
	candidates := make([]*pattern.ExamplePattern, len(slots))
	rendered := make([]string, len(slots))
	for i, sl := range slots {
		current[i] = r.render(sl.current())
		candidates[i] = sl.current().Clone()
		candidates[i].MergeLabeledSegments([]token.Token{merged})
		rendered[i] = r.render(candidates[i])
	}

	before, err := r.score(ctx, s, current...)
	if err != nil {
		return nil
	}
	after, err := r.score(ctx, s, rendered...)
	if err != nil || after < before {
		metrics.Decision(PhaseLabeled, false)
		r.in.logger.Debug("labeled merge rejected", zap.Float64("before", before), zap.Float64("after", after), zap.Error(err))
		return ctx.Err()
	}
	for _, c := range candidates {
		if !r.selfMatch(ctx, c) {
			metrics.Decision(PhaseLabeled, false)
			return ctx.Err()
		}
	}

	metrics.Decision(PhaseLabeled, true)
	for i, sl := range slots {
		sl.lineage.Push(PhaseLabeled, candidates[i])
	}
	r.in.logger.Debug("labeled merge accepted", zap.Int("alternatives", len(alternatives)))
	return nil
}

// finalizeTier1 keeps only compilable patterns with zero false positives
func (r *run) finalizeTier1(ctx context.Context, slots []*slot) (model.Tier, []*slot) {
	var tier model.Tier
	var kept []*slot
	for _, s := range slots {
		rendered := r.render(s.current())
		c, err := r.counts(ctx, rendered)
		switch {
		case err != nil:
			r.logDropped(1, rendered, err)
		case c.FP > 0:
			r.logDropped(1, rendered, model.ErrInconsistentAnnotation, zap.Int("false_positives", c.FP))
		default:
			tier.Patterns = append(tier.Patterns, model.WeightedPattern{Pattern: rendered, Weight: 1})
			kept = append(kept, s)
		}
	}
	if tier.Len() == 0 {
		r.in.logger.Warn("tier 1 is empty")
	}
	return tier, kept
}

// finalizeTier2 keeps compilable patterns that hit at least one positive
func (r *run) finalizeTier2(ctx context.Context, slots []*slot) (model.Tier, []*slot) {
	var tier model.Tier
	var kept []*slot
	for _, s := range slots {
		rendered := r.render(s.current())
		c, err := r.counts(ctx, rendered)
		switch {
		case err != nil:
			r.logDropped(2, rendered, err)
		case c.TP == 0:
			r.logDropped(2, rendered, errors.New("no true positives"))
		default:
			tier.Patterns = append(tier.Patterns, model.WeightedPattern{Pattern: rendered, Weight: 1})
			kept = append(kept, s)
		}
	}
	return tier, kept
}

func (r *run) logDropped(tier int, rendered string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Int("tier", tier), zap.String("pattern", rendered), zap.Error(err))
	r.in.logger.Warn("pattern dropped", fields...)
}

// measure stores each pattern's sensitivity as its weight
func (r *run) measure(ctx context.Context, tier *model.Tier) error {
	for i := range tier.Patterns {
		if err := ctx.Err(); err != nil {
			return err
		}
		sensitivity, err := r.ev.Sensitivity(ctx, tier.Patterns[i].Pattern)
		if err != nil {
			sensitivity = 0
		}
		tier.Patterns[i].Weight = sensitivity
	}
	return nil
}
