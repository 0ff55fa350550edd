// Package extract applies induced models to target text under a hard deadline.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/reginduce/internal/engine"
	"github.com/ppiankov/reginduce/internal/metrics"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/worker"
)

// DefaultTimeout bounds one extraction call
const DefaultTimeout = 5 * time.Minute

// Extractor evaluates tiered models concurrently, one job per pattern
type Extractor struct {
	engine  engine.Engine
	logger  *zap.Logger
	timeout time.Duration
	workers int
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(x *Extractor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithTimeout sets the per-call deadline
func WithTimeout(d time.Duration) Option {
	return func(x *Extractor) {
		if d > 0 {
			x.timeout = d
		}
	}
}

// WithWorkers sets the pattern worker pool size
func WithWorkers(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.workers = n
		}
	}
}

// New creates an extractor; the engine is wrapped in a compiled-pattern cache.
// A backtracking match bound longer than the call deadline is clamped to it so an
// abandoned match stops on its own shortly after the call returns.
func New(e engine.Engine, opts ...Option) *Extractor {
	x := &Extractor{
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
		workers: worker.WorkersFor(1),
	}
	for _, opt := range opts {
		opt(x)
	}

	limited, clamped := engine.WithMatchLimit(e, x.timeout)
	if clamped {
		x.logger.Warn("match timeout exceeds the extraction deadline, clamping",
			zap.String("engine", string(e.Kind())),
			zap.Duration("timeout", x.timeout))
	}
	x.engine = engine.NewCache(limited)
	return x
}

// Extract evaluates Tier 1 and, only when it finds nothing and useTier2 is set, Tier 2.
// Patterns that time out, fail to compile or lack a capturing group are logged and contribute nothing.
func (x *Extractor) Extract(ctx context.Context, m *model.Model, text string, useTier2 bool) ([]model.MatchedElement, error) {
	if m == nil || len(m.Tiers) == 0 {
		return nil, fmt.Errorf("%w: model has no tiers", model.ErrInvalidConfiguration)
	}
	if m.Engine != "" && m.Engine != x.engine.Kind() {
		x.logger.Debug("model induced with a different engine",
			zap.String("model_engine", string(m.Engine)),
			zap.String("engine", string(x.engine.Kind())))
	}

	callCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	elements := x.evaluateTier(callCtx, m, 0, text)
	if len(elements) == 0 && useTier2 && len(m.Tiers) > 1 {
		elements = x.evaluateTier(callCtx, m, 1, text)
	}

	// Only the caller's own cancellation is an error; our deadline degrades to fewer results
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return elements, nil
}

// Bound applies a fixed set of models to any text
type Bound struct {
	extractor *Extractor
	models    []*model.Model
	useTier2  bool
}

// Bind fixes the models and tier policy for repeated extraction
func (x *Extractor) Bind(models []*model.Model, useTier2 bool) *Bound {
	return &Bound{extractor: x, models: models, useTier2: useTier2}
}

// ExtractText runs every bound model and returns all elements sorted by span
func (b *Bound) ExtractText(ctx context.Context, text string) ([]model.MatchedElement, error) {
	byLabel, err := b.extractor.ExtractAll(ctx, b.models, text, b.useTier2)
	if err != nil {
		return nil, err
	}
	var out []model.MatchedElement
	for _, elements := range byLabel {
		out = append(out, elements...)
	}
	model.SortElements(out)
	return out, nil
}

// ExtractAll runs every model against text concurrently, keyed by label.
// Models sharing a label have their elements merged.
func (x *Extractor) ExtractAll(ctx context.Context, models []*model.Model, text string, useTier2 bool) (map[string][]model.MatchedElement, error) {
	results := make([][]model.MatchedElement, len(models))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range models {
		g.Go(func() error {
			elements, err := x.Extract(gctx, m, text, useTier2)
			if err != nil {
				return fmt.Errorf("model %q: %w", labelOf(m), err)
			}
			results[i] = elements
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byLabel := make(map[string][]model.MatchedElement)
	for i, m := range models {
		label := labelOf(m)
		byLabel[label] = merge(append(byLabel[label], results[i]...))
	}
	return byLabel, nil
}

func labelOf(m *model.Model) string {
	if m == nil {
		return ""
	}
	return m.Label
}

// evaluateTier runs every pattern in tier i as its own job and merges the results by span
func (x *Extractor) evaluateTier(ctx context.Context, m *model.Model, i int, text string) []model.MatchedElement {
	tier := m.Tier(i)
	if tier == nil || tier.Len() == 0 {
		return nil
	}
	tierName := strconv.Itoa(i + 1)
	start := time.Now()
	defer func() { metrics.ExtractionDuration.WithLabelValues(tierName).Observe(time.Since(start).Seconds()) }()

	pool := worker.NewPool(ctx, x.workers)
	pool.Start()
	submitted := 0
	for _, wp := range tier.Patterns {
		job := &PatternJob{Pattern: wp, Label: m.Label, Text: text, Engine: x.engine}
		if !pool.Submit(job) {
			break
		}
		submitted++
	}
	results := pool.Wait()

	var elements []model.MatchedElement
	for _, res := range results {
		pr := res.(*PatternResult)
		switch {
		case errors.Is(pr.Err, model.ErrMatchTimeout):
			metrics.PatternTimeouts.WithLabelValues(string(x.engine.Kind())).Inc()
			x.logger.Warn("pattern timed out",
				zap.String("tier", tierName),
				zap.String("pattern", pr.Pattern),
				zap.Error(pr.Err))
		case pr.Err != nil:
			x.logger.Warn("pattern skipped",
				zap.String("tier", tierName),
				zap.String("pattern", pr.Pattern),
				zap.Error(pr.Err))
		case pr.NoGroups:
			x.logger.Warn("pattern has no capturing group",
				zap.String("tier", tierName),
				zap.String("pattern", pr.Pattern))
		default:
			elements = append(elements, pr.Elements...)
		}
	}

	if missed := tier.Len() - len(results); missed > 0 {
		metrics.PatternTimeouts.WithLabelValues(string(x.engine.Kind())).Add(float64(missed))
		x.logger.Warn("patterns not evaluated before the deadline",
			zap.String("tier", tierName),
			zap.Int("missed", missed),
			zap.Int("submitted", submitted))
	}

	return merge(elements)
}

// merge collapses elements sharing (Start, End): provenance is unioned and the highest weight kept
func merge(elements []model.MatchedElement) []model.MatchedElement {
	type key struct{ start, end int }

	bySpan := make(map[key]*model.MatchedElement)
	var order []key
	for _, e := range elements {
		k := key{e.Start, e.End}
		existing, ok := bySpan[k]
		if !ok {
			c := e
			c.Patterns = append([]string(nil), e.Patterns...)
			bySpan[k] = &c
			order = append(order, k)
			continue
		}
		existing.Patterns = append(existing.Patterns, e.Patterns...)
		if e.Weight > existing.Weight {
			existing.Weight = e.Weight
		}
	}

	out := make([]model.MatchedElement, 0, len(order))
	for _, k := range order {
		e := bySpan[k]
		e.Patterns = uniqueSorted(e.Patterns)
		out = append(out, *e)
	}
	model.SortElements(out)
	return out
}

func uniqueSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for _, s := range in {
		if len(out) == 0 || s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
