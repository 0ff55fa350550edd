// Package induce learns tiered regular expressions from annotated examples by
// generalizing one pattern per labeled span and accepting each change only when
// the corpus score does not regress.
package induce

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/engine"
	"github.com/ppiankov/reginduce/internal/metrics"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/pattern"
	"github.com/ppiankov/reginduce/internal/score"
	"github.com/ppiankov/reginduce/internal/worker"
)

// Phase names used in logs, metrics and lineage
const (
	PhaseBuild       = "build"
	PhaseWhitespace  = "whitespace"
	PhaseDigits      = "digits"
	PhasePunctuation = "punctuation"
	PhaseTrim        = "trim"
	PhaseFrequency   = "frequency"
	PhaseLabeled     = "labeled"
	PhaseTier2       = "tier2"
)

const defaultScoreCacheSize = 4096

// Inducer runs induction with one engine and configuration
type Inducer struct {
	engine  engine.Engine
	cfg     model.InductionConfig
	logger  *zap.Logger
	workers int
	now     func() time.Time
}

// Option configures an Inducer
type Option func(*Inducer)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(in *Inducer) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithWorkers sets the per-phase worker pool size
func WithWorkers(n int) Option {
	return func(in *Inducer) {
		if n > 0 {
			in.workers = n
		}
	}
}

// WithClock overrides the model timestamp source
func WithClock(now func() time.Time) Option {
	return func(in *Inducer) {
		in.now = now
	}
}

// New creates an inducer. The engine should be wrapped in an engine.Cache.
func New(e engine.Engine, cfg model.InductionConfig, opts ...Option) *Inducer {
	in := &Inducer{
		engine:  e,
		cfg:     cfg,
		logger:  zap.NewNop(),
		workers: worker.WorkersFor(1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.engine != nil {
		in.engine = engine.NewCache(in.engine)
	}
	return in
}

// Induce learns a model for label from examples
func (in *Inducer) Induce(ctx context.Context, label string, examples []model.Example) (*model.Model, error) {
	m, _, err := in.InduceWithTrace(ctx, label, examples)
	return m, err
}

// InduceWithTrace learns a model and returns the lineage of every surviving example pattern
func (in *Inducer) InduceWithTrace(ctx context.Context, label string, examples []model.Example) (*model.Model, *Trace, error) {
	start := time.Now()
	defer func() { metrics.InductionDuration.Observe(time.Since(start).Seconds()) }()

	if in.engine == nil {
		return nil, nil, fmt.Errorf("%w: no matching engine", model.ErrInvalidConfiguration)
	}
	if len(examples) == 0 {
		return nil, nil, fmt.Errorf("%w: zero training examples", model.ErrInvalidConfiguration)
	}

	tier2Scorer, err := Tier2Scorer(in.cfg)
	if err != nil {
		return nil, nil, err
	}

	r, err := in.newRun(label, examples)
	if err != nil {
		return nil, nil, err
	}

	in.logger.Info("induction started",
		zap.String("label", label),
		zap.Int("examples", len(examples)),
		zap.Int("patterns", len(r.slots)),
		zap.String("engine", string(in.engine.Kind())))

	if err := r.prepare(ctx); err != nil {
		return nil, nil, err
	}

	tier1Slots, err := r.generalize(ctx, r.slots, score.NoFalsePositives{})
	if err != nil {
		return nil, nil, err
	}

	var tier2Slots []*slot
	if in.cfg.EnableTier2 {
		forked := make([]*slot, len(tier1Slots))
		for i, s := range tier1Slots {
			forked[i] = &slot{lineage: s.lineage.fork(PhaseTier2)}
		}
		tier2Slots, err = r.generalize(ctx, forked, tier2Scorer)
		if err != nil {
			return nil, nil, err
		}
	}

	tier1, tier1Slots := r.finalizeTier1(ctx, tier1Slots)
	tiers := []model.Tier{tier1}
	trace := &Trace{Tiers: [][]*Lineage{lineages(tier1Slots)}}
	if in.cfg.EnableTier2 {
		tier2, kept := r.finalizeTier2(ctx, tier2Slots)
		tiers = append(tiers, tier2)
		trace.Tiers = append(trace.Tiers, lineages(kept))
	}

	if in.cfg.MeasureSensitivity {
		for i := range tiers {
			if err := r.measure(ctx, &tiers[i]); err != nil {
				return nil, nil, err
			}
		}
	}
	for i := range tiers {
		tiers[i].Rank()
	}

	m := &model.Model{
		ID:              uuid.NewString(),
		Label:           label,
		Engine:          in.engine.Kind(),
		CaseInsensitive: in.cfg.CaseInsensitive,
		CreatedAt:       in.now().UTC(),
		Tiers:           tiers,
		Flagged:         r.flaggedIDs(),
		Metadata: map[string]string{
			"examples":     strconv.Itoa(len(examples)),
			"tier1_scorer": score.NoFalsePositives{}.Name(),
		},
	}
	if in.cfg.EnableTier2 {
		m.Metadata["tier2_scorer"] = tier2Scorer.Name()
	}
	if in.cfg.Debug {
		m.Metadata["lineage_versions"] = strconv.Itoa(trace.VersionCount())
	}

	in.logger.Info("induction finished",
		zap.String("label", label),
		zap.String("model_id", m.ID),
		zap.Int("tier1", tiers[0].Len()),
		zap.Int("patterns", m.PatternCount()),
		zap.Int("flagged", len(m.Flagged)),
		zap.Duration("duration", time.Since(start)))

	return m, trace, nil
}

// Tier2Scorer resolves the configured Tier 2 comparator; empty means tp_fp_diff
func Tier2Scorer(cfg model.InductionConfig) (score.Scorer, error) {
	if cfg.Tier2Scorer == "" {
		return score.TPFPDiff{}, nil
	}
	s, ok := score.ByName(cfg.Tier2Scorer)
	if !ok {
		return nil, fmt.Errorf("%w: unknown tier2 scorer %q (supported: tp_fp_diff, f1)", model.ErrInvalidConfiguration, cfg.Tier2Scorer)
	}
	return s, nil
}

func (in *Inducer) newRun(label string, examples []model.Example) (*run, error) {
	size := in.cfg.ScoreCacheSize
	if size <= 0 {
		size = defaultScoreCacheSize
	}
	memo, err := lru.New[string, score.Counts](size)
	if err != nil {
		return nil, fmt.Errorf("%w: score cache: %v", model.ErrInvalidConfiguration, err)
	}

	r := &run{
		in:      in,
		holdout: pattern.NewHoldout(in.cfg.HoldoutWords, in.cfg.CaseInsensitive),
		memo:    memo,
		flagged: make(map[int]bool),
	}

	// One pattern per surviving positive span; the corpus sees the same sanitized spans
	sanitized := make([]model.Example, len(examples))
	positives := 0
	for i, ex := range examples {
		requested := ex.PositivesFor(label)
		positives += len(requested)
		kept := pattern.SanitizeSpans(ex.Text, requested, in.logger.With(zap.String("example", exampleID(ex, i))))

		sanitized[i] = ex
		sanitized[i].Positives = kept
		if len(requested) > 0 && len(kept) == 0 {
			in.logger.Warn("skipping example",
				zap.String("example", exampleID(ex, i)),
				zap.Error(model.ErrMalformedExample))
		}

		for _, s := range kept {
			p, err := pattern.New(ex.Text, []model.Span{s}, in.logger)
			if err != nil {
				in.logger.Warn("skipping span", zap.String("example", exampleID(ex, i)), zap.Error(err))
				continue
			}
			p.Origin = pattern.Origin{Example: i, Span: s}
			r.slots = append(r.slots, &slot{lineage: newLineage(p, in.cfg.Debug)})
		}
	}
	if positives == 0 {
		return nil, fmt.Errorf("%w: no positive examples for label %q", model.ErrInvalidConfiguration, label)
	}
	if len(r.slots) == 0 {
		return nil, fmt.Errorf("%w: every positive span for label %q is malformed", model.ErrInvalidConfiguration, label)
	}

	r.examples = sanitized
	r.ev = score.NewEvaluator(in.engine, score.NewCorpus(sanitized, label),
		score.Policy{AllowOverMatches: in.cfg.AllowOverMatches}, in.workers)
	return r, nil
}

func exampleID(ex model.Example, i int) string {
	if ex.ID != "" {
		return ex.ID
	}
	return "#" + strconv.Itoa(i)
}

func lineages(slots []*slot) []*Lineage {
	out := make([]*Lineage, len(slots))
	for i, s := range slots {
		out[i] = s.lineage
	}
	return out
}
