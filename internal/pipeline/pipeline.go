// Package pipeline wires configuration, engine, inducer, extractor and model cache together.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/annotate"
	"github.com/ppiankov/reginduce/internal/cache"
	"github.com/ppiankov/reginduce/internal/classifier"
	"github.com/ppiankov/reginduce/internal/engine"
	"github.com/ppiankov/reginduce/internal/evaluate"
	"github.com/ppiankov/reginduce/internal/extract"
	"github.com/ppiankov/reginduce/internal/induce"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/score"
	"github.com/ppiankov/reginduce/internal/worker"
)

// Pipeline orchestrates induction, extraction and evaluation for one configuration
type Pipeline struct {
	config    *model.Config
	logger    *zap.Logger
	engine    engine.Engine
	inducer   *induce.Inducer
	cached    classifier.Inducer // inducer behind the model cache, or inducer itself
	extractor *extract.Extractor
	limiter   *worker.Limiter
}

// New validates cfg and builds the components it selects
func New(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := induce.Tier2Scorer(cfg.Induction); err != nil {
		return nil, err
	}

	e, err := engine.FromConfig(cfg.Engine, logger)
	if err != nil {
		return nil, err
	}

	workers := worker.WorkersFor(cfg.Concurrency.CPUFraction)
	inducer := induce.New(e, cfg.Induction, induce.WithLogger(logger), induce.WithWorkers(workers))

	p := &Pipeline{
		config:  cfg,
		logger:  logger,
		engine:  e,
		inducer: inducer,
		cached:  inducer,
		extractor: extract.New(e,
			extract.WithLogger(logger),
			extract.WithTimeout(cfg.Extraction.Timeout),
			extract.WithWorkers(workers)),
		limiter: worker.NewLimiter(cfg.Remote.RequestsPerSecond, 1),
	}

	if cfg.Cache.Enabled {
		store := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		p.cached = cache.NewCachingInducer(inducer, store, e.Kind(), cfg.Induction, logger)
	}

	return p, nil
}

// Config returns the validated configuration
func (p *Pipeline) Config() *model.Config {
	return p.config
}

// Induce builds one model per label; no labels means every positive label in the examples
func (p *Pipeline) Induce(ctx context.Context, examples []model.Example, labels ...string) ([]*model.Model, error) {
	if len(labels) == 0 {
		labels = model.Labels(examples)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: examples carry no positive labels", model.ErrInvalidConfiguration)
	}

	models := make([]*model.Model, 0, len(labels))
	for _, label := range labels {
		start := time.Now()
		m, err := p.cached.Induce(ctx, label, examples)
		if err != nil {
			return nil, fmt.Errorf("induce %s: %w", label, err)
		}
		p.logger.Info("model ready",
			zap.String("label", label),
			zap.Int("tier1", m.Tier(0).Len()),
			zap.Int("patterns", m.PatternCount()),
			zap.Strings("flagged", m.Flagged),
			zap.Duration("elapsed", time.Since(start)))
		models = append(models, m)
	}
	return models, nil
}

// InduceWithTrace runs an uncached induction and returns the lineage trace
func (p *Pipeline) InduceWithTrace(ctx context.Context, label string, examples []model.Example) (*model.Model, *induce.Trace, error) {
	return p.inducer.InduceWithTrace(ctx, label, examples)
}

// LoadModels reads persisted models
func LoadModels(paths []string) ([]*model.Model, error) {
	models := make([]*model.Model, 0, len(paths))
	for _, path := range paths {
		m, err := model.Load(path)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// Extract applies every model to one text, keyed by label
func (p *Pipeline) Extract(ctx context.Context, models []*model.Model, text string) (map[string][]model.MatchedElement, error) {
	return p.extractor.ExtractAll(ctx, models, text, p.config.Extraction.UseTier2)
}

// ExtractDocuments applies every model to each document concurrently, results in input order.
// HTML documents are reduced to their visible text first when stripHTML is set; docs is not modified.
func (p *Pipeline) ExtractDocuments(ctx context.Context, models []*model.Model, docs []worker.Document, stripHTML bool) []*worker.ExtractResult {
	if stripHTML {
		docs = append([]worker.Document(nil), docs...)
		for i := range docs {
			if !annotate.LooksLikeHTML(docs[i].Text) {
				continue
			}
			text, err := annotate.VisibleText(docs[i].Text)
			if err != nil {
				p.logger.Warn("keeping raw document text", zap.String("id", docs[i].ID), zap.Error(err))
				continue
			}
			docs[i].Text = text
		}
	}

	bound := p.extractor.Bind(models, p.config.Extraction.UseTier2)
	processor := worker.NewBatchProcessor(bound, p.config.Concurrency.Documents)
	return processor.ProcessDocuments(ctx, docs)
}

// Classifier creates a fresh classifier of the given kind ("regex" or "remote")
func (p *Pipeline) Classifier(kind string) (classifier.Classifier, error) {
	return classifier.New(kind, p.inducer, p.extractor, p.config.Extraction.UseTier2, p.config.Remote,
		classifier.WithRemoteLogger(p.logger), classifier.WithLimiter(p.limiter))
}

// Evaluate cross-validates a classifier kind on the examples for label
func (p *Pipeline) Evaluate(ctx context.Context, kind, label string, examples []model.Example, folds int, seed uint64) (*evaluate.Report, error) {
	return evaluate.CrossValidate(ctx, func() (classifier.Classifier, error) { return p.Classifier(kind) },
		label, examples, evaluate.Options{
			Folds:       folds,
			Seed:        seed,
			Policy:      score.Policy{AllowOverMatches: p.config.Induction.AllowOverMatches},
			Concurrency: p.config.Concurrency.Documents,
			Logger:      p.logger,
		})
}
