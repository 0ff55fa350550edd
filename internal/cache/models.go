package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/metrics"
	"github.com/ppiankov/reginduce/internal/model"
)

// Inducer builds a model from examples
type Inducer interface {
	Induce(ctx context.Context, label string, examples []model.Example) (*model.Model, error)
}

// CachingInducer returns a stored model when the same label, engine, configuration
// and examples were induced before, and induces and stores one otherwise
type CachingInducer struct {
	inner  Inducer
	store  Cache
	engine model.EngineKind
	cfg    model.InductionConfig
	logger *zap.Logger
}

// NewCachingInducer wraps inner; cfg and engine must be the ones inner was built with
func NewCachingInducer(inner Inducer, store Cache, engine model.EngineKind, cfg model.InductionConfig, logger *zap.Logger) *CachingInducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingInducer{inner: inner, store: store, engine: engine, cfg: cfg, logger: logger}
}

// Induce implements Inducer
func (c *CachingInducer) Induce(ctx context.Context, label string, examples []model.Example) (*model.Model, error) {
	key := ModelKey(label, c.engine, c.cfg, examples)

	if data, ok := c.store.Get(key); ok {
		m, err := model.Unmarshal(data, model.FormatJSON)
		if err == nil {
			metrics.ModelCacheLookups.WithLabelValues("hit").Inc()
			c.logger.Debug("model cache hit", zap.String("label", label), zap.String("key", key))
			return m, nil
		}
		c.logger.Warn("discarding unreadable cached model", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(key)
	}
	metrics.ModelCacheLookups.WithLabelValues("miss").Inc()

	m, err := c.inner.Induce(ctx, label, examples)
	if err != nil {
		return nil, err
	}

	data, err := m.Marshal(model.FormatJSON)
	if err == nil {
		err = c.store.Set(key, data, 0)
	}
	if err != nil {
		c.logger.Warn("failed to cache model", zap.String("label", label), zap.Error(err))
	}
	return m, nil
}
