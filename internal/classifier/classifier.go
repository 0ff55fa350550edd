// Package classifier puts induced regular expressions and an externally hosted
// model behind one fit/predict interface.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ppiankov/reginduce/internal/model"
)

// ErrNotFitted is returned by Predict before a successful Fit
var ErrNotFitted = errors.New("classifier not fitted")

// Classifier learns to locate one label from examples and finds it in new text
type Classifier interface {
	// Name returns the classifier variant
	Name() string

	// Fit trains on examples for label, replacing any earlier fit
	Fit(ctx context.Context, label string, examples []model.Example) error

	// Predict returns the label's spans in text, sorted by offset
	Predict(ctx context.Context, text string) ([]model.MatchedElement, error)
}

// Inducer builds a model from examples
type Inducer interface {
	Induce(ctx context.Context, label string, examples []model.Example) (*model.Model, error)
}

// Extractor applies a model to text
type Extractor interface {
	Extract(ctx context.Context, m *model.Model, text string, useTier2 bool) ([]model.MatchedElement, error)
}

// Regex fits by inducing a tiered model and predicts by extracting with it
type Regex struct {
	inducer   Inducer
	extractor Extractor
	useTier2  bool

	mu    sync.RWMutex
	model *model.Model
}

// NewRegex creates a regex classifier
func NewRegex(inducer Inducer, extractor Extractor, useTier2 bool) *Regex {
	return &Regex{inducer: inducer, extractor: extractor, useTier2: useTier2}
}

// Name returns "regex"
func (c *Regex) Name() string {
	return "regex"
}

// Fit induces a model for label
func (c *Regex) Fit(ctx context.Context, label string, examples []model.Example) error {
	m, err := c.inducer.Induce(ctx, label, examples)
	if err != nil {
		return fmt.Errorf("fit %s: %w", label, err)
	}
	c.mu.Lock()
	c.model = m
	c.mu.Unlock()
	return nil
}

// Predict extracts with the fitted model
func (c *Regex) Predict(ctx context.Context, text string) ([]model.MatchedElement, error) {
	m := c.Model()
	if m == nil {
		return nil, ErrNotFitted
	}
	return c.extractor.Extract(ctx, m, text, c.useTier2)
}

// Model returns the fitted model, or nil
func (c *Regex) Model() *model.Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Use installs a previously induced model, skipping Fit
func (c *Regex) Use(m *model.Model) {
	c.mu.Lock()
	c.model = m
	c.mu.Unlock()
}

// New creates the classifier named by kind. The remote variant is configured from cfg.
func New(kind string, inducer Inducer, extractor Extractor, useTier2 bool, cfg model.RemoteConfig, opts ...RemoteOption) (Classifier, error) {
	switch strings.ToLower(kind) {
	case "", "regex":
		return NewRegex(inducer, extractor, useTier2), nil
	case "remote":
		return NewRemote(cfg, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown classifier %q (supported: regex, remote)", model.ErrInvalidConfiguration, kind)
	}
}
