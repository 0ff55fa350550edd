package model

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModel() *Model {
	return &Model{
		ID:              "m-1",
		Label:           "weight",
		Engine:          EngineLinear,
		CaseInsensitive: true,
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tiers: []Tier{
			{Patterns: []WeightedPattern{{Pattern: `(?i)Weight:\s{1,3}?(\d+)`, Weight: 1}}},
			{Patterns: []WeightedPattern{{Pattern: `(?i)(\d+)\s{1,3}?lbs`, Weight: 0.5}}},
		},
		Metadata: map[string]string{"examples": "3"},
	}
}

func TestModel_SaveLoad(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"model.yaml", "model.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, sampleModel().Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, sampleModel(), loaded)
		})
	}
}

func TestUnmarshal_RejectsEmptyModel(t *testing.T) {
	_, err := Unmarshal([]byte(`{"id":"x","tiers":[]}`), FormatJSON)
	require.Error(t, err)
}

func TestTier_Rank(t *testing.T) {
	tier := Tier{Patterns: []WeightedPattern{
		{Pattern: "a", Weight: 0.2},
		{Pattern: "b", Weight: 0.9},
		{Pattern: "c", Weight: 0.2},
	}}
	tier.Rank()

	assert.Equal(t, "b", tier.Patterns[0].Pattern)
	assert.Equal(t, "a", tier.Patterns[1].Pattern)
	assert.Equal(t, "c", tier.Patterns[2].Pattern)
}

func TestSpan(t *testing.T) {
	s := Span{Start: 8, End: 11}
	assert.True(t, s.Valid(15))
	assert.False(t, s.Valid(10))
	assert.False(t, Span{Start: 3, End: 3}.Valid(10))
	assert.True(t, s.Overlaps(Span{Start: 10, End: 12}))
	assert.False(t, s.Overlaps(Span{Start: 11, End: 12}))
}

func TestExample_PositivesFor(t *testing.T) {
	ex := Example{
		Text: "BP 120/80 HR 72",
		Positives: []Span{
			{Start: 3, End: 9, Label: "bp"},
			{Start: 13, End: 15, Label: "hr"},
		},
	}
	assert.Len(t, ex.PositivesFor("BP"), 1)
	assert.Len(t, ex.PositivesFor(""), 2)
	assert.Equal(t, "120/80", ex.SpanText(ex.Positives[0]))
	assert.Equal(t, []string{"bp", "hr"}, Labels([]Example{ex}))
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Engine.Kind = "pcre"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	assert.True(t, errors.Is(err, ErrEngineUnavailable))

	cfg = DefaultConfig()
	cfg.Concurrency.CPUFraction = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfiguration)
}
