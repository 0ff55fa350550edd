package induce

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ppiankov/reginduce/internal/engine"
	"github.com/ppiankov/reginduce/internal/logging"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/score"
)

func linearEngine(t *testing.T) engine.Engine {
	t.Helper()
	e, err := engine.New(model.EngineLinear, engine.Options{})
	require.NoError(t, err)
	return engine.NewCache(e)
}

func bpExamples() []model.Example {
	return []model.Example{
		{ID: "bp-1", Text: "BP 120/80", Positives: []model.Span{{Start: 3, End: 9, Label: "bp"}}},
		{ID: "bp-2", Text: "BP 130/85", Positives: []model.Span{{Start: 3, End: 9, Label: "bp"}}},
	}
}

// capture returns group 1 of the first match of pattern in text
func capture(t *testing.T, e engine.Engine, pattern, text string) string {
	t.Helper()
	c, err := e.Compile(pattern)
	require.NoError(t, err)
	matches, err := c.FindAll(context.Background(), text)
	require.NoError(t, err)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Text(text, 1)
}

func TestInduce_InvalidConfiguration(t *testing.T) {
	ctx := context.Background()

	_, err := New(linearEngine(t), model.InductionConfig{}).Induce(ctx, "bp", nil)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))

	_, err = New(linearEngine(t), model.InductionConfig{}).Induce(ctx, "weight", bpExamples())
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))

	_, err = New(nil, model.InductionConfig{}).Induce(ctx, "bp", bpExamples())
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))

	malformed := []model.Example{{Text: "BP   ", Positives: []model.Span{{Start: 2, End: 5, Label: "bp"}}}}
	_, err = New(linearEngine(t), model.InductionConfig{}).Induce(ctx, "bp", malformed)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
}

func TestInduce_BloodPressureGeneralizes(t *testing.T) {
	e := linearEngine(t)
	in := New(e, model.InductionConfig{EnableTier2: true, MeasureSensitivity: true}, WithWorkers(2))

	m, err := in.Induce(context.Background(), "bp", bpExamples())
	require.NoError(t, err)

	require.Len(t, m.Tiers, 2)
	require.NotZero(t, m.Tiers[0].Len())
	assert.Equal(t, "bp", m.Label)
	assert.Equal(t, model.EngineLinear, m.Engine)
	assert.NotEmpty(t, m.ID)
	assert.Empty(t, m.Flagged)

	top := m.Tiers[0].Patterns[0]
	assert.Equal(t, 1.0, top.Weight)
	assert.Equal(t, "145/95", capture(t, e, top.Pattern, "BP 145/95"))
}

func TestInduce_Tier2Scorer(t *testing.T) {
	e := linearEngine(t)
	ctx := context.Background()

	m, err := New(e, model.InductionConfig{EnableTier2: true, Tier2Scorer: "f1"}).Induce(ctx, "bp", bpExamples())
	require.NoError(t, err)
	require.Len(t, m.Tiers, 2)
	assert.Equal(t, "f1", m.Metadata["tier2_scorer"])

	m, err = New(e, model.InductionConfig{EnableTier2: true}).Induce(ctx, "bp", bpExamples())
	require.NoError(t, err)
	assert.Equal(t, "tp_fp_diff", m.Metadata["tier2_scorer"])

	_, err = New(e, model.InductionConfig{EnableTier2: true, Tier2Scorer: "accuracy"}).Induce(ctx, "bp", bpExamples())
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
}

func TestInduce_HoldoutWordsSurvive(t *testing.T) {
	e := linearEngine(t)
	examples := []model.Example{
		{Text: "Weight: 184 lbs", Positives: []model.Span{{Start: 8, End: 11, Label: "weight"}}},
	}
	in := New(e, model.InductionConfig{HoldoutWords: []string{"Weight", "lbs"}})

	m, err := in.Induce(context.Background(), "weight", examples)
	require.NoError(t, err)
	require.Equal(t, 1, m.Tiers[0].Len())

	p := m.Tiers[0].Patterns[0].Pattern
	assert.True(t, strings.HasPrefix(p, "Weight"), p)
	assert.True(t, strings.HasSuffix(p, "lbs"), p)
	assert.Equal(t, "201", capture(t, e, p, "Weight: 201 lbs"))
	assert.Equal(t, "", capture(t, e, p, "Height: 201 cm"))
}

func TestInduce_SelfMatchAtEveryVersion(t *testing.T) {
	e := linearEngine(t)
	examples := append(bpExamples(), model.Example{
		ID:        "bp-3",
		Text:      "Pulse 72, BP 110/70 sitting",
		Positives: []model.Span{{Start: 13, End: 19, Label: "bp"}},
	})
	in := New(e, model.InductionConfig{EnableTier2: true, Debug: true})

	m, trace, err := in.InduceWithTrace(context.Background(), "bp", examples)
	require.NoError(t, err)
	assert.NotEmpty(t, m.Metadata["lineage_versions"])

	ev := score.NewEvaluator(e, score.NewCorpus(examples, "bp"), score.Policy{}, 2)
	for ti, tier := range trace.Tiers {
		for _, lineage := range tier {
			if ti == 0 {
				require.Greater(t, lineage.Len(), 1)
			}
			for _, v := range lineage.Versions() {
				origin := examples[v.Pattern.Origin.Example]
				ok, err := ev.MatchesSpan(context.Background(), v.Pattern.Render(false), origin.Text, v.Pattern.Origin.Span)
				require.NoError(t, err)
				assert.True(t, ok, "phase %s pattern %s lost its own span", v.Phase, v.Pattern.Render(false))
			}
		}
	}
}

func TestInduce_Tier1HasNoFalsePositives(t *testing.T) {
	e := linearEngine(t)
	examples := []model.Example{
		{Text: "BP 120/80", Positives: []model.Span{{Start: 3, End: 9, Label: "bp"}}},
		{Text: "BP 130/85", Positives: []model.Span{{Start: 3, End: 9, Label: "bp"}}},
		{Text: "Ratio 3/4 on film"},
		{Text: "Dose 1/2 tab", Negatives: []model.Span{{Start: 5, End: 8, Label: "bp"}}},
	}
	in := New(e, model.InductionConfig{EnableTier2: true})

	m, err := in.Induce(context.Background(), "bp", examples)
	require.NoError(t, err)

	ev := score.NewEvaluator(e, score.NewCorpus(examples, "bp"), score.Policy{}, 2)
	require.NotZero(t, m.Tiers[0].Len())
	for _, wp := range m.Tiers[0].Patterns {
		c, err := ev.Evaluate(context.Background(), []string{wp.Pattern})
		require.NoError(t, err)
		assert.Zero(t, c.FP, wp.Pattern)
		assert.NotEqual(t, "", capture(t, e, wp.Pattern, "BP 145/95"))
	}
}

func TestInduce_OverlappingSpansKeepFirst(t *testing.T) {
	observed := logging.NewObserved()
	examples := []model.Example{
		{ID: "overlap", Text: "BP 120/80 today", Positives: []model.Span{
			{Start: 3, End: 9, Label: "bp"},
			{Start: 3, End: 6, Label: "bp"},
		}},
		{ID: "plain", Text: "BP 130/85", Positives: []model.Span{{Start: 3, End: 9, Label: "bp"}}},
	}
	in := New(linearEngine(t), model.InductionConfig{Debug: true}, WithLogger(observed.Logger))

	r, err := in.newRun("bp", examples)
	require.NoError(t, err)
	assert.Len(t, r.slots, 2)
	assert.Equal(t, model.Span{Start: 3, End: 9, Label: "bp"}, r.slots[0].current().Origin.Span)
	observed.AssertLogged(t, zapcore.WarnLevel, "overlapping")

	m, err := in.Induce(context.Background(), "bp", examples)
	require.NoError(t, err)
	assert.NotZero(t, m.Tiers[0].Len())
}

func TestTrim_FixedPoint(t *testing.T) {
	examples := []model.Example{
		{Text: "Patient BP 120/80 at rest", Positives: []model.Span{{Start: 11, End: 17, Label: "bp"}}},
		{Text: "Patient BP 130/85 standing", Positives: []model.Span{{Start: 11, End: 17, Label: "bp"}}},
		{Text: "Ratio 3/4 at rest"},
	}
	in := New(linearEngine(t), model.InductionConfig{})
	r, err := in.newRun("bp", examples)
	require.NoError(t, err)
	require.NoError(t, r.prepare(context.Background()))

	ctx := context.Background()
	for _, s := range r.slots {
		trimmed := r.trim(ctx, s.current().Clone(), score.NoFalsePositives{})
		again := r.trim(ctx, trimmed.Clone(), score.NoFalsePositives{})
		assert.True(t, trimmed.Equal(again), "%s != %s", trimmed, again)
		assert.Less(t, len(trimmed.Render(false)), len(s.current().Render(false)))
	}
}

func TestTrim_SingleExampleReducesToValue(t *testing.T) {
	examples := []model.Example{
		{Text: "a b c 42 d", Positives: []model.Span{{Start: 6, End: 8, Label: "n"}}},
	}
	in := New(linearEngine(t), model.InductionConfig{})
	r, err := in.newRun("n", examples)
	require.NoError(t, err)

	p := r.slots[0].current()
	assert.Equal(t, 6, p.FrontLen())
	assert.Equal(t, 2, p.BackLen())

	trimmed := r.trim(context.Background(), p.Clone(), score.NoFalsePositives{})
	assert.Equal(t, 0, trimmed.FrontLen())
	assert.Equal(t, 0, trimmed.BackLen())
}

func TestInduce_LabeledMerge(t *testing.T) {
	e := linearEngine(t)
	examples := []model.Example{
		{Text: "Status: positive", Positives: []model.Span{{Start: 8, End: 16, Label: "status"}}},
		{Text: "Status: negative", Positives: []model.Span{{Start: 8, End: 16, Label: "status"}}},
	}
	cfg := model.InductionConfig{HoldoutWords: []string{"Status"}, GeneralizeLabeled: true}

	m, err := New(e, cfg).Induce(context.Background(), "status", examples)
	require.NoError(t, err)
	require.Equal(t, 1, m.Tiers[0].Len())

	p := m.Tiers[0].Patterns[0].Pattern
	assert.Contains(t, p, "positive|negative")
	assert.Equal(t, "negative", capture(t, e, p, "Status: negative"))

	cfg.GeneralizeLabeled = false
	m, err = New(e, cfg).Induce(context.Background(), "status", examples)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Tiers[0].Len())
}

func TestAbstract_KeepsOnlyNonRegressingClasses(t *testing.T) {
	examples := []model.Example{
		{Text: "Temp 38 C", Positives: []model.Span{{Start: 5, End: 7, Label: "temp"}}},
		{Text: "Pulse 38 C"},
	}
	in := New(linearEngine(t), model.InductionConfig{})
	r, err := in.newRun("temp", examples)
	require.NoError(t, err)
	require.NoError(t, r.prepare(context.Background()))

	order := r.frequencyOrder(r.slots)
	assert.Equal(t, []string{"C", "Temp"}, order)

	p := r.abstract(context.Background(), r.slots[0].current().Clone(), score.NoFalsePositives{}, order)
	rendered := p.Render(false)
	assert.True(t, strings.HasPrefix(rendered, "Temp"), rendered)
	assert.True(t, strings.HasSuffix(rendered, `[A-Za-z]{1,2}?`), rendered)
	assert.NotContains(t, rendered, `[A-Za-z]{1,5}?`)
}
