// Package evaluate measures a classifier with k-fold cross-validation.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/reginduce/internal/classifier"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/score"
)

// Factory creates a fresh, unfitted classifier for each fold
type Factory func() (classifier.Classifier, error)

// Options configures a cross-validation run
type Options struct {
	Folds       int
	Seed        uint64
	Policy      score.Policy
	Concurrency int // Folds evaluated at once
	Logger      *zap.Logger
}

// Result holds counts and derived metrics for one fold or the whole run
type Result struct {
	Fold      int          `json:"fold"` // 0 for the overall result
	Train     int          `json:"train"`
	Test      int          `json:"test"`
	Counts    score.Counts `json:"counts"`
	Precision float64      `json:"precision"`
	Recall    float64      `json:"recall"`
	F1        float64      `json:"f1"`
	Skipped   bool         `json:"skipped,omitempty"` // Training split had nothing to learn from
}

// Report is the outcome of a cross-validation run
type Report struct {
	Label      string   `json:"label"`
	Classifier string   `json:"classifier"`
	Folds      []Result `json:"folds"`
	Overall    Result   `json:"overall"`
}

// Split assigns example indices to k folds after a seeded shuffle
func Split(n, k int, seed uint64) [][]int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	folds := make([][]int, k)
	for i, idx := range order {
		folds[i%k] = append(folds[i%k], idx)
	}
	return folds
}

// CrossValidate fits a new classifier on k-1 folds and predicts on the held-out fold, k times.
// Counts are summed across folds for the overall result.
func CrossValidate(ctx context.Context, newClassifier Factory, label string, examples []model.Example, opts Options) (*Report, error) {
	if opts.Folds < 2 || opts.Folds > len(examples) {
		return nil, fmt.Errorf("%w: need 2 <= folds <= %d examples, got %d folds",
			model.ErrInvalidConfiguration, len(examples), opts.Folds)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	folds := Split(len(examples), opts.Folds, opts.Seed)
	classifiers := make([]classifier.Classifier, len(folds))
	for i := range classifiers {
		c, err := newClassifier()
		if err != nil {
			return nil, fmt.Errorf("create classifier: %w", err)
		}
		classifiers[i] = c
	}
	name := classifiers[0].Name()
	results := make([]Result, len(folds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range folds {
		train, test := partition(examples, folds, i)
		g.Go(func() error {
			res, err := runFold(gctx, classifiers[i], label, train, test, opts)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i+1, err)
			}
			res.Fold = i + 1
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Label: label, Classifier: name, Folds: results}
	var total score.Counts
	for _, r := range results {
		total = total.Add(r.Counts)
		report.Overall.Train += r.Train
		report.Overall.Test += r.Test
	}
	report.Overall.Counts = total
	report.Overall.fill()

	opts.Logger.Info("cross-validation finished",
		zap.String("label", label),
		zap.String("classifier", name),
		zap.Int("folds", len(folds)),
		zap.Float64("precision", report.Overall.Precision),
		zap.Float64("recall", report.Overall.Recall),
		zap.Float64("f1", report.Overall.F1))

	return report, nil
}

func partition(examples []model.Example, folds [][]int, held int) (train, test []model.Example) {
	for i, fold := range folds {
		for _, idx := range fold {
			if i == held {
				test = append(test, examples[idx])
			} else {
				train = append(train, examples[idx])
			}
		}
	}
	return train, test
}

func runFold(ctx context.Context, c classifier.Classifier, label string, train, test []model.Example, opts Options) (Result, error) {
	res := Result{Train: len(train), Test: len(test)}
	corpus := score.NewCorpus(test, label)

	if err := c.Fit(ctx, label, train); err != nil {
		if !errors.Is(err, model.ErrInvalidConfiguration) {
			return res, err
		}
		// Nothing learnable in this split: every test positive is missed
		opts.Logger.Warn("fold skipped", zap.String("label", label), zap.Error(err))
		res.Skipped = true
		res.Counts = score.Counts{Positives: corpus.Positives(), FN: corpus.Positives()}
		res.fill()
		return res, nil
	}

	for i := range corpus.Snippets {
		s := &corpus.Snippets[i]
		elements, err := c.Predict(ctx, s.Text)
		if err != nil {
			return res, fmt.Errorf("predict %s: %w", s.ID, err)
		}
		res.Counts = res.Counts.Add(opts.Policy.Compare(s, distinctSpans(elements)))
	}
	res.fill()
	return res, nil
}

func distinctSpans(elements []model.MatchedElement) []model.Span {
	seen := make(map[model.Span]bool)
	var spans []model.Span
	for _, e := range elements {
		s := model.Span{Start: e.Start, End: e.End}
		if s.Len() <= 0 || seen[s] {
			continue
		}
		seen[s] = true
		spans = append(spans, s)
	}
	return spans
}

func (r *Result) fill() {
	r.Precision = score.Precision(r.Counts.TP, r.Counts.FP)
	r.Recall = score.Recall(r.Counts.TP, r.Counts.FN)
	r.F1 = score.F1(r.Counts.TP, r.Counts.FP, r.Counts.FN)
}
