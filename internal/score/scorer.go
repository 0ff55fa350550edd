package score

import "strings"

// Scorer turns corpus counts into a comparable score. Higher is better.
type Scorer interface {
	Name() string
	FromCounts(c Counts) float64
}

// NoFalsePositives is 1 when nothing outside the positive spans matched, else 0
type NoFalsePositives struct{}

func (NoFalsePositives) Name() string { return "no_false_positives" }

func (NoFalsePositives) FromCounts(c Counts) float64 {
	if c.FP == 0 {
		return 1
	}
	return 0
}

// TPFPDiff is true positives minus false positives
type TPFPDiff struct{}

func (TPFPDiff) Name() string { return "tp_fp_diff" }

func (TPFPDiff) FromCounts(c Counts) float64 {
	return float64(c.TP - c.FP)
}

// F1Score is the harmonic mean of precision and recall
type F1Score struct{}

func (F1Score) Name() string { return "f1" }

func (F1Score) FromCounts(c Counts) float64 {
	return F1(c.TP, c.FP, c.FN)
}

// Precision returns tp/(tp+fp), or 0 when nothing matched
func Precision(tp, fp int) float64 {
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

// Recall returns tp/(tp+fn), or 0 without positives
func Recall(tp, fn int) float64 {
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

// F1 returns the harmonic mean of precision and recall
func F1(tp, fp, fn int) float64 {
	p, r := Precision(tp, fp), Recall(tp, fn)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ByName returns the scorer registered under name
func ByName(name string) (Scorer, bool) {
	switch strings.ToLower(name) {
	case NoFalsePositives{}.Name():
		return NoFalsePositives{}, true
	case TPFPDiff{}.Name():
		return TPFPDiff{}, true
	case F1Score{}.Name():
		return F1Score{}, true
	default:
		return nil, false
	}
}
