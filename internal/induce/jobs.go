package induce

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/pattern"
	"github.com/ppiankov/reginduce/internal/worker"
)

// stepFunc transforms a private clone of one example pattern
type stepFunc func(ctx context.Context, p *pattern.ExamplePattern) *pattern.ExamplePattern

// phaseJob runs one phase for one example pattern
type phaseJob struct {
	index   int
	pattern *pattern.ExamplePattern
	step    stepFunc
}

func (j *phaseJob) Execute(ctx context.Context) worker.Result {
	return &phaseResult{index: j.index, pattern: j.step(ctx, j.pattern)}
}

type phaseResult struct {
	index   int
	pattern *pattern.ExamplePattern
}

func (r *phaseResult) GetError() error {
	return nil
}

// forEach runs step for every slot on the worker pool and records changed patterns
func (r *run) forEach(ctx context.Context, phase string, slots []*slot, step stepFunc) error {
	pool := worker.NewPool(ctx, r.in.workers)
	pool.Start()
	for i, s := range slots {
		pool.Submit(&phaseJob{index: i, pattern: s.current().Clone(), step: step})
	}
	results := pool.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	changed := 0
	for _, res := range results {
		pr := res.(*phaseResult)
		s := slots[pr.index]
		if pr.pattern.Equal(s.current()) {
			continue
		}
		s.lineage.Push(phase, pr.pattern)
		changed++
	}
	r.in.logger.Debug("phase finished",
		zap.String("phase", phase),
		zap.Int("patterns", len(slots)),
		zap.Int("changed", changed))
	return nil
}
