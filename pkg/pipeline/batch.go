package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds how many scores lay out in parallel.
const DefaultBatchConcurrency = 4

// BatchItem pairs one run's options with its result slot.
type BatchItem struct {
	Options Options
	Result  *Result
	Err     error
}

// ExecuteBatch runs the pipeline over several scores concurrently. Each
// item records its own result or error; the returned error is the first
// failure, with the remaining items still attempted. concurrency <= 0
// falls back to DefaultBatchConcurrency.
//
// Layout runs are CPU-bound and independent, so the batch shares one cache
// and one runner across goroutines.
func (r *Runner) ExecuteBatch(ctx context.Context, items []BatchItem, concurrency int) ([]BatchItem, error) {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	// A failed item must not cancel its siblings, so the group runs
	// without a derived context.
	var g errgroup.Group
	g.SetLimit(concurrency)

	out := make([]BatchItem, len(items))
	copy(out, items)
	for i := range out {
		i := i
		g.Go(func() error {
			res, err := r.Execute(ctx, out[i].Options)
			out[i].Result = res
			out[i].Err = err
			return err
		})
	}

	err := g.Wait()
	return out, err
}
