package runner

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunAll runs jobs concurrently, at most jobs at a time (the configured
// [run].jobs when jobs <= 0). Every job gets a Result in input order; failed
// jobs carry Err, and the joined failures are returned.
func (r *Runner) RunAll(ctx context.Context, list []Job, jobs int) ([]*Result, error) {
	if jobs <= 0 {
		jobs = r.cfg.Run.Jobs
	}
	if jobs <= 0 {
		jobs = 1
	}

	results := make([]*Result, len(list))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, job := range list {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = &Result{Job: job, Err: err}
				return nil
			}
			res, err := r.Run(ctx, job)
			if err != nil {
				res = &Result{Job: job, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", jobName(res.Job), res.Err))
		}
	}
	return results, errors.Join(errs...)
}
