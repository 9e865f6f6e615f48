// Package batch runs many calculations with bounded concurrency.
//
// Jobs that resolve to the same artifact path share a worker and run in
// submission order. Otherwise a second job could find the first one's
// artifacts half written, or lose them to the first job's cleanup.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/xrfsim/internal/monitoring"
	"github.com/banshee-data/xrfsim/internal/xmimsim"
)

// Job is one calculation.
type Job struct {
	// Label identifies the job in logs and outcomes, typically the deck path.
	Label   string
	Model   *xmimsim.Model
	Options xmimsim.CalcOptions
}

// Outcome is the result of one job.
type Outcome struct {
	Job    Job
	Result *xmimsim.Result
	Err    error
}

// Runner executes jobs.
type Runner struct {
	// Limit caps concurrent workers; zero or less uses GOMAXPROCS.
	Limit int

	// OnDone, when set, is called after every job from the worker that ran
	// it. Calls for jobs sharing an artifact path never overlap.
	OnDone func(ctx context.Context, o Outcome)
}

type group struct {
	key     string
	indices []int
}

// Run executes every job and returns outcomes in job order. A failed job
// does not stop the others; the returned error joins every job error.
// Cancelling ctx stops jobs that have not started.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	for i, j := range jobs {
		outcomes[i].Job = j
	}

	var groups []*group
	byKey := make(map[string]*group)
	for i, j := range jobs {
		name, err := j.Model.Filename(j.Options.Simulator)
		if err != nil {
			outcomes[i].Err = err
			r.done(ctx, outcomes[i])
			continue
		}
		key := filepath.Join(j.Options.Dir, name)
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.indices = append(g.indices, i)
	}

	limit := r.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for _, g := range groups {
		if len(g.indices) > 1 {
			monitoring.Logf("%d jobs share %s; running them in sequence", len(g.indices), g.key)
		}
		eg.Go(func() error {
			for _, i := range g.indices {
				o := &outcomes[i]
				if err := egCtx.Err(); err != nil {
					o.Err = err
				} else {
					o.Result, o.Err = o.Job.Model.Calculate(egCtx, o.Job.Options)
				}
				if o.Err != nil {
					monitoring.Logf("%s: %v", o.Job.Label, o.Err)
				}
				r.done(egCtx, *o)
			}
			// job failures are reported per outcome and must not cancel siblings
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return outcomes, err
	}

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Job.Label, o.Err))
		}
	}
	return outcomes, errors.Join(errs...)
}

func (r *Runner) done(ctx context.Context, o Outcome) {
	if r.OnDone != nil {
		r.OnDone(ctx, o)
	}
}
