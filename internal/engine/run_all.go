package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/report"
)

// RunAll runs independent scenarios concurrently, at most parallel at a time
// (unbounded when parallel <= 0). Each run owns its variable context and
// executors. Reports are returned in input order; a scenario rejected by
// validation leaves a nil entry and its error is returned after every other
// scenario has finished.
func (r *Runner) RunAll(ctx context.Context, scenarios []scenario.Scenario, parallel int) ([]*report.Report, error) {
	reports := make([]*report.Report, len(scenarios))

	var g errgroup.Group
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			rep, err := r.Run(ctx, sc)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
			reports[i] = rep
			return nil
		})
	}

	err := g.Wait()
	return reports, err
}
