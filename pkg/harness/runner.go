package harness

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Result pairs a case with its observed outcome.
type Result struct {
	Case     Case
	Observed string
	Match    string
}

// Runner submits cases through a Submitter.
type Runner struct {
	submitter Submitter
	parallel  int
	logger    *slog.Logger
}

// NewRunner constructs a Runner. parallel below one means sequential.
func NewRunner(sub Submitter, parallel int, logger *slog.Logger) (*Runner, error) {
	if sub == nil {
		return nil, errors.New("submitter is required")
	}
	if parallel < 1 {
		parallel = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{submitter: sub, parallel: parallel, logger: logger}, nil
}

// Run submits every case and returns results in input order. A failed
// submission is recorded as the observed text "error: <err>" and does not
// stop the batch; only cancellation of ctx does.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			observed, err := r.submitter.Submit(gctx, c)
			if err != nil {
				r.logger.Warn("submission failed", "row", c.Row, "error", err)
				observed = "error: " + err.Error()
			}
			results[i] = Result{Case: c, Observed: observed, Match: Match(c.Expected, observed)}
			r.logger.Debug("case submitted", "row", c.Row, "observed", observed, "match", results[i].Match)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
