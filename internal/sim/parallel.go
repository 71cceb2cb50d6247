package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/ausocean/utils/logging"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/liepid/internal/feedback"
	"github.com/san-kum/liepid/internal/lie"
)

// Ensemble runs one scenario from several initial poses in parallel. Every
// run gets its own controller and metrics, since a PID is owned by a single
// loop.
type Ensemble[G lie.Group[G]] struct {
	newCtrl    func() *feedback.PID[feedback.Seconds, G]
	newMetrics func() []Metric
	log        logging.Logger
}

func NewEnsemble[G lie.Group[G]](newCtrl func() *feedback.PID[feedback.Seconds, G], newMetrics func() []Metric, log logging.Logger) *Ensemble[G] {
	return &Ensemble[G]{newCtrl: newCtrl, newMetrics: newMetrics, log: log}
}

// Run simulates every start concurrently. A diverging run does not stop the
// others: its partial result carries the error in Result.Err and the returned
// error joins all divergences. Any other error cancels the remaining runs and
// no results are returned.
func (e *Ensemble[G]) Run(ctx context.Context, starts []G, v0 lie.Tangent, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(starts))

	eg, ctx := errgroup.WithContext(ctx)
	for i, g0 := range starts {
		eg.Go(func() error {
			s := New(e.newCtrl(), e.log)
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					s.AddMetric(m)
				}
			}
			res, err := s.Run(ctx, g0, v0, cfg)
			results[i] = res
			if errors.Is(err, ErrUnstable) {
				e.log.Warning("ensemble run diverged", "run", i, "error", err.Error())
				return nil
			}
			return err
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var diverged []error
	for i, r := range results {
		if r.Err != nil {
			diverged = append(diverged, fmt.Errorf("run %d: %w", i, r.Err))
		}
	}
	return results, errors.Join(diverged...)
}
