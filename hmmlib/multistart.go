package hmmlib

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// InitSampler produces random starting values for EM.  The returned
// parameters must be valid for nstate states and nsymbol observation
// classes.
type InitSampler func(nstate, nsymbol int, src rand.Source) (*Params, error)

// FitBest fits the model from NInit random starting values drawn by
// sampler, and returns the results of all the fits along with the position
// of the fit with the greatest final log-likelihood.  Ties go to the lowest
// position.
//
// Starting value i is drawn from a source seeded with Seed and i, so the
// results do not depend on the number of workers.
//
// If the context is canceled or a fit fails, the error is returned along
// with the results obtained so far, including partial fits, and the
// position of the best of them (-1 if there are none).
func (est *Estimator) FitBest(ctx context.Context, obs []int, sampler InitSampler) (int, []*FitResult, error) {

	if sampler == nil {
		return -1, nil, errors.Wrap(ErrInvalidConfig, "nil InitSampler")
	}
	if err := checkObs(obs, est.NSymbol); err != nil {
		return -1, nil, err
	}

	bar := est.newBar(est.NInit, "fitting")

	return est.fitBest(ctx, obs, sampler, est.Seed, bar)
}

func (est *Estimator) fitBest(ctx context.Context, obs []int, sampler InitSampler, seed uint64,
	bar *progressbar.ProgressBar) (int, []*FitResult, error) {

	results := make([]*FitResult, est.NInit)

	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(est.Workers)
	for i := 0; i < est.NInit; i++ {
		p.Go(func(ctx context.Context) error {

			src := rand.NewPCG(seed, uint64(i))
			start, err := sampler(est.NState, est.NSymbol, src)
			if err != nil {
				return errors.Wrapf(err, "starting value %d", i)
			}
			if err := start.Validate(); err != nil {
				return errors.Wrapf(err, "starting value %d", i)
			}
			if err := start.checkDims(est.NState, est.NSymbol); err != nil {
				return errors.Wrapf(err, "starting value %d", i)
			}

			// Each worker owns one slot.  A canceled fit still holds a valid
			// partial result.
			res, err := est.fit(ctx, obs, start)
			if res != nil {
				results[i] = res
			}
			if err != nil {
				return errors.Wrapf(err, "starting value %d", i)
			}

			est.logger.Debug("initialization complete", zap.Int("init", i),
				zap.Float64("llf", res.Loglike()), zap.Stringer("status", res.Status))
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return selectBest(results), results, err
	}

	best := selectBest(results)
	est.logger.Info("best starting value", zap.Int("init", best),
		zap.Float64("llf", results[best].Loglike()))

	return best, results, nil
}

// selectBest returns the position of the result with the greatest final
// log-likelihood, taking the first in case of ties.  Missing results are
// skipped, and -1 is returned if there are none.
func selectBest(results []*FitResult) int {

	best := -1
	for i, res := range results {
		if res == nil {
			continue
		}
		if best == -1 || res.Loglike() > results[best].Loglike() {
			best = i
		}
	}

	return best
}

func (est *Estimator) newBar(n int, desc string) *progressbar.ProgressBar {

	if est.progress == nil {
		return nil
	}

	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(est.progress),
		progressbar.OptionSetDescription(fmt.Sprintf("%s (%d states)", desc, est.NState)))
}
