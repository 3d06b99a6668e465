package hmmlib

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Fold is one train/test split of the time points of a sequence.
//
// The symbols at the selected time points are joined into a single
// sequence, so a fold whose indices are not contiguous treats the two sides
// of every gap as consecutive.  This is an approximation for time series
// and affects at most one transition per gap.
type Fold struct {
	Train []int
	Test  []int
}

// FoldResult holds the fits and held-out score for one fold.
type FoldResult struct {

	// Position of the best fit in Fits
	Best int

	// The fits from all starting values, on the training data
	Fits []*FitResult

	// Log-likelihood of the test data at the best parameters
	TestLoglike float64

	// Number of test time points
	NTest int
}

// CVResult holds the outcome of cross-validation.
type CVResult struct {
	Folds []FoldResult

	// Mean over folds of the held-out log-likelihood
	MeanTestLoglike float64

	// Standard error of MeanTestLoglike
	StdErr float64
}

// KFold splits the time points 0, ..., n-1 into k contiguous test blocks.
// The first n mod k blocks have one extra point.  The training set of each
// fold is the complement of its test block.
func KFold(n, k int) ([]Fold, error) {

	if k < 2 || k > n {
		return nil, errors.Wrapf(ErrInvalidPartition, "%d folds for %d time points", k, n)
	}

	folds := make([]Fold, k)
	pos := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}

		test := make([]int, 0, size)
		train := make([]int, 0, n-size)
		for t := 0; t < n; t++ {
			if t >= pos && t < pos+size {
				test = append(test, t)
			} else {
				train = append(train, t)
			}
		}
		folds[f] = Fold{Train: train, Test: test}
		pos += size
	}

	return folds, nil
}

// Subsequence returns the symbols of obs at the given time points.
func Subsequence(obs []int, idx []int) []int {

	sub := make([]int, len(idx))
	for i, t := range idx {
		sub[i] = obs[t]
	}

	return sub
}

// checkFolds confirms that every fold has disjoint, non-empty training and
// test sets within [0, n), and that every time point is tested exactly
// once.
func checkFolds(folds []Fold, n int) error {

	if len(folds) == 0 {
		return errors.Wrap(ErrInvalidPartition, "no folds")
	}

	tested := make([]int, n)
	mark := make([]int, n)
	for f, fold := range folds {

		if len(fold.Train) == 0 || len(fold.Test) == 0 {
			return errors.Wrapf(ErrInvalidPartition, "fold %d has an empty training or test set", f)
		}

		for _, t := range fold.Train {
			if t < 0 || t >= n {
				return errors.Wrapf(ErrInvalidPartition, "fold %d: time point %d outside [0, %d)", f, t, n)
			}
			mark[t] = f + 1
		}

		for _, t := range fold.Test {
			if t < 0 || t >= n {
				return errors.Wrapf(ErrInvalidPartition, "fold %d: time point %d outside [0, %d)", f, t, n)
			}
			if mark[t] == f+1 {
				return errors.Wrapf(ErrInvalidPartition, "fold %d: time point %d is used for training and testing", f, t)
			}
			tested[t]++
		}
	}

	for t, c := range tested {
		if c != 1 {
			return errors.Wrapf(ErrInvalidPartition, "time point %d is tested %d times", t, c)
		}
	}

	return nil
}

// ScoreFolds returns the log-likelihood of the test data of each fold at a
// fixed parameter value.
func ScoreFolds(obs []int, folds []Fold, par *Params) ([]float64, error) {

	if err := checkFolds(folds, len(obs)); err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	for f, fold := range folds {
		ll, err := Loglike(Subsequence(obs, fold.Test), par)
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", f)
		}
		scores[f] = ll
	}

	return scores, nil
}

// CrossValidate fits the model to the training data of each fold using
// FitBest, then scores the test data of the fold at the best parameters.
// The folds are fitted one after another; the starting values within a
// fold are fitted concurrently.
func (est *Estimator) CrossValidate(ctx context.Context, obs []int, folds []Fold, sampler InitSampler) (*CVResult, error) {

	if sampler == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "nil InitSampler")
	}
	if err := checkObs(obs, est.NSymbol); err != nil {
		return nil, err
	}
	if err := checkFolds(folds, len(obs)); err != nil {
		return nil, err
	}

	bar := est.newBar(len(folds)*est.NInit, "cross-validating")

	res := &CVResult{
		Folds: make([]FoldResult, len(folds)),
	}
	scores := make([]float64, len(folds))

	for f, fold := range folds {

		train := Subsequence(obs, fold.Train)
		best, fits, err := est.fitBest(ctx, train, sampler, foldSeed(est.Seed, f), bar)
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", f)
		}

		test := Subsequence(obs, fold.Test)
		ll := forward(test, fits[best].Params, make([]float64, len(test)*est.NState), make([]float64, len(test)))

		res.Folds[f] = FoldResult{
			Best:        best,
			Fits:        fits,
			TestLoglike: ll,
			NTest:       len(test),
		}
		scores[f] = ll

		est.logger.Info("fold complete", zap.Int("fold", f),
			zap.Float64("train_llf", fits[best].Loglike()), zap.Float64("test_llf", ll))
	}

	mean, std := stat.MeanStdDev(scores, nil)
	res.MeanTestLoglike = mean
	res.StdErr = stat.StdErr(std, float64(len(scores)))
	if math.IsNaN(res.StdErr) {
		res.StdErr = 0
	}

	return res, nil
}

// foldSeed derives the seed used for the starting values of fold f.
func foldSeed(seed uint64, f int) uint64 {
	return seed + uint64(f+1)*0x9e3779b97f4a7c15
}
