package hmmlib

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// A decrease of the log-likelihood by more than this amount between EM
// iterations is reported.
const decreaseTol = 1e-6

// Status records why EM stopped.
type Status uint8

// Converged, etc. are the possible terminal states of an EM fit.
const (
	Converged Status = iota
	MaxIterReached
	LogLikeDecreased
	Canceled
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxIterReached:
		return "max_iter_reached"
	case LogLikeDecreased:
		return "loglike_decreased"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Starved identifies a state that received no posterior mass in an EM
// iteration.  The rows of a starved state are carried over unchanged.
type Starved struct {
	Iter  int
	State int
}

// Warnings counts the recoverable problems seen during a fit.
type Warnings struct {
	LogLikeDecreased int
	StarvedState     int
}

// FitResult holds the outcome of one EM run.
type FitResult struct {

	// The log-likelihood after each completed iteration
	LLF []float64

	// The log-likelihood at the starting values
	StartLLF float64

	// The estimated parameters
	Params *Params

	// Why the iterations stopped
	Status Status

	// States that were starved, by iteration
	Starved []Starved

	Warnings Warnings

	// Whether the initial distribution was estimated
	InferInit bool

	// Length of the fitted sequence
	NTime int
}

// Loglike returns the log-likelihood of the estimated parameters.
func (res *FitResult) Loglike() float64 {
	if len(res.LLF) == 0 {
		return res.StartLLF
	}
	return res.LLF[len(res.LLF)-1]
}

// Iterations returns the number of completed EM iterations.
func (res *FitResult) Iterations() int {
	return len(res.LLF)
}

// AIC returns the log-likelihood penalized by the number of free
// parameters.  Larger values are better.
func (res *FitResult) AIC() float64 {
	return res.Loglike() - float64(res.Params.NumFree(res.InferInit))
}

// BIC returns the log-likelihood penalized by half the number of free
// parameters times the log of the sequence length.  Larger values are
// better.
func (res *FitResult) BIC() float64 {
	df := float64(res.Params.NumFree(res.InferInit))
	return res.Loglike() - df*math.Log(float64(res.NTime))/2
}

// Estimator fits HMMs according to a Config.
type Estimator struct {
	Config

	logger   *zap.Logger
	progress io.Writer

	// Replaces update when set
	mstep func(obs []int, post *Posterior, par *Params, iter int, res *FitResult) *Params
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger used to report progress and problems.
func WithLogger(logger *zap.Logger) Option {
	return func(est *Estimator) {
		est.logger = logger
	}
}

// WithProgressWriter displays a progress bar on w while fitting from
// multiple starting values.
func WithProgressWriter(w io.Writer) Option {
	return func(est *Estimator) {
		est.progress = w
	}
}

// NewEstimator returns an Estimator for the given configuration.
func NewEstimator(cfg Config, opts ...Option) (*Estimator, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	est := &Estimator{
		Config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(est)
	}

	return est, nil
}

// Fit uses the EM algorithm to estimate the parameters of the HMM from the
// observed sequence, beginning at start.  Neither argument is modified.
//
// If the context is canceled between iterations, the result so far is
// returned along with the context's error.
func (est *Estimator) Fit(ctx context.Context, obs []int, start *Params) (*FitResult, error) {

	if err := start.Validate(); err != nil {
		return nil, err
	}
	if err := start.checkDims(est.NState, est.NSymbol); err != nil {
		return nil, err
	}
	if err := checkObs(obs, est.NSymbol); err != nil {
		return nil, err
	}

	return est.fit(ctx, obs, start)
}

func (est *Estimator) fit(ctx context.Context, obs []int, start *Params) (*FitResult, error) {

	t0 := time.Now()

	par := start.Clone()
	if !est.InferInit {
		par.Init = est.initDist()
	}

	res := &FitResult{
		LLF:       make([]float64, 0, est.MaxIter),
		Params:    par,
		Status:    MaxIterReached,
		InferInit: est.InferInit,
		NTime:     len(obs),
	}
	defer func() {
		fitDuration.WithLabelValues(res.Status.String()).Observe(time.Since(t0).Seconds())
	}()

	post, err := evaluate(obs, par)
	if err != nil {
		return nil, err
	}
	res.StartLLF = post.LogLike
	llf := post.LogLike

	mstep := est.update
	if est.mstep != nil {
		mstep = est.mstep
	}

	for i := 0; i < est.MaxIter; i++ {

		if err := ctx.Err(); err != nil {
			res.Status = Canceled
			est.logger.Info("EM canceled", zap.Int("iterations", i), zap.Float64("llf", llf))
			return res, err
		}

		newpar := mstep(obs, post, par, i, res)
		if est.Strict {
			if err := newpar.Validate(); err != nil {
				return res, errors.Wrapf(err, "iteration %d", i)
			}
		}

		post, err = evaluate(obs, newpar)
		if err != nil {
			return res, errors.Wrapf(err, "iteration %d", i)
		}
		emIterations.Inc()

		llfnew := post.LogLike
		est.logger.Debug("EM iteration", zap.Int("iter", i), zap.Float64("llf", llfnew))

		if llfnew < llf-decreaseTol {
			loglikeDecreases.Inc()
			res.Warnings.LogLikeDecreased++
			res.Status = LogLikeDecreased
			if est.Strict {
				return res, errors.Wrapf(ErrNonMonotonicLikelihood, "iteration %d: %f to %f", i, llf, llfnew)
			}
			// res.Params still holds the best parameters seen
			est.logger.Warn("log-likelihood decreased",
				zap.Int("iter", i), zap.Float64("llf", llf), zap.Float64("decrease", llf-llfnew))
			return res, nil
		}

		par = newpar
		res.Params = par
		res.LLF = append(res.LLF, llfnew)

		if llfnew-llf < est.Tol {
			res.Status = Converged
			break
		}
		llf = llfnew
	}

	est.logger.Info("EM finished",
		zap.Stringer("status", res.Status),
		zap.Int("iterations", res.Iterations()),
		zap.Float64("llf", res.Loglike()))

	return res, nil
}

// update performs the M-step, returning new parameters estimated from the
// posterior probabilities.  par is not modified.
func (est *Estimator) update(obs []int, post *Posterior, par *Params, iter int, res *FitResult) *Params {

	nstate, nsymbol := par.NState, par.NSymbol
	newpar := par.Clone()

	// Expected number of visits to each state, and expected emission counts
	visits := make([]float64, nstate)
	zero(newpar.Emit)
	for t, y := range obs {
		g := post.GammaRow(t)
		for st := 0; st < nstate; st++ {
			newpar.Emit[st*nsymbol+y] += g[st]
		}
		floats.Add(visits, g)
	}

	for st := 0; st < nstate; st++ {

		starved := visits[st] < starveTol
		if starved {
			copy(newpar.EmitRow(st), par.EmitRow(st))
		} else {
			normalizeSum(newpar.EmitRow(st), 0)
		}

		// With a single time point no transitions are observed and the
		// transition matrix is left alone.
		if len(obs) > 1 {
			row := newpar.TransRow(st)
			copy(row, post.TransCount[st*nstate:(st+1)*nstate])
			if floats.Sum(row) < starveTol {
				copy(row, par.TransRow(st))
				starved = true
			} else {
				normalizeSum(row, 0)
			}
		}

		if starved {
			res.Starved = append(res.Starved, Starved{Iter: iter, State: st})
			res.Warnings.StarvedState++
			starvedStates.Inc()
			est.logger.Warn("starved state", zap.Int("iter", iter), zap.Int("state", st),
				zap.Float64("visits", visits[st]))
		}
	}

	if est.InferInit {
		copy(newpar.Init, post.GammaRow(0))
	}

	return newpar
}
