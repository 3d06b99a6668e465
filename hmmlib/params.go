// Package hmmlib estimates hidden Markov models with categorical emissions
// using the EM (Baum-Welch) algorithm.
package hmmlib

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

const (
	// Tolerance for the row sums of user-supplied probability matrices
	probTol = 1e-6

	// A state whose expected number of visits falls below this value is
	// treated as starved and its rows are not re-estimated
	starveTol = 1e-10
)

// Params holds the structural parameters of an HMM with NState latent
// states and NSymbol observation classes.  The matrices are stored in
// row-major order.
type Params struct {

	// Number of states
	NState int

	// Number of observation classes
	NSymbol int

	// The transition probability matrix, Trans[i*NState+j] = P(j at t+1 | i at t)
	Trans []float64

	// The emission probability matrix, Emit[k*NSymbol+c] = P(c | k)
	Emit []float64

	// The initial state distribution
	Init []float64
}

// NewParams returns a validated Params value holding copies of the given
// slices.
func NewParams(nstate, nsymbol int, trans, emit, init []float64) (*Params, error) {

	par := &Params{
		NState:  nstate,
		NSymbol: nsymbol,
		Trans:   append([]float64(nil), trans...),
		Emit:    append([]float64(nil), emit...),
		Init:    append([]float64(nil), init...),
	}

	if err := par.Validate(); err != nil {
		return nil, err
	}

	return par, nil
}

// Clone returns a deep copy of the parameters.
func (par *Params) Clone() *Params {
	return &Params{
		NState:  par.NState,
		NSymbol: par.NSymbol,
		Trans:   append([]float64(nil), par.Trans...),
		Emit:    append([]float64(nil), par.Emit...),
		Init:    append([]float64(nil), par.Init...),
	}
}

// TransRow returns the transition probabilities out of state i.  The
// returned slice aliases the parameters.
func (par *Params) TransRow(i int) []float64 {
	return par.Trans[i*par.NState : (i+1)*par.NState]
}

// EmitRow returns the emission probabilities of state k.  The returned
// slice aliases the parameters.
func (par *Params) EmitRow(k int) []float64 {
	return par.Emit[k*par.NSymbol : (k+1)*par.NSymbol]
}

// Validate checks the shapes of the parameter slices, then checks that every
// row is a probability vector.
func (par *Params) Validate() error {

	if err := par.checkShape(); err != nil {
		return err
	}

	if err := checkProb(par.Init, 1, par.NState, "initial distribution"); err != nil {
		return err
	}
	if err := checkProb(par.Trans, par.NState, par.NState, "transition matrix"); err != nil {
		return err
	}

	return checkProb(par.Emit, par.NState, par.NSymbol, "emission matrix")
}

func (par *Params) checkShape() error {

	if par == nil {
		return errors.Wrap(ErrDimensionMismatch, "nil parameters")
	}

	if par.NState < 1 || par.NSymbol < 1 {
		return errors.Wrapf(ErrDimensionMismatch, "NState=%d, NSymbol=%d", par.NState, par.NSymbol)
	}

	if len(par.Trans) != par.NState*par.NState {
		return errors.Wrapf(ErrDimensionMismatch, "transition matrix has %d entries, want %d",
			len(par.Trans), par.NState*par.NState)
	}

	if len(par.Emit) != par.NState*par.NSymbol {
		return errors.Wrapf(ErrDimensionMismatch, "emission matrix has %d entries, want %d",
			len(par.Emit), par.NState*par.NSymbol)
	}

	if len(par.Init) != par.NState {
		return errors.Wrapf(ErrDimensionMismatch, "initial distribution has %d entries, want %d",
			len(par.Init), par.NState)
	}

	return nil
}

// checkDims confirms that the parameters have the declared sizes.
func (par *Params) checkDims(nstate, nsymbol int) error {

	if par == nil {
		return errors.Wrap(ErrDimensionMismatch, "nil parameters")
	}

	if par.NState != nstate || par.NSymbol != nsymbol {
		return errors.Wrapf(ErrDimensionMismatch, "parameters are %dx%d, configuration is %dx%d",
			par.NState, par.NSymbol, nstate, nsymbol)
	}

	return nil
}

// NumFree returns the number of free parameters.  The initial distribution
// is only counted if it is estimated.
func (par *Params) NumFree(inferInit bool) int {

	df := par.NState * (par.NState - 1)  // Transition matrix
	df += par.NState * (par.NSymbol - 1) // Emission matrix
	if inferInit {
		df += par.NState - 1
	}

	return df
}

// checkProb checks that x holds nrow probability vectors of length ncol.
func checkProb(x []float64, nrow, ncol int, name string) error {

	for i := 0; i < nrow; i++ {
		row := x[i*ncol : (i+1)*ncol]
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return errors.Wrapf(ErrInvalidProbability, "%s[%d,%d] = %v", name, i, j, v)
			}
		}
		if s := floats.Sum(row); math.Abs(s-1) > probTol {
			return errors.Wrapf(ErrInvalidProbability, "%s row %d sums to %v", name, i, s)
		}
	}

	return nil
}

// checkObs confirms that the sequence is not empty and that every symbol
// is in [0, nsymbol).
func checkObs(obs []int, nsymbol int) error {

	if len(obs) == 0 {
		return errors.Wrap(ErrDimensionMismatch, "empty observation sequence")
	}

	for t, y := range obs {
		if y < 0 || y >= nsymbol {
			return errors.Wrapf(ErrDimensionMismatch, "symbol %d at time %d is outside [0, %d)", y, t, nsymbol)
		}
	}

	return nil
}

// UniformInit returns the uniform distribution over nstate states.
func UniformInit(nstate int) []float64 {

	v := make([]float64, nstate)
	for i := range v {
		v[i] = 1 / float64(nstate)
	}

	return v
}

// StartParams returns deterministic starting values for EM.  States remain
// in place with probability 0.8.  The emission rows are built from the
// marginal symbol frequencies, each state favoring a different symbol so
// that the states are not exchangeable.
func StartParams(obs []int, nstate, nsymbol int) (*Params, error) {

	if nstate < 1 || nsymbol < 1 {
		return nil, errors.Wrapf(ErrDimensionMismatch, "NState=%d, NSymbol=%d", nstate, nsymbol)
	}
	if err := checkObs(obs, nsymbol); err != nil {
		return nil, err
	}

	marg := make([]float64, nsymbol)
	for _, y := range obs {
		marg[y]++
	}
	normalizeSum(marg, 1/float64(nsymbol))

	par := &Params{
		NState:  nstate,
		NSymbol: nsymbol,
		Trans:   make([]float64, nstate*nstate),
		Emit:    make([]float64, nstate*nsymbol),
		Init:    UniformInit(nstate),
	}

	for i := 0; i < nstate; i++ {
		row := par.EmitRow(i)
		target := i % nsymbol
		shift := 1 + float64(i/nsymbol)
		for c := range row {
			if c == target {
				row[c] = marg[c]*shift + 1e-3
			} else {
				row[c] = marg[c]/10 + 1e-3
			}
		}
		normalizeSum(row, 1/float64(nsymbol))
	}

	for i := 0; i < nstate; i++ {
		for j := 0; j < nstate; j++ {
			switch {
			case nstate == 1:
				par.Trans[i*nstate+j] = 1
			case i == j:
				par.Trans[i*nstate+j] = 0.8
			default:
				par.Trans[i*nstate+j] = 0.2 / float64(nstate-1)
			}
		}
	}

	return par, nil
}
