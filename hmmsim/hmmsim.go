// Package hmmsim simulates data from categorical HMMs and provides the
// collaborators used when studying the estimators in hmmlib.
package hmmsim

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kshedden/cathmm/hmmlib"
)

// rowSamplers returns a categorical distribution for each row of the
// row-major matrix x.
func rowSamplers(x []float64, nrow, ncol int, src rand.Source) []distuv.Categorical {

	d := make([]distuv.Categorical, nrow)
	for i := range d {
		d[i] = distuv.NewCategorical(x[i*ncol:(i+1)*ncol], src)
	}

	return d
}

// GenStates generates a random state sequence of length ntime.
func GenStates(par *hmmlib.Params, ntime int, src rand.Source) []int {

	state := make([]int, ntime)
	if ntime == 0 {
		return state
	}

	trans := rowSamplers(par.Trans, par.NState, par.NState, src)

	// Set the initial state
	state[0] = int(distuv.NewCategorical(par.Init, src).Rand())

	// Set the rest of the states
	for t := 1; t < ntime; t++ {
		state[t] = int(trans[state[t-1]].Rand())
	}

	return state
}

// GenObs generates a random observation for each state.
func GenObs(par *hmmlib.Params, state []int, src rand.Source) []int {

	emit := rowSamplers(par.Emit, par.NState, par.NSymbol, src)

	obs := make([]int, len(state))
	for t, st := range state {
		obs[t] = int(emit[st].Rand())
	}

	return obs
}

// Generate simulates a state sequence and an observation sequence of
// length ntime.
func Generate(par *hmmlib.Params, ntime int, seed uint64) ([]int, []int) {

	src := rand.NewPCG(seed, seed^0x5851f42d4c957f2d)
	state := GenStates(par, ntime, src)
	obs := GenObs(par, state, src)

	return state, obs
}

// DirichletSampler returns an InitSampler that draws each row of the
// transition matrix, the emission matrix and the initial distribution from
// a symmetric Dirichlet distribution with concentration alpha.
func DirichletSampler(alpha float64) hmmlib.InitSampler {

	return func(nstate, nsymbol int, src rand.Source) (*hmmlib.Params, error) {

		if alpha <= 0 {
			return nil, errors.Errorf("DirichletSampler: alpha=%v must be positive", alpha)
		}

		draw := func(nrow, ncol int) []float64 {
			conc := make([]float64, ncol)
			for j := range conc {
				conc[j] = alpha
			}
			d := distmv.NewDirichlet(conc, src)
			x := make([]float64, 0, nrow*ncol)
			for i := 0; i < nrow; i++ {
				x = append(x, d.Rand(nil)...)
			}
			return x
		}

		trans := draw(nstate, nstate)
		emit := draw(nstate, nsymbol)
		init := draw(1, nstate)

		return hmmlib.NewParams(nstate, nsymbol, trans, emit, init)
	}
}

// OracleParams estimates the parameters from known states.  The initial
// distribution is estimated from the first state only, so it is an
// indicator vector.  Rows of states that never occur are uniform.
func OracleParams(state, obs []int, nstate, nsymbol int) (*hmmlib.Params, error) {

	if len(state) != len(obs) || len(state) == 0 {
		return nil, errors.Wrapf(hmmlib.ErrDimensionMismatch, "%d states, %d observations", len(state), len(obs))
	}

	par := &hmmlib.Params{
		NState:  nstate,
		NSymbol: nsymbol,
		Trans:   make([]float64, nstate*nstate),
		Emit:    make([]float64, nstate*nsymbol),
		Init:    make([]float64, nstate),
	}

	par.Init[state[0]] = 1
	for t := range state {
		par.Emit[state[t]*nsymbol+obs[t]]++
		if t+1 < len(state) {
			par.Trans[state[t]*nstate+state[t+1]]++
		}
	}

	for st := 0; st < nstate; st++ {
		normalize(par.TransRow(st))
		normalize(par.EmitRow(st))
	}

	if err := par.Validate(); err != nil {
		return nil, err
	}

	return par, nil
}

// normalize scales x to sum to 1, or makes it uniform if it sums to 0.
func normalize(x []float64) {

	var s float64
	for _, v := range x {
		s += v
	}

	for j := range x {
		if s == 0 {
			x[j] = 1 / float64(len(x))
		} else {
			x[j] /= s
		}
	}
}

// CompareStates returns the number of positions where the state sequences
// x and y disagree, and the number of positions compared.  Panics if the
// lengths of x and y differ.
func CompareStates(x, y []int) (int, int) {

	if len(x) != len(y) {
		panic("Lengths are not equal")
	}

	var e int
	for t := range x {
		if x[t] != y[t] {
			e++
		}
	}

	return e, len(x)
}
