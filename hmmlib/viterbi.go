package hmmlib

import (
	"math"

	"github.com/pkg/errors"
)

// Decode uses the Viterbi algorithm to predict the most probable sequence
// of states for the observed sequence.  The log probability of the joint
// path and observations is also returned.
func Decode(obs []int, par *Params) ([]int, float64, error) {

	if err := par.Validate(); err != nil {
		return nil, 0, err
	}
	if err := checkObs(obs, par.NSymbol); err != nil {
		return nil, 0, err
	}

	ntime, nstate := len(obs), par.NState
	lpr := make([]float64, ntime*nstate)
	lpt := make([]int, ntime*nstate)

	reconstructionProbs(obs, par, lpr, lpt)

	last := lpr[(ntime-1)*nstate:]
	best := argmax(last)
	if math.IsInf(last[best], -1) {
		return nil, math.Inf(-1), errors.Wrapf(ErrZeroLikelihood, "sequence of length %d", ntime)
	}

	return traceback(ntime, nstate, best, lpt), last[best], nil
}

// reconstructionProbs constructs the table of log probabilities of the best
// path ending in each state, and the back pointers.
func reconstructionProbs(obs []int, par *Params, lpr []float64, lpt []int) {

	nstate, nsymbol := par.NState, par.NSymbol
	wk := make([]float64, nstate)

	lt := make([]float64, nstate*nstate)
	for j, v := range par.Trans {
		lt[j] = math.Log(v)
	}

	for st := 0; st < nstate; st++ {
		lpr[st] = math.Log(par.Init[st]) + math.Log(par.Emit[st*nsymbol+obs[0]])
	}

	j0 := 0
	j1 := nstate
	for t := 1; t < len(obs); t++ {

		// From st1 to st2
		for st2 := 0; st2 < nstate; st2++ {
			for st1 := 0; st1 < nstate; st1++ {
				wk[st1] = lpr[j0+st1] + lt[st1*nstate+st2]
			}

			// The best previous state
			jj := argmax(wk)
			lpt[j1+st2] = jj
			lpr[j1+st2] = wk[jj] + math.Log(par.Emit[st2*nsymbol+obs[t]])
		}

		j0 += nstate
		j1 += nstate
	}
}

func traceback(ntime, nstate, final int, lpt []int) []int {

	y := make([]int, ntime)
	y[ntime-1] = final

	for t := ntime - 2; t >= 0; t-- {
		y[t] = lpt[(t+1)*nstate+y[t+1]]
	}

	return y
}
