package hmmlib

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Posterior holds the output of the forward-backward recursions for one
// sequence and one parameter value.  The forward and backward tables are
// rescaled at every time point so that each row sums to 1.
type Posterior struct {

	// Number of time points
	NTime int

	// Number of states
	NState int

	// The scaled forward probabilities, NTime x NState
	Fprob []float64

	// The scaled backward probabilities, NTime x NState
	Bprob []float64

	// The state occupation probabilities, NTime x NState
	Gamma []float64

	// The expected number of transitions from i to j, summed over time
	TransCount []float64

	// The log-likelihood from the forward sweep
	LogLike float64

	// The log-likelihood from the backward sweep
	BackLogLike float64

	// Cumulative log scale of the forward table at each time point
	flog []float64

	obs []int
	par *Params
}

// Evaluate runs the forward-backward recursions for the observed sequence
// at the given parameter value, and returns the log-likelihood together
// with the posterior state and transition probabilities.  Neither argument
// is modified.
func Evaluate(obs []int, par *Params) (*Posterior, error) {

	if err := par.Validate(); err != nil {
		return nil, err
	}
	if err := checkObs(obs, par.NSymbol); err != nil {
		return nil, err
	}

	return evaluate(obs, par)
}

// evaluate is Evaluate without the argument checks.
func evaluate(obs []int, par *Params) (*Posterior, error) {

	ntime, nstate := len(obs), par.NState

	post := &Posterior{
		NTime:      ntime,
		NState:     nstate,
		Fprob:      make([]float64, ntime*nstate),
		Bprob:      make([]float64, ntime*nstate),
		Gamma:      make([]float64, ntime*nstate),
		TransCount: make([]float64, nstate*nstate),
		flog:       make([]float64, ntime),
		obs:        obs,
		par:        par,
	}

	// The two sweeps only read obs and par
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		post.LogLike = forward(obs, par, post.Fprob, post.flog)
	}()
	go func() {
		defer wg.Done()
		post.BackLogLike = backward(obs, par, post.Bprob)
	}()
	wg.Wait()

	if math.IsInf(post.LogLike, -1) || math.IsInf(post.BackLogLike, -1) {
		return nil, errors.Wrapf(ErrZeroLikelihood, "sequence of length %d", ntime)
	}

	post.occupation()
	post.transitions()

	return post, nil
}

// Loglike returns the log-likelihood of the observed sequence at the given
// parameter value, using the forward sweep only.  If the sequence cannot be
// produced by the parameters, -Inf is returned with a nil error.
func Loglike(obs []int, par *Params) (float64, error) {

	if err := par.Validate(); err != nil {
		return 0, err
	}
	if err := checkObs(obs, par.NSymbol); err != nil {
		return 0, err
	}

	fprob := make([]float64, len(obs)*par.NState)
	flog := make([]float64, len(obs))

	return forward(obs, par, fprob, flog), nil
}

// LogForward computes the log-likelihood with the forward recursion carried
// out entirely on the log scale.  It agrees with Loglike up to rounding and
// is provided as an independent check of the scaled recursions.
func LogForward(obs []int, par *Params) (float64, error) {

	if err := par.Validate(); err != nil {
		return 0, err
	}
	if err := checkObs(obs, par.NSymbol); err != nil {
		return 0, err
	}

	nstate := par.NState
	lt := make([]float64, nstate*nstate)
	for j, v := range par.Trans {
		lt[j] = math.Log(v)
	}
	le := make([]float64, len(par.Emit))
	for j, v := range par.Emit {
		le[j] = math.Log(v)
	}

	lfp := make([]float64, nstate)
	next := make([]float64, nstate)
	terms := make([]float64, nstate)

	for st := 0; st < nstate; st++ {
		lfp[st] = math.Log(par.Init[st]) + le[st*par.NSymbol+obs[0]]
	}

	for _, y := range obs[1:] {
		for st1 := 0; st1 < nstate; st1++ {
			for st2 := 0; st2 < nstate; st2++ {
				terms[st2] = lfp[st2] + lt[st2*nstate+st1]
			}
			next[st1] = floats.LogSumExp(terms) + le[st1*par.NSymbol+y]
		}
		lfp, next = next, lfp
	}

	return floats.LogSumExp(lfp), nil
}

// forward fills fprob with the forward probabilities, each row scaled to sum
// to 1, and returns the log-likelihood.  The cumulative log scale at each
// time point is written to flog.
func forward(obs []int, par *Params, fprob, flog []float64) float64 {

	nstate, nsymbol := par.NState, par.NSymbol
	var llf float64

	for t, y := range obs {

		row := fprob[t*nstate : (t+1)*nstate]

		if t == 0 {
			for st := 0; st < nstate; st++ {
				row[st] = par.Init[st] * par.Emit[st*nsymbol+y]
			}
		} else {
			// Transition is from st2 at time t-1 to st1 at time t
			prev := fprob[(t-1)*nstate : t*nstate]
			for st1 := 0; st1 < nstate; st1++ {
				var s float64
				for st2 := 0; st2 < nstate; st2++ {
					s += prev[st2] * par.Trans[st2*nstate+st1]
				}
				row[st1] = s * par.Emit[st1*nsymbol+y]
			}
		}

		scale := normalizeSum(row, 0)
		if scale == 0 {
			for ; t < len(obs); t++ {
				flog[t] = math.Inf(-1)
			}
			return math.Inf(-1)
		}
		llf += math.Log(scale)
		flog[t] = llf
	}

	return llf
}

// backward fills bprob with the backward probabilities, each row scaled to
// sum to 1, and returns the log-likelihood obtained by closing the recursion
// with the initial distribution.  The scaling is independent of the forward
// sweep.
func backward(obs []int, par *Params, bprob []float64) float64 {

	nstate, nsymbol := par.NState, par.NSymbol
	ntime := len(obs)
	lby := make([]float64, nstate)

	last := bprob[(ntime-1)*nstate:]
	for st := range last {
		last[st] = 1
	}
	var llf float64

	for t := ntime - 2; t >= 0; t-- {

		next := bprob[(t+1)*nstate : (t+2)*nstate]
		row := bprob[t*nstate : (t+1)*nstate]
		y := obs[t+1]

		for st := 0; st < nstate; st++ {
			lby[st] = par.Emit[st*nsymbol+y] * next[st]
		}

		// From st1 at t to st2 at t+1
		for st1 := 0; st1 < nstate; st1++ {
			var s float64
			for st2 := 0; st2 < nstate; st2++ {
				s += par.Trans[st1*nstate+st2] * lby[st2]
			}
			row[st1] = s
		}

		scale := normalizeSum(row, 0)
		if scale == 0 {
			return math.Inf(-1)
		}
		llf += math.Log(scale)
	}

	var s float64
	for st := 0; st < nstate; st++ {
		s += par.Init[st] * par.Emit[st*nsymbol+obs[0]] * bprob[st]
	}
	if s == 0 {
		return math.Inf(-1)
	}

	return llf + math.Log(s)
}

// occupation computes the posterior state probabilities.
func (post *Posterior) occupation() {

	nstate := post.NState
	for t := 0; t < post.NTime; t++ {
		i, j := t*nstate, (t+1)*nstate
		g := post.Gamma[i:j]
		floats.MulTo(g, post.Fprob[i:j], post.Bprob[i:j])
		normalizeSum(g, 1/float64(nstate))
	}
}

// transitions accumulates the posterior transition probabilities over time.
func (post *Posterior) transitions() {

	joint := make([]float64, post.NState*post.NState)
	lcp := make([]float64, post.NState)

	for t := 0; t < post.NTime-1; t++ {
		post.joint(t, joint, lcp)
		floats.Add(post.TransCount, joint)
	}
}

// joint writes the posterior probabilities of the transitions between time
// t and t+1 into joint.  lcp is a workspace of length NState.
func (post *Posterior) joint(t int, joint, lcp []float64) {

	par := post.par
	nstate, nsymbol := par.NState, par.NSymbol
	y := post.obs[t+1]

	for st := 0; st < nstate; st++ {
		lcp[st] = par.Emit[st*nsymbol+y] * post.Bprob[(t+1)*nstate+st]
	}

	for st1 := 0; st1 < nstate; st1++ {
		fp := post.Fprob[t*nstate+st1]
		for st2 := 0; st2 < nstate; st2++ {
			joint[st1*nstate+st2] = fp * par.Trans[st1*nstate+st2] * lcp[st2]
		}
	}

	normalizeSum(joint, 0)
}

// Xi returns the posterior probabilities of the transitions between time t
// and t+1, as an NState x NState matrix.
func (post *Posterior) Xi(t int) []float64 {

	if t < 0 || t >= post.NTime-1 {
		panic("Xi: time point out of range")
	}

	joint := make([]float64, post.NState*post.NState)
	post.joint(t, joint, make([]float64, post.NState))

	return joint
}

// Alpha returns the unscaled forward probabilities at time t.  These
// underflow for long sequences; use Fprob for computation.
func (post *Posterior) Alpha(t int) []float64 {

	nstate := post.NState
	a := make([]float64, nstate)
	floats.ScaleTo(a, math.Exp(post.flog[t]), post.Fprob[t*nstate:(t+1)*nstate])

	return a
}

// GammaRow returns the posterior state probabilities at time t.  The
// returned slice aliases the posterior.
func (post *Posterior) GammaRow(t int) []float64 {
	return post.Gamma[t*post.NState : (t+1)*post.NState]
}
