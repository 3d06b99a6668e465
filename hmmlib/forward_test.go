package hmmlib_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/kshedden/cathmm/hmmlib"
	"github.com/kshedden/cathmm/hmmsim"
)

// urnParams is the three urn, two color example found in many textbooks.
func urnParams(t *testing.T) *hmmlib.Params {
	par, err := hmmlib.NewParams(3, 2,
		[]float64{0.5, 0.2, 0.3, 0.3, 0.5, 0.2, 0.2, 0.3, 0.5},
		[]float64{0.5, 0.5, 0.4, 0.6, 0.7, 0.3},
		[]float64{0.2, 0.4, 0.4})
	require.NoError(t, err)
	return par
}

// persistentParams has two sticky states with distinct emissions.
func persistentParams(t *testing.T) *hmmlib.Params {
	par, err := hmmlib.NewParams(2, 2,
		[]float64{0.95, 0.05, 0.1, 0.9},
		[]float64{0.9, 0.1, 0.2, 0.8},
		[]float64{0.5, 0.5})
	require.NoError(t, err)
	return par
}

func TestLoglikeUrn(t *testing.T) {
	par := urnParams(t)
	obs := []int{0, 1, 0}

	ll, err := hmmlib.Loglike(obs, par)
	require.NoError(t, err)
	require.InDelta(t, 0.130218, math.Exp(ll), 1e-6)

	post, err := hmmlib.Evaluate(obs, par)
	require.NoError(t, err)
	require.InDelta(t, ll, post.LogLike, 1e-12)
	require.InDelta(t, ll, post.BackLogLike, 1e-12)

	lf, err := hmmlib.LogForward(obs, par)
	require.NoError(t, err)
	require.InDelta(t, ll, lf, 1e-12)
}

func TestForwardBackwardAgree(t *testing.T) {
	par := persistentParams(t)
	_, obs := hmmsim.Generate(par, 5000, 3)

	post, err := hmmlib.Evaluate(obs, par)
	require.NoError(t, err)
	require.False(t, math.IsInf(post.LogLike, 0))

	tol := 1e-9 * math.Abs(post.LogLike)
	require.InDelta(t, post.LogLike, post.BackLogLike, tol)

	lf, err := hmmlib.LogForward(obs, par)
	require.NoError(t, err)
	require.InDelta(t, post.LogLike, lf, tol)

	ll, err := hmmlib.Loglike(obs, par)
	require.NoError(t, err)
	require.Equal(t, post.LogLike, ll)
}

func TestPosteriorProbabilities(t *testing.T) {
	par := urnParams(t)
	_, obs := hmmsim.Generate(par, 200, 5)

	post, err := hmmlib.Evaluate(obs, par)
	require.NoError(t, err)
	require.Equal(t, 200, post.NTime)
	require.Equal(t, 3, post.NState)

	for ti := 0; ti < post.NTime; ti++ {
		g := post.GammaRow(ti)
		require.InDelta(t, 1, floats.Sum(g), 1e-12)
		for _, v := range g {
			require.True(t, v >= 0 && v <= 1+1e-12)
		}
	}

	// Each xi matrix is a joint distribution whose row margins are gamma
	for ti := 0; ti < post.NTime-1; ti++ {
		xi := post.Xi(ti)
		require.InDelta(t, 1, floats.Sum(xi), 1e-12)
		g := post.GammaRow(ti)
		for i := 0; i < 3; i++ {
			require.InDelta(t, g[i], floats.Sum(xi[i*3:(i+1)*3]), 1e-10)
		}
	}

	require.InDelta(t, float64(post.NTime-1), floats.Sum(post.TransCount), 1e-8)
	require.Panics(t, func() { post.Xi(post.NTime - 1) })
}

func TestEvaluateIdempotent(t *testing.T) {
	par := urnParams(t)
	_, obs := hmmsim.Generate(par, 500, 11)
	orig := par.Clone()

	post1, err := hmmlib.Evaluate(obs, par)
	require.NoError(t, err)
	post2, err := hmmlib.Evaluate(obs, par)
	require.NoError(t, err)

	require.Equal(t, post1.LogLike, post2.LogLike)
	require.Equal(t, post1.Gamma, post2.Gamma)
	require.Equal(t, post1.TransCount, post2.TransCount)
	require.Equal(t, orig, par)
}

func TestSingleTimePoint(t *testing.T) {
	par := urnParams(t)

	post, err := hmmlib.Evaluate([]int{1}, par)
	require.NoError(t, err)

	// alpha_0 = pi * phi(y_0)
	want := []float64{0.2 * 0.5, 0.4 * 0.6, 0.4 * 0.3}
	require.InDeltaSlice(t, want, post.Alpha(0), 1e-12)
	require.InDelta(t, math.Log(floats.Sum(want)), post.LogLike, 1e-12)
	require.InDelta(t, post.LogLike, post.BackLogLike, 1e-12)
	require.InDeltaSlice(t, []float64{0, 0, 0, 0, 0, 0, 0, 0, 0}, post.TransCount, 0)
}

func TestEvaluateErrors(t *testing.T) {
	par := urnParams(t)

	_, err := hmmlib.Evaluate([]int{0, 2}, par)
	require.True(t, errors.Is(err, hmmlib.ErrDimensionMismatch))

	_, err = hmmlib.Evaluate([]int{0, -1}, par)
	require.True(t, errors.Is(err, hmmlib.ErrDimensionMismatch))

	_, err = hmmlib.Evaluate(nil, par)
	require.True(t, errors.Is(err, hmmlib.ErrDimensionMismatch))

	bad := par.Clone()
	bad.Trans[0] = 0.6
	_, err = hmmlib.Evaluate([]int{0}, bad)
	require.True(t, errors.Is(err, hmmlib.ErrInvalidProbability))

	bad = par.Clone()
	bad.Emit[0], bad.Emit[1] = -0.5, 1.5
	_, err = hmmlib.Loglike([]int{0}, bad)
	require.True(t, errors.Is(err, hmmlib.ErrInvalidProbability))

	bad = par.Clone()
	bad.Init = bad.Init[:2]
	_, err = hmmlib.LogForward([]int{0}, bad)
	require.True(t, errors.Is(err, hmmlib.ErrDimensionMismatch))

	_, err = hmmlib.NewParams(2, 2, []float64{1, 0, 0, 1}, []float64{1, 0, 0, math.NaN()}, []float64{1, 0})
	require.True(t, errors.Is(err, hmmlib.ErrInvalidProbability))
}

func TestZeroLikelihood(t *testing.T) {
	// Neither state can emit symbol 1
	par, err := hmmlib.NewParams(2, 2,
		[]float64{0.5, 0.5, 0.5, 0.5},
		[]float64{1, 0, 1, 0},
		[]float64{0.5, 0.5})
	require.NoError(t, err)

	ll, err := hmmlib.Loglike([]int{0, 0, 1, 0}, par)
	require.NoError(t, err)
	require.True(t, math.IsInf(ll, -1))

	_, err = hmmlib.Evaluate([]int{0, 0, 1, 0}, par)
	require.True(t, errors.Is(err, hmmlib.ErrZeroLikelihood))

	ll, err = hmmlib.Loglike([]int{0, 0, 0}, par)
	require.NoError(t, err)
	require.Equal(t, 0.0, ll)
}

func TestStartParams(t *testing.T) {
	obs := []int{0, 0, 1, 2, 2, 2}

	par, err := hmmlib.StartParams(obs, 4, 3)
	require.NoError(t, err)
	require.NoError(t, par.Validate())
	require.Equal(t, 0.8, par.Trans[0])

	// Each state favors a different symbol
	for k := 0; k < 3; k++ {
		row := par.EmitRow(k)
		require.Equal(t, k, floats.MaxIdx(row))
	}

	one, err := hmmlib.StartParams(obs, 1, 3)
	require.NoError(t, err)
	require.Equal(t, []float64{1}, one.Trans)

	_, err = hmmlib.StartParams(obs, 2, 2)
	require.True(t, errors.Is(err, hmmlib.ErrDimensionMismatch))
}
