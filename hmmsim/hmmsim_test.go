package hmmsim_test

import (
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/kshedden/cathmm/hmmlib"
	"github.com/kshedden/cathmm/hmmsim"
)

func truth(t *testing.T) *hmmlib.Params {
	par, err := hmmlib.NewParams(3, 4,
		[]float64{0.8, 0.1, 0.1, 0.2, 0.7, 0.1, 0.05, 0.15, 0.8},
		[]float64{0.7, 0.1, 0.1, 0.1, 0.1, 0.6, 0.2, 0.1, 0.25, 0.25, 0.25, 0.25},
		[]float64{0.3, 0.3, 0.4})
	require.NoError(t, err)
	return par
}

func TestGenerate(t *testing.T) {
	par := truth(t)

	state, obs := hmmsim.Generate(par, 1000, 5)
	require.Len(t, state, 1000)
	require.Len(t, obs, 1000)
	for i := range obs {
		require.True(t, state[i] >= 0 && state[i] < 3)
		require.True(t, obs[i] >= 0 && obs[i] < 4)
	}

	state2, obs2 := hmmsim.Generate(par, 1000, 5)
	require.Equal(t, state, state2)
	require.Equal(t, obs, obs2)

	_, obs3 := hmmsim.Generate(par, 1000, 6)
	require.NotEqual(t, obs, obs3)

	require.Empty(t, hmmsim.GenStates(par, 0, rand.NewPCG(1, 1)))
}

func TestOracleParams(t *testing.T) {
	par := truth(t)
	state, obs := hmmsim.Generate(par, 30000, 8)

	est, err := hmmsim.OracleParams(state, obs, 3, 4)
	require.NoError(t, err)
	require.InDeltaSlice(t, par.Trans, est.Trans, 0.03)
	require.InDeltaSlice(t, par.Emit, est.Emit, 0.03)
	require.Equal(t, 1.0, est.Init[state[0]])

	// State 2 never occurs, so its rows are uniform
	est, err = hmmsim.OracleParams([]int{0, 1, 0}, []int{3, 2, 3}, 3, 4)
	require.NoError(t, err)
	require.Equal(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, est.TransRow(2))
	require.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, est.EmitRow(2))
	require.Equal(t, []float64{0, 1, 0}, est.TransRow(0))
	require.Equal(t, []float64{0, 0, 0, 1}, est.EmitRow(0))

	_, err = hmmsim.OracleParams([]int{0, 1}, []int{0}, 2, 2)
	require.True(t, errors.Is(err, hmmlib.ErrDimensionMismatch))
}

func TestDirichletSampler(t *testing.T) {
	sampler := hmmsim.DirichletSampler(0.5)

	par, err := sampler(3, 5, rand.NewPCG(1, 2))
	require.NoError(t, err)
	require.NoError(t, par.Validate())
	require.Equal(t, 3, par.NState)
	require.Equal(t, 5, par.NSymbol)

	again, err := sampler(3, 5, rand.NewPCG(1, 2))
	require.NoError(t, err)
	require.Equal(t, par, again)

	other, err := sampler(3, 5, rand.NewPCG(1, 3))
	require.NoError(t, err)
	require.NotEqual(t, par.Trans, other.Trans)

	_, err = hmmsim.DirichletSampler(0)(2, 2, rand.NewPCG(1, 1))
	require.Error(t, err)
}

func TestCompareStates(t *testing.T) {
	nerr, n := hmmsim.CompareStates([]int{0, 1, 2, 2}, []int{0, 2, 2, 1})
	require.Equal(t, 2, nerr)
	require.Equal(t, 4, n)

	require.Panics(t, func() { hmmsim.CompareStates([]int{0}, []int{0, 1}) })
}
