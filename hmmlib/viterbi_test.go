package hmmlib_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/kshedden/cathmm/hmmlib"
	"github.com/kshedden/cathmm/hmmsim"
)

func TestDecodeUrn(t *testing.T) {
	path, lp, err := hmmlib.Decode([]int{0, 1, 0}, urnParams(t))
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 2}, path)
	require.InDelta(t, math.Log(0.0147), lp, 1e-12)
}

func TestDecodeSimulated(t *testing.T) {
	par := persistentParams(t)
	state, obs := hmmsim.Generate(par, 2000, 17)

	path, lp, err := hmmlib.Decode(obs, par)
	require.NoError(t, err)
	require.Len(t, path, len(obs))

	// The best path cannot be more probable than the data
	ll, err := hmmlib.Loglike(obs, par)
	require.NoError(t, err)
	require.Less(t, lp, ll)

	nerr, n := hmmsim.CompareStates(state, path)
	require.Equal(t, 2000, n)
	require.Less(t, float64(nerr)/float64(n), 0.2)
}

func TestDecodeErrors(t *testing.T) {
	par, err := hmmlib.NewParams(2, 2,
		[]float64{0.5, 0.5, 0.5, 0.5},
		[]float64{1, 0, 1, 0},
		[]float64{0.5, 0.5})
	require.NoError(t, err)

	_, _, err = hmmlib.Decode([]int{0, 1}, par)
	require.True(t, errors.Is(err, hmmlib.ErrZeroLikelihood))

	_, _, err = hmmlib.Decode([]int{0, 2}, par)
	require.True(t, errors.Is(err, hmmlib.ErrDimensionMismatch))
}
