package hmmlib

import (
	"gonum.org/v1/gonum/floats"
)

// normalize the values in x to have a sum of 1.  If the sum underflows, every
// value is set to z and the returned scale is 0.
func normalizeSum(x []float64, z float64) float64 {
	scale := floats.Sum(x)
	if scale < 1e-300 {
		for j := range x {
			x[j] = z
		}
		return 0
	}
	floats.Scale(1/scale, x)
	return scale
}

func argmax(x []float64) int {
	j := 0
	v := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > v {
			v = x[i]
			j = i
		}
	}

	return j
}

// Zero the elements of x
func zero(x []float64) {
	for j := range x {
		x[j] = 0
	}
}
