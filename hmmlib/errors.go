package hmmlib

import (
	"github.com/pkg/errors"
)

// Errors returned by the estimation routines.  Callers match them with
// errors.Is; the returned errors carry additional context.
var (
	// ErrDimensionMismatch indicates that the parameter or sequence shapes
	// disagree with the declared number of states and symbols.
	ErrDimensionMismatch = errors.New("hmmlib: dimension mismatch")

	// ErrInvalidProbability indicates a negative, NaN or infinite entry, or a
	// row that does not sum to 1.
	ErrInvalidProbability = errors.New("hmmlib: invalid probability")

	// ErrNonMonotonicLikelihood indicates that an EM iteration decreased the
	// log-likelihood.
	ErrNonMonotonicLikelihood = errors.New("hmmlib: log-likelihood decreased")

	// ErrZeroLikelihood indicates that the observed sequence cannot be
	// produced by the parameters.
	ErrZeroLikelihood = errors.New("hmmlib: sequence has zero probability")

	// ErrInvalidConfig indicates an out of range configuration value.
	ErrInvalidConfig = errors.New("hmmlib: invalid configuration")

	// ErrInvalidPartition indicates cross-validation folds that overlap or
	// do not cover the sequence.
	ErrInvalidPartition = errors.New("hmmlib: invalid partition")
)
