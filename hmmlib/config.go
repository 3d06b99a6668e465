package hmmlib

import (
	"github.com/pkg/errors"
)

// Config holds the settings that control model fitting.  The mapstructure
// tags give the keys used in configuration files.
type Config struct {

	// Number of latent states
	NState int `mapstructure:"n_states"`

	// Number of observation classes
	NSymbol int `mapstructure:"n_symbols"`

	// Number of random starting values used by FitBest
	NInit int `mapstructure:"n_inits"`

	// Maximum number of EM iterations
	MaxIter int `mapstructure:"max_iters"`

	// EM stops when the log-likelihood increases by less than Tol
	Tol float64 `mapstructure:"tol"`

	// If false, the initial distribution is held fixed at FixedInit
	InferInit bool `mapstructure:"infer_initial_distribution"`

	// The fixed initial distribution, uniform if empty.  Only used when
	// InferInit is false.
	FixedInit []float64 `mapstructure:"initial_distribution"`

	// Number of cross-validation folds
	NFold int `mapstructure:"n_folds"`

	// If true, a decrease of the log-likelihood during EM is an error
	Strict bool `mapstructure:"strict"`

	// Maximum number of starting values fitted concurrently
	Workers int `mapstructure:"workers"`

	// Seed for the random starting values
	Seed uint64 `mapstructure:"seed"`
}

// DefaultConfig returns the default settings for a model with nstate
// states and nsymbol observation classes.
func DefaultConfig(nstate, nsymbol int) Config {
	return Config{
		NState:    nstate,
		NSymbol:   nsymbol,
		NInit:     5,
		MaxIter:   500,
		Tol:       1e-8,
		InferInit: true,
		NFold:     5,
		Workers:   1,
		Seed:      1,
	}
}

// Validate checks that all the settings are in range.
func (cfg Config) Validate() error {

	switch {
	case cfg.NState < 1:
		return errors.Wrapf(ErrInvalidConfig, "n_states=%d", cfg.NState)
	case cfg.NSymbol < 1:
		return errors.Wrapf(ErrInvalidConfig, "n_symbols=%d", cfg.NSymbol)
	case cfg.NInit < 1:
		return errors.Wrapf(ErrInvalidConfig, "n_inits=%d", cfg.NInit)
	case cfg.MaxIter < 1:
		return errors.Wrapf(ErrInvalidConfig, "max_iters=%d", cfg.MaxIter)
	case cfg.Tol < 0:
		return errors.Wrapf(ErrInvalidConfig, "tol=%v", cfg.Tol)
	case cfg.NFold < 2:
		return errors.Wrapf(ErrInvalidConfig, "n_folds=%d", cfg.NFold)
	case cfg.Workers < 1:
		return errors.Wrapf(ErrInvalidConfig, "workers=%d", cfg.Workers)
	}

	if !cfg.InferInit && len(cfg.FixedInit) > 0 {
		if len(cfg.FixedInit) != cfg.NState {
			return errors.Wrapf(ErrInvalidConfig, "initial_distribution has %d entries, want %d",
				len(cfg.FixedInit), cfg.NState)
		}
		if err := checkProb(cfg.FixedInit, 1, cfg.NState, "initial distribution"); err != nil {
			return errors.Wrap(ErrInvalidConfig, err.Error())
		}
	}

	return nil
}

// initDist returns the fixed initial distribution.
func (cfg Config) initDist() []float64 {

	if len(cfg.FixedInit) > 0 {
		return append([]float64(nil), cfg.FixedInit...)
	}

	return UniformInit(cfg.NState)
}
