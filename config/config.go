// Package config loads the fitting configuration from a file and the
// environment.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/kshedden/cathmm/hmmlib"
)

// EnvPrefix is the prefix of environment variables that override the file,
// e.g. CATHMM_N_STATES.
const EnvPrefix = "cathmm"

// New returns a viper instance with the defaults of hmmlib.DefaultConfig and
// environment overrides enabled.
func New() *viper.Viper {

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := hmmlib.DefaultConfig(2, 2)
	v.SetDefault("n_states", def.NState)
	v.SetDefault("n_symbols", def.NSymbol)
	v.SetDefault("n_inits", def.NInit)
	v.SetDefault("max_iters", def.MaxIter)
	v.SetDefault("tol", def.Tol)
	v.SetDefault("infer_initial_distribution", def.InferInit)
	v.SetDefault("n_folds", def.NFold)
	v.SetDefault("strict", def.Strict)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("seed", def.Seed)

	// No default, FixedInit stays nil unless the key is set.  Lists in the
	// environment are comma separated.
	_ = v.BindEnv("initial_distribution")

	return v
}

// Load reads the configuration file at path, which may be YAML, TOML or
// JSON.  If path is empty only the defaults and the environment are used.
func Load(path string) (hmmlib.Config, error) {

	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return hmmlib.Config{}, errors.Wrapf(err, "reading %s", path)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates a configuration.
func FromViper(v *viper.Viper) (hmmlib.Config, error) {

	var cfg hmmlib.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return hmmlib.Config{}, errors.Wrap(err, "decoding configuration")
	}

	if err := cfg.Validate(); err != nil {
		return hmmlib.Config{}, err
	}

	return cfg, nil
}
