package sampler

import (
	"github.com/t-andrew-do/heroin-eda-demo/model"
)

// Priors holds the fixed hyperparameters. The defaults are weakly
// informative: near-flat Gaussians on the regression terms and
// Inverse-Gamma(1, 0.01) on every variance.
type Priors struct {
	BetaMean  float64 `yaml:"beta_mean"`
	BetaVar   float64 `yaml:"beta_var"`
	AlphaMean float64 `yaml:"alpha_mean"`
	AlphaVar  float64 `yaml:"alpha_var"`
	TauShape  float64 `yaml:"tau_shape"`
	TauScale  float64 `yaml:"tau_scale"`
	NuShape   float64 `yaml:"nu_shape"`
	NuScale   float64 `yaml:"nu_scale"`
}

// DefaultPriors returns the documented default hyperparameters.
func DefaultPriors() Priors {
	return Priors{
		BetaMean:  0.0,
		BetaVar:   100000.0,
		AlphaMean: 0.0,
		AlphaVar:  100000.0,
		TauShape:  1.0,
		TauScale:  0.01,
		NuShape:   1.0,
		NuScale:   0.01,
	}
}

// Check returns an error if a hyperparameter is outside its support.
func (p *Priors) Check() error {
	if !finite(p.BetaMean) || !finite(p.AlphaMean) {
		return model.ConfigErrorf("Prior means must be finite")
	}

	for _, v := range []struct {
		name string
		val  float64
	}{
		{"beta_var", p.BetaVar},
		{"alpha_var", p.AlphaVar},
		{"tau_shape", p.TauShape},
		{"tau_scale", p.TauScale},
		{"nu_shape", p.NuShape},
		{"nu_scale", p.NuScale},
	} {
		if !finite(v.val) || v.val <= 0.0 {
			return model.ConfigErrorf("Prior %s is %v, must be positive and finite", v.name, v.val)
		}
	}

	return nil
}

// Config collects everything one fit needs beyond the data itself:
// iteration budget, chain count, seed, priors, and the Metropolis tuning
// targets. Fixing RhoInt or RhoSlo pins that parameter and skips its
// Metropolis step.
type Config struct {
	BurnIn  int   `yaml:"burn_in"`
	Samples int   `yaml:"samples"`
	Thin    int   `yaml:"thin"`
	Chains  int   `yaml:"chains"`
	Seed    int64 `yaml:"seed"`

	Priors Priors `yaml:"priors"`

	RhoInt *float64 `yaml:"rho_int"`
	RhoSlo *float64 `yaml:"rho_slo"`

	AcceptTarget float64 `yaml:"accept_target"` // desired Metropolis acceptance rate
	AcceptWindow int     `yaml:"accept_window"` // proposals per tuning adjustment
}

// DefaultConfig returns a runnable single-chain configuration.
func DefaultConfig() *Config {
	return &Config{
		BurnIn:       1000,
		Samples:      2000,
		Thin:         1,
		Chains:       1,
		Seed:         1,
		Priors:       DefaultPriors(),
		AcceptTarget: 0.4,
		AcceptWindow: 50,
	}
}

// Check validates the whole configuration before any sampling starts.
func (c *Config) Check() error {
	if c.BurnIn < 0 {
		return model.ConfigErrorf("Burn-in is %d, must be >= 0", c.BurnIn)
	}
	if c.Samples < 1 {
		return model.ConfigErrorf("Sample count is %d, must be > 0", c.Samples)
	}
	if c.Thin < 1 {
		return model.ConfigErrorf("Thinning is %d, must be >= 1", c.Thin)
	}
	if c.Samples%c.Thin != 0 {
		return model.ConfigErrorf("Thinning %d does not divide the sample count %d", c.Thin, c.Samples)
	}
	if c.Chains < 1 {
		return model.ConfigErrorf("Chain count is %d, must be >= 1", c.Chains)
	}

	if err := c.Priors.Check(); err != nil {
		return err
	}

	for _, r := range []struct {
		name string
		val  *float64
	}{
		{"rho_int", c.RhoInt},
		{"rho_slo", c.RhoSlo},
	} {
		if r.val != nil && (!finite(*r.val) || *r.val < 0.0 || *r.val >= 1.0) {
			return model.ConfigErrorf("Fixed %s is %v, must be in [0,1)", r.name, *r.val)
		}
	}

	if !finite(c.AcceptTarget) || c.AcceptTarget <= 0.0 || c.AcceptTarget >= 1.0 {
		return model.ConfigErrorf("Acceptance target is %v, must be in (0,1)", c.AcceptTarget)
	}
	if c.AcceptWindow < 1 {
		return model.ConfigErrorf("Acceptance window is %d, must be >= 1", c.AcceptWindow)
	}

	return nil
}
