package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/t-andrew-do/heroin-eda-demo/model"
)

// Make sure the default configuration is actually runnable
func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	assert.NoError(cfg.Check())
	assert.NoError(cfg.Priors.Check())
}

// Make sure that Check catches every way to misconfigure a run
func TestConfigBadCheck(t *testing.T) {
	assert := assert.New(t)

	bad := func(v float64) *float64 { return &v }

	cases := []struct {
		Name   string
		Mutate func(*Config)
	}{
		{"NegBurnIn", func(c *Config) { c.BurnIn = -1 }},
		{"ZeroSamples", func(c *Config) { c.Samples = 0 }},
		{"ZeroThin", func(c *Config) { c.Thin = 0 }},
		{"ThinNoDivide", func(c *Config) { c.Samples = 100; c.Thin = 3 }},
		{"ZeroChains", func(c *Config) { c.Chains = 0 }},
		{"RhoIntHigh", func(c *Config) { c.RhoInt = bad(1.0) }},
		{"RhoSloNeg", func(c *Config) { c.RhoSlo = bad(-0.1) }},
		{"TargetZero", func(c *Config) { c.AcceptTarget = 0.0 }},
		{"TargetOne", func(c *Config) { c.AcceptTarget = 1.0 }},
		{"ZeroWindow", func(c *Config) { c.AcceptWindow = 0 }},
		{"BadTauScale", func(c *Config) { c.Priors.TauScale = -1.0 }},
		{"BadNuShape", func(c *Config) { c.Priors.NuShape = 0.0 }},
	}

	for _, c := range cases {
		cfg := DefaultConfig()
		c.Mutate(cfg)

		err := cfg.Check()
		assert.Error(err, c.Name)

		var ce *model.ConfigurationError
		assert.ErrorAs(err, &ce, c.Name)
	}
}

// Fixed dependence values inside the support are fine
func TestConfigFixedRho(t *testing.T) {
	assert := assert.New(t)

	zero := 0.0
	high := 0.99

	cfg := DefaultConfig()
	cfg.RhoInt = &zero
	cfg.RhoSlo = &high
	assert.NoError(cfg.Check())
}
