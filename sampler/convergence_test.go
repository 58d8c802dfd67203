package sampler

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/t-andrew-do/heroin-eda-demo/model"
)

// Feeding the same chain twice pins the answer: B=0, so every PSRF is
// exactly sqrt((n-1)/n)
func TestGelmanRubinIdenticalChains(t *testing.T) {
	assert := assert.New(t)

	fr, gr, err := lineFixture()
	assert.NoError(err)

	ch, err := runEngine(quickConfig(), fr, gr, 42)
	assert.NoError(err)

	rhat, err := GelmanRubin([]*Chain{ch, ch}, fr)
	assert.NoError(err)
	assert.Len(rhat, 2+6)

	exp := math.Sqrt(float64(ch.Len()-1) / float64(ch.Len()))
	for name, v := range rhat {
		assert.InDelta(exp, v, 1e-9, name)
	}
}

// Hand-sized traces: wildly separated chains blow up the factor, constant
// traces collapse to 1
func TestGelmanRubinHand(t *testing.T) {
	assert := assert.New(t)

	fr := &model.Frame{
		Columns: []string{model.InterceptName},
		Regions: []string{"01001"},
	}

	st := func(alpha float64) *State {
		s := NewState(1, 1)
		s.Beta[0] = 1.0
		s.Alpha = alpha
		s.Tau2Int, s.Tau2Slo, s.Nu2 = 1.0, 1.0, 1.0
		s.RhoInt, s.RhoSlo = 0.3, 0.3
		return s
	}

	a := &Chain{States: []*State{st(0.0), st(1.0)}}
	b := &Chain{States: []*State{st(10.0), st(11.0)}}

	rhat, err := GelmanRubin([]*Chain{a, b}, fr)
	assert.NoError(err)

	// W=0.5, between-chain variance of the means is 50
	assert.InDelta(math.Sqrt(100.5), rhat["alpha"], 1e-9)

	// Degenerate traces read as converged
	assert.Equal(1.0, rhat["intercept"])
	assert.Equal(1.0, rhat["rho.int"])
	assert.Equal(1.0, rhat["nu2"])
}

// Two real chains on friendly data land near 1
func TestGelmanRubinFromRun(t *testing.T) {
	assert := assert.New(t)

	fr, gr, err := lineFixture()
	assert.NoError(err)

	cfg := quickConfig()
	cfg.Chains = 2
	chains, err := RunChains(context.Background(), cfg, fr, gr, nil)
	assert.NoError(err)

	rhat, err := GelmanRubin(chains, fr)
	assert.NoError(err)

	for name, v := range rhat {
		assert.True(finite(v) && v > 0.0, name)
	}
}

// Bad shapes are rejected before any arithmetic
func TestGelmanRubinBad(t *testing.T) {
	assert := assert.New(t)

	fr := &model.Frame{
		Columns: []string{model.InterceptName},
		Regions: []string{"01001"},
	}

	one := &Chain{States: []*State{NewState(1, 1), NewState(1, 1)}}
	_, err := GelmanRubin([]*Chain{one}, fr)
	assert.Error(err)

	short := &Chain{States: []*State{NewState(1, 1)}}
	_, err = GelmanRubin([]*Chain{one, short}, fr)
	assert.Error(err)

	long := &Chain{States: []*State{NewState(1, 1), NewState(1, 1), NewState(1, 1)}}
	_, err = GelmanRubin([]*Chain{one, long}, fr)
	assert.Error(err)

	wide := &Chain{States: []*State{NewState(2, 1), NewState(2, 1)}}
	_, err = GelmanRubin([]*Chain{one, wide}, fr)
	assert.Error(err)

	_, err = GelmanRubin([]*Chain{one, nil}, fr)
	assert.Error(err)
}
