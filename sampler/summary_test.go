package sampler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/t-andrew-do/heroin-eda-demo/model"
)

// Two-draw chain over a 2x2 frame with one held-out and one missing cell,
// checkable entirely by hand
func handChainFixture() (*Chain, *model.Frame) {
	fr := &model.Frame{
		Regions: []string{"01001", "01003"},
		Years:   []int{2010, 2011},
		Trend:   []float64{-0.5, 0.5},
		Columns: []string{model.InterceptName, "z"},
		Obs: []model.Obs{
			{Region: 0, Time: 0, X: []float64{1.0, 2.0}, Y: 3.0, Observed: true},
			{Region: 0, Time: 1, X: []float64{1.0, 1.0}, Y: 2.0, HeldOut: true},
			{Region: 1, Time: 0, X: []float64{1.0, 0.0}, Y: 1.0, Observed: true},
			{Region: 1, Time: 1, X: []float64{1.0, 3.0}, Y: math.NaN()},
		},
	}

	st1 := &State{
		Beta: []float64{1.0, 0.5}, Phi: []float64{0.2, -0.2}, Delta: []float64{0.1, -0.1},
		Alpha: 0.3, Tau2Int: 0.5, Tau2Slo: 0.4, RhoInt: 0.6, RhoSlo: 0.2, Nu2: 1.0,
	}
	st2 := &State{
		Beta: []float64{2.0, 1.5}, Phi: []float64{0.4, -0.4}, Delta: []float64{0.3, -0.3},
		Alpha: 0.5, Tau2Int: 1.5, Tau2Slo: 0.8, RhoInt: 0.8, RhoSlo: 0.4, Nu2: 3.0,
	}

	ch := &Chain{
		States:     []*State{st1, st2},
		LogLike:    []float64{-5.0, -7.0},
		Seed:       42,
		Iterations: 2,
		AcceptInt:  0.4,
		AcceptSlo:  0.35,
	}
	return ch, fr
}

// Gaussian log likelihood helper against a hand value
func TestGaussLogLike(t *testing.T) {
	assert := assert.New(t)

	exp := -0.5*math.Log(2.0*math.Pi*2.0) - 0.26/4.0
	assert.InDelta(exp, gaussLogLike(1, 0.26, 2.0), 1e-12)
	assert.Equal(0.0, gaussLogLike(0, 0.0, 1.0))
}

// Interval tails follow gonum's LinInterp quantile convention
func TestSummarizeTrace(t *testing.T) {
	assert := assert.New(t)

	ps := summarizeTrace("x", []float64{2.0, 1.0}, 0.95)
	assert.Equal("x", ps.Name)
	assert.InDelta(1.5, ps.Mean, 1e-12)
	assert.InDelta(1.0, ps.Lower, 1e-12)
	assert.InDelta(1.95, ps.Upper, 1e-12)

	ps = summarizeTrace("x", []float64{4.0, 1.0, 3.0, 2.0}, 0.5)
	assert.InDelta(2.5, ps.Mean, 1e-12)
	assert.InDelta(1.0, ps.Lower, 1e-12)
	assert.InDelta(3.0, ps.Upper, 1e-12)
}

// Posterior table, fitted values, and DIC all against hand arithmetic
func TestSummarizeHandChain(t *testing.T) {
	assert := assert.New(t)

	ch, fr := handChainFixture()
	sum, err := Summarize(ch, fr, 0.95)
	assert.NoError(err)

	// p + alpha + 2k + tau2s + rhos + nu2
	assert.Len(sum.Params, 12)
	assert.Equal("intercept", sum.Params[0].Name)
	assert.Equal("z", sum.Params[1].Name)
	assert.Equal("alpha", sum.Params[2].Name)
	assert.Equal("phi[01001]", sum.Params[3].Name)
	assert.Equal("delta[01003]", sum.Params[6].Name)
	assert.Equal("nu2", sum.Params[11].Name)

	// Trace {1,2}: the lower tail lands on the first draw, the upper
	// interpolates toward the second
	ic := sum.Param("intercept")
	assert.NotNil(ic)
	assert.InDelta(1.5, ic.Mean, 1e-12)
	assert.InDelta(1.0, ic.Lower, 1e-12)
	assert.InDelta(1.95, ic.Upper, 1e-12)

	for _, p := range sum.Params {
		assert.True(p.Lower <= p.Mean && p.Mean <= p.Upper, p.Name)
	}

	// Fitted values from the posterior mean state
	assert.Len(sum.Fits, 4)
	assert.InDelta(3.5, sum.Fits[0].Fitted, 1e-12)
	assert.InDelta(-0.5, sum.Fits[0].Residual, 1e-12)
	assert.Equal("01001", sum.Fits[0].Region)
	assert.Equal(2010, sum.Fits[0].Year)

	// Held-out cell gets a fitted value but no residual
	assert.InDelta(3.1, sum.Fits[1].Fitted, 1e-12)
	assert.True(math.IsNaN(sum.Fits[1].Residual))
	assert.True(sum.Fits[1].HeldOut)

	assert.InDelta(1.1, sum.Fits[2].Fitted, 1e-12)
	assert.InDelta(-0.1, sum.Fits[2].Residual, 1e-12)

	// Missing cell is fitted too
	assert.InDelta(4.3, sum.Fits[3].Fitted, 1e-12)
	assert.True(math.IsNaN(sum.Fits[3].Residual))
	assert.False(sum.Fits[3].HeldOut)

	// Deviance trace mean is 12; plug-in uses SSE 0.26 at nu2 2.0
	assert.InDelta(12.0, sum.Deviance, 1e-12)
	dhat := -2.0 * gaussLogLike(2, 0.26, 2.0)
	assert.InDelta(12.0-dhat, sum.PD, 1e-12)
	assert.InDelta(12.0+sum.PD, sum.DIC, 1e-12)

	assert.Equal(0.4, sum.AcceptInt)
	assert.Equal(0.35, sum.AcceptSlo)
}

// A real run summarizes into ordered, finite intervals
func TestSummarizeFromRun(t *testing.T) {
	assert := assert.New(t)

	fr, gr, err := lineFixture()
	assert.NoError(err)

	ch, err := runEngine(quickConfig(), fr, gr, 42)
	assert.NoError(err)

	sum, err := Summarize(ch, fr, 0.95)
	assert.NoError(err)

	assert.Equal(0.95, sum.Level)
	assert.Len(sum.Params, 14)

	for _, p := range sum.Params {
		assert.True(finite(p.Mean), p.Name)
		assert.True(p.Lower <= p.Mean && p.Mean <= p.Upper, p.Name)
	}

	for _, name := range []string{"rho.int", "rho.slo"} {
		p := sum.Param(name)
		assert.NotNil(p)
		assert.True(p.Lower >= 0.0 && p.Upper < 1.0, name)
	}

	assert.Len(sum.Fits, 12)
	for _, f := range sum.Fits {
		assert.True(finite(f.Fitted))
		assert.False(math.IsNaN(f.Residual))
	}

	assert.True(finite(sum.DIC))
	assert.True(finite(sum.PD))
	assert.Equal(ch.AcceptInt, sum.AcceptInt)
}

// Bad inputs are rejected up front
func TestSummarizeBad(t *testing.T) {
	assert := assert.New(t)

	ch, fr := handChainFixture()

	_, err := Summarize(nil, fr, 0.95)
	assert.Error(err)

	_, err = Summarize(&Chain{}, fr, 0.95)
	assert.Error(err)

	_, err = Summarize(ch, fr, 0.0)
	assert.Error(err)
	_, err = Summarize(ch, fr, 1.0)
	assert.Error(err)

	// Dimension mismatch between draws and frame
	wide := &Chain{States: []*State{NewState(3, 2)}, LogLike: []float64{-1.0}}
	_, err = Summarize(wide, fr, 0.95)
	assert.Error(err)

	// Log likelihood trace out of step with the draws
	ragged := &Chain{States: ch.States, LogLike: ch.LogLike[:1]}
	_, err = Summarize(ragged, fr, 0.95)
	assert.Error(err)
}
