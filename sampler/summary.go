package sampler

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/t-andrew-do/heroin-eda-demo/model"
)

// ParamSummary is one row of the posterior table.
type ParamSummary struct {
	Name  string
	Mean  float64
	Lower float64
	Upper float64
}

// FitRow is one (region, year) cell of the fitted-value table.
type FitRow struct {
	Region   string
	Year     int
	Fitted   float64
	Residual float64 // NaN when the response was not observed
	HeldOut  bool
}

// Summary is the posterior report for a chain, or for several chains pooled
// through MergeChains.
type Summary struct {
	Level  float64 // credible level for the intervals
	Params []ParamSummary
	Fits   []FitRow

	Deviance float64 // posterior mean deviance
	PD       float64 // effective parameter count
	DIC      float64

	AcceptInt float64
	AcceptSlo float64
}

// Param returns the summary row with the given name, or nil.
func (s *Summary) Param(name string) *ParamSummary {
	for i := range s.Params {
		if s.Params[i].Name == name {
			return &s.Params[i]
		}
	}
	return nil
}

// summarizeTrace reduces one scalar trace to its mean and equal-tailed
// interval from the empirical quantiles, under gonum's LinInterp convention
// (linear interpolation of the inverse empirical CDF).
func summarizeTrace(name string, vals []float64, level float64) ParamSummary {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	tail := (1.0 - level) / 2.0

	return ParamSummary{
		Name:  name,
		Mean:  stat.Mean(vals, nil),
		Lower: stat.Quantile(tail, stat.LinInterp, sorted, nil),
		Upper: stat.Quantile(1.0-tail, stat.LinInterp, sorted, nil),
	}
}

// gaussLogLike is the iid Gaussian log likelihood for n residuals with the
// given sum of squares and variance.
func gaussLogLike(n int, sse, nu2 float64) float64 {
	if n == 0 {
		return 0.0
	}
	fn := float64(n)
	return -0.5*fn*math.Log(2.0*math.Pi*nu2) - sse/(2.0*nu2)
}

// Summarize builds the posterior report from a chain's retained draws: one
// table row per scalar parameter, fitted values and residuals from the
// posterior-mean state, and the DIC from the log likelihood trace.
func Summarize(ch *Chain, fr *model.Frame, level float64) (*Summary, error) {
	if ch == nil || ch.Len() < 1 {
		return nil, errors.Errorf("Can not summarize an empty chain")
	}
	if len(ch.LogLike) != ch.Len() {
		return nil, errors.Errorf("Chain has %d log likelihood entries for %d draws", len(ch.LogLike), ch.Len())
	}
	if level <= 0.0 || level >= 1.0 {
		return nil, errors.Errorf("Credible level must be in (0,1), have %v", level)
	}
	if err := fr.Check(); err != nil {
		return nil, err
	}

	n := ch.Len()
	p := len(ch.States[0].Beta)
	k := len(ch.States[0].Phi)
	if p != len(fr.Columns) || k != len(fr.Regions) {
		return nil, errors.Errorf("Chain is %dx%d but the frame is %dx%d", p, k, len(fr.Columns), len(fr.Regions))
	}

	// Posterior means drive the fitted values and the DIC plug-in deviance
	mean := NewState(p, k)
	for _, st := range ch.States {
		for j := range st.Beta {
			mean.Beta[j] += st.Beta[j]
		}
		for j := range st.Phi {
			mean.Phi[j] += st.Phi[j]
			mean.Delta[j] += st.Delta[j]
		}
		mean.Alpha += st.Alpha
		mean.Tau2Int += st.Tau2Int
		mean.Tau2Slo += st.Tau2Slo
		mean.RhoInt += st.RhoInt
		mean.RhoSlo += st.RhoSlo
		mean.Nu2 += st.Nu2
	}
	inv := 1.0 / float64(n)
	for j := range mean.Beta {
		mean.Beta[j] *= inv
	}
	for j := range mean.Phi {
		mean.Phi[j] *= inv
		mean.Delta[j] *= inv
	}
	mean.Alpha *= inv
	mean.Tau2Int *= inv
	mean.Tau2Slo *= inv
	mean.RhoInt *= inv
	mean.RhoSlo *= inv
	mean.Nu2 *= inv

	sum := &Summary{
		Level:     level,
		AcceptInt: ch.AcceptInt,
		AcceptSlo: ch.AcceptSlo,
	}

	// Parameter table in a stable order: fixed effects, trend, spatial
	// fields, then the variance and dependence parameters
	trace := make([]float64, n)
	addTrace := func(name string, get func(*State) float64) {
		for i, st := range ch.States {
			trace[i] = get(st)
		}
		sum.Params = append(sum.Params, summarizeTrace(name, trace, level))
	}

	for j := 0; j < p; j++ {
		j := j
		addTrace(fr.Columns[j], func(st *State) float64 { return st.Beta[j] })
	}
	addTrace("alpha", func(st *State) float64 { return st.Alpha })
	for j := 0; j < k; j++ {
		j := j
		addTrace(fmt.Sprintf("phi[%s]", fr.Regions[j]), func(st *State) float64 { return st.Phi[j] })
	}
	for j := 0; j < k; j++ {
		j := j
		addTrace(fmt.Sprintf("delta[%s]", fr.Regions[j]), func(st *State) float64 { return st.Delta[j] })
	}
	addTrace("tau2.int", func(st *State) float64 { return st.Tau2Int })
	addTrace("tau2.slo", func(st *State) float64 { return st.Tau2Slo })
	addTrace("rho.int", func(st *State) float64 { return st.RhoInt })
	addTrace("rho.slo", func(st *State) float64 { return st.RhoSlo })
	addTrace("nu2", func(st *State) float64 { return st.Nu2 })

	// Fitted values from the posterior-mean state
	sse := 0.0
	nObs := 0
	sum.Fits = make([]FitRow, 0, len(fr.Obs))
	for i := range fr.Obs {
		o := &fr.Obs[i]

		fit := mean.Phi[o.Region] + (mean.Alpha+mean.Delta[o.Region])*fr.Trend[o.Time]
		for j, x := range o.X {
			fit += x * mean.Beta[j]
		}

		res := math.NaN()
		if o.Observed {
			res = o.Y - fit
			sse += res * res
			nObs++
		}

		sum.Fits = append(sum.Fits, FitRow{
			Region:   fr.Regions[o.Region],
			Year:     fr.Years[o.Time],
			Fitted:   fit,
			Residual: res,
			HeldOut:  o.HeldOut,
		})
	}

	// DIC from the deviance trace and the plug-in deviance
	dbar := 0.0
	for _, ll := range ch.LogLike {
		dbar += -2.0 * ll
	}
	dbar /= float64(n)
	dhat := -2.0 * gaussLogLike(nObs, sse, mean.Nu2)

	sum.Deviance = dbar
	sum.PD = dbar - dhat
	sum.DIC = dbar + sum.PD

	return sum, nil
}
