package sampler

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/t-andrew-do/heroin-eda-demo/model"
)

// The per-parameter full conditionals, one function each. Every update draws
// through the engine's generator and guards its own output, so a degenerate
// value surfaces as a NumericalError naming exactly the parameter and
// iteration that produced it.

// updateBeta draws the fixed effects from their conjugate multivariate
// normal conditional built from the prior and the design cross-products.
func (e *Engine) updateBeta() error {
	st := e.cur
	pr := &e.cfg.Priors

	prec := mat.NewSymDense(e.p, nil)
	for a := 0; a < e.p; a++ {
		for b := a; b < e.p; b++ {
			v := e.xtx.At(a, b) / st.Nu2
			if a == b {
				v += 1.0 / pr.BetaVar
			}
			prec.SetSym(a, b, v)
		}
	}

	bv := make([]float64, e.p)
	for i := range bv {
		bv[i] = pr.BetaMean / pr.BetaVar
	}
	for ci := range e.obs {
		c := &e.obs[ci]
		r := c.y - st.Phi[c.region] - (st.Alpha+st.Delta[c.region])*c.t
		w := r / st.Nu2
		for a := 0; a < e.p; a++ {
			bv[a] += c.x[a] * w
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(prec) {
		return model.NumericalErrorf("beta", e.iter, "Fixed-effect posterior precision is not positive definite")
	}

	mean := mat.NewVecDense(e.p, nil)
	if err := chol.SolveVecTo(mean, mat.NewVecDense(e.p, bv)); err != nil {
		return model.NumericalErrorf("beta", e.iter, "Could not solve for the fixed-effect posterior mean: %v", err)
	}

	mvn, ok := distmv.NewNormalPrecision(mean.RawVector().Data, prec, e.gen)
	if !ok {
		return model.NumericalErrorf("beta", e.iter, "Could not build the fixed-effect sampling distribution")
	}
	mvn.Rand(st.Beta)

	for _, b := range st.Beta {
		if !finite(b) {
			return model.NumericalErrorf("beta", e.iter, "Drew a non-finite fixed effect")
		}
	}

	return nil
}

// carCond returns the full-conditional mean and precision for component i of
// a CAR field under Leroux smoothing. likPrec and likSum carry the Gaussian
// likelihood contribution; with no data they vanish and the conditional
// falls back to the prior, which for an isolated region is centered at 0.
func (e *Engine) carCond(i int, field []float64, rho, tau2, likPrec, likSum float64) (float64, float64) {
	nbSum := 0.0
	for _, j := range e.graph.Neighbors(i) {
		nbSum += field[j]
	}

	prec := likPrec + (rho*float64(e.graph.Degree(i))+1.0-rho)/tau2
	mean := (likSum + rho*nbSum/tau2) / prec

	return mean, prec
}

// updatePhi draws each spatial intercept from its CAR full conditional in
// region order, then re-centers the field.
func (e *Engine) updatePhi() error {
	st := e.cur
	rho := st.RhoInt

	sums := e.scratchK
	for i := range sums {
		sums[i] = 0.0
	}
	for ci := range e.obs {
		c := &e.obs[ci]
		sums[c.region] += c.y - e.xb[ci] - (st.Alpha+st.Delta[c.region])*c.t
	}

	for i := 0; i < e.k; i++ {
		mean, prec := e.carCond(i, st.Phi, rho, st.Tau2Int, e.obsN[i]/st.Nu2, sums[i]/st.Nu2)
		if !finite(prec) || prec <= 0.0 {
			return model.NumericalErrorf("phi", e.iter, "Conditional precision for region %s is %v", e.frame.Regions[i], prec)
		}
		st.Phi[i] = distuv.Normal{Mu: mean, Sigma: math.Sqrt(1.0 / prec), Src: e.gen}.Rand()
	}

	center(st.Phi)
	return nil
}

// updateDelta is the slope-field twin of updatePhi with the trend value as
// the within-region covariate.
func (e *Engine) updateDelta() error {
	st := e.cur
	rho := st.RhoSlo

	sums := e.scratchK
	for i := range sums {
		sums[i] = 0.0
	}
	for ci := range e.obs {
		c := &e.obs[ci]
		sums[c.region] += c.t * (c.y - e.xb[ci] - st.Phi[c.region] - st.Alpha*c.t)
	}

	for i := 0; i < e.k; i++ {
		mean, prec := e.carCond(i, st.Delta, rho, st.Tau2Slo, e.tt[i]/st.Nu2, sums[i]/st.Nu2)
		if !finite(prec) || prec <= 0.0 {
			return model.NumericalErrorf("delta", e.iter, "Conditional precision for region %s is %v", e.frame.Regions[i], prec)
		}
		st.Delta[i] = distuv.Normal{Mu: mean, Sigma: math.Sqrt(1.0 / prec), Src: e.gen}.Rand()
	}

	center(st.Delta)
	return nil
}

// updateAlpha draws the overall trend slope from its conjugate scalar
// conditional.
func (e *Engine) updateAlpha() error {
	st := e.cur
	pr := &e.cfg.Priors

	lik := 0.0
	for ci := range e.obs {
		c := &e.obs[ci]
		lik += c.t * (c.y - e.xb[ci] - st.Phi[c.region] - st.Delta[c.region]*c.t)
	}

	prec := 1.0/pr.AlphaVar + e.sumTT/st.Nu2
	if !finite(prec) || prec <= 0.0 {
		return model.NumericalErrorf("alpha", e.iter, "Conditional precision is %v", prec)
	}
	mean := (pr.AlphaMean/pr.AlphaVar + lik/st.Nu2) / prec

	st.Alpha = distuv.Normal{Mu: mean, Sigma: math.Sqrt(1.0 / prec), Src: e.gen}.Rand()
	if !finite(st.Alpha) {
		return model.NumericalErrorf("alpha", e.iter, "Drew a non-finite trend slope")
	}

	return nil
}

// tau2Params returns the Inverse-Gamma shape and scale for a CAR field
// variance: the shape grows with the non-isolated region count, the scale
// with the Leroux quadratic form.
func (e *Engine) tau2Params(rho float64, field []float64) (float64, float64) {
	pr := &e.cfg.Priors
	shape := pr.TauShape + 0.5*float64(e.active)
	scale := pr.TauScale + 0.5*e.quad(rho, field)
	return shape, scale
}

// updateTau2 draws one CAR field variance.
func (e *Engine) updateTau2(name string, rho float64, field []float64, dst *float64) error {
	shape, scale := e.tau2Params(rho, field)
	if !finite(scale) || scale <= 0.0 {
		return model.NumericalErrorf(name, e.iter, "Inverse-Gamma scale is %v", scale)
	}

	v := e.invGamma(shape, scale)
	if !finite(v) || v <= 0.0 {
		return model.NumericalErrorf(name, e.iter, "Drew variance %v", v)
	}

	*dst = v
	return nil
}

// updateRho is one random-walk Metropolis step on [0,1). Proposals outside
// the interval are rejected without a density evaluation, and every outcome
// feeds the proposal's tuning record.
func (e *Engine) updateRho(name string, rho *float64, field []float64, tau2 float64, prop *Proposal) error {
	cand := *rho + distuv.Normal{Mu: 0.0, Sigma: prop.Sigma, Src: e.gen}.Rand()
	if cand < 0.0 || cand >= 1.0 {
		prop.Record(false)
		return nil
	}

	logA := e.logCAR(cand, field, tau2) - e.logCAR(*rho, field, tau2)
	if !finite(logA) {
		return model.NumericalErrorf(name, e.iter, "Acceptance ratio is not finite")
	}

	if math.Log(e.gen.Float64()) < logA {
		*rho = cand
		prop.Record(true)
	} else {
		prop.Record(false)
	}

	return nil
}

// updateNu2 draws the observation noise variance from the residual sum of
// squares. The SSE is cached for the end-of-sweep log likelihood.
func (e *Engine) updateNu2() error {
	pr := &e.cfg.Priors

	sse := e.sse()
	if !finite(sse) {
		return model.NumericalErrorf("nu2", e.iter, "Residual sum of squares is %v", sse)
	}
	e.lastSSE = sse

	shape := pr.NuShape + 0.5*float64(len(e.obs))
	scale := pr.NuScale + 0.5*sse

	v := e.invGamma(shape, scale)
	if !finite(v) || v <= 0.0 {
		return model.NumericalErrorf("nu2", e.iter, "Drew variance %v", v)
	}

	e.cur.Nu2 = v
	return nil
}

// sse is the residual sum of squares over observed cells under the current
// state. Requires xb to be fresh.
func (e *Engine) sse() float64 {
	st := e.cur
	sse := 0.0
	for ci := range e.obs {
		c := &e.obs[ci]
		r := c.y - e.xb[ci] - st.Phi[c.region] - (st.Alpha+st.Delta[c.region])*c.t
		sse += r * r
	}
	return sse
}

// quad evaluates the Leroux quadratic form for a CAR field: rho weights the
// squared differences across links, 1-rho the plain sum of squares. Walking
// the neighbor lists keeps this O(K + links) with no dense matrix in sight.
func (e *Engine) quad(rho float64, field []float64) float64 {
	pair := 0.0
	for i, vi := range field {
		for _, j := range e.graph.Neighbors(i) {
			if j > i {
				d := vi - field[j]
				pair += d * d
			}
		}
	}

	ss := 0.0
	for _, vi := range field {
		ss += vi * vi
	}

	return rho*pair + (1.0-rho)*ss
}

// logCAR is the log density kernel of a CAR field at dependence rho: half
// the log determinant of the Leroux precision minus the scaled quadratic
// form. The determinant comes from the precomputed Laplacian eigenvalues.
func (e *Engine) logCAR(rho float64, field []float64, tau2 float64) float64 {
	ld := 0.0
	for _, ev := range e.lapEig {
		ld += math.Log(rho*ev + 1.0 - rho)
	}
	return 0.5*ld - e.quad(rho, field)/(2.0*tau2)
}

// invGamma draws from an Inverse-Gamma by inverting a Gamma draw, the usual
// convention for conjugate variance updates.
func (e *Engine) invGamma(shape, scale float64) float64 {
	g := distuv.Gamma{Alpha: shape, Beta: scale, Src: e.gen}
	return 1.0 / g.Rand()
}
