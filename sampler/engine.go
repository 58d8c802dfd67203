package sampler

import (
	"context"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/t-andrew-do/heroin-eda-demo/model"
	"github.com/t-andrew-do/heroin-eda-demo/rand"
)

// cell is one observed response with its likelihood ingredients. Cells whose
// response is missing or held out never make it in here, which is the whole
// of the held-out handling: everything downstream just walks this list.
type cell struct {
	region int
	t      float64
	y      float64
	x      []float64
}

// Engine runs one MCMC chain over a frame and graph. It is not safe for
// concurrent use; parallel chains each construct their own Engine around
// their own generator.
type Engine struct {
	cfg   *Config
	frame *model.Frame
	graph *model.Graph
	gen   *rand.Generator

	cur  *State
	iter int // 1-based iteration currently executing

	p   int
	k   int
	obs []cell

	obsN   []float64 // observed cell count per region
	tt     []float64 // per-region sum of squared trend over observed cells
	sumTT  float64
	xtx    *mat.SymDense
	lapEig []float64 // graph Laplacian eigenvalues; nil when both rhos are fixed
	active int

	intProp *Proposal
	sloProp *Proposal

	xb       []float64 // x'beta per observed cell, refreshed after each beta draw
	scratchK []float64
	lastSSE  float64

	// Progress, when set, is called after every completed iteration.
	Progress func(iter, total int)
}

// NewEngine validates the configuration against the data and precomputes
// everything the sweep reuses: design cross-products, per-region trend
// sums, and the Laplacian eigenvalues behind the CAR log-determinant.
func NewEngine(cfg *Config, fr *model.Frame, gr *model.Graph, gen *rand.Generator) (*Engine, error) {
	if gen == nil {
		return nil, model.ConfigErrorf("An engine requires a generator")
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if err := fr.Check(); err != nil {
		return nil, err
	}

	if gr.Size() != len(fr.Regions) {
		return nil, model.ConfigErrorf("Graph has %d regions but the frame has %d", gr.Size(), len(fr.Regions))
	}
	for i, key := range fr.Regions {
		if gr.Key(i) != key {
			return nil, model.ConfigErrorf("Graph region %d is %s but the frame has %s", i, gr.Key(i), key)
		}
	}

	e := &Engine{
		cfg:    cfg,
		frame:  fr,
		graph:  gr,
		gen:    gen,
		p:      len(fr.Columns),
		k:      len(fr.Regions),
		active: gr.ActiveCount(),
	}

	e.obsN = make([]float64, e.k)
	e.tt = make([]float64, e.k)
	e.scratchK = make([]float64, e.k)

	for i := range fr.Obs {
		o := &fr.Obs[i]
		if !o.Observed {
			continue
		}
		t := fr.Trend[o.Time]
		e.obs = append(e.obs, cell{region: o.Region, t: t, y: o.Y, x: o.X})
		e.obsN[o.Region]++
		e.tt[o.Region] += t * t
		e.sumTT += t * t
	}
	e.xb = make([]float64, len(e.obs))

	e.xtx = mat.NewSymDense(e.p, nil)
	for ci := range e.obs {
		x := e.obs[ci].x
		for a := 0; a < e.p; a++ {
			for b := a; b < e.p; b++ {
				e.xtx.SetSym(a, b, e.xtx.At(a, b)+x[a]*x[b])
			}
		}
	}

	if cfg.RhoInt == nil || cfg.RhoSlo == nil {
		eig, err := laplacianEigenvalues(gr)
		if err != nil {
			return nil, err
		}
		e.lapEig = eig
	}

	e.intProp = NewProposal(0.05, cfg.AcceptTarget, cfg.AcceptWindow)
	e.sloProp = NewProposal(0.05, cfg.AcceptTarget, cfg.AcceptWindow)
	if cfg.BurnIn == 0 {
		e.intProp.Freeze()
		e.sloProp.Freeze()
	}

	e.cur = e.initState()

	return e, nil
}

// laplacianEigenvalues computes the eigenvalues of D - W once so every
// Metropolis step can evaluate the CAR log-determinant in O(K).
func laplacianEigenvalues(gr *model.Graph) ([]float64, error) {
	k := gr.Size()
	lap := mat.NewSymDense(k, nil)

	for i := 0; i < k; i++ {
		lap.SetSym(i, i, float64(gr.Degree(i)))
		for _, j := range gr.Neighbors(i) {
			if j > i {
				lap.SetSym(i, j, -1.0)
			}
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(lap, false) {
		return nil, model.NumericalErrorf("rho", 0, "Eigendecomposition of the graph Laplacian failed")
	}

	return eig.Values(nil), nil
}

// initState builds the starting point: regression terms at their prior
// means, spatial fields jittered from the seeded stream and re-centered, and
// the noise variance scaled from the observed responses.
func (e *Engine) initState() *State {
	pr := &e.cfg.Priors
	st := NewState(e.p, e.k)

	for i := range st.Beta {
		st.Beta[i] = pr.BetaMean
	}
	st.Alpha = pr.AlphaMean

	norm := distuv.Normal{Mu: 0.0, Sigma: 0.1, Src: e.gen}
	for i := range st.Phi {
		st.Phi[i] = norm.Rand()
	}
	for i := range st.Delta {
		st.Delta[i] = norm.Rand()
	}
	center(st.Phi)
	center(st.Delta)

	st.Tau2Int = 0.1
	st.Tau2Slo = 0.1

	st.Nu2 = 1.0
	if len(e.obs) > 1 {
		ys := make([]float64, len(e.obs))
		for i := range e.obs {
			ys[i] = e.obs[i].y
		}
		if v := stat.Variance(ys, nil); v > 0.0 {
			st.Nu2 = v / 2.0
		}
	}

	st.RhoInt = 0.5
	if e.cfg.RhoInt != nil {
		st.RhoInt = *e.cfg.RhoInt
	}
	st.RhoSlo = 0.5
	if e.cfg.RhoSlo != nil {
		st.RhoSlo = *e.cfg.RhoSlo
	}

	return st
}

// Run executes burn-in plus sampling and returns the retained chain. On a
// NumericalError the chain retained so far comes back along with the error;
// cancelling the context stops after the in-flight iteration the same way.
func (e *Engine) Run(ctx context.Context) (*Chain, error) {
	total := e.cfg.BurnIn + e.cfg.Samples
	keep := e.cfg.Samples / e.cfg.Thin

	ch := &Chain{
		States:  make([]*State, 0, keep),
		LogLike: make([]float64, 0, keep),
	}

	// Partial chains from cancellation or a NumericalError still report the
	// acceptance recorded up to that point
	defer func() {
		ch.AcceptInt = e.intProp.Rate()
		ch.AcceptSlo = e.sloProp.Rate()
	}()

	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			return ch, ctx.Err()
		default:
		}

		e.iter = i
		ll, err := e.step()
		if err != nil {
			return ch, err
		}
		ch.Iterations = i

		if i == e.cfg.BurnIn {
			e.intProp.Freeze()
			e.sloProp.Freeze()
		}

		if i > e.cfg.BurnIn && (i-e.cfg.BurnIn)%e.cfg.Thin == 0 {
			ch.States = append(ch.States, e.cur.Clone())
			ch.LogLike = append(ch.LogLike, ll)
		}

		if e.Progress != nil {
			e.Progress(i, total)
		}
	}

	return ch, nil
}

// step advances the state by one full sweep in the fixed update order and
// returns the end-of-sweep log likelihood.
func (e *Engine) step() (float64, error) {
	if err := e.updateBeta(); err != nil {
		return 0.0, err
	}
	e.refreshXB()

	if err := e.updatePhi(); err != nil {
		return 0.0, err
	}
	if err := e.updateDelta(); err != nil {
		return 0.0, err
	}
	if err := e.updateAlpha(); err != nil {
		return 0.0, err
	}

	if err := e.updateTau2("tau2.int", e.cur.RhoInt, e.cur.Phi, &e.cur.Tau2Int); err != nil {
		return 0.0, err
	}
	if err := e.updateTau2("tau2.slo", e.cur.RhoSlo, e.cur.Delta, &e.cur.Tau2Slo); err != nil {
		return 0.0, err
	}

	if e.cfg.RhoInt == nil {
		if err := e.updateRho("rho.int", &e.cur.RhoInt, e.cur.Phi, e.cur.Tau2Int, e.intProp); err != nil {
			return 0.0, err
		}
	}
	if e.cfg.RhoSlo == nil {
		if err := e.updateRho("rho.slo", &e.cur.RhoSlo, e.cur.Delta, e.cur.Tau2Slo, e.sloProp); err != nil {
			return 0.0, err
		}
	}

	if err := e.updateNu2(); err != nil {
		return 0.0, err
	}

	return e.logLike(), nil
}

// refreshXB recomputes the fixed-effect part of the linear predictor for
// every observed cell.
func (e *Engine) refreshXB() {
	beta := e.cur.Beta
	for ci := range e.obs {
		x := e.obs[ci].x
		s := 0.0
		for j := range x {
			s += x[j] * beta[j]
		}
		e.xb[ci] = s
	}
}

// logLike is the Gaussian log likelihood of the observed responses under the
// current state. It reuses the residual sum of squares from the nu2 update,
// so it is only valid at the end of a sweep.
func (e *Engine) logLike() float64 {
	return gaussLogLike(len(e.obs), e.lastSSE, e.cur.Nu2)
}
