package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/t-andrew-do/heroin-eda-demo/model"
)

// GelmanRubin computes the potential scale reduction factor for every global
// scalar parameter across parallel chains. The chains must hold the same
// number of draws with matching dimensions. Values near 1 mean the chains
// agree; anything above about 1.1 is usually read as "run it longer".
func GelmanRubin(chains []*Chain, fr *model.Frame) (map[string]float64, error) {
	m := len(chains)
	if m < 2 {
		return nil, errors.Errorf("Gelman-Rubin needs at least 2 chains, have %d", m)
	}

	n := 0
	for i, ch := range chains {
		if ch == nil || ch.Len() < 2 {
			return nil, errors.Errorf("Chain %d needs at least 2 retained draws", i)
		}
		if i == 0 {
			n = ch.Len()
		} else if ch.Len() != n {
			return nil, errors.Errorf("Chain %d holds %d draws, expected %d", i, ch.Len(), n)
		}
	}

	p := len(chains[0].States[0].Beta)
	k := len(chains[0].States[0].Phi)
	for i, ch := range chains {
		if len(ch.States[0].Beta) != p || len(ch.States[0].Phi) != k {
			return nil, errors.Errorf("Chain %d dimensions do not match chain 0", i)
		}
	}
	if p != len(fr.Columns) || k != len(fr.Regions) {
		return nil, errors.Errorf("Chains are %dx%d but the frame is %dx%d", p, k, len(fr.Columns), len(fr.Regions))
	}

	// Split-free PSRF: between- and within-chain variance of each trace
	means := make([]float64, m)
	vars := make([]float64, m)
	draw := make([]float64, n)
	psrf := func(get func(*State) float64) float64 {
		for j, ch := range chains {
			for i, st := range ch.States {
				draw[i] = get(st)
			}
			means[j] = stat.Mean(draw, nil)
			vars[j] = stat.Variance(draw, nil)
		}

		w := stat.Mean(vars, nil)
		if w == 0.0 {
			// Degenerate traces (a fixed rho, say) count as converged
			return 1.0
		}

		fn := float64(n)
		vhat := (fn-1.0)/fn*w + stat.Variance(means, nil)
		return math.Sqrt(vhat / w)
	}

	out := make(map[string]float64, p+6)
	for j := 0; j < p; j++ {
		j := j
		out[fr.Columns[j]] = psrf(func(st *State) float64 { return st.Beta[j] })
	}
	out["alpha"] = psrf(func(st *State) float64 { return st.Alpha })
	out["tau2.int"] = psrf(func(st *State) float64 { return st.Tau2Int })
	out["tau2.slo"] = psrf(func(st *State) float64 { return st.Tau2Slo })
	out["rho.int"] = psrf(func(st *State) float64 { return st.RhoInt })
	out["rho.slo"] = psrf(func(st *State) float64 { return st.RhoSlo })
	out["nu2"] = psrf(func(st *State) float64 { return st.Nu2 })

	return out, nil
}
