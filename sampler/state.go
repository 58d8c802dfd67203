package sampler

import (
	"math"

	"github.com/pkg/errors"
)

// State is one full set of model unknowns. A running engine owns exactly one
// live State and mutates it in place; retained draws are deep copies frozen
// into a Chain.
type State struct {
	Beta  []float64 // fixed effects, intercept first
	Phi   []float64 // spatial random intercepts, mean zero after each sweep
	Delta []float64 // spatial random slopes, mean zero after each sweep
	Alpha float64   // overall trend slope

	Tau2Int float64 // CAR variance for Phi
	Tau2Slo float64 // CAR variance for Delta
	RhoInt  float64 // spatial dependence for Phi, in [0,1)
	RhoSlo  float64 // spatial dependence for Delta, in [0,1)
	Nu2     float64 // observation noise variance
}

// NewState returns a zeroed state dimensioned for p design columns and k
// regions.
func NewState(p, k int) *State {
	return &State{
		Beta:  make([]float64, p),
		Phi:   make([]float64, k),
		Delta: make([]float64, k),
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	cp := &State{
		Beta:    make([]float64, len(s.Beta)),
		Phi:     make([]float64, len(s.Phi)),
		Delta:   make([]float64, len(s.Delta)),
		Alpha:   s.Alpha,
		Tau2Int: s.Tau2Int,
		Tau2Slo: s.Tau2Slo,
		RhoInt:  s.RhoInt,
		RhoSlo:  s.RhoSlo,
		Nu2:     s.Nu2,
	}

	copy(cp.Beta, s.Beta)
	copy(cp.Phi, s.Phi)
	copy(cp.Delta, s.Delta)

	return cp
}

// Check returns an error if the state violates its standing invariants:
// finite values everywhere, positive variances, and spatial dependence
// inside [0,1).
func (s *State) Check() error {
	for i, b := range s.Beta {
		if !finite(b) {
			return errors.Errorf("Fixed effect %d is %v", i, b)
		}
	}
	for i, p := range s.Phi {
		if !finite(p) {
			return errors.Errorf("Spatial intercept %d is %v", i, p)
		}
	}
	for i, d := range s.Delta {
		if !finite(d) {
			return errors.Errorf("Spatial slope %d is %v", i, d)
		}
	}
	if !finite(s.Alpha) {
		return errors.Errorf("Trend slope is %v", s.Alpha)
	}

	for _, v := range []struct {
		name string
		val  float64
	}{
		{"tau2.int", s.Tau2Int},
		{"tau2.slo", s.Tau2Slo},
		{"nu2", s.Nu2},
	} {
		if !finite(v.val) || v.val <= 0.0 {
			return errors.Errorf("Variance %s is %v", v.name, v.val)
		}
	}

	for _, r := range []struct {
		name string
		val  float64
	}{
		{"rho.int", s.RhoInt},
		{"rho.slo", s.RhoSlo},
	} {
		if !finite(r.val) || r.val < 0.0 || r.val >= 1.0 {
			return errors.Errorf("Dependence %s is %v, must be in [0,1)", r.name, r.val)
		}
	}

	return nil
}

// finite reports whether x is neither NaN nor infinite.
func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// center subtracts the mean from every element, keeping a spatial field
// identifiable against its global intercept term.
func center(v []float64) {
	if len(v) < 1 {
		return
	}

	sum := 0.0
	for _, x := range v {
		sum += x
	}
	m := sum / float64(len(v))

	for i := range v {
		v[i] -= m
	}
}
