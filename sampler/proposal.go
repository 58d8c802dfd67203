package sampler

import (
	"github.com/t-andrew-do/heroin-eda-demo/buffer"
)

// Proposal scale bounds. The dependence parameters live on [0,1), so steps
// outside this range are never useful.
const (
	sigmaMin = 0.001
	sigmaMax = 1.0
)

// Proposal is the random-walk step scale for one Metropolis parameter. It
// self-tunes toward a target acceptance rate while the chain burns in and
// holds still afterwards.
type Proposal struct {
	Sigma  float64
	Target float64

	window  *buffer.Window
	frozen  bool
	props   int64 // outcomes recorded after Freeze
	accepts int64
}

// NewProposal returns a tunable proposal with the given starting scale,
// target acceptance rate, and tuning window size.
func NewProposal(sigma, target float64, window int) *Proposal {
	return &Proposal{
		Sigma:  sigma,
		Target: target,
		window: buffer.NewWindow(window),
	}
}

// Record notes one proposal outcome. Before Freeze, every full window
// adjusts Sigma by 10% toward the target rate and restarts the window; after
// Freeze the outcome only feeds the reported acceptance rate.
func (p *Proposal) Record(accepted bool) {
	if p.frozen {
		p.props++
		if accepted {
			p.accepts++
		}
		return
	}

	p.window.Add(accepted)
	if !p.window.Full() {
		return
	}

	rate := p.window.Rate()
	if rate > p.Target+0.1 {
		p.Sigma *= 1.1
	} else if rate < p.Target-0.1 {
		p.Sigma /= 1.1
	}

	if p.Sigma > sigmaMax {
		p.Sigma = sigmaMax
	}
	if p.Sigma < sigmaMin {
		p.Sigma = sigmaMin
	}

	p.window.Reset()
}

// Freeze stops tuning. Acceptance reported after this point covers only the
// frozen phase.
func (p *Proposal) Freeze() {
	p.frozen = true
}

// Rate returns the post-freeze acceptance rate, or 0 before any frozen
// outcomes have been recorded.
func (p *Proposal) Rate() float64 {
	if p.props < 1 {
		return 0.0
	}
	return float64(p.accepts) / float64(p.props)
}
