package sampler

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/t-andrew-do/heroin-eda-demo/model"
	"github.com/t-andrew-do/heroin-eda-demo/rand"
)

// Chain is the retained output of one engine run. When a run aborts early
// the slices hold everything retained up to the last completed iteration.
type Chain struct {
	States  []*State  // retained post-burn-in draws, already thinned
	LogLike []float64 // log likelihood per retained draw

	Seed       int64   // generator seed used for this chain
	Iterations int     // completed iterations including burn-in
	AcceptInt  float64 // post-burn-in acceptance rate for rho.int, 0 when fixed
	AcceptSlo  float64 // post-burn-in acceptance rate for rho.slo, 0 when fixed
}

// Len returns the retained draw count.
func (c *Chain) Len() int {
	return len(c.States)
}

// Progress receives per-chain iteration updates during a parallel run.
type Progress func(chain, iter, total int)

// ChainSeed derives chain i's seed from the base seed, offset by a large
// prime so the streams start far apart.
func ChainSeed(base int64, i int) int64 {
	return base + int64(i)*1000003
}

// RunChains fits cfg.Chains independent chains over the same inputs, one
// goroutine and one generator each. The first failure cancels the remaining
// chains after their in-flight iterations; whatever each chain retained is
// still returned.
func RunChains(ctx context.Context, cfg *Config, fr *model.Frame, gr *model.Graph, prog Progress) ([]*Chain, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	chains := make([]*Chain, cfg.Chains)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Chains; i++ {
		i := i
		g.Go(func() error {
			seed := ChainSeed(cfg.Seed, i)
			gen, err := rand.NewGenerator(seed)
			if err != nil {
				return err
			}

			eng, err := NewEngine(cfg, fr, gr, gen)
			if err != nil {
				return err
			}
			if prog != nil {
				eng.Progress = func(iter, total int) {
					prog(i, iter, total)
				}
			}

			ch, err := eng.Run(ctx)
			if ch != nil {
				ch.Seed = seed
				chains[i] = ch
			}
			return err
		})
	}

	err := g.Wait()
	return chains, err
}

// MergeChains pools retained draws from several chains into a single chain
// suitable for summarization. The chains must agree on dimensions.
func MergeChains(chains []*Chain) (*Chain, error) {
	if len(chains) < 1 {
		return nil, errors.Errorf("Can not merge 0 chains")
	}
	if len(chains) == 1 {
		return chains[0], nil
	}

	first := chains[0]
	if first == nil || first.Len() < 1 {
		return nil, errors.Errorf("Chain 0 has no retained draws")
	}
	p := len(first.States[0].Beta)
	k := len(first.States[0].Phi)

	merged := &Chain{
		Seed: first.Seed,
	}

	var accInt, accSlo float64
	for idx, ch := range chains {
		if ch == nil || ch.Len() < 1 {
			return nil, errors.Errorf("Chain %d has no retained draws", idx)
		}
		st := ch.States[0]
		if len(st.Beta) != p || len(st.Phi) != k {
			return nil, errors.Errorf("Can not merge chain %d sized %dx%d into %dx%d", idx, len(st.Beta), len(st.Phi), p, k)
		}
		if len(ch.LogLike) != ch.Len() {
			return nil, errors.Errorf("Chain %d has %d log likelihood entries for %d draws", idx, len(ch.LogLike), ch.Len())
		}

		merged.States = append(merged.States, ch.States...)
		merged.LogLike = append(merged.LogLike, ch.LogLike...)
		merged.Iterations += ch.Iterations
		accInt += ch.AcceptInt
		accSlo += ch.AcceptSlo
	}

	n := float64(len(chains))
	merged.AcceptInt = accInt / n
	merged.AcceptSlo = accSlo / n

	return merged, nil
}
