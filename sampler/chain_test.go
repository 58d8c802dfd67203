package sampler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Seed derivation keeps the streams far apart and chain 0 on the base seed
func TestChainSeed(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(int64(7), ChainSeed(7, 0))
	assert.Equal(int64(7+1000003), ChainSeed(7, 1))
	assert.Equal(int64(7+3*1000003), ChainSeed(7, 3))
}

// Parallel chains are independent and chain 0 matches a direct run on the
// same seed
func TestRunChains(t *testing.T) {
	assert := assert.New(t)

	fr, gr, err := lineFixture()
	assert.NoError(err)

	cfg := quickConfig()
	cfg.Chains = 2

	chains, err := RunChains(context.Background(), cfg, fr, gr, nil)
	assert.NoError(err)
	assert.Len(chains, 2)

	for i, ch := range chains {
		assert.NotNil(ch, "chain %d", i)
		assert.Equal(cfg.Samples/cfg.Thin, ch.Len())
		assert.Equal(ChainSeed(cfg.Seed, i), ch.Seed)
	}
	assert.NotEqual(chains[0].States, chains[1].States)

	// Goroutine scheduling must not leak into the draws
	direct, err := runEngine(cfg, fr, gr, ChainSeed(cfg.Seed, 0))
	assert.NoError(err)
	assert.Equal(direct.States, chains[0].States)
	assert.Equal(direct.LogLike, chains[0].LogLike)
}

// Progress callbacks see every chain finish the full budget
func TestRunChainsProgress(t *testing.T) {
	assert := assert.New(t)

	fr, gr, err := lineFixture()
	assert.NoError(err)

	cfg := quickConfig()
	cfg.Chains = 2
	total := cfg.BurnIn + cfg.Samples

	var mx sync.Mutex
	finished := make(map[int]int)
	prog := func(chain, iter, tot int) {
		mx.Lock()
		defer mx.Unlock()
		assert.Equal(total, tot)
		if iter > finished[chain] {
			finished[chain] = iter
		}
	}

	_, err = RunChains(context.Background(), cfg, fr, gr, prog)
	assert.NoError(err)
	assert.Equal(map[int]int{0: total, 1: total}, finished)
}

// Merging pools draws and keeps the bookkeeping additive
func TestMergeChains(t *testing.T) {
	assert := assert.New(t)

	fr, gr, err := lineFixture()
	assert.NoError(err)

	cfg := quickConfig()
	cfg.Chains = 2

	chains, err := RunChains(context.Background(), cfg, fr, gr, nil)
	assert.NoError(err)

	merged, err := MergeChains(chains)
	assert.NoError(err)
	assert.Equal(chains[0].Len()+chains[1].Len(), merged.Len())
	assert.Equal(merged.Len(), len(merged.LogLike))
	assert.Equal(chains[0].Iterations+chains[1].Iterations, merged.Iterations)
	assert.InDelta((chains[0].AcceptInt+chains[1].AcceptInt)/2.0, merged.AcceptInt, 1e-12)

	// A single chain passes through untouched
	same, err := MergeChains(chains[:1])
	assert.NoError(err)
	assert.True(same == chains[0])
}

// Merge rejects empty input and mismatched dimensions
func TestMergeChainsBad(t *testing.T) {
	assert := assert.New(t)

	_, err := MergeChains(nil)
	assert.Error(err)

	a := &Chain{States: []*State{NewState(2, 3)}, LogLike: []float64{-1.0}}
	b := &Chain{States: []*State{NewState(2, 4)}, LogLike: []float64{-1.0}}
	_, err = MergeChains([]*Chain{a, b})
	assert.Error(err)

	_, err = MergeChains([]*Chain{a, nil})
	assert.Error(err)

	short := &Chain{States: []*State{NewState(2, 3)}}
	_, err = MergeChains([]*Chain{a, short})
	assert.Error(err)
}
