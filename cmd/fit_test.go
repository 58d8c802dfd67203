package cmd

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/t-andrew-do/heroin-eda-demo/sampler"
)

// Config parsing layers the file over runnable defaults
func TestReadConfig(t *testing.T) {
	assert := assert.New(t)

	conf := `
data:
  response: deaths
  covariates:
    - name: poverty
      kind: mean
    - name: metro
      kind: flag
  holdout_years: [2015]
run:
  burn_in: 10
  samples: 20
  chains: 2
  seed: 99
  rho_int: 0.5
`
	fn := filepath.Join(t.TempDir(), "conf.yaml")
	assert.NoError(os.WriteFile(fn, []byte(conf), 0644))

	cfg, err := readConfig(fn)
	assert.NoError(err)

	assert.Equal("deaths", cfg.Data.Response)
	assert.Len(cfg.Data.Covariates, 2)
	assert.Equal("poverty", cfg.Data.Covariates[0].Name)
	assert.Equal([]int{2015}, cfg.Data.HoldoutYears)

	assert.Equal(10, cfg.Run.BurnIn)
	assert.Equal(20, cfg.Run.Samples)
	assert.Equal(2, cfg.Run.Chains)
	assert.Equal(int64(99), cfg.Run.Seed)

	// Untouched settings keep their defaults
	assert.Equal(1, cfg.Run.Thin)
	assert.Equal(0.4, cfg.Run.AcceptTarget)
	assert.Equal(sampler.DefaultPriors(), cfg.Run.Priors)

	// rho_int pins the intercept dependence, rho_slo stays free
	assert.NotNil(cfg.Run.RhoInt)
	assert.Equal(0.5, *cfg.Run.RhoInt)
	assert.Nil(cfg.Run.RhoSlo)

	assert.NoError(cfg.Run.Check())

	_, err = readConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(err)
}

// CSV writers round-trip the summary tables, with NaN cells left empty
func TestWriteCSV(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", csvFloat(math.NaN()))
	assert.Equal("1.5", csvFloat(1.5))

	sum := &sampler.Summary{
		Params: []sampler.ParamSummary{
			{Name: "intercept", Mean: 1.5, Lower: 1.0, Upper: 2.0},
			{Name: "nu2", Mean: 0.5, Lower: 0.25, Upper: 0.75},
		},
		Fits: []sampler.FitRow{
			{Region: "01001", Year: 2010, Fitted: 3.5, Residual: -0.5},
			{Region: "01003", Year: 2011, Fitted: 2.25, Residual: math.NaN(), HeldOut: true},
		},
	}

	dir := t.TempDir()

	pf := filepath.Join(dir, "params.csv")
	assert.NoError(writeParamsCSV(pf, sum))
	f, err := os.Open(pf)
	assert.NoError(err)
	rows, err := csv.NewReader(f).ReadAll()
	f.Close()
	assert.NoError(err)
	assert.Equal([][]string{
		{"parameter", "mean", "lower", "upper"},
		{"intercept", "1.5", "1", "2"},
		{"nu2", "0.5", "0.25", "0.75"},
	}, rows)

	ff := filepath.Join(dir, "fits.csv")
	assert.NoError(writeFitsCSV(ff, sum))
	f, err = os.Open(ff)
	assert.NoError(err)
	rows, err = csv.NewReader(f).ReadAll()
	f.Close()
	assert.NoError(err)
	assert.Equal([][]string{
		{"region", "year", "fitted", "residual", "held_out"},
		{"01001", "2010", "3.5", "-0.5", "false"},
		{"01003", "2011", "2.25", "", "true"},
	}, rows)
}
