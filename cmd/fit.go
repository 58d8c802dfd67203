package cmd

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/t-andrew-do/heroin-eda-demo/model"
	"github.com/t-andrew-do/heroin-eda-demo/sampler"
)

// fileConfig is the on-disk YAML layout: a data section describing the
// assembly and a run section for the sampler.
type fileConfig struct {
	Data model.Assembly `yaml:"data"`
	Run  sampler.Config `yaml:"run"`
}

// readConfig parses the config file over the default run settings, so the
// file only needs to mention what it changes.
func readConfig(filename string) (*fileConfig, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ config file %s", filename)
	}

	cfg := &fileConfig{Run: *sampler.DefaultConfig()}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "Could not PARSE config file %s", filename)
	}

	return cfg, nil
}

// loadInputs reads the config, records, and edges, and assembles the frame
// and graph every subcommand works from.
func loadInputs(sp *startupParams) (*fileConfig, *model.Frame, *model.Graph, error) {
	sp.out.Printf("Reading config from %s\n", sp.confFile)
	cfg, err := readConfig(sp.confFile)
	if err != nil {
		return nil, nil, nil, err
	}

	sp.out.Printf("Reading records from %s\n", sp.recordsFile)
	recs, err := model.ReadRecordsCSVFile(sp.recordsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	sp.out.Printf("Read %d records\n", len(recs))

	var edges [][2]string
	if len(sp.edgesFile) > 0 {
		sp.out.Printf("Reading adjacency from %s\n", sp.edgesFile)
		edges, err = model.ReadEdgesCSVFile(sp.edgesFile)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	fr, err := model.NewFrame(recs, &cfg.Data)
	if err != nil {
		return nil, nil, nil, err
	}
	sp.out.Printf(
		"Frame has %d counties x %d years (%d observed responses), %d design columns\n",
		len(fr.Regions), len(fr.Years), fr.ObservedCount(), len(fr.Columns),
	)

	gr, err := model.NewGraph(fr.Regions, edges)
	if err != nil {
		return nil, nil, nil, err
	}
	sp.out.Printf("Graph has %d links, %d isolated counties\n", gr.EdgeCount(), gr.Size()-gr.ActiveCount())

	return cfg, fr, gr, nil
}

// FitRun loads the configured inputs, runs the requested chains, and writes
// the posterior report.
func FitRun(sp *startupParams) error {
	cfg, fr, gr, err := loadInputs(sp)
	if err != nil {
		return err
	}

	run := &cfg.Run
	if sp.randomSeed != 0 {
		run.Seed = sp.randomSeed
	}
	if err := run.Check(); err != nil {
		return err
	}
	sp.out.Printf(
		"Chains: %d, Burn-in: %d, Samples: %d, Thin: %d, Seed: %d\n",
		run.Chains, run.BurnIn, run.Samples, run.Thin, run.Seed,
	)

	var prog sampler.Progress
	if sp.monitor {
		mon := &monitor{}
		if err := mon.Start(sp.monitorAddr); err != nil {
			return err
		}
		defer mon.Stop()

		mon.BurnIn.Set(int64(run.BurnIn))
		mon.Samples.Set(int64(run.Samples))
		mon.Thin.Set(int64(run.Thin))
		mon.ChainCount.Set(int64(run.Chains))

		start := time.Now()
		prog = func(chain, iter, total int) {
			mon.Iterations.Add(1)
			mon.RunTime.Set(time.Since(start).Seconds())
		}
	}

	// Ctrl-C stops every chain after its iteration in flight
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	begin := time.Now()
	chains, err := sampler.RunChains(ctx, run, fr, gr, prog)
	elapsed := time.Since(begin)

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			for i, ch := range chains {
				if ch != nil {
					sp.out.Printf("Chain %d aborted after %d iterations with %d retained draws\n", i, ch.Iterations, ch.Len())
				}
			}
			return err
		}
		sp.out.Printf("Interrupted, summarizing what the chains retained\n")
	}

	usable := make([]*sampler.Chain, 0, len(chains))
	for i, ch := range chains {
		if ch == nil || ch.Len() < 1 {
			sp.out.Printf("Chain %d retained nothing\n", i)
			continue
		}
		sp.trace.Printf("Chain %d: seed %d, %d iterations, %d retained draws\n", i, ch.Seed, ch.Iterations, ch.Len())
		usable = append(usable, ch)
	}
	if len(usable) < 1 {
		return errors.Errorf("No chain retained any draws")
	}

	if len(usable) > 1 {
		rhat, rerr := sampler.GelmanRubin(usable, fr)
		if rerr != nil {
			sp.out.Printf("Skipping convergence check: %v\n", rerr)
		} else {
			names := make([]string, 0, len(rhat))
			for n := range rhat {
				names = append(names, n)
			}
			sort.Strings(names)

			worst := names[0]
			for _, n := range names {
				sp.trace.Printf("Rhat[%s] = %.4f\n", n, rhat[n])
				if rhat[n] > rhat[worst] {
					worst = n
				}
			}
			sp.out.Printf("Worst Rhat: %s = %.4f\n", worst, rhat[worst])
		}
	}

	merged, err := sampler.MergeChains(usable)
	if err != nil {
		return err
	}

	sum, err := sampler.Summarize(merged, fr, 0.95)
	if err != nil {
		return err
	}

	sp.out.Printf("Run time: %v, retained draws: %d\n", elapsed, merged.Len())
	if run.RhoInt == nil {
		sp.out.Printf("Acceptance rho.int: %.3f\n", sum.AcceptInt)
	}
	if run.RhoSlo == nil {
		sp.out.Printf("Acceptance rho.slo: %.3f\n", sum.AcceptSlo)
	}
	sp.out.Printf("DIC: %.3f (pD %.3f, deviance %.3f)\n", sum.DIC, sum.PD, sum.Deviance)

	// Global parameters on out, the county-level fields only on trace
	for _, p := range sum.Params {
		sp.trace.Printf("%-20s %12.4f [%12.4f, %12.4f]\n", p.Name, p.Mean, p.Lower, p.Upper)
		if strings.HasPrefix(p.Name, "phi[") || strings.HasPrefix(p.Name, "delta[") {
			continue
		}
		sp.out.Printf("%-12s %12.4f [%12.4f, %12.4f]\n", p.Name, p.Mean, p.Lower, p.Upper)
	}

	if len(sp.outPrefix) > 0 {
		pf := sp.outPrefix + "-params.csv"
		if err := writeParamsCSV(pf, sum); err != nil {
			return err
		}
		ff := sp.outPrefix + "-fits.csv"
		if err := writeFitsCSV(ff, sum); err != nil {
			return err
		}
		sp.out.Printf("Wrote %s and %s\n", pf, ff)
	}

	return nil
}

// csvFloat renders a float for CSV output, leaving NaN cells empty.
func csvFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeParamsCSV(filename string, sum *sampler.Summary) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Could not CREATE params file %s", filename)
	}
	defer f.Close()

	rows := [][]string{{"parameter", "mean", "lower", "upper"}}
	for _, p := range sum.Params {
		rows = append(rows, []string{p.Name, csvFloat(p.Mean), csvFloat(p.Lower), csvFloat(p.Upper)})
	}

	if err := csv.NewWriter(f).WriteAll(rows); err != nil {
		return errors.Wrapf(err, "Could not WRITE params file %s", filename)
	}
	return nil
}

func writeFitsCSV(filename string, sum *sampler.Summary) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Could not CREATE fits file %s", filename)
	}
	defer f.Close()

	rows := [][]string{{"region", "year", "fitted", "residual", "held_out"}}
	for _, ft := range sum.Fits {
		rows = append(rows, []string{
			ft.Region,
			strconv.Itoa(ft.Year),
			csvFloat(ft.Fitted),
			csvFloat(ft.Residual),
			strconv.FormatBool(ft.HeldOut),
		})
	}

	if err := csv.NewWriter(f).WriteAll(rows); err != nil {
		return errors.Wrapf(err, "Could not WRITE fits file %s", filename)
	}
	return nil
}
