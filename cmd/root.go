package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// startupParams is the command line state shared by every subcommand,
// including the loggers built by Setup.
type startupParams struct {
	confFile    string
	recordsFile string
	edgesFile   string
	outPrefix   string
	traceFile   string
	verbose     bool
	monitor     bool
	monitorAddr string
	randomSeed  int64

	out   *log.Logger
	trace *log.Logger
}

// Setup builds the loggers: out always writes to stdout, trace writes to the
// trace file when one is given, to stdout when verbose, and nowhere
// otherwise.
func (sp *startupParams) Setup() error {
	sp.out = log.New(os.Stdout, "", 0)

	if len(sp.traceFile) > 0 {
		f, err := os.Create(sp.traceFile)
		if err != nil {
			return errors.Wrapf(err, "Could not CREATE trace file %s", sp.traceFile)
		}
		sp.trace = log.New(f, "", 0)
	} else if sp.verbose {
		sp.trace = log.New(os.Stdout, "", 0)
	} else {
		sp.trace = log.New(io.Discard, "", 0)
	}

	return nil
}

var sp = &startupParams{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "heroin-eda-demo",
	Short: "Bayesian spatio-temporal modeling for county mortality data",
	Long: `heroin-eda-demo fits a hierarchical CAR model to county-year data.
Among other features:

  - County-year records and adjacency read from CSV files
  - A Gibbs-within-Metropolis sampler with parallel chains
  - Posterior summaries, fitted values, and DIC written back to CSV
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Usage()
	},
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the model by MCMC and write the posterior report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sp.Setup(); err != nil {
			return err
		}
		return FitRun(sp)
	},
}

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Write the county adjacency graph in graphviz format",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sp.Setup(); err != nil {
			return err
		}
		return DotOutput(sp)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().StringVarP(&sp.confFile, "config", "c", "", "YAML config file with data and run sections")
	rootCmd.PersistentFlags().StringVarP(&sp.recordsFile, "data", "d", "", "County-year records CSV file")
	rootCmd.PersistentFlags().StringVarP(&sp.edgesFile, "edges", "e", "", "County adjacency CSV file (no links when omitted)")
	rootCmd.PersistentFlags().StringVarP(&sp.outPrefix, "out", "o", "", "Prefix for output CSV files (no files when omitted)")
	rootCmd.PersistentFlags().StringVarP(&sp.traceFile, "trace", "t", "", "Trace output file")
	rootCmd.PersistentFlags().BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	rootCmd.PersistentFlags().BoolVar(&sp.monitor, "monitor", false, "Serve progress counters over HTTP while fitting")
	rootCmd.PersistentFlags().StringVar(&sp.monitorAddr, "monitor-addr", ":8000", "Address for the progress monitor")
	rootCmd.PersistentFlags().Int64VarP(&sp.randomSeed, "seed", "r", 0, "Random seed override (0 keeps the config file seed)")

	rootCmd.MarkPersistentFlagRequired("config")
	rootCmd.MarkPersistentFlagRequired("data")

	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(dotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
