package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"supply-forecast/internal/analysis"
	"supply-forecast/internal/config"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cmdMonteCarlo = &cobra.Command{
	Use:   "montecarlo",
	Short: "Run the config on many seeded driver paths and summarise the spread",
	Args:  cobra.NoArgs,
	Run:   monteCarlo,
}

var cmdSweep = &cobra.Command{
	Use:   "sweep",
	Short: "Run every combination of parameter ranges",
	Args:  cobra.NoArgs,
	Run:   sweep,
}

var cmdSensitivity = &cobra.Command{
	Use:   "sensitivity",
	Short: "Estimate the per-day derivative of outputs with respect to one parameter",
	Args:  cobra.NoArgs,
	Run:   sensitivity,
}

var flagMonteCarlo struct {
	Runs    int
	Out     string
	Columns []string
}

var flagSweep struct {
	Ranges  string
	Samples int
	Out     string
	RankBy  string
	Asc     bool
	Top     int
}

var flagSensitivity struct {
	Param   string
	H       float64
	Samples int
	Grid    []float64
	Columns []string
	Out     string
}

func init() {
	cmdMain.AddCommand(cmdMonteCarlo, cmdSweep, cmdSensitivity)

	f := cmdMonteCarlo.Flags()
	f.IntVarP(&flagMonteCarlo.Runs, "runs", "n", 100, "Number of driver paths")
	f.StringVarP(&flagMonteCarlo.Out, "out", "o", "", "Write per-day bands as CSV")
	f.StringSliceVar(&flagMonteCarlo.Columns, "columns", nil, "Columns to summarise (default: sensitivity columns)")

	f = cmdSweep.Flags()
	f.StringVarP(&flagSweep.Ranges, "ranges", "r", "", "YAML file of parameter ranges")
	f.IntVarP(&flagSweep.Samples, "samples", "n", 1, "Driver paths per combination")
	f.StringVarP(&flagSweep.Out, "out", "o", "", "Write every run's ledger as CSV")
	f.StringVar(&flagSweep.RankBy, "rank-by", "circ_supply", "Column whose mean final value ranks combinations")
	f.BoolVar(&flagSweep.Asc, "ascending", false, "Rank lowest first")
	f.IntVar(&flagSweep.Top, "top", 10, "Combinations to print")
	_ = cmdSweep.MarkFlagRequired("ranges")

	f = cmdSensitivity.Flags()
	f.StringVarP(&flagSensitivity.Param, "param", "p", "", "Parameter to differentiate by (see the params command)")
	f.Float64Var(&flagSensitivity.H, "step", 0, "Finite-difference step (default: 1% of the value)")
	f.IntVarP(&flagSensitivity.Samples, "samples", "n", 1, "Seeds to average over")
	f.Float64SliceVar(&flagSensitivity.Grid, "grid", nil, "Evaluate at each of these base values")
	f.StringSliceVar(&flagSensitivity.Columns, "columns", nil, "Columns to differentiate (default: sensitivity columns)")
	f.StringVarP(&flagSensitivity.Out, "out", "o", "", "Write derivatives as CSV")
	_ = cmdSensitivity.MarkFlagRequired("param")
}

func monteCarlo(cmd *cobra.Command, _ []string) {
	s := buildSetup()
	res, err := analysis.MonteCarlo(cmd.Context(), s.cfg, s.generator(), analysis.MonteCarloOptions{
		Runs:    flagMonteCarlo.Runs,
		Seed:    s.doc.Seed,
		Workers: flagMain.Workers,
		Columns: flagMonteCarlo.Columns,
	})
	check(err)

	if flagMonteCarlo.Out != "" {
		writeOutput(flagMonteCarlo.Out, func(w io.Writer) error { return analysis.WriteBandsCSV(w, res) })
	}

	last := s.cfg.Horizon() - 1
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Column\tMean\tP05\tP50\tP95\n")
	for _, b := range res.Bands {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.Column, num(b.Mean[last]), num(b.P05[last]), num(b.P50[last]), num(b.P95[last]))
	}
	tw.Flush()
	fmt.Printf("%s runs over %d days; ecosystem fund negative in %d\n",
		humanize.Comma(int64(res.Runs)), s.cfg.Horizon(), res.NegativeFundRuns)
}

func sweep(cmd *cobra.Command, _ []string) {
	s := buildSetup()
	ranges, err := config.LoadRanges(flagSweep.Ranges)
	check(err)

	res, err := analysis.Sweep(cmd.Context(), s.builder, s.generator(), ranges, analysis.SweepOptions{
		Samples: flagSweep.Samples,
		Seed:    s.doc.Seed,
		Workers: flagMain.Workers,
	})
	check(err)
	ranked, err := analysis.RankCombinations(res, flagSweep.RankBy, flagSweep.Asc)
	check(err)

	if flagSweep.Out != "" {
		writeOutput(flagSweep.Out, func(w io.Writer) error { return analysis.WriteSweepCSV(w, res) })
	}

	fmt.Printf("%d combinations x %d samples, ranked by final %s\n", res.Combinations, res.Samples, flagSweep.RankBy)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Rank\tScore\tParameters\n")
	for i, r := range ranked {
		if flagSweep.Top > 0 && i >= flagSweep.Top {
			break
		}
		params := make([]string, len(r.Params))
		for j, p := range r.Params {
			params[j] = fmt.Sprintf("%s=%g", p.Name, p.Value)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, num(r.Score), strings.Join(params, " "))
	}
	tw.Flush()
}

func sensitivity(cmd *cobra.Command, _ []string) {
	s := buildSetup()
	opts := analysis.SensitivityOptions{
		Param:   flagSensitivity.Param,
		H:       flagSensitivity.H,
		Samples: flagSensitivity.Samples,
		Seed:    s.doc.Seed,
		Workers: flagMain.Workers,
		Columns: flagSensitivity.Columns,
	}

	var points []*analysis.SensitivityResult
	if len(flagSensitivity.Grid) > 0 {
		prof, err := analysis.Profile(cmd.Context(), s.builder, s.generator(), flagSensitivity.Grid, opts)
		check(err)
		points = prof.Points
	} else {
		r, err := analysis.Sensitivity(cmd.Context(), s.builder, s.generator(), opts)
		check(err)
		points = []*analysis.SensitivityResult{r}
	}

	if flagSensitivity.Out != "" {
		writeOutput(flagSensitivity.Out, func(w io.Writer) error { return analysis.WriteSensitivityCSV(w, points) })
	}

	last := s.cfg.Horizon() - 1
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\th\tColumn\td/dparam on day %d\n", flagSensitivity.Param, last)
	for _, p := range points {
		for _, col := range p.Columns {
			fmt.Fprintf(tw, "%g\t%g\t%s\t%s\n", p.Base, p.H, col, num(p.Values[col][last]))
		}
	}
	tw.Flush()
}
