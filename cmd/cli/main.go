package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"supply-forecast/internal/config"
	"supply-forecast/internal/data"
	"supply-forecast/internal/logging"
	"supply-forecast/internal/model"
	"supply-forecast/internal/process"
	"supply-forecast/internal/scenario"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cmdMain = &cobra.Command{
	Use:   "cli",
	Short: "Token supply forecasts, sweeps and sensitivity studies",
	Run:   printUsageAndExit1,
}

var flagMain struct {
	Config   string
	Seed     uint64
	Scenario string
	Horizon  int
	Workers  int
}

func init() {
	f := cmdMain.PersistentFlags()
	f.StringVarP(&flagMain.Config, "config", "c", "", "YAML config (defaults are used when empty)")
	f.Uint64Var(&flagMain.Seed, "seed", 0, "Override the config seed")
	f.StringVarP(&flagMain.Scenario, "scenario", "s", "", "Apply one named scenario to every concern")
	f.IntVar(&flagMain.Horizon, "horizon", 0, "Override horizon_days")
	f.IntVarP(&flagMain.Workers, "workers", "j", runtime.NumCPU(), "Parallel runs for studies")
}

func main() {
	log, err := logging.FromEnv(os.Stderr)
	check(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmdMain.ExecuteContext(log.WithContext(ctx)); err != nil {
		os.Exit(1)
	}
}

func printUsageAndExit1(cmd *cobra.Command, args []string) {
	_ = cmd.Usage()
	os.Exit(1)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func checkf(err error, format string, otherArgs ...interface{}) {
	if err != nil {
		fatalf(format+": %v", append(otherArgs, err)...)
	}
}

// loadConfig reads --config and applies the command-line overrides.
func loadConfig() config.Config {
	base := config.Config{HorizonDays: 3 * 365, Seed: 1}
	if flagMain.Config != "" {
		cfg, err := config.LoadUnchecked(flagMain.Config)
		checkf(err, "load %s", flagMain.Config)
		base = *cfg
	}
	override := config.Config{HorizonDays: flagMain.Horizon, Seed: flagMain.Seed}
	if flagMain.Scenario != "" {
		override.Scenario = scenario.Uniform(flagMain.Scenario)
	}
	merged := config.Merge(base, override)
	// Merge treats a zero seed as unset; an explicit --seed 0 still wins
	if cmdMain.PersistentFlags().Changed("seed") {
		merged.Seed = flagMain.Seed
	}
	return merged
}

// setup is a resolved config ready to run.
type setup struct {
	doc     config.Config
	builder *model.ConfigBuilder
	cfg     model.SimulationConfig
	gen     *process.Generator
}

func buildSetup() setup {
	doc := loadConfig()
	b, drivers, err := doc.ToBuilder()
	check(err)
	cfg, err := b.Clone().Build()
	check(err)
	s := setup{doc: doc, builder: b, cfg: cfg}
	if doc.DriversFile == "" {
		s.gen, err = process.NewGenerator(drivers)
		check(err)
	}
	return s
}

// drivers loads the fixed driver path or draws one for the config seed.
func (s setup) drivers(ctx context.Context) model.DriverVector {
	if s.gen == nil {
		v, err := data.OpenDrivers(ctx, data.NewDriverClient(os.Getenv("DRIVERS_TOKEN"), *zerolog.Ctx(ctx)), s.doc.DriversFile)
		checkf(err, "drivers %s", s.doc.DriversFile)
		return v
	}
	v, err := s.gen.Generate(s.cfg.Horizon(), s.doc.Seed)
	check(err)
	return v
}

func (s setup) generator() *process.Generator {
	if s.gen == nil {
		fatalf("drivers_file fixes one driver path; this command needs generated drivers")
	}
	return s.gen
}

// writeOutput creates path (and its directory) and hands it to write.
func writeOutput(path string, write func(w io.Writer) error) {
	if dir := filepath.Dir(path); dir != "." {
		checkf(os.MkdirAll(dir, 0o755), "create %s", dir)
	}
	f, err := os.Create(path)
	checkf(err, "create %s", path)
	defer f.Close()
	checkf(write(f), "write %s", path)
}

func num(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "n/a"
	}
	return humanize.CommafWithDigits(x, 2)
}

func pct(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "n/a"
	}
	return humanize.FormatFloat("#,###.##", 100*x) + "%"
}
