package analysis

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/model"
	"supply-forecast/internal/process"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Band is the per-day distribution of one column across Monte-Carlo runs.
// Days where every run is NaN (e.g. year inflation in the first year) stay NaN.
type Band struct {
	Column string    `json:"column"`
	Mean   []float64 `json:"mean"`
	P05    []float64 `json:"p05"`
	P50    []float64 `json:"p50"`
	P95    []float64 `json:"p95"`
}

// MarshalJSON encodes NaN days as null.
func (b Band) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"column": b.Column,
		"mean":   forecast.JSONFloats(b.Mean),
		"p05":    forecast.JSONFloats(b.P05),
		"p50":    forecast.JSONFloats(b.P50),
		"p95":    forecast.JSONFloats(b.P95),
	})
}

// MonteCarloOptions control a Monte-Carlo study.
type MonteCarloOptions struct {
	Runs    int
	Seed    uint64
	Workers int
	// Columns to summarise; empty means forecast.SensitivityColumns.
	Columns []string
}

// MonteCarloResult summarises Runs seeded forecasts of one configuration.
type MonteCarloResult struct {
	Runs             int                `json:"runs"`
	Seed             uint64             `json:"seed"`
	Bands            []Band             `json:"bands"`
	Summaries        []forecast.Summary `json:"summaries"`
	NegativeFundRuns int                `json:"negative_fund_runs"`
}

// MonteCarlo runs cfg against Runs driver paths (seeds Seed..Seed+Runs-1)
// and reduces each requested column to per-day bands.
func MonteCarlo(ctx context.Context, cfg model.SimulationConfig, gen *process.Generator, opts MonteCarloOptions) (*MonteCarloResult, error) {
	if opts.Runs < 1 {
		return nil, fmt.Errorf("%w: monte carlo needs at least one run", model.ErrConfig)
	}
	cols, err := resolveColumns(opts.Columns)
	if err != nil {
		return nil, err
	}
	engine, err := forecast.New(cfg)
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx)
	start := time.Now()
	horizon := cfg.Horizon()
	results := make([]*forecast.Result, opts.Runs)
	err = forEach(ctx, opts.Runs, opts.Workers, func(_ context.Context, k int) error {
		drivers, err := gen.Generate(horizon, opts.Seed+uint64(k))
		if err != nil {
			return err
		}
		r, err := engine.Run(drivers)
		if err != nil {
			return fmt.Errorf("run %d: %w", k, err)
		}
		results[k] = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &MonteCarloResult{
		Runs:      opts.Runs,
		Seed:      opts.Seed,
		Bands:     make([]Band, len(cols)),
		Summaries: make([]forecast.Summary, opts.Runs),
	}
	for k, r := range results {
		out.Summaries[k] = r.Summary
		if r.Summary.NegativeFund {
			out.NegativeFundRuns++
		}
	}
	vals := make([]float64, 0, opts.Runs)
	for j, c := range cols {
		b := Band{
			Column: c.Name,
			Mean:   make([]float64, horizon),
			P05:    make([]float64, horizon),
			P50:    make([]float64, horizon),
			P95:    make([]float64, horizon),
		}
		for day := range horizon {
			vals = vals[:0]
			for _, r := range results {
				if v := c.Value(&r.Ledger[day]); !math.IsNaN(v) {
					vals = append(vals, v)
				}
			}
			b.Mean[day], b.P05[day], b.P50[day], b.P95[day] = describe(vals)
		}
		out.Bands[j] = b
	}
	log.Debug().Int("runs", opts.Runs).Dur("duration", time.Since(start)).Msg("monte carlo finished")
	return out, nil
}

// describe sorts vals in place and returns mean, p05, p50 and p95.
func describe(vals []float64) (mean, p05, p50, p95 float64) {
	if len(vals) == 0 {
		nan := math.NaN()
		return nan, nan, nan, nan
	}
	sort.Float64s(vals)
	mean = stat.Mean(vals, nil)
	p05 = stat.Quantile(0.05, stat.Empirical, vals, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, vals, nil)
	p95 = stat.Quantile(0.95, stat.Empirical, vals, nil)
	return mean, p05, p50, p95
}

// Band returns the band for column, if summarised.
func (r *MonteCarloResult) Band(column string) (Band, bool) {
	for _, b := range r.Bands {
		if b.Column == column {
			return b, true
		}
	}
	return Band{}, false
}

// WriteBandsCSV writes one row per day with mean/p05/p50/p95 of every band.
func WriteBandsCSV(w io.Writer, r *MonteCarloResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"day"}
	for _, b := range r.Bands {
		header = append(header, b.Column+"_mean", b.Column+"_p05", b.Column+"_p50", b.Column+"_p95")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	if len(r.Bands) == 0 {
		return nil
	}
	for day := range r.Bands[0].Mean {
		row := []string{strconv.Itoa(day)}
		for _, b := range r.Bands {
			row = append(row,
				forecast.FormatFloat(b.Mean[day]),
				forecast.FormatFloat(b.P05[day]),
				forecast.FormatFloat(b.P50[day]),
				forecast.FormatFloat(b.P95[day]),
			)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
