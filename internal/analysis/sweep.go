// Package analysis orchestrates many forecast runs: parameter sweeps,
// finite-difference sensitivities and Monte-Carlo summaries.
package analysis

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/model"
	"supply-forecast/internal/process"

	"github.com/rs/zerolog"
)

// Range lists the values a sweep assigns to one parameter.
type Range struct {
	Name   string    `yaml:"name" json:"name"`
	Values []float64 `yaml:"values" json:"values"`
}

// ParamValue is one parameter assignment within a combination.
type ParamValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Combinations is the cartesian product of ranges. The last range varies fastest.
func Combinations(ranges []Range) [][]ParamValue {
	if len(ranges) == 0 {
		return [][]ParamValue{{}}
	}
	total := 1
	for _, r := range ranges {
		total *= len(r.Values)
	}
	out := make([][]ParamValue, 0, total)
	idx := make([]int, len(ranges))
	for range total {
		combo := make([]ParamValue, len(ranges))
		for j, r := range ranges {
			combo[j] = ParamValue{Name: r.Name, Value: r.Values[idx[j]]}
		}
		out = append(out, combo)
		for j := len(ranges) - 1; j >= 0; j-- {
			idx[j]++
			if idx[j] < len(ranges[j].Values) {
				break
			}
			idx[j] = 0
		}
	}
	return out
}

// SweepOptions control a parameter sweep.
type SweepOptions struct {
	// Samples is the number of driver paths; each combination runs on all of them.
	Samples int
	// Seed of the first driver path; path k uses Seed+k.
	Seed    uint64
	Workers int
}

// SweepRun is one (combination, sample) forecast.
type SweepRun struct {
	Combination int              `json:"combination"`
	Sample      int              `json:"sample"`
	Params      []ParamValue     `json:"params"`
	Result      *forecast.Result `json:"-"`
}

// SweepResult holds runs in (combination, sample) order.
type SweepResult struct {
	Ranges       []Range    `json:"ranges"`
	Combinations int        `json:"combinations"`
	Samples      int        `json:"samples"`
	Runs         []SweepRun `json:"runs"`
}

// Sweep runs every combination of ranges against the same set of driver
// samples. Driver paths are drawn once and shared by all combinations.
func Sweep(ctx context.Context, base *model.ConfigBuilder, gen *process.Generator, ranges []Range, opts SweepOptions) (*SweepResult, error) {
	if opts.Samples < 1 {
		opts.Samples = 1
	}
	for _, r := range ranges {
		if _, err := model.LookupParameter(r.Name); err != nil {
			return nil, err
		}
		if len(r.Values) == 0 {
			return nil, fmt.Errorf("%w: sweep range %q has no values", model.ErrConfig, r.Name)
		}
	}

	combos := Combinations(ranges)
	engines := make([]*forecast.Engine, len(combos))
	for i, combo := range combos {
		b := base.Clone()
		for _, pv := range combo {
			b.Set(pv.Name, pv.Value)
		}
		cfg, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("combination %v: %w", combo, err)
		}
		if engines[i], err = forecast.New(cfg); err != nil {
			return nil, fmt.Errorf("combination %v: %w", combo, err)
		}
	}

	samples, err := gen.Samples(base.Horizon(), opts.Samples, opts.Seed)
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx)
	start := time.Now()
	log.Info().Int("combos", len(combos)).Int("samples", opts.Samples).Msg("sweep started")

	runs := make([]SweepRun, len(combos)*opts.Samples)
	err = forEach(ctx, len(runs), opts.Workers, func(_ context.Context, i int) error {
		c, s := i/opts.Samples, i%opts.Samples
		res, err := engines[c].Run(samples[s])
		if err != nil {
			return fmt.Errorf("combination %v sample %d: %w", combos[c], s, err)
		}
		runs[i] = SweepRun{Combination: c, Sample: s, Params: combos[c], Result: res}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("runs", len(runs)).Dur("duration", time.Since(start)).Msg("sweep finished")
	return &SweepResult{Ranges: ranges, Combinations: len(combos), Samples: opts.Samples, Runs: runs}, nil
}

// WriteSweepCSV writes every run's ledger tagged with its combination, sample
// and parameter values.
func WriteSweepCSV(w io.Writer, res *SweepResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"combination", "sample"}
	for _, r := range res.Ranges {
		header = append(header, r.Name)
	}
	header = append(header, forecast.LedgerHeader()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, run := range res.Runs {
		prefix := []string{strconv.Itoa(run.Combination), strconv.Itoa(run.Sample)}
		for _, pv := range run.Params {
			prefix = append(prefix, forecast.FormatFloat(pv.Value))
		}
		for i := range run.Result.Ledger {
			r := &run.Result.Ledger[i]
			row := append(append([]string{}, prefix...), strconv.Itoa(r.Day))
			for _, c := range forecast.Columns {
				row = append(row, forecast.FormatFloat(c.Value(r)))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
