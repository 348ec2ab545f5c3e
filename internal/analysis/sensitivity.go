package analysis

import (
	"context"
	"errors"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/model"
	"supply-forecast/internal/process"

	"github.com/rs/zerolog"
)

// SensitivityOptions control a finite-difference estimate.
type SensitivityOptions struct {
	Param string
	// H is the step; zero picks StepSize of the base value.
	H float64
	// Samples is the number of seeds averaged over.
	Samples int
	Seed    uint64
	Workers int
	// Columns to differentiate; empty means forecast.SensitivityColumns.
	Columns []string
}

// SensitivityResult is the per-day mean derivative of each column with respect to Param.
type SensitivityResult struct {
	Param   string               `json:"param"`
	Base    float64              `json:"base"`
	H       float64              `json:"h"`
	Samples int                  `json:"samples"`
	Scheme  string               `json:"scheme"`
	Columns []string             `json:"columns"`
	Values  map[string][]float64 `json:"-"`
}

// MarshalJSON includes Values with NaN days as null.
func (r SensitivityResult) MarshalJSON() ([]byte, error) {
	type plain SensitivityResult
	values := make(map[string][]any, len(r.Values))
	for k, v := range r.Values {
		values[k] = forecast.JSONFloats(v)
	}
	return json.Marshal(struct {
		plain
		Values map[string][]any `json:"values"`
	}{plain(r), values})
}

// StepSize is 1% of |value|, or 1e-4 at zero. Integer parameters step by at least one.
func StepSize(value float64, integer bool) float64 {
	h := 0.01 * math.Abs(value)
	if h == 0 {
		h = 1e-4
	}
	if integer {
		h = math.Max(1, math.Round(h))
	}
	return h
}

// Finite-difference schemes.
const (
	SchemeForward  = "forward"
	SchemeBackward = "backward"
)

// Sensitivity estimates d(column)/d(param) per day as
// mean over seeds of (run(p+h) - run(p)) / h. When p+h is out of range
// (a rate at 1) it uses (run(p) - run(p-h)) / h instead. Both runs of a seed
// share the same driver path.
func Sensitivity(ctx context.Context, base *model.ConfigBuilder, gen *process.Generator, opts SensitivityOptions) (*SensitivityResult, error) {
	param, err := model.LookupParameter(opts.Param)
	if err != nil {
		return nil, err
	}
	cols, err := resolveColumns(opts.Columns)
	if err != nil {
		return nil, err
	}
	if opts.Samples < 1 {
		opts.Samples = 1
	}

	value, _ := base.Get(param.Name)
	h := opts.H
	if h == 0 {
		h = StepSize(value, param.Integer)
	} else if param.Integer {
		h = math.Max(1, math.Round(h))
	}

	cfg0, err := base.Build()
	if err != nil {
		return nil, err
	}
	// step forward unless value+h leaves the parameter's range
	scheme := SchemeForward
	lo, hi := cfg0, model.SimulationConfig{}
	if hi, err = base.Clone().Set(param.Name, value+h).Build(); err != nil {
		if !errors.Is(err, model.ErrConfig) {
			return nil, fmt.Errorf("%s+h: %w", param.Name, err)
		}
		backward, berr := base.Clone().Set(param.Name, value-h).Build()
		if berr != nil {
			return nil, fmt.Errorf("%s+h: %w; %s-h: %w", param.Name, err, param.Name, berr)
		}
		scheme, lo, hi = SchemeBackward, backward, cfg0
	}
	e0, err := forecast.New(lo)
	if err != nil {
		return nil, err
	}
	e1, err := forecast.New(hi)
	if err != nil {
		return nil, err
	}

	horizon := cfg0.Horizon()
	perSeed := make([][][]float64, opts.Samples)
	err = forEach(ctx, opts.Samples, opts.Workers, func(_ context.Context, s int) error {
		drivers, err := gen.Generate(horizon, opts.Seed+uint64(s))
		if err != nil {
			return err
		}
		r0, err := e0.Run(drivers)
		if err != nil {
			return fmt.Errorf("seed %d: %w", s, err)
		}
		r1, err := e1.Run(drivers)
		if err != nil {
			return fmt.Errorf("seed %d: %w", s, err)
		}
		d := make([][]float64, len(cols))
		for j, c := range cols {
			d[j] = make([]float64, horizon)
			for i := range horizon {
				d[j][i] = (c.Value(&r1.Ledger[i]) - c.Value(&r0.Ledger[i])) / h
			}
		}
		perSeed[s] = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &SensitivityResult{
		Param:   param.Name,
		Base:    value,
		H:       h,
		Samples: opts.Samples,
		Scheme:  scheme,
		Columns: make([]string, len(cols)),
		Values:  make(map[string][]float64, len(cols)),
	}
	for j, c := range cols {
		res.Columns[j] = c.Name
		mean := make([]float64, horizon)
		for _, d := range perSeed {
			for i, v := range d[j] {
				mean[i] += v
			}
		}
		for i := range mean {
			mean[i] /= float64(opts.Samples)
		}
		res.Values[c.Name] = mean
	}
	return res, nil
}

// SensitivityProfile is the sensitivity evaluated at each grid value of a parameter.
type SensitivityProfile struct {
	Param   string               `json:"param"`
	Grid    []float64            `json:"grid"`
	Columns []string             `json:"columns"`
	Points  []*SensitivityResult `json:"points"`
}

// Profile runs Sensitivity at every grid value of opts.Param. Grid points run
// in parallel; each point averages its seeds sequentially.
func Profile(ctx context.Context, base *model.ConfigBuilder, gen *process.Generator, grid []float64, opts SensitivityOptions) (*SensitivityProfile, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: sensitivity profile needs a grid", model.ErrConfig)
	}
	if _, err := model.LookupParameter(opts.Param); err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx)
	start := time.Now()
	points := make([]*SensitivityResult, len(grid))
	err := forEach(ctx, len(grid), opts.Workers, func(ctx context.Context, i int) error {
		b := base.Clone().Set(opts.Param, grid[i])
		o := opts
		o.Workers = 1
		r, err := Sensitivity(ctx, b, gen, o)
		if err != nil {
			return fmt.Errorf("%s=%v: %w", opts.Param, grid[i], err)
		}
		points[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("param", opts.Param).Int("grid", len(grid)).Dur("duration", time.Since(start)).Msg("sensitivity profile finished")

	return &SensitivityProfile{
		Param:   opts.Param,
		Grid:    grid,
		Columns: points[0].Columns,
		Points:  points,
	}, nil
}

// Matrix returns the [grid][day] derivatives of one column.
func (p *SensitivityProfile) Matrix(column string) [][]float64 {
	out := make([][]float64, len(p.Points))
	for i, pt := range p.Points {
		out[i] = pt.Values[column]
	}
	return out
}

func resolveColumns(names []string) ([]forecast.Column, error) {
	if len(names) == 0 {
		names = forecast.SensitivityColumns
	}
	cols := make([]forecast.Column, 0, len(names))
	for _, n := range names {
		c, ok := forecast.LookupColumn(n)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", model.ErrConfig, n)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// WriteSensitivityCSV writes one row per (base value, day) with a derivative
// column per output. A single result is a profile of one point.
func WriteSensitivityCSV(w io.Writer, points []*SensitivityResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if len(points) == 0 {
		return nil
	}

	header := append([]string{points[0].Param, "h", "day"}, points[0].Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, pt := range points {
		days := len(pt.Values[pt.Columns[0]])
		for day := range days {
			row := []string{forecast.FormatFloat(pt.Base), forecast.FormatFloat(pt.H), strconv.Itoa(day)}
			for _, c := range pt.Columns {
				row = append(row, forecast.FormatFloat(pt.Values[c][day]))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
