// Package process generates the exogenous driver paths (price, service fees,
// transaction counts, validator count) as seeded stochastic processes.
package process

import (
	"fmt"
	"math"
	"math/rand/v2"

	"supply-forecast/internal/model"

	"gonum.org/v1/gonum/stat/distuv"
)

// Model names.
const (
	Constant    = "constant"
	Linear      = "linear"
	Scheduled   = "scheduled"
	Poisson     = "poisson"
	GBM         = "gbm"
	OU          = "ou"
	DefinedPath = "defined_path"
	Arrival     = "arrival"
)

// Models lists every supported process model.
var Models = []string{Constant, Linear, Scheduled, Poisson, GBM, OU, DefinedPath, Arrival}

// DefaultDT is one day expressed in years.
const DefaultDT = 1.0 / 365

// State is what a process sees when producing the value for Day.
// Prev is the value produced for Day-1 and is zero at day 0.
type State struct {
	Day  int
	Prev float64
}

// Process yields one value per day. Implementations hold no mutable state;
// all randomness comes from the caller's source.
type Process interface {
	Name() string
	Next(s State, rng *rand.Rand) float64
}

// Path draws horizon consecutive values of p.
func Path(p Process, horizon int, rng *rand.Rand) []float64 {
	out := make([]float64, horizon)
	prev := 0.0
	for day := range out {
		prev = p.Next(State{Day: day, Prev: prev}, rng)
		out[day] = prev
	}
	return out
}

// Spec is the serialisable description of a process. Which fields are
// required depends on Model; New reports missing ones.
type Spec struct {
	Model string `yaml:"model" json:"model"`

	Initial *float64 `yaml:"initial,omitempty" json:"initial,omitempty"`
	Slope   *float64 `yaml:"slope,omitempty" json:"slope,omitempty"`
	Rate    *float64 `yaml:"rate,omitempty" json:"rate,omitempty"`
	// ConstantRate drives deterministic arrivals; it overrides Rate.
	ConstantRate *float64 `yaml:"constant_rate,omitempty" json:"constant_rate,omitempty"`
	Drift        *float64 `yaml:"drift,omitempty" json:"drift,omitempty"`
	Sigma        *float64 `yaml:"sigma,omitempty" json:"sigma,omitempty"`
	Mean         *float64 `yaml:"mean,omitempty" json:"mean,omitempty"`
	Theta        *float64 `yaml:"theta,omitempty" json:"theta,omitempty"`
	DT           float64  `yaml:"dt,omitempty" json:"dt,omitempty"`

	// Values is the schedule, the defined path, or precomputed arrivals.
	Values []float64 `yaml:"values,omitempty" json:"values,omitempty"`

	FloorAtZero bool `yaml:"floor_at_zero,omitempty" json:"floor_at_zero,omitempty"`
	Integer     bool `yaml:"integer,omitempty" json:"integer,omitempty"`
}

// F is a convenience for filling optional Spec fields.
func F(x float64) *float64 { return &x }

// New builds the process described by s.
func New(s Spec) (Process, error) {
	dt := s.DT
	if dt == 0 {
		dt = DefaultDT
	}
	if dt < 0 {
		return nil, fmt.Errorf("%w: process %q: dt must be > 0", model.ErrConfig, s.Model)
	}
	need := func(name string, v *float64) error {
		if v == nil {
			return fmt.Errorf("%w: process %q requires %s", model.ErrConfig, s.Model, name)
		}
		return nil
	}

	switch s.Model {
	case Constant:
		if err := need("initial", s.Initial); err != nil {
			return nil, err
		}
		return ConstantProcess{Value: *s.Initial}, nil
	case Linear:
		if err := need("initial", s.Initial); err != nil {
			return nil, err
		}
		if err := need("slope", s.Slope); err != nil {
			return nil, err
		}
		return LinearProcess{Initial: *s.Initial, Slope: *s.Slope, FloorAtZero: s.FloorAtZero, Integer: s.Integer}, nil
	case Scheduled:
		if len(s.Values) == 0 {
			return nil, fmt.Errorf("%w: process %q requires values", model.ErrConfig, s.Model)
		}
		return ScheduledProcess{Values: s.Values}, nil
	case Poisson:
		if err := need("rate", s.Rate); err != nil {
			return nil, err
		}
		if *s.Rate <= 0 {
			return nil, fmt.Errorf("%w: poisson rate must be > 0", model.ErrConfig)
		}
		return PoissonProcess{Rate: *s.Rate}, nil
	case GBM:
		for name, v := range map[string]*float64{"initial": s.Initial, "drift": s.Drift, "sigma": s.Sigma} {
			if err := need(name, v); err != nil {
				return nil, err
			}
		}
		return GBMProcess{Initial: *s.Initial, Drift: *s.Drift, Sigma: *s.Sigma, DT: dt}, nil
	case OU:
		for name, v := range map[string]*float64{"initial": s.Initial, "mean": s.Mean, "theta": s.Theta, "sigma": s.Sigma} {
			if err := need(name, v); err != nil {
				return nil, err
			}
		}
		return OUProcess{Initial: *s.Initial, Mean: *s.Mean, Theta: *s.Theta, Sigma: *s.Sigma, DT: dt}, nil
	case DefinedPath:
		if len(s.Values) == 0 {
			return nil, fmt.Errorf("%w: process %q requires values", model.ErrConfig, s.Model)
		}
		sigma := 0.0
		if s.Sigma != nil {
			sigma = *s.Sigma
		}
		return DefinedPathProcess{Path: s.Values, Sigma: sigma}, nil
	case Arrival:
		a := ArrivalProcess{Precomputed: s.Values}
		if s.Initial != nil {
			a.Initial = *s.Initial
		}
		switch {
		case len(s.Values) > 0:
		case s.ConstantRate != nil:
			if *s.ConstantRate <= 0 {
				return nil, fmt.Errorf("%w: arrival constant_rate must be > 0", model.ErrConfig)
			}
			a.ConstantRate = *s.ConstantRate
		case s.Rate != nil:
			a.Rate = *s.Rate
		default:
			return nil, fmt.Errorf("%w: arrival process requires rate, constant_rate or values", model.ErrConfig)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: unknown process model %q", model.ErrConfig, s.Model)
	}
}

type ConstantProcess struct {
	Value float64
}

func (ConstantProcess) Name() string { return Constant }

func (p ConstantProcess) Next(State, *rand.Rand) float64 { return p.Value }

// LinearProcess is Initial + Slope*day. Integer truncates towards zero and
// FloorAtZero clips negatives, as needed for transaction counts.
type LinearProcess struct {
	Initial     float64
	Slope       float64
	FloorAtZero bool
	Integer     bool
}

func (LinearProcess) Name() string { return Linear }

func (p LinearProcess) Next(s State, _ *rand.Rand) float64 {
	v := p.Initial + p.Slope*float64(s.Day)
	if p.Integer {
		v = math.Trunc(v)
	}
	if p.FloorAtZero && v < 0 {
		v = 0
	}
	return v
}

// ScheduledProcess replays Values; the last value repeats past the end.
type ScheduledProcess struct {
	Values []float64
}

func (ScheduledProcess) Name() string { return Scheduled }

func (p ScheduledProcess) Next(s State, _ *rand.Rand) float64 {
	return p.Values[min(s.Day, len(p.Values)-1)]
}

type PoissonProcess struct {
	Rate float64
}

func (PoissonProcess) Name() string { return Poisson }

func (p PoissonProcess) Next(_ State, rng *rand.Rand) float64 {
	return distuv.Poisson{Lambda: p.Rate, Src: rng}.Rand()
}

// GBMProcess is geometric Brownian motion with annualised drift and volatility.
type GBMProcess struct {
	Initial float64
	Drift   float64
	Sigma   float64
	DT      float64
}

func (GBMProcess) Name() string { return GBM }

func (p GBMProcess) Next(s State, rng *rand.Rand) float64 {
	if s.Day == 0 {
		return p.Initial
	}
	drift := (p.Drift - 0.5*p.Sigma*p.Sigma) * p.DT
	vol := math.Sqrt(p.DT) * p.Sigma * rng.NormFloat64()
	return s.Prev * math.Exp(drift+vol)
}

// OUProcess is an Ornstein-Uhlenbeck process reverting to Mean at speed Theta.
type OUProcess struct {
	Initial float64
	Mean    float64
	Theta   float64
	Sigma   float64
	DT      float64
}

func (OUProcess) Name() string { return OU }

func (p OUProcess) Next(s State, rng *rand.Rand) float64 {
	if s.Day == 0 {
		return p.Initial
	}
	return s.Prev + p.DT*p.Theta*(p.Mean-s.Prev) + p.Sigma*math.Sqrt(p.DT)*rng.NormFloat64()
}

// DefinedPathProcess adds Gaussian noise to a given path. Days past the end
// of Path reuse its last value.
type DefinedPathProcess struct {
	Path  []float64
	Sigma float64
}

func (DefinedPathProcess) Name() string { return DefinedPath }

func (p DefinedPathProcess) Next(s State, rng *rand.Rand) float64 {
	base := p.Path[min(s.Day, len(p.Path)-1)]
	if p.Sigma == 0 {
		return base
	}
	return base + p.Sigma*rng.NormFloat64()
}

// ArrivalProcess counts validators: Initial at day 0, then
// floor(prev + arrivals). Arrivals come from Precomputed when set, else from
// ConstantRate, else from a Poisson draw with Rate. A ConstantRate below one
// yields a single arrival every int(1/ConstantRate)+1 days.
type ArrivalProcess struct {
	Initial      float64
	Rate         float64
	ConstantRate float64
	Precomputed  []float64
}

func (ArrivalProcess) Name() string { return Arrival }

func (p ArrivalProcess) Next(s State, rng *rand.Rand) float64 {
	if s.Day == 0 {
		return p.Initial
	}
	return math.Floor(s.Prev + p.arrivals(s.Day, rng))
}

func (p ArrivalProcess) arrivals(day int, rng *rand.Rand) float64 {
	switch {
	case len(p.Precomputed) > 0:
		if day < len(p.Precomputed) {
			return p.Precomputed[day]
		}
		return 0
	case p.ConstantRate >= 1:
		return p.ConstantRate
	case p.ConstantRate > 0:
		if day%(int(1/p.ConstantRate)+1) == 0 {
			return 1
		}
		return 0
	case p.Rate > 0:
		return distuv.Poisson{Lambda: p.Rate, Src: rng}.Rand()
	default:
		return 0
	}
}
