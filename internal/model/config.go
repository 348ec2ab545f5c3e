package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SimulationConfig is the validated, immutable input of one run.
// Construct it through ConfigBuilder; the zero value is not usable.
type SimulationConfig struct {
	horizon int
	params  Params
}

// Horizon is the number of simulated days T.
func (c SimulationConfig) Horizon() int { return c.horizon }

// Params returns a deep copy of the economic parameters.
func (c SimulationConfig) Params() Params { return c.params.Clone() }

// BurnExtra returns the extra burn for a day; it is always defined for [0, T).
func (c SimulationConfig) BurnExtra(day int) float64 {
	if c.params.BurnExtra == nil {
		return 0
	}
	return c.params.BurnExtra[day]
}

// ConfigBuilder accumulates parameter changes and produces a SimulationConfig.
// Builders are not safe for concurrent use; Clone one per goroutine.
type ConfigBuilder struct {
	horizon int
	params  Params
	errs    []error
}

// NewConfigBuilder starts from DefaultParams.
func NewConfigBuilder(horizon int) *ConfigBuilder {
	return &ConfigBuilder{horizon: horizon, params: DefaultParams()}
}

// BuilderFrom starts a builder from an existing configuration.
func BuilderFrom(cfg SimulationConfig) *ConfigBuilder {
	return &ConfigBuilder{horizon: cfg.horizon, params: cfg.params.Clone()}
}

// Clone returns an independent copy of the builder, including pending errors.
func (b *ConfigBuilder) Clone() *ConfigBuilder {
	return &ConfigBuilder{
		horizon: b.horizon,
		params:  b.params.Clone(),
		errs:    slices.Clone(b.errs),
	}
}

// Horizon is the pending T.
func (b *ConfigBuilder) Horizon() int { return b.horizon }

// WithHorizon sets T.
func (b *ConfigBuilder) WithHorizon(horizon int) *ConfigBuilder {
	b.horizon = horizon
	return b
}

// WithParams replaces every parameter.
func (b *ConfigBuilder) WithParams(p Params) *ConfigBuilder {
	b.params = p.Clone()
	return b
}

// Update applies fn to the pending parameters.
func (b *ConfigBuilder) Update(fn func(p *Params)) *ConfigBuilder {
	fn(&b.params)
	return b
}

// Set assigns a registered parameter by name. Unknown names are reported by Build.
func (b *ConfigBuilder) Set(name string, value float64) *ConfigBuilder {
	param, err := LookupParameter(name)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	param.set(&b.params, value)
	return b
}

// Get reads a registered parameter from the pending parameters.
func (b *ConfigBuilder) Get(name string) (float64, error) {
	param, err := LookupParameter(name)
	if err != nil {
		return 0, err
	}
	return param.get(&b.params), nil
}

// Build validates the pending parameters and freezes them.
func (b *ConfigBuilder) Build() (SimulationConfig, error) {
	if len(b.errs) > 0 {
		return SimulationConfig{}, errors.Join(b.errs...)
	}
	p := b.params.Clone()
	if err := validateParams(b.horizon, p); err != nil {
		return SimulationConfig{}, err
	}
	return SimulationConfig{horizon: b.horizon, params: p}, nil
}

func validateParams(horizon int, p Params) error {
	if horizon < 1 {
		return fmt.Errorf("%w: horizon must be >= 1 day, got %d", ErrConfig, horizon)
	}
	if err := validate.Struct(p); err != nil {
		return fieldErrors(err)
	}
	if p.BurnExtra != nil && len(p.BurnExtra) != horizon {
		return fmt.Errorf("%w: burn schedule has %d entries, horizon is %d", ErrConfig, len(p.BurnExtra), horizon)
	}
	if err := validateReleaseRate(p.ReleaseRate); err != nil {
		return err
	}
	switch p.NewStakerInflow.Model {
	case InflowConstant:
	case InflowLinear:
		if p.NewStakerInflow.Rate == nil {
			return fmt.Errorf("%w: new staker inflow model %q requires a rate", ErrConfig, InflowLinear)
		}
	default:
		return fmt.Errorf("%w: unknown new staker inflow model %q", ErrConfig, p.NewStakerInflow.Model)
	}
	for _, t := range p.Vesting.Tranches {
		if t.StartDay > t.EndDay {
			return fmt.Errorf("%w: tranche %q starts after it ends", ErrConfig, t.Name)
		}
	}
	return nil
}

func validateReleaseRate(r ReleaseRateParams) error {
	switch r.Function {
	case ReleaseSigmoid:
		return nil
	case ReleaseLinear, ReleaseFractionalConvex:
		if r.MaxTVL <= 0 || r.MaxValidators <= 0 {
			return fmt.Errorf("%w: release rate %q requires max_tvl > 0 and max_validators > 0", ErrConfig, r.Function)
		}
		return nil
	case ReleaseFractional:
		denom := math.Pow(r.MaxTVL, r.A) + r.B*math.Pow(r.MaxValidators, r.A)
		if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
			return fmt.Errorf("%w: release rate %q has a degenerate normaliser", ErrConfig, r.Function)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown release rate function %q (expected one of %s)",
			ErrConfig, r.Function, strings.Join(ReleaseRateFunctions, ", "))
	}
}

func fieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(msgs, "; "))
}
