// Package release implements the release-rate function family and the
// new-staker inflow models used by the staking engine.
package release

import (
	"fmt"
	"math"

	"supply-forecast/internal/model"
)

// Rate maps staking TVL and validator count to the fraction of the ecosystem
// fund released as rewards on a day. Results are not clamped.
type Rate interface {
	Name() string
	Rate(tvl, validators float64) float64
}

// Info describes a release-rate function for listings.
type Info struct {
	Name        string   `json:"name"`
	Formula     string   `json:"formula"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
}

// Functions lists the supported release-rate functions.
func Functions() []Info {
	return []Info{
		{
			Name:        model.ReleaseLinear,
			Formula:     "a*TVL/max_tvl + (1-a)*validators/max_validators",
			Description: "Weighted blend of TVL and validator saturation.",
			Parameters:  []string{"a", "max_tvl", "max_validators"},
		},
		{
			Name:        model.ReleaseSigmoid,
			Formula:     "2*(1/(1+exp(-a*TVL - b*validators)) - 0.5)",
			Description: "Saturating logistic curve; zero when TVL or validators are not positive.",
			Parameters:  []string{"a", "b"},
		},
		{
			Name:        model.ReleaseFractional,
			Formula:     "(TVL^a + b*validators^a) / (max_tvl^a + b*max_validators^a)",
			Description: "Power-law blend normalised at the saturation point.",
			Parameters:  []string{"a", "b", "max_tvl", "max_validators"},
		},
		{
			Name:        model.ReleaseFractionalConvex,
			Formula:     "0.5*(TVL/max_tvl)^a + 0.5*(validators/max_validators)^b",
			Description: "Independent power curves for TVL and validators.",
			Parameters:  []string{"a", "b", "max_tvl", "max_validators"},
		},
	}
}

// New builds the release-rate function named in p.
func New(p model.ReleaseRateParams) (Rate, error) {
	switch p.Function {
	case model.ReleaseLinear:
		if p.MaxTVL <= 0 || p.MaxValidators <= 0 {
			return nil, fmt.Errorf("%w: linear release rate requires max_tvl and max_validators", model.ErrConfig)
		}
		return Linear{A: p.A, MaxTVL: p.MaxTVL, MaxValidators: p.MaxValidators}, nil
	case model.ReleaseSigmoid:
		return Sigmoid{A: p.A, B: p.B}, nil
	case model.ReleaseFractional:
		f := Fractional{A: p.A, B: p.B, MaxTVL: p.MaxTVL, MaxValidators: p.MaxValidators}
		if d := f.norm(); d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: fractional release rate has a degenerate normaliser", model.ErrConfig)
		}
		return f, nil
	case model.ReleaseFractionalConvex:
		if p.MaxTVL <= 0 || p.MaxValidators <= 0 {
			return nil, fmt.Errorf("%w: fractional_convex release rate requires max_tvl and max_validators", model.ErrConfig)
		}
		return FractionalConvex{A: p.A, B: p.B, MaxTVL: p.MaxTVL, MaxValidators: p.MaxValidators}, nil
	default:
		return nil, fmt.Errorf("%w: unknown release rate function %q", model.ErrConfig, p.Function)
	}
}

type Linear struct {
	A             float64
	MaxTVL        float64
	MaxValidators float64
}

func (Linear) Name() string { return model.ReleaseLinear }

func (r Linear) Rate(tvl, validators float64) float64 {
	return r.A*tvl/r.MaxTVL + (1-r.A)*validators/r.MaxValidators
}

type Sigmoid struct {
	A float64
	B float64
}

func (Sigmoid) Name() string { return model.ReleaseSigmoid }

func (r Sigmoid) Rate(tvl, validators float64) float64 {
	if tvl <= 0 || validators <= 0 {
		return 0
	}
	return 2 * (1/(1+math.Exp(-r.A*tvl-r.B*validators)) - 0.5)
}

type Fractional struct {
	A             float64
	B             float64
	MaxTVL        float64
	MaxValidators float64
}

func (Fractional) Name() string { return model.ReleaseFractional }

func (r Fractional) Rate(tvl, validators float64) float64 {
	return (math.Pow(tvl, r.A) + r.B*math.Pow(validators, r.A)) / r.norm()
}

func (r Fractional) norm() float64 {
	return math.Pow(r.MaxTVL, r.A) + r.B*math.Pow(r.MaxValidators, r.A)
}

type FractionalConvex struct {
	A             float64
	B             float64
	MaxTVL        float64
	MaxValidators float64
}

func (FractionalConvex) Name() string { return model.ReleaseFractionalConvex }

func (r FractionalConvex) Rate(tvl, validators float64) float64 {
	return 0.5*math.Pow(tvl/r.MaxTVL, r.A) + 0.5*math.Pow(validators/r.MaxValidators, r.B)
}
