// Package scenario maps named macro scenarios onto driver processes and
// staking behaviour.
package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	"supply-forecast/internal/model"
	"supply-forecast/internal/process"

	"gopkg.in/yaml.v3"
)

const (
	VeryBad     = "very bad"
	Bad         = "bad"
	Base        = "base"
	Good        = "good"
	VeryGood    = "very good"
	Pessimistic = "pessimistic"
	Optimistic  = "optimistic"
)

// Names lists the scenarios from worst to best, then the two stress cases.
var Names = []string{VeryBad, Bad, Base, Good, VeryGood, Pessimistic, Optimistic}

const (
	maxDrift   = 0.8
	volatility = 0.4
)

var priceDrift = map[string]float64{
	VeryBad:     -maxDrift,
	Bad:         -maxDrift / 2,
	Base:        0,
	Good:        maxDrift / 2,
	VeryGood:    maxDrift,
	Pessimistic: -2,
	Optimistic:  1,
}

// txSlope is the daily change in transactions as a multiple of N/365.
var txSlope = map[string]float64{
	VeryBad:     -0.75,
	Bad:         -0.25,
	Good:        1,
	VeryGood:    2,
	Pessimistic: -0.75,
	Optimistic:  2,
}

var validatorRate = map[string]float64{
	VeryBad:     1.0 / 365,
	Bad:         1.0 / 180,
	Base:        1.0 / 90,
	Good:        1.0 / 30,
	VeryGood:    1.0 / 30,
	Pessimistic: 1.0 / 365,
	Optimistic:  1.0 / 30,
}

type staking struct {
	conversion, reinvest, renewal float64
	newStakers                    *float64
}

var stakingBehaviour = map[string]staking{
	VeryBad:     {0.1, 0, 0.3, nil},
	Bad:         {0.3, 0.3, 0.6, nil},
	Base:        {0.5, 0.5, 0.8, nil},
	Good:        {0.7, 0.7, 0.8, nil},
	VeryGood:    {0.9, 1, 0.9, nil},
	Pessimistic: {0.3, 0, 0.5, process.F(0)},
	Optimistic:  {0.9, 1, 1, process.F(1_000_000)},
}

// Selection picks a scenario per concern. Empty fields leave that concern untouched.
type Selection struct {
	Price      string `yaml:"price" json:"price,omitempty"`
	Usage      string `yaml:"usage" json:"usage,omitempty"`
	Validators string `yaml:"validators" json:"validators,omitempty"`
	Staking    string `yaml:"staking" json:"staking,omitempty"`
}

// Uniform applies one scenario to every concern.
func Uniform(name string) Selection {
	return Selection{Price: name, Usage: name, Validators: name, Staking: name}
}

// IsZero reports whether nothing is selected.
func (s Selection) IsZero() bool { return s == Selection{} }

// UnmarshalYAML accepts either a single scenario name or a per-concern mapping.
func (s *Selection) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		*s = Uniform(name)
		return nil
	}
	type plain Selection
	return value.Decode((*plain)(s))
}

// UnmarshalJSON mirrors UnmarshalYAML.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = Uniform(name)
		return nil
	}
	type plain Selection
	return json.Unmarshal(data, (*plain)(s))
}

// String renders a uniform selection as its name.
func (s Selection) String() string {
	if s.Price == s.Usage && s.Usage == s.Validators && s.Validators == s.Staking {
		return s.Price
	}
	return fmt.Sprintf("price=%s,usage=%s,validators=%s,staking=%s", s.Price, s.Usage, s.Validators, s.Staking)
}

// Normalize canonicalises a scenario name. "really good" and underscores are accepted.
func Normalize(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, "_", " ")))
	if n == "really good" {
		n = VeryGood
	}
	for _, known := range Names {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: unknown scenario %q (expected one of %s)", model.ErrConfig, name, strings.Join(Names, ", "))
}

// Apply rewrites drivers and b according to sel.
func Apply(sel Selection, b *model.ConfigBuilder, drivers *process.DriversSpec) error {
	if sel.Price != "" {
		name, err := Normalize(sel.Price)
		if err != nil {
			return err
		}
		if drivers.Price, err = gbm(drivers.Price, priceDrift[name]); err != nil {
			return fmt.Errorf("price: %w", err)
		}
	}
	if sel.Usage != "" {
		name, err := Normalize(sel.Usage)
		if err != nil {
			return err
		}
		if drivers.ServiceFees, err = gbm(drivers.ServiceFees, priceDrift[name]); err != nil {
			return fmt.Errorf("service_fees: %w", err)
		}
		if drivers.TxCount, err = transactions(drivers.TxCount, name); err != nil {
			return fmt.Errorf("tx_count: %w", err)
		}
	}
	if sel.Validators != "" {
		name, err := Normalize(sel.Validators)
		if err != nil {
			return err
		}
		v := drivers.Validators
		drivers.Validators = process.Spec{
			Model:   process.Arrival,
			Initial: v.Initial,
			Rate:    process.F(validatorRate[name]),
		}
	}
	if sel.Staking != "" {
		name, err := Normalize(sel.Staking)
		if err != nil {
			return err
		}
		s := stakingBehaviour[name]
		b.Update(func(p *model.Params) {
			p.InitialStakeConversionRate = s.conversion
			p.RewardsReinvestRate = s.reinvest
			p.StakingRenewalRate = s.renewal
			if s.newStakers != nil {
				p.NewStakerInflow.InitialAmount = *s.newStakers
			}
		})
	}
	return nil
}

// gbm keeps the current starting level and switches the process to GBM.
func gbm(cur process.Spec, drift float64) (process.Spec, error) {
	initial, err := level(cur)
	if err != nil {
		return process.Spec{}, err
	}
	return process.Spec{
		Model:   process.GBM,
		Initial: process.F(initial),
		Drift:   process.F(drift),
		Sigma:   process.F(volatility),
		DT:      cur.DT,
	}, nil
}

func transactions(cur process.Spec, name string) (process.Spec, error) {
	n, err := level(cur)
	if err != nil {
		return process.Spec{}, err
	}
	if name == Base {
		return process.Spec{Model: process.Poisson, Rate: process.F(n)}, nil
	}
	return process.Spec{
		Model:       process.Linear,
		Initial:     process.F(n),
		Slope:       process.F(txSlope[name] * n / 365),
		FloorAtZero: true,
		Integer:     true,
	}, nil
}

// level is the starting value a scenario builds from.
func level(s process.Spec) (float64, error) {
	switch {
	case s.Initial != nil:
		return *s.Initial, nil
	case s.Model == process.Poisson && s.Rate != nil:
		return *s.Rate, nil
	case len(s.Values) > 0:
		return s.Values[0], nil
	default:
		return 0, fmt.Errorf("%w: cannot derive a starting level from %q process", model.ErrConfig, s.Model)
	}
}

// Info describes what a scenario sets for each concern. TxSlope is nil for
// the base case, where transactions follow a Poisson process instead.
type Info struct {
	Name            string   `json:"name"`
	PriceDrift      float64  `json:"price_drift"`
	Volatility      float64  `json:"volatility"`
	TxSlope         *float64 `json:"tx_slope_per_year,omitempty"`
	ValidatorRate   float64  `json:"validator_joining_rate"`
	ConversionRate  float64  `json:"initial_stake_conversion_rate"`
	ReinvestRate    float64  `json:"rewards_reinvest_rate"`
	RenewalRate     float64  `json:"staking_renewal_rate"`
	NewStakerInflow *float64 `json:"new_staker_inflow,omitempty"`
}

// Infos lists every scenario in Names order.
func Infos() []Info {
	out := make([]Info, 0, len(Names))
	for _, name := range Names {
		s := stakingBehaviour[name]
		info := Info{
			Name:            name,
			PriceDrift:      priceDrift[name],
			Volatility:      volatility,
			ValidatorRate:   validatorRate[name],
			ConversionRate:  s.conversion,
			ReinvestRate:    s.reinvest,
			RenewalRate:     s.renewal,
		}
		if s.newStakers != nil {
			info.NewStakerInflow = process.F(*s.newStakers)
		}
		if slope, ok := txSlope[name]; ok {
			info.TxSlope = process.F(slope)
		}
		out = append(out, info)
	}
	return out
}
