package model

import (
	"fmt"
	"math"
	"sort"
)

// Parameter is a named scalar that sweeps and sensitivity studies may vary.
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Integer parameters are rounded on assignment.
	Integer bool `json:"integer"`

	get func(p *Params) float64
	set func(p *Params, v float64)
}

// Value reads the parameter from p.
func (prm Parameter) Value(p Params) float64 { return prm.get(&p) }

func rate(name, desc string, field func(p *Params) *float64) Parameter {
	return Parameter{
		Name:        name,
		Description: desc,
		get:         func(p *Params) float64 { return *field(p) },
		set:         func(p *Params, v float64) { *field(p) = v },
	}
}

var parameters = []Parameter{
	rate("tipping_rate", "share of service fees locked into the ecosystem fund",
		func(p *Params) *float64 { return &p.TippingRate }),
	rate("slippage", "conversion loss when fees are swapped into tokens",
		func(p *Params) *float64 { return &p.Slippage }),
	rate("protocol_fee_rate", "USD burned per transaction",
		func(p *Params) *float64 { return &p.ProtocolFeeRate }),
	rate("protocol_funded_rate", "share of burns refunded from the ecosystem fund",
		func(p *Params) *float64 { return &p.ProtocolFundedRate }),
	rate("initial_stake_conversion_rate", "share of eligible wallet balances staked at day 0",
		func(p *Params) *float64 { return &p.InitialStakeConversionRate }),
	rate("rewards_reinvest_rate", "share of staker rewards restaked the next day",
		func(p *Params) *float64 { return &p.RewardsReinvestRate }),
	rate("staking_renewal_rate", "share of eligible stake that renews instead of leaving",
		func(p *Params) *float64 { return &p.StakingRenewalRate }),
	rate("min_stake_amount", "minimum wallet balance counted towards the initial stake",
		func(p *Params) *float64 { return &p.MinStakeAmount }),
	{
		Name:        "min_stake_duration",
		Description: "lock-up in days before stake becomes withdrawable",
		Integer:     true,
		get:         func(p *Params) float64 { return float64(p.MinStakeDuration) },
		set:         func(p *Params, v float64) { p.MinStakeDuration = int(math.Round(v)) },
	},
	rate("validator_reward_share", "share of total rewards paid to validators",
		func(p *Params) *float64 { return &p.ValidatorRewardShare }),
	rate("staking_rewards_vesting_decay_rate", "daily decay rate of the staking-rewards pool",
		func(p *Params) *float64 { return &p.Vesting.StakingRewards.DecayRate }),
	rate("release_rate_a", "release-rate coefficient a",
		func(p *Params) *float64 { return &p.ReleaseRate.A }),
	rate("release_rate_b", "release-rate coefficient b",
		func(p *Params) *float64 { return &p.ReleaseRate.B }),
	rate("max_validators", "validator count at which the release rate saturates",
		func(p *Params) *float64 { return &p.ReleaseRate.MaxValidators }),
	rate("max_tvl", "TVL at which the release rate saturates",
		func(p *Params) *float64 { return &p.ReleaseRate.MaxTVL }),
	rate("new_staker_inflow", "fresh stake entering per day (initial amount)",
		func(p *Params) *float64 { return &p.NewStakerInflow.InitialAmount }),
}

var parameterIndex = func() map[string]Parameter {
	m := make(map[string]Parameter, len(parameters))
	for _, p := range parameters {
		m[p.Name] = p
	}
	return m
}()

// Parameters lists the sweepable parameters sorted by name.
func Parameters() []Parameter {
	out := make([]Parameter, len(parameters))
	copy(out, parameters)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupParameter finds a sweepable parameter by name.
func LookupParameter(name string) (Parameter, error) {
	p, ok := parameterIndex[name]
	if !ok {
		return Parameter{}, fmt.Errorf("%w: unknown parameter %q", ErrConfig, name)
	}
	return p, nil
}
