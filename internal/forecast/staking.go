package forecast

import (
	"fmt"

	"supply-forecast/internal/model"
	"supply-forecast/internal/release"
)

// StakingState holds the per-day staking recursion. Every slice has length T
// and is read-only once Run returns.
type StakingState struct {
	Inflow              []float64
	NewStakerInflow     []float64
	Outflow             []float64
	AvailableForOutflow []float64
	TVL                 []float64
	ReleaseRate         []float64
	EcosystemFund       []float64
	ReleasedRewards     []float64
	TotalRewards        []float64
}

func newStakingState(n int) StakingState {
	return StakingState{
		Inflow:              make([]float64, n),
		NewStakerInflow:     make([]float64, n),
		Outflow:             make([]float64, n),
		AvailableForOutflow: make([]float64, n),
		TVL:                 make([]float64, n),
		ReleaseRate:         make([]float64, n),
		EcosystemFund:       make([]float64, n),
		ReleasedRewards:     make([]float64, n),
		TotalRewards:        make([]float64, n),
	}
}

// Len is the number of simulated days.
func (s StakingState) Len() int { return len(s.TVL) }

// StakingInputs are the per-day exogenous and pure-function flows consumed by
// the recursion. Each slice must cover the horizon.
type StakingInputs struct {
	Validators           []float64
	LockedFromFees       []float64
	ReleasedProtocolBurn []float64
	VestedStakingRewards []float64
}

// StakingEngine evolves staking flows, TVL and the ecosystem fund day by day.
type StakingEngine struct {
	params model.Params
	rate   release.Rate
	inflow release.Inflow
}

// NewStakingEngine resolves the release-rate function and inflow model.
// Unknown names fail here, before any day is simulated.
func NewStakingEngine(p model.Params) (*StakingEngine, error) {
	rate, err := release.New(p.ReleaseRate)
	if err != nil {
		return nil, err
	}
	inflow, err := release.NewInflow(p.NewStakerInflow)
	if err != nil {
		return nil, err
	}
	return &StakingEngine{params: p, rate: rate, inflow: inflow}, nil
}

// Run simulates days 0..horizon-1. A negative ecosystem fund is reported, not clamped.
func (e *StakingEngine) Run(horizon int, in StakingInputs) (StakingState, error) {
	if horizon < 1 {
		return StakingState{}, fmt.Errorf("%w: horizon must be >= 1, got %d", model.ErrConfig, horizon)
	}
	for name, xs := range map[string][]float64{
		"validators":             in.Validators,
		"locked_from_fees":       in.LockedFromFees,
		"released_protocol_burn": in.ReleasedProtocolBurn,
		"vested_staking_rewards": in.VestedStakingRewards,
	} {
		if len(xs) < horizon {
			return StakingState{}, fmt.Errorf("%w: %s has %d days, horizon is %d", model.ErrDataContract, name, len(xs), horizon)
		}
	}

	p := e.params
	lag := p.MinStakeDuration
	stakerShare := 1 - p.ValidatorRewardShare
	s := newStakingState(horizon)

	initial := p.InitialStake()
	s.Inflow[0] = initial
	s.TVL[0] = initial
	s.EcosystemFund[0] = p.EcosystemFundZero

	for i := 1; i < horizon; i++ {
		stakersPreviousReward := stakerShare * s.TotalRewards[i-1]
		s.NewStakerInflow[i] = e.inflow.Amount(i)
		s.Inflow[i] = p.RewardsReinvestRate*stakersPreviousReward + s.NewStakerInflow[i]

		// Stake entered lag days ago becomes withdrawable today. With a zero
		// lag today's inflow is already eligible.
		if i >= lag {
			s.AvailableForOutflow[i] = s.AvailableForOutflow[i-1] + s.Inflow[i-lag] - s.Outflow[i-1]
		}
		s.Outflow[i] = (1 - p.StakingRenewalRate) * s.AvailableForOutflow[i]
		s.TVL[i] = s.TVL[i-1] + s.Inflow[i] - s.Outflow[i]

		s.ReleaseRate[i] = e.rate.Rate(s.TVL[i], in.Validators[i])
		s.ReleasedRewards[i] = s.ReleaseRate[i] * s.EcosystemFund[i-1]
		s.TotalRewards[i] = s.ReleasedRewards[i] + in.VestedStakingRewards[i]
		s.EcosystemFund[i] = s.EcosystemFund[i-1] + in.LockedFromFees[i] - in.ReleasedProtocolBurn[i] - s.ReleasedRewards[i]
	}
	return s, nil
}
