// Package forecast is the daily supply engine: vesting, fee locking, the
// staking recursion and supply aggregation over one driver path.
package forecast

import (
	"fmt"
	"math"

	"supply-forecast/internal/model"
)

// Engine runs one configuration against driver paths. It holds no mutable
// state and may be shared between goroutines.
type Engine struct {
	cfg     model.SimulationConfig
	params  model.Params
	vesting *VestingSchedule
	staking *StakingEngine
}

// New resolves every model variant named in cfg. Configuration errors surface
// here rather than mid-run.
func New(cfg model.SimulationConfig) (*Engine, error) {
	if cfg.Horizon() < 1 {
		return nil, fmt.Errorf("%w: configuration was not built", model.ErrConfig)
	}
	p := cfg.Params()
	staking, err := NewStakingEngine(p)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		params:  p,
		vesting: NewVestingSchedule(cfg.Horizon(), p.Vesting),
		staking: staking,
	}, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() model.SimulationConfig { return e.cfg }

// Run executes the forecast over one driver path. Identical drivers always
// produce identical output.
func (e *Engine) Run(drivers model.DriverVector) (*Result, error) {
	T := e.cfg.Horizon()
	if err := drivers.Validate(T); err != nil {
		return nil, err
	}
	p := e.params

	burned := make([]float64, T)
	trancheVested := make([]float64, T)
	rewardsVested := make([]float64, T)
	vested := make([]float64, T)
	locked := make([]float64, T)
	protocolBurn := make([]float64, T)
	injection := make([]float64, T)
	injection[0] = p.EcosystemFundZero

	for day := 0; day < T; day++ {
		var err error
		if burned[day], err = Burned(drivers.TxCount[day], drivers.Price[day], e.cfg.BurnExtra(day), p); err != nil {
			return nil, fmt.Errorf("day %d burn: %w", day, err)
		}
		if locked[day], err = LockedFromFees(drivers.ServiceFees[day], drivers.Price[day], p); err != nil {
			return nil, fmt.Errorf("day %d locking: %w", day, err)
		}
		protocolBurn[day] = ReleasedProtocolBurn(burned[day], p)
		if trancheVested[day], err = e.vesting.TrancheAmount(day); err != nil {
			return nil, err
		}
		if rewardsVested[day], err = e.vesting.StakingRewards(day); err != nil {
			return nil, err
		}
		vested[day] = trancheVested[day] + rewardsVested[day]
	}

	st, err := e.staking.Run(T, StakingInputs{
		Validators:           drivers.Validators,
		LockedFromFees:       locked,
		ReleasedProtocolBurn: protocolBurn,
		VestedStakingRewards: rewardsVested,
	})
	if err != nil {
		return nil, err
	}

	sup, err := SupplyAggregator{CircSupplyZero: p.CircSupplyZero}.Aggregate(T, SupplyFlows{
		Burned:               burned,
		Vested:               vested,
		LockedFromFees:       locked,
		StakingInflow:        st.Inflow,
		StakingOutflow:       st.Outflow,
		ReleasedProtocolBurn: protocolBurn,
		ReleasedRewards:      st.ReleasedRewards,
		EcosystemInjection:   injection,
	}, drivers.Price)
	if err != nil {
		return nil, err
	}

	ledger := make([]LedgerRow, T)
	for i := range ledger {
		total := st.TotalRewards[i]
		stakerRewards := (1 - p.ValidatorRewardShare) * total
		apy := math.NaN()
		if st.TVL[i] > 0 {
			apy = 365 * stakerRewards / st.TVL[i]
		}
		ledger[i] = LedgerRow{
			Day: i,

			Price:       drivers.Price[i],
			ServiceFees: drivers.ServiceFees[i],
			TxCount:     drivers.TxCount[i],
			Validators:  drivers.Validators[i],

			Burned:               burned[i],
			Vested:               vested[i],
			TrancheVested:        trancheVested[i],
			StakingRewardsVested: rewardsVested[i],
			LockedFromFees:       locked[i],
			ReleasedProtocolBurn: protocolBurn[i],

			NewStakerInflow:     st.NewStakerInflow[i],
			StakingInflow:       st.Inflow[i],
			StakingOutflow:      st.Outflow[i],
			AvailableForOutflow: st.AvailableForOutflow[i],
			StakingTVL:          st.TVL[i],

			ReleaseRate:             st.ReleaseRate[i],
			StakingRewardsEcosystem: st.ReleasedRewards[i],
			TotalStakingRewards:     total,
			ValidatorRewards:        p.ValidatorRewardShare * total,
			StakerRewards:           stakerRewards,
			EcosystemFund:           st.EcosystemFund[i],

			TotalLocked:   sup.TotalLocked[i],
			TotalReleased: sup.TotalReleased[i],
			CircSupply:    sup.CircSupply[i],
			MarketCap:     sup.MarketCap[i],
			DayInflation:  sup.DayInflation[i],
			YearInflation: sup.YearInflation[i],
			APY:           apy,
			TVLRate:       st.TVL[i] / sup.CircSupply[i],
		}
	}

	return &Result{
		Ledger:  ledger,
		Staking: st,
		Supply:  sup,
		Summary: summarize(ledger),
	}, nil
}

// Run builds an engine for cfg and executes it once.
func Run(cfg model.SimulationConfig, drivers model.DriverVector) (*Result, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return e.Run(drivers)
}
