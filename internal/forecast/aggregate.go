package forecast

import (
	"fmt"
	"math"

	"supply-forecast/internal/model"

	"gonum.org/v1/gonum/floats"
)

// DaysPerYear is the lag used for year-over-year inflation.
const DaysPerYear = 365

// SupplyFlows are the per-day flows the aggregator folds into circulating supply.
type SupplyFlows struct {
	Burned               []float64
	Vested               []float64
	LockedFromFees       []float64
	StakingInflow        []float64
	StakingOutflow       []float64
	ReleasedProtocolBurn []float64
	ReleasedRewards      []float64
	// EcosystemInjection is the initial fund balance, non-zero only at day 0.
	EcosystemInjection []float64
}

// SupplyState holds per-day totals and the derived supply series.
type SupplyState struct {
	TotalLocked   []float64
	TotalReleased []float64
	CircSupply    []float64
	MarketCap     []float64
	DayInflation  []float64
	YearInflation []float64
}

// SupplyAggregator builds circulating supply from cumulative sums of flows.
type SupplyAggregator struct {
	CircSupplyZero float64
}

// Aggregate computes SupplyState for horizon days. Past flows are never revised;
// circSupply[i] differs from circSupply[i-1] by exactly day i's net flow.
func (a SupplyAggregator) Aggregate(horizon int, f SupplyFlows, price []float64) (SupplyState, error) {
	for name, xs := range map[string][]float64{
		"burned":                 f.Burned,
		"vested":                 f.Vested,
		"locked_from_fees":       f.LockedFromFees,
		"staking_inflow":         f.StakingInflow,
		"staking_outflow":        f.StakingOutflow,
		"released_protocol_burn": f.ReleasedProtocolBurn,
		"released_rewards":       f.ReleasedRewards,
		"ecosystem_injection":    f.EcosystemInjection,
		"price":                  price,
	} {
		if len(xs) < horizon {
			return SupplyState{}, fmt.Errorf("%w: %s has %d days, horizon is %d", model.ErrDataContract, name, len(xs), horizon)
		}
	}

	s := SupplyState{
		TotalLocked:   make([]float64, horizon),
		TotalReleased: make([]float64, horizon),
		CircSupply:    make([]float64, horizon),
		MarketCap:     make([]float64, horizon),
	}
	for i := 0; i < horizon; i++ {
		s.TotalLocked[i] = f.LockedFromFees[i] + f.StakingInflow[i] + f.EcosystemInjection[i]
		s.TotalReleased[i] = f.ReleasedProtocolBurn[i] + f.ReleasedRewards[i] + f.StakingOutflow[i]
	}

	burned := floats.CumSum(make([]float64, horizon), f.Burned[:horizon])
	vested := floats.CumSum(make([]float64, horizon), f.Vested[:horizon])
	locked := floats.CumSum(make([]float64, horizon), s.TotalLocked)
	released := floats.CumSum(make([]float64, horizon), s.TotalReleased)

	for i := 0; i < horizon; i++ {
		s.CircSupply[i] = a.CircSupplyZero - burned[i] + vested[i] - locked[i] + released[i]
		s.MarketCap[i] = s.CircSupply[i] * price[i]
	}
	s.DayInflation = PctChange(s.CircSupply, 1)
	s.YearInflation = PctChange(s.CircSupply, DaysPerYear)
	return s, nil
}

// PctChange returns (x[i]-x[i-lag])/x[i-lag] as a fraction; NaN where i < lag.
func PctChange(x []float64, lag int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i < lag {
			out[i] = math.NaN()
			continue
		}
		out[i] = (x[i] - x[i-lag]) / x[i-lag]
	}
	return out
}
