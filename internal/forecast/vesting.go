package forecast

import (
	"fmt"
	"math"

	"supply-forecast/internal/model"
)

// VestingSchedule releases tokens from fixed allocation pools. It is a pure
// function of the day index; amounts are precomputed for [0, T).
type VestingSchedule struct {
	horizon  int
	tranches []float64
	pool     model.DecayPool
}

// NewVestingSchedule lays out every tranche lump and the decay pool over the horizon.
func NewVestingSchedule(horizon int, v model.VestingParams) *VestingSchedule {
	s := &VestingSchedule{
		horizon:  horizon,
		tranches: make([]float64, horizon),
		pool:     v.StakingRewards,
	}
	for _, t := range v.Tranches {
		if horizon > 0 {
			s.tranches[0] += t.VestZero
		}
		if t.PeriodDays < 1 {
			continue
		}
		// first lump inside the horizon
		day := t.EndDay
		if day >= horizon {
			day -= ((day-horizon)/t.PeriodDays + 1) * t.PeriodDays
		}
		for ; day >= t.StartDay; day -= t.PeriodDays {
			s.tranches[day] += t.Amount
		}
	}
	return s
}

// Horizon is the number of days the schedule covers.
func (s *VestingSchedule) Horizon() int { return s.horizon }

// TrancheAmount is the lump released by linear-vesting tranches on day.
func (s *VestingSchedule) TrancheAmount(day int) (float64, error) {
	if err := s.check(day); err != nil {
		return 0, err
	}
	return s.tranches[day], nil
}

// StakingRewards is the first difference of the decay curve at day; zero at day 0.
func (s *VestingSchedule) StakingRewards(day int) (float64, error) {
	if err := s.check(day); err != nil {
		return 0, err
	}
	if day == 0 {
		return 0, nil
	}
	return s.cumulative(day) - s.cumulative(day-1), nil
}

// CumulativeStakingRewards is fundSize*(1-exp(-decayRate*day)).
func (s *VestingSchedule) CumulativeStakingRewards(day int) (float64, error) {
	if err := s.check(day); err != nil {
		return 0, err
	}
	return s.cumulative(day), nil
}

// Amount is the total vested on day across every pool.
func (s *VestingSchedule) Amount(day int) (float64, error) {
	tr, err := s.TrancheAmount(day)
	if err != nil {
		return 0, err
	}
	sr, _ := s.StakingRewards(day)
	return tr + sr, nil
}

func (s *VestingSchedule) cumulative(day int) float64 {
	// -expm1(-x) == 1-exp(-x) without cancellation near zero.
	return s.pool.FundSize * -math.Expm1(-s.pool.DecayRate*float64(day))
}

func (s *VestingSchedule) check(day int) error {
	if day < 0 || day >= s.horizon {
		return fmt.Errorf("%w: vesting day %d outside [0, %d)", model.ErrDataContract, day, s.horizon)
	}
	return nil
}
