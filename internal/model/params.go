package model

import (
	"math"
	"slices"
)

// Release-rate function names.
const (
	ReleaseLinear           = "linear"
	ReleaseSigmoid          = "sigmoid"
	ReleaseFractional       = "fractional"
	ReleaseFractionalConvex = "fractional_convex"
)

// New-staker inflow model names.
const (
	InflowConstant = "constant"
	InflowLinear   = "linear"
)

// ReleaseRateFunctions lists the accepted release-rate function names.
var ReleaseRateFunctions = []string{ReleaseLinear, ReleaseSigmoid, ReleaseFractional, ReleaseFractionalConvex}

// Params holds the static economic parameters of one simulation.
// Units:
// - token amounts: tokens
// - ProtocolFeeRate: USD charged per transaction, converted to tokens and burned
// - rates: fraction 0..1
// - MinStakeDuration: days
type Params struct {
	ProtocolFeeRate float64 `validate:"gte=0,lte=1"`
	// BurnExtra holds extra per-day burns. Nil means no extra burn; otherwise the
	// length must equal the horizon.
	BurnExtra []float64

	TippingRate        float64 `validate:"gte=0,lte=1"`
	Slippage           float64 `validate:"gte=0,lte=1"`
	ProtocolFundedRate float64 `validate:"gte=0,lte=1"`

	InitialStakeConversionRate float64 `validate:"gte=0,lte=1"`
	RewardsReinvestRate        float64 `validate:"gte=0,lte=1"`
	StakingRenewalRate         float64 `validate:"gte=0,lte=1"`
	ValidatorRewardShare       float64 `validate:"gte=0,lte=1"`

	MinStakeAmount   float64 `validate:"gte=0"`
	MinStakeDuration int     `validate:"gte=0"`

	ReleaseRate     ReleaseRateParams
	NewStakerInflow StakerInflowParams
	Vesting         VestingParams

	EcosystemFundZero float64
	CircSupplyZero    float64 `validate:"gte=0"`
	// WalletBalances is only used to derive the initial staking value.
	WalletBalances []float64
}

// ReleaseRateParams selects the release-rate function and its coefficients.
type ReleaseRateParams struct {
	Function      string  `validate:"required"`
	A             float64 `validate:"gte=0"`
	B             float64 `validate:"gte=0"`
	MaxValidators float64 `validate:"gte=0"`
	MaxTVL        float64 `validate:"gte=0"`
}

// StakerInflowParams configures fresh stake entering each day.
// Rate is required for the linear model.
type StakerInflowParams struct {
	Model         string  `validate:"required"`
	InitialAmount float64 `validate:"gte=0"`
	Rate          *float64
}

// VestingParams groups the allocation pools released into circulation.
type VestingParams struct {
	Tranches       []Tranche `validate:"dive"`
	StakingRewards DecayPool
}

// Tranche is a linear-vesting allocation released in coarse lumps.
// Lumps of Amount land on EndDay, EndDay-PeriodDays, ... down to StartDay.
// VestZero is released at day 0 regardless of the schedule.
type Tranche struct {
	Name       string
	EndDay     int     `validate:"gte=0"`
	StartDay   int     `validate:"gte=0"`
	PeriodDays int     `validate:"gte=1"`
	Amount     float64 `validate:"gte=0"`
	VestZero   float64 `validate:"gte=0"`
}

// DecayPool is the staking-rewards pool vesting along fundSize*(1-exp(-rate*d)).
type DecayPool struct {
	FundSize  float64 `validate:"gte=0"`
	DecayRate float64 `validate:"gte=0"`
}

// DefaultParams returns the reference parameter set.
func DefaultParams() Params {
	return Params{
		ProtocolFeeRate:            0.0005,
		TippingRate:                0.3,
		Slippage:                   0.005,
		ProtocolFundedRate:         0.5,
		InitialStakeConversionRate: 0.7,
		RewardsReinvestRate:        0.5,
		StakingRenewalRate:         0.8,
		ValidatorRewardShare:       0.5,
		MinStakeAmount:             1.0,
		MinStakeDuration:           14,
		ReleaseRate: ReleaseRateParams{
			Function:      ReleaseLinear,
			A:             0.5,
			B:             0,
			MaxValidators: 100,
			MaxTVL:        500_000_000,
		},
		NewStakerInflow: StakerInflowParams{
			Model:         InflowConstant,
			InitialAmount: 1000.0,
		},
		Vesting: VestingParams{
			StakingRewards: DecayPool{
				FundSize:  400_000_000,
				DecayRate: HalfLifeToDecayRate(4 * 365),
			},
		},
		EcosystemFundZero: 44_423_076.0,
		CircSupplyZero:    260_000_000.0,
		WalletBalances:    []float64{1000.0, 500.0},
	}
}

// HalfLifeToDecayRate converts a half-life in days into an exponential decay rate.
func HalfLifeToDecayRate(halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 0
	}
	return math.Ln2 / halfLifeDays
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	out := p
	out.BurnExtra = slices.Clone(p.BurnExtra)
	out.WalletBalances = slices.Clone(p.WalletBalances)
	out.Vesting.Tranches = slices.Clone(p.Vesting.Tranches)
	if p.NewStakerInflow.Rate != nil {
		r := *p.NewStakerInflow.Rate
		out.NewStakerInflow.Rate = &r
	}
	return out
}

// InitialStake is the stake value at day 0: the conversion rate applied to
// every wallet holding at least the minimum stake amount.
func (p Params) InitialStake() float64 {
	available := 0.0
	for _, b := range p.WalletBalances {
		if b >= p.MinStakeAmount {
			available += b
		}
	}
	return p.InitialStakeConversionRate * available
}
