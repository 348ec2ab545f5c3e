package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"supply-forecast/internal/data"
	"supply-forecast/internal/model"
	"supply-forecast/internal/process"
	"supply-forecast/internal/scenario"

	"gopkg.in/yaml.v3"
)

// DateLayout is the calendar date format used by start_date and end_date.
const DateLayout = "2006-01-02"

// DefaultTranchePeriodDays applies when a tranche omits period_days.
const DefaultTranchePeriodDays = 30

// Config is the on-disk configuration shape (YAML). The API binds the same
// document as JSON.
//
// Pointer fields are optional: nil keeps the reference default from
// model.DefaultParams, so a zero rate can still be stated explicitly.
type Config struct {
	HorizonDays int    `yaml:"horizon_days" json:"horizon_days"`
	StartDate   string `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	Seed        uint64 `yaml:"seed" json:"seed"`

	// Scenario is either one name applied to every concern or a mapping
	// {price, usage, validators, staking}. It is applied after every other section.
	Scenario scenario.Selection `yaml:"scenario,omitempty" json:"scenario,omitempty"`

	Economics EconomicsConfig `yaml:"economics" json:"economics"`
	Staking   StakingConfig   `yaml:"staking" json:"staking"`
	Vesting   VestingConfig   `yaml:"vesting" json:"vesting"`
	Drivers   DriversConfig   `yaml:"drivers" json:"drivers"`

	// DriversFile replaces generated drivers with a fixed path (file or URL).
	DriversFile string `yaml:"drivers_file,omitempty" json:"drivers_file,omitempty"`

	// WalletBalancesFile is a CSV with a "balance" column. WalletBalances, if
	// set, wins over the file.
	WalletBalances     []float64 `yaml:"wallet_balances,omitempty" json:"wallet_balances,omitempty"`
	WalletBalancesFile string    `yaml:"wallet_balances_file,omitempty" json:"wallet_balances_file,omitempty"`
}

type EconomicsConfig struct {
	ProtocolFeeRate    *float64  `yaml:"protocol_fee_rate,omitempty" json:"protocol_fee_rate,omitempty"`
	TippingRate        *float64  `yaml:"tipping_rate,omitempty" json:"tipping_rate,omitempty"`
	Slippage           *float64  `yaml:"slippage,omitempty" json:"slippage,omitempty"`
	ProtocolFundedRate *float64  `yaml:"protocol_funded_rate,omitempty" json:"protocol_funded_rate,omitempty"`
	EcosystemFundZero  *float64  `yaml:"ecosystem_fund_zero,omitempty" json:"ecosystem_fund_zero,omitempty"`
	CircSupplyZero     *float64  `yaml:"circ_supply_zero,omitempty" json:"circ_supply_zero,omitempty"`
	BurnExtra          []float64 `yaml:"burn_extra,omitempty" json:"burn_extra,omitempty"`
}

type StakingConfig struct {
	InitialStakeConversionRate *float64          `yaml:"initial_stake_conversion_rate,omitempty" json:"initial_stake_conversion_rate,omitempty"`
	RewardsReinvestRate        *float64          `yaml:"rewards_reinvest_rate,omitempty" json:"rewards_reinvest_rate,omitempty"`
	StakingRenewalRate         *float64          `yaml:"staking_renewal_rate,omitempty" json:"staking_renewal_rate,omitempty"`
	ValidatorRewardShare       *float64          `yaml:"validator_reward_share,omitempty" json:"validator_reward_share,omitempty"`
	MinStakeAmount             *float64          `yaml:"min_stake_amount,omitempty" json:"min_stake_amount,omitempty"`
	MinStakeDuration           *int              `yaml:"min_stake_duration,omitempty" json:"min_stake_duration,omitempty"`
	ReleaseRate                ReleaseRateConfig `yaml:"release_rate" json:"release_rate"`
	NewStakerInflow            InflowConfig      `yaml:"new_staker_inflow" json:"new_staker_inflow"`
}

// ReleaseRateConfig is the only accepted spelling of the release-rate
// parameters; there are no flat top-level aliases.
type ReleaseRateConfig struct {
	Function      string   `yaml:"function,omitempty" json:"function,omitempty"`
	A             *float64 `yaml:"a,omitempty" json:"a,omitempty"`
	B             *float64 `yaml:"b,omitempty" json:"b,omitempty"`
	MaxValidators *float64 `yaml:"max_validators,omitempty" json:"max_validators,omitempty"`
	MaxTVL        *float64 `yaml:"max_tvl,omitempty" json:"max_tvl,omitempty"`
}

type InflowConfig struct {
	Model         string   `yaml:"model,omitempty" json:"model,omitempty"`
	InitialAmount *float64 `yaml:"initial_amount,omitempty" json:"initial_amount,omitempty"`
	Rate          *float64 `yaml:"rate,omitempty" json:"rate,omitempty"`
}

type VestingConfig struct {
	// Tranches replace the default (empty) tranche list when present.
	Tranches       []TrancheConfig `yaml:"tranches,omitempty" json:"tranches,omitempty"`
	StakingRewards DecayPoolConfig `yaml:"staking_rewards" json:"staking_rewards"`
}

// TrancheConfig ends on EndDay, or on EndDate counted from the config's start_date.
type TrancheConfig struct {
	Name       string  `yaml:"name" json:"name"`
	EndDay     *int    `yaml:"end_day,omitempty" json:"end_day,omitempty"`
	EndDate    string  `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	StartDay   int     `yaml:"start_day,omitempty" json:"start_day,omitempty"`
	PeriodDays int     `yaml:"period_days,omitempty" json:"period_days,omitempty"`
	Amount     float64 `yaml:"amount" json:"amount"`
	VestZero   float64 `yaml:"vest_zero,omitempty" json:"vest_zero,omitempty"`
}

// DecayPoolConfig takes either decay_rate or half_life_days (converted as ln2/h).
type DecayPoolConfig struct {
	FundSize     *float64 `yaml:"fund_size,omitempty" json:"fund_size,omitempty"`
	DecayRate    *float64 `yaml:"decay_rate,omitempty" json:"decay_rate,omitempty"`
	HalfLifeDays *float64 `yaml:"half_life_days,omitempty" json:"half_life_days,omitempty"`
}

// DriversConfig overrides individual driver processes; nil keeps the default.
type DriversConfig struct {
	Price       *process.Spec `yaml:"price,omitempty" json:"price,omitempty"`
	ServiceFees *process.Spec `yaml:"service_fees,omitempty" json:"service_fees,omitempty"`
	TxCount     *process.Spec `yaml:"tx_count,omitempty" json:"tx_count,omitempty"`
	Validators  *process.Spec `yaml:"validators,omitempty" json:"validators,omitempty"`
}

// Load reads, resolves and validates a config file.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked reads a config and resolves referenced files, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrConfig, path, err)
	}
	if err := c.ResolveFiles(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveFiles makes relative file references absolute against dir and loads
// the wallet balances file.
func (c *Config) ResolveFiles(dir string) error {
	c.DriversFile = resolvePath(dir, c.DriversFile)
	c.WalletBalancesFile = resolvePath(dir, c.WalletBalancesFile)
	if c.WalletBalancesFile != "" && c.WalletBalances == nil {
		balances, err := data.LoadBalancesCSV(c.WalletBalancesFile)
		if err != nil {
			return fmt.Errorf("%w: wallet_balances_file: %v", model.ErrConfig, err)
		}
		c.WalletBalances = balances
	}
	return nil
}

// resolvePath prefers a path relative to dir, but falls back to the given
// path (relative to cwd) if that doesn't exist. URLs pass through.
func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || data.IsURL(p) || dir == "" {
		return p
	}
	cand := filepath.Join(dir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// Validate checks the config by constructing the model and the driver generator.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	b, drivers, err := c.ToBuilder()
	if err != nil {
		return err
	}
	if _, err := b.Build(); err != nil {
		return err
	}
	if c.DriversFile == "" {
		if _, err := process.NewGenerator(drivers); err != nil {
			return fmt.Errorf("%w: drivers: %v", model.ErrConfig, err)
		}
	}
	return nil
}

// ToBuilder converts the config into a parameter builder and the driver
// processes, applying the scenario last.
func (c *Config) ToBuilder() (*model.ConfigBuilder, process.DriversSpec, error) {
	if c.HorizonDays < 1 {
		return nil, process.DriversSpec{}, fmt.Errorf("%w: horizon_days must be >= 1, got %d", model.ErrConfig, c.HorizonDays)
	}
	tranches, err := c.tranches()
	if err != nil {
		return nil, process.DriversSpec{}, err
	}

	b := model.NewConfigBuilder(c.HorizonDays)
	b.Update(func(p *model.Params) {
		e := c.Economics
		setFloat(&p.ProtocolFeeRate, e.ProtocolFeeRate)
		setFloat(&p.TippingRate, e.TippingRate)
		setFloat(&p.Slippage, e.Slippage)
		setFloat(&p.ProtocolFundedRate, e.ProtocolFundedRate)
		setFloat(&p.EcosystemFundZero, e.EcosystemFundZero)
		setFloat(&p.CircSupplyZero, e.CircSupplyZero)
		if e.BurnExtra != nil {
			p.BurnExtra = e.BurnExtra
		}

		s := c.Staking
		setFloat(&p.InitialStakeConversionRate, s.InitialStakeConversionRate)
		setFloat(&p.RewardsReinvestRate, s.RewardsReinvestRate)
		setFloat(&p.StakingRenewalRate, s.StakingRenewalRate)
		setFloat(&p.ValidatorRewardShare, s.ValidatorRewardShare)
		setFloat(&p.MinStakeAmount, s.MinStakeAmount)
		if s.MinStakeDuration != nil {
			p.MinStakeDuration = *s.MinStakeDuration
		}
		if s.ReleaseRate.Function != "" {
			p.ReleaseRate.Function = s.ReleaseRate.Function
		}
		setFloat(&p.ReleaseRate.A, s.ReleaseRate.A)
		setFloat(&p.ReleaseRate.B, s.ReleaseRate.B)
		setFloat(&p.ReleaseRate.MaxValidators, s.ReleaseRate.MaxValidators)
		setFloat(&p.ReleaseRate.MaxTVL, s.ReleaseRate.MaxTVL)
		if s.NewStakerInflow.Model != "" {
			p.NewStakerInflow.Model = s.NewStakerInflow.Model
		}
		setFloat(&p.NewStakerInflow.InitialAmount, s.NewStakerInflow.InitialAmount)
		if s.NewStakerInflow.Rate != nil {
			r := *s.NewStakerInflow.Rate
			p.NewStakerInflow.Rate = &r
		}

		v := c.Vesting
		if tranches != nil {
			p.Vesting.Tranches = tranches
		}
		setFloat(&p.Vesting.StakingRewards.FundSize, v.StakingRewards.FundSize)
		if v.StakingRewards.HalfLifeDays != nil {
			p.Vesting.StakingRewards.DecayRate = model.HalfLifeToDecayRate(*v.StakingRewards.HalfLifeDays)
		}
		setFloat(&p.Vesting.StakingRewards.DecayRate, v.StakingRewards.DecayRate)

		if c.WalletBalances != nil {
			p.WalletBalances = c.WalletBalances
		}
	})

	drivers := c.DriversSpec()
	if !c.Scenario.IsZero() {
		if err := scenario.Apply(c.Scenario, b, &drivers); err != nil {
			return nil, process.DriversSpec{}, err
		}
	}
	return b, drivers, nil
}

// DriversSpec overlays the configured driver processes on the defaults.
// The scenario is not applied.
func (c *Config) DriversSpec() process.DriversSpec {
	d := process.DefaultDriversSpec()
	for _, o := range []struct {
		src *process.Spec
		dst *process.Spec
	}{
		{c.Drivers.Price, &d.Price},
		{c.Drivers.ServiceFees, &d.ServiceFees},
		{c.Drivers.TxCount, &d.TxCount},
		{c.Drivers.Validators, &d.Validators},
	} {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
	return d
}

// Build returns the validated simulation config and a driver generator.
// The generator is nil when DriversFile supplies fixed drivers.
func (c *Config) Build() (model.SimulationConfig, *process.Generator, error) {
	b, drivers, err := c.ToBuilder()
	if err != nil {
		return model.SimulationConfig{}, nil, err
	}
	cfg, err := b.Build()
	if err != nil {
		return model.SimulationConfig{}, nil, err
	}
	if c.DriversFile != "" {
		return cfg, nil, nil
	}
	gen, err := process.NewGenerator(drivers)
	if err != nil {
		return model.SimulationConfig{}, nil, fmt.Errorf("%w: drivers: %v", model.ErrConfig, err)
	}
	return cfg, gen, nil
}

func (c *Config) tranches() ([]model.Tranche, error) {
	if c.Vesting.Tranches == nil {
		return nil, nil
	}
	var start time.Time
	if c.StartDate != "" {
		t, err := time.Parse(DateLayout, c.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date %q: expected YYYY-MM-DD", model.ErrConfig, c.StartDate)
		}
		start = t
	}

	out := make([]model.Tranche, 0, len(c.Vesting.Tranches))
	for _, t := range c.Vesting.Tranches {
		var end int
		switch {
		case t.EndDay != nil:
			end = *t.EndDay
		case t.EndDate != "":
			if start.IsZero() {
				return nil, fmt.Errorf("%w: tranche %q uses end_date but start_date is not set", model.ErrConfig, t.Name)
			}
			d, err := time.Parse(DateLayout, t.EndDate)
			if err != nil {
				return nil, fmt.Errorf("%w: tranche %q end_date %q: expected YYYY-MM-DD", model.ErrConfig, t.Name, t.EndDate)
			}
			end = int(d.Sub(start).Hours() / 24)
		default:
			return nil, fmt.Errorf("%w: tranche %q needs end_day or end_date", model.ErrConfig, t.Name)
		}
		period := t.PeriodDays
		if period == 0 {
			period = DefaultTranchePeriodDays
		}
		out = append(out, model.Tranche{
			Name:       t.Name,
			EndDay:     end,
			StartDay:   t.StartDay,
			PeriodDays: period,
			Amount:     t.Amount,
			VestZero:   t.VestZero,
		})
	}
	return out, nil
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
