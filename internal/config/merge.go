package config

import "supply-forecast/internal/scenario"

// Merge overlays the set fields of override onto base.
// This is used when a request or CLI flags refine a config file.
func Merge(base, override Config) Config {
	out := base
	if override.HorizonDays != 0 {
		out.HorizonDays = override.HorizonDays
	}
	if override.StartDate != "" {
		out.StartDate = override.StartDate
	}
	if override.Seed != 0 {
		out.Seed = override.Seed
	}
	if !override.Scenario.IsZero() {
		out.Scenario = mergeScenario(base.Scenario, override.Scenario)
	}

	oe, e := override.Economics, &out.Economics
	mergeFloat(&e.ProtocolFeeRate, oe.ProtocolFeeRate)
	mergeFloat(&e.TippingRate, oe.TippingRate)
	mergeFloat(&e.Slippage, oe.Slippage)
	mergeFloat(&e.ProtocolFundedRate, oe.ProtocolFundedRate)
	mergeFloat(&e.EcosystemFundZero, oe.EcosystemFundZero)
	mergeFloat(&e.CircSupplyZero, oe.CircSupplyZero)
	if oe.BurnExtra != nil {
		e.BurnExtra = oe.BurnExtra
	}

	ost, s := override.Staking, &out.Staking
	mergeFloat(&s.InitialStakeConversionRate, ost.InitialStakeConversionRate)
	mergeFloat(&s.RewardsReinvestRate, ost.RewardsReinvestRate)
	mergeFloat(&s.StakingRenewalRate, ost.StakingRenewalRate)
	mergeFloat(&s.ValidatorRewardShare, ost.ValidatorRewardShare)
	mergeFloat(&s.MinStakeAmount, ost.MinStakeAmount)
	if ost.MinStakeDuration != nil {
		s.MinStakeDuration = ost.MinStakeDuration
	}
	if ost.ReleaseRate.Function != "" {
		s.ReleaseRate.Function = ost.ReleaseRate.Function
	}
	mergeFloat(&s.ReleaseRate.A, ost.ReleaseRate.A)
	mergeFloat(&s.ReleaseRate.B, ost.ReleaseRate.B)
	mergeFloat(&s.ReleaseRate.MaxValidators, ost.ReleaseRate.MaxValidators)
	mergeFloat(&s.ReleaseRate.MaxTVL, ost.ReleaseRate.MaxTVL)
	if ost.NewStakerInflow.Model != "" {
		s.NewStakerInflow.Model = ost.NewStakerInflow.Model
	}
	mergeFloat(&s.NewStakerInflow.InitialAmount, ost.NewStakerInflow.InitialAmount)
	mergeFloat(&s.NewStakerInflow.Rate, ost.NewStakerInflow.Rate)

	if override.Vesting.Tranches != nil {
		out.Vesting.Tranches = override.Vesting.Tranches
	}
	ov, v := override.Vesting.StakingRewards, &out.Vesting.StakingRewards
	mergeFloat(&v.FundSize, ov.FundSize)
	if ov.DecayRate != nil || ov.HalfLifeDays != nil {
		v.DecayRate, v.HalfLifeDays = ov.DecayRate, ov.HalfLifeDays
	}

	od, d := override.Drivers, &out.Drivers
	if od.Price != nil {
		d.Price = od.Price
	}
	if od.ServiceFees != nil {
		d.ServiceFees = od.ServiceFees
	}
	if od.TxCount != nil {
		d.TxCount = od.TxCount
	}
	if od.Validators != nil {
		d.Validators = od.Validators
	}
	if override.DriversFile != "" {
		out.DriversFile = override.DriversFile
	}

	if override.WalletBalances != nil {
		out.WalletBalances = override.WalletBalances
	}
	if override.WalletBalancesFile != "" {
		out.WalletBalancesFile = override.WalletBalancesFile
	}
	return out
}

func mergeScenario(base, override scenario.Selection) scenario.Selection {
	out := base
	if override.Price != "" {
		out.Price = override.Price
	}
	if override.Usage != "" {
		out.Usage = override.Usage
	}
	if override.Validators != "" {
		out.Validators = override.Validators
	}
	if override.Staking != "" {
		out.Staking = override.Staking
	}
	return out
}

func mergeFloat(dst **float64, src *float64) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
