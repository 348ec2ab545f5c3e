package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"supply-forecast/internal/model"
	"supply-forecast/internal/process"
	"supply-forecast/internal/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRepoConfigs(t *testing.T) {
	for _, name := range []string{"base.yaml", "optimistic.yaml"} {
		c, err := Load(filepath.Join("..", "..", "configs", name))
		require.NoError(t, err, name)
		cfg, gen, err := c.Build()
		require.NoError(t, err, name)
		assert.Equal(t, c.HorizonDays, cfg.Horizon())
		assert.NotNil(t, gen)
	}
}

func TestLoadBaseResolvesDatesAndFiles(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "base.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 500}, c.WalletBalances)
	assert.Equal(t, scenario.Uniform(scenario.Base), c.Scenario)

	cfg, _, err := c.Build()
	require.NoError(t, err)
	p := cfg.Params()
	require.Len(t, p.Vesting.Tranches, 2)
	// 2024-01-01 .. 2026-12-31 spans the leap year 2024.
	assert.Equal(t, 1095, p.Vesting.Tranches[0].EndDay)
	assert.Equal(t, 365, p.Vesting.Tranches[0].StartDay)
	assert.Equal(t, 730, p.Vesting.Tranches[1].EndDay)
	assert.InDelta(t, math.Ln2/1460, p.Vesting.StakingRewards.DecayRate, 1e-15)
}

func TestPointerFieldsKeepDefaultsAndAllowZero(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", `
horizon_days: 30
staking:
  rewards_reinvest_rate: 0
`)
	c, err := Load(path)
	require.NoError(t, err)
	cfg, _, err := c.Build()
	require.NoError(t, err)

	def := model.DefaultParams()
	p := cfg.Params()
	assert.Equal(t, 0.0, p.RewardsReinvestRate)
	assert.Equal(t, def.StakingRenewalRate, p.StakingRenewalRate)
	assert.Equal(t, def.ReleaseRate, p.ReleaseRate)
}

func TestScenarioAppliedLast(t *testing.T) {
	c := &Config{HorizonDays: 30, Scenario: scenario.Selection{Staking: scenario.Optimistic}}
	c.Staking.StakingRenewalRate = process.F(0.1)

	cfg, _, err := c.Build()
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Params().StakingRenewalRate)
	assert.Equal(t, 1_000_000.0, cfg.Params().NewStakerInflow.InitialAmount)
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]string{
		"zero horizon":       "horizon_days: 0\n",
		"unknown release":    "horizon_days: 10\nstaking:\n  release_rate:\n    function: cubic\n",
		"rate out of range":  "horizon_days: 10\neconomics:\n  tipping_rate: 1.5\n",
		"unknown scenario":   "horizon_days: 10\nscenario: meh\n",
		"end_date no start":  "horizon_days: 10\nvesting:\n  tranches:\n    - name: a\n      end_date: \"2024-02-01\"\n      amount: 1\n",
		"tranche no end":     "horizon_days: 10\nvesting:\n  tranches:\n    - name: a\n      amount: 1\n",
		"bad driver":         "horizon_days: 10\ndrivers:\n  price:\n    model: gbm\n",
		"linear inflow rate": "horizon_days: 10\nstaking:\n  new_staker_inflow:\n    model: linear\n",
		"malformed yaml":     "horizon_days: [\n",
	}
	dir := t.TempDir()
	for name, body := range cases {
		path := writeFile(t, dir, "bad.yaml", body)
		_, err := Load(path)
		assert.ErrorIs(t, err, model.ErrConfig, name)
	}
}

func TestMissingBalancesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", "horizon_days: 10\nwallet_balances_file: nope.csv\n")
	_, err := LoadUnchecked(path)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestInlineBalancesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "balance\n5\n")
	path := writeFile(t, dir, "c.yaml", "horizon_days: 10\nwallet_balances: [1, 2]\nwallet_balances_file: b.csv\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, c.WalletBalances)
	assert.Equal(t, filepath.Join(dir, "b.csv"), c.WalletBalancesFile)
}

func TestDriversFileSkipsGenerator(t *testing.T) {
	c := &Config{HorizonDays: 10, DriversFile: "drivers.json"}
	_, gen, err := c.Build()
	require.NoError(t, err)
	assert.Nil(t, gen)
}

func TestDriversOverlay(t *testing.T) {
	c := &Config{HorizonDays: 10}
	c.Drivers.Price = &process.Spec{Model: process.GBM, Initial: process.F(1), Drift: process.F(0), Sigma: process.F(0.2)}
	d := c.DriversSpec()
	assert.Equal(t, process.GBM, d.Price.Model)
	assert.Equal(t, process.DefaultDriversSpec().TxCount, d.TxCount)
}

func TestJSONMatchesYAMLShape(t *testing.T) {
	var c Config
	require.NoError(t, json.Unmarshal([]byte(`{
		"horizon_days": 20,
		"scenario": {"price": "good"},
		"staking": {"release_rate": {"function": "fractional", "a": 0.5, "b": 1}}
	}`), &c))
	assert.Equal(t, scenario.Selection{Price: scenario.Good}, c.Scenario)
	require.NoError(t, c.Validate())
	cfg, _, err := c.Build()
	require.NoError(t, err)
	assert.Equal(t, model.ReleaseFractional, cfg.Params().ReleaseRate.Function)
}

func TestMerge(t *testing.T) {
	base := Config{
		HorizonDays: 100,
		Seed:        1,
		Scenario:    scenario.Uniform(scenario.Base),
		Staking:     StakingConfig{RewardsReinvestRate: process.F(0.5)},
	}
	override := Config{
		Seed:     9,
		Scenario: scenario.Selection{Price: scenario.Bad},
		Staking:  StakingConfig{RewardsReinvestRate: process.F(0), ReleaseRate: ReleaseRateConfig{Function: model.ReleaseSigmoid}},
	}
	got := Merge(base, override)

	assert.Equal(t, 100, got.HorizonDays)
	assert.Equal(t, uint64(9), got.Seed)
	assert.Equal(t, scenario.Bad, got.Scenario.Price)
	assert.Equal(t, scenario.Base, got.Scenario.Staking)
	assert.Equal(t, 0.0, *got.Staking.RewardsReinvestRate)
	assert.Equal(t, model.ReleaseSigmoid, got.Staking.ReleaseRate.Function)

	// base is untouched
	assert.Equal(t, 0.5, *base.Staking.RewardsReinvestRate)
}

func TestLoadRanges(t *testing.T) {
	ranges, err := LoadRanges(filepath.Join("..", "..", "configs", "sweep.yaml"))
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, "staking_renewal_rate", ranges[0].Name)
	assert.Equal(t, []float64{0.6, 0.8, 1.0}, ranges[0].Values)
	assert.InDeltaSlice(t, []float64{0.25, 0.5, 0.75}, ranges[1].Values, 1e-12)
}

func TestToRangesErrors(t *testing.T) {
	_, err := ToRanges(nil)
	assert.ErrorIs(t, err, model.ErrConfig)

	_, err = ToRanges([]RangeConfig{{Name: "nope", Values: []float64{1}}})
	assert.ErrorIs(t, err, model.ErrConfig)

	_, err = ToRanges([]RangeConfig{{Name: "slippage", Start: process.F(0), Stop: process.F(1), Num: 1}})
	assert.ErrorIs(t, err, model.ErrConfig)

	_, err = ToRanges([]RangeConfig{{Name: "slippage", Values: []float64{0.1}, Num: 3}})
	assert.ErrorIs(t, err, model.ErrConfig)
}
