package scenario

import (
	"encoding/json"
	"testing"

	"supply-forecast/internal/model"
	"supply-forecast/internal/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNormalize(t *testing.T) {
	for in, want := range map[string]string{
		"very bad":    VeryBad,
		"VERY_GOOD":   VeryGood,
		"really good": VeryGood,
		" base ":      Base,
	} {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := Normalize("catastrophic")
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestApplyVeryBad(t *testing.T) {
	b := model.NewConfigBuilder(365)
	d := process.DefaultDriversSpec()
	require.NoError(t, Apply(Uniform(VeryBad), b, &d))

	assert.Equal(t, process.GBM, d.Price.Model)
	assert.Equal(t, 0.08, *d.Price.Initial)
	assert.Equal(t, -0.8, *d.Price.Drift)
	assert.Equal(t, 0.4, *d.Price.Sigma)

	assert.Equal(t, process.GBM, d.ServiceFees.Model)
	assert.Equal(t, 25_000_000.0, *d.ServiceFees.Initial)

	assert.Equal(t, process.Linear, d.TxCount.Model)
	assert.InDelta(t, -0.75*8000/365, *d.TxCount.Slope, 1e-12)
	assert.True(t, d.TxCount.FloorAtZero)

	assert.Equal(t, process.Arrival, d.Validators.Model)
	assert.InDelta(t, 1.0/365, *d.Validators.Rate, 1e-15)
	assert.Equal(t, 6.0, *d.Validators.Initial)

	cfg, err := b.Build()
	require.NoError(t, err)
	p := cfg.Params()
	assert.Equal(t, 0.1, p.InitialStakeConversionRate)
	assert.Equal(t, 0.0, p.RewardsReinvestRate)
	assert.Equal(t, 0.3, p.StakingRenewalRate)
	assert.Equal(t, 1000.0, p.NewStakerInflow.InitialAmount)
}

func TestApplyBaseUsesPoissonTransactions(t *testing.T) {
	b := model.NewConfigBuilder(10)
	d := process.DefaultDriversSpec()
	require.NoError(t, Apply(Selection{Usage: Base}, b, &d))
	assert.Equal(t, process.Poisson, d.TxCount.Model)
	assert.Equal(t, 8000.0, *d.TxCount.Rate)
	assert.Equal(t, process.Constant, d.Price.Model, "price untouched")
}

func TestApplyStressStakingCases(t *testing.T) {
	for name, inflow := range map[string]float64{Pessimistic: 0, Optimistic: 1_000_000} {
		b := model.NewConfigBuilder(10)
		d := process.DefaultDriversSpec()
		require.NoError(t, Apply(Selection{Staking: name}, b, &d))
		cfg, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, inflow, cfg.Params().NewStakerInflow.InitialAmount, name)
	}
}

func TestEveryScenarioGeneratesValidDrivers(t *testing.T) {
	for _, name := range Names {
		b := model.NewConfigBuilder(90)
		d := process.DefaultDriversSpec()
		require.NoError(t, Apply(Uniform(name), b, &d), name)

		g, err := process.NewGenerator(d)
		require.NoError(t, err, name)
		v, err := g.Generate(90, 1)
		require.NoError(t, err, name)
		assert.NoError(t, v.Validate(90), name)
		_, err = b.Build()
		assert.NoError(t, err, name)
	}
}

func TestApplyRejectsUnknownScenario(t *testing.T) {
	d := process.DefaultDriversSpec()
	err := Apply(Selection{Validators: "meh"}, model.NewConfigBuilder(10), &d)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestSelectionDecoding(t *testing.T) {
	var fromName Selection
	require.NoError(t, yaml.Unmarshal([]byte(`good`), &fromName))
	assert.Equal(t, Uniform(Good), fromName)
	assert.Equal(t, Good, fromName.String())

	var fromMap Selection
	require.NoError(t, yaml.Unmarshal([]byte("price: bad\nstaking: optimistic\n"), &fromMap))
	assert.Equal(t, Selection{Price: Bad, Staking: Optimistic}, fromMap)

	var fromJSON Selection
	require.NoError(t, json.Unmarshal([]byte(`"very bad"`), &fromJSON))
	assert.Equal(t, Uniform(VeryBad), fromJSON)
	require.NoError(t, json.Unmarshal([]byte(`{"usage":"base"}`), &fromJSON))
	assert.Equal(t, Selection{Usage: Base}, fromJSON)
}

func TestInfos(t *testing.T) {
	infos := Infos()
	require.Len(t, infos, len(Names))
	for i, info := range infos {
		assert.Equal(t, Names[i], info.Name)
	}
	assert.Nil(t, infos[2].TxSlope, "base uses poisson transactions")
	require.NotNil(t, infos[0].TxSlope)
	assert.Equal(t, -0.75, *infos[0].TxSlope)
	require.NotNil(t, infos[6].NewStakerInflow)
	assert.Equal(t, 1_000_000.0, *infos[6].NewStakerInflow)
}
