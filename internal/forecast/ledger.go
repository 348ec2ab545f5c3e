package forecast

import (
	"encoding/json"
	"fmt"
	"math"
)

// LedgerRow is one simulated day.
// This is the primary artifact for "what happened" in a forecast.
type LedgerRow struct {
	Day int

	Price       float64
	ServiceFees float64
	TxCount     float64
	Validators  float64

	Burned               float64
	Vested               float64
	TrancheVested        float64
	StakingRewardsVested float64
	LockedFromFees       float64
	ReleasedProtocolBurn float64

	NewStakerInflow     float64
	StakingInflow       float64
	StakingOutflow      float64
	AvailableForOutflow float64
	StakingTVL          float64

	ReleaseRate             float64
	StakingRewardsEcosystem float64
	TotalStakingRewards     float64
	ValidatorRewards        float64
	StakerRewards           float64
	EcosystemFund           float64

	TotalLocked   float64
	TotalReleased float64
	CircSupply    float64
	MarketCap     float64
	DayInflation  float64
	YearInflation float64
	APY           float64
	TVLRate       float64
}

// MarshalJSON writes the row keyed by column name. NaN and infinite values
// (inflation before enough history exists) become null.
func (r LedgerRow) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(Columns)+1)
	m["day"] = r.Day
	for _, c := range Columns {
		m[c.Name] = JSONFloat(c.Value(&r))
	}
	return json.Marshal(m)
}

// JSONFloat maps non-finite values to nil so they encode as null.
func JSONFloat(x float64) any {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return x
}

// JSONFloats applies JSONFloat to every element.
func JSONFloats(xs []float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = JSONFloat(x)
	}
	return out
}

// Column is a named numeric ledger column.
type Column struct {
	Name  string
	Field func(r *LedgerRow) *float64
}

// Value reads the column from r.
func (c Column) Value(r *LedgerRow) float64 { return *c.Field(r) }

// Columns lists every numeric ledger column in output order (day excluded).
var Columns = []Column{
	{"price", func(r *LedgerRow) *float64 { return &r.Price }},
	{"service_fees", func(r *LedgerRow) *float64 { return &r.ServiceFees }},
	{"tx_count", func(r *LedgerRow) *float64 { return &r.TxCount }},
	{"validators", func(r *LedgerRow) *float64 { return &r.Validators }},
	{"burned", func(r *LedgerRow) *float64 { return &r.Burned }},
	{"vested", func(r *LedgerRow) *float64 { return &r.Vested }},
	{"tranche_vested", func(r *LedgerRow) *float64 { return &r.TrancheVested }},
	{"staking_rewards_vested", func(r *LedgerRow) *float64 { return &r.StakingRewardsVested }},
	{"locked_from_fees", func(r *LedgerRow) *float64 { return &r.LockedFromFees }},
	{"released_protocol_burn", func(r *LedgerRow) *float64 { return &r.ReleasedProtocolBurn }},
	{"new_staker_inflow", func(r *LedgerRow) *float64 { return &r.NewStakerInflow }},
	{"staking_inflow", func(r *LedgerRow) *float64 { return &r.StakingInflow }},
	{"staking_outflow", func(r *LedgerRow) *float64 { return &r.StakingOutflow }},
	{"available_for_outflow", func(r *LedgerRow) *float64 { return &r.AvailableForOutflow }},
	{"staking_tvl", func(r *LedgerRow) *float64 { return &r.StakingTVL }},
	{"release_rate", func(r *LedgerRow) *float64 { return &r.ReleaseRate }},
	{"staking_rewards_ecosystem", func(r *LedgerRow) *float64 { return &r.StakingRewardsEcosystem }},
	{"total_staking_rewards", func(r *LedgerRow) *float64 { return &r.TotalStakingRewards }},
	{"validator_rewards", func(r *LedgerRow) *float64 { return &r.ValidatorRewards }},
	{"staker_rewards", func(r *LedgerRow) *float64 { return &r.StakerRewards }},
	{"ecosystem_fund", func(r *LedgerRow) *float64 { return &r.EcosystemFund }},
	{"total_locked", func(r *LedgerRow) *float64 { return &r.TotalLocked }},
	{"total_released", func(r *LedgerRow) *float64 { return &r.TotalReleased }},
	{"circ_supply", func(r *LedgerRow) *float64 { return &r.CircSupply }},
	{"market_cap", func(r *LedgerRow) *float64 { return &r.MarketCap }},
	{"day_inflation", func(r *LedgerRow) *float64 { return &r.DayInflation }},
	{"year_inflation", func(r *LedgerRow) *float64 { return &r.YearInflation }},
	{"apy", func(r *LedgerRow) *float64 { return &r.APY }},
	{"tvl_rate", func(r *LedgerRow) *float64 { return &r.TVLRate }},
}

// SensitivityColumns are the outputs differentiated by sensitivity studies.
var SensitivityColumns = []string{
	"circ_supply",
	"staking_rewards_vested",
	"staking_rewards_ecosystem",
	"total_staking_rewards",
	"validator_rewards",
	"market_cap",
	"staking_tvl",
	"year_inflation",
	"apy",
	"tvl_rate",
}

var columnIndex = func() map[string]Column {
	m := make(map[string]Column, len(Columns))
	for _, c := range Columns {
		m[c.Name] = c
	}
	return m
}()

// LookupColumn finds a ledger column by name.
func LookupColumn(name string) (Column, bool) {
	c, ok := columnIndex[name]
	return c, ok
}

// RowFromValues rebuilds a row from values ordered like Columns.
func RowFromValues(day int, values []float64) (LedgerRow, error) {
	if len(values) != len(Columns) {
		return LedgerRow{}, fmt.Errorf("ledger row has %d values, want %d", len(values), len(Columns))
	}
	r := LedgerRow{Day: day}
	for i, c := range Columns {
		*c.Field(&r) = values[i]
	}
	return r, nil
}

// Series extracts one column across the ledger.
func Series(ledger []LedgerRow, col Column) []float64 {
	out := make([]float64, len(ledger))
	for i := range ledger {
		out[i] = col.Value(&ledger[i])
	}
	return out
}

// Summary captures the final-day position of a run.
type Summary struct {
	Days               int     `json:"days"`
	FinalCircSupply    float64 `json:"final_circ_supply"`
	FinalMarketCap     float64 `json:"final_market_cap"`
	FinalStakingTVL    float64 `json:"final_staking_tvl"`
	FinalEcosystemFund float64 `json:"final_ecosystem_fund"`
	FinalYearInflation float64 `json:"final_year_inflation"`
	MinEcosystemFund   float64 `json:"min_ecosystem_fund"`
	TotalBurned        float64 `json:"total_burned"`
	TotalVested        float64 `json:"total_vested"`
	TotalRewards       float64 `json:"total_rewards"`
	NegativeFund       bool    `json:"negative_fund"`
}

// Result is the output of one run.
type Result struct {
	Ledger  []LedgerRow
	Staking StakingState
	Supply  SupplyState
	Summary Summary
}

// MarshalJSON encodes non-finite metrics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		FinalYearInflation any `json:"final_year_inflation"`
		MinEcosystemFund   any `json:"min_ecosystem_fund"`
	}{
		plain:              plain(s),
		FinalYearInflation: JSONFloat(s.FinalYearInflation),
		MinEcosystemFund:   JSONFloat(s.MinEcosystemFund),
	})
}

func summarize(ledger []LedgerRow) Summary {
	if len(ledger) == 0 {
		return Summary{}
	}
	last := ledger[len(ledger)-1]
	s := Summary{
		Days:               len(ledger),
		FinalCircSupply:    last.CircSupply,
		FinalMarketCap:     last.MarketCap,
		FinalStakingTVL:    last.StakingTVL,
		FinalEcosystemFund: last.EcosystemFund,
		FinalYearInflation: last.YearInflation,
		MinEcosystemFund:   math.Inf(1),
	}
	for _, r := range ledger {
		s.TotalBurned += r.Burned
		s.TotalVested += r.Vested
		s.TotalRewards += r.TotalStakingRewards
		s.MinEcosystemFund = math.Min(s.MinEcosystemFund, r.EcosystemFund)
	}
	s.NegativeFund = s.MinEcosystemFund < 0
	return s
}
