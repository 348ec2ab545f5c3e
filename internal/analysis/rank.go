package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/model"
)

// RankedCombination is a sweep combination scored by the mean final-day value
// of one column across its samples.
type RankedCombination struct {
	Combination int          `json:"combination"`
	Params      []ParamValue `json:"params"`
	Score       float64      `json:"score"`
	Samples     int          `json:"samples"`
}

// MarshalJSON writes a NaN score as null.
func (r RankedCombination) MarshalJSON() ([]byte, error) {
	type plain RankedCombination
	return json.Marshal(struct {
		plain
		Score any `json:"score"`
	}{plain(r), forecast.JSONFloat(r.Score)})
}

// RankCombinations scores each combination and sorts descending by score
// (ascending when asc is set). NaN scores sort last.
func RankCombinations(res *SweepResult, column string, asc bool) ([]RankedCombination, error) {
	col, ok := forecast.LookupColumn(column)
	if !ok {
		return nil, fmt.Errorf("%w: unknown column %q", model.ErrConfig, column)
	}
	out := make([]RankedCombination, res.Combinations)
	for i := range out {
		out[i].Combination = i
	}
	for _, run := range res.Runs {
		rc := &out[run.Combination]
		rc.Params = run.Params
		ledger := run.Result.Ledger
		rc.Score += col.Value(&ledger[len(ledger)-1])
		rc.Samples++
	}
	for i := range out {
		if out[i].Samples > 0 {
			out[i].Score /= float64(out[i].Samples)
		} else {
			out[i].Score = math.NaN()
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Score, out[j].Score
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		if math.IsNaN(a) {
			return false
		}
		if asc {
			return a < b
		}
		return a > b
	})
	return out, nil
}
