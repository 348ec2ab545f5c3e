package models

import (
	"supply-forecast/internal/analysis"
	"supply-forecast/internal/forecast"
	"supply-forecast/internal/model"
	"supply-forecast/internal/release"
	"supply-forecast/internal/scenario"
	"supply-forecast/internal/storage"
)

// SimulateResponse represents the response from a forecast run.
type SimulateResponse struct {
	ID       string               `json:"id,omitempty"`
	Status   string               `json:"status"`
	Horizon  int                  `json:"horizon_days"`
	Seed     uint64               `json:"seed"`
	Scenario string               `json:"scenario,omitempty"`
	Summary  forecast.Summary     `json:"summary"`
	Ledger   []forecast.LedgerRow `json:"ledger,omitempty"`
}

// SweepRunSummary is one (combination, sample) run of a sweep.
type SweepRunSummary struct {
	Combination int                   `json:"combination"`
	Sample      int                   `json:"sample"`
	Params      []analysis.ParamValue `json:"params"`
	Summary     forecast.Summary      `json:"summary"`
}

// SweepResponse represents the response from a sweep.
type SweepResponse struct {
	Combinations int                          `json:"combinations"`
	Samples      int                          `json:"samples"`
	Ranges       []analysis.Range             `json:"ranges"`
	Runs         []SweepRunSummary            `json:"runs"`
	RankedBy     string                       `json:"ranked_by"`
	Ranking      []analysis.RankedCombination `json:"ranking"`
}

// SensitivityResponse holds a single estimate or, with a grid, a profile.
type SensitivityResponse struct {
	Result  *analysis.SensitivityResult  `json:"result,omitempty"`
	Profile *analysis.SensitivityProfile `json:"profile,omitempty"`
}

// RunsResponse lists stored runs, newest first.
type RunsResponse struct {
	Runs []*storage.RunRecord `json:"runs"`
}

// LedgerResponse is the stored ledger of one run.
type LedgerResponse struct {
	ID     string               `json:"id"`
	Ledger []forecast.LedgerRow `json:"ledger"`
}

// ScenariosResponse lists the named scenarios.
type ScenariosResponse struct {
	Scenarios []scenario.Info `json:"scenarios"`
}

// ReleaseFunctionsResponse lists the release-rate functions.
type ReleaseFunctionsResponse struct {
	Functions []release.Info `json:"functions"`
}

// ParametersResponse lists the parameters accepted by sweeps and sensitivity studies.
type ParametersResponse struct {
	Parameters []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a sweepable parameter and its default.
type ParameterInfo struct {
	model.Parameter
	Default float64 `json:"default"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
