package models

import "supply-forecast/internal/config"

// SimulateRequest represents the request body for running one forecast.
// Config is merged over the server defaults; only set fields override.
type SimulateRequest struct {
	Config        config.Config `json:"config"`
	IncludeLedger bool          `json:"include_ledger,omitempty"`
	// Persist stores the run when storage is configured (default: true).
	Persist *bool `json:"persist,omitempty"`
}

// MonteCarloRequest runs the same configuration against Runs seeded driver paths.
type MonteCarloRequest struct {
	Config  config.Config `json:"config"`
	Runs    int           `json:"runs" binding:"required,min=1"`
	Columns []string      `json:"columns,omitempty"`
}

// SweepRequest runs every combination of Ranges on Samples driver paths.
type SweepRequest struct {
	Config  config.Config        `json:"config"`
	Ranges  []config.RangeConfig `json:"ranges" binding:"required,min=1,dive"`
	Samples int                  `json:"samples,omitempty" binding:"omitempty,min=1"`
	// RankBy orders combinations by the mean final-day value of a column
	// (default: circ_supply).
	RankBy    string `json:"rank_by,omitempty"`
	Ascending bool   `json:"ascending,omitempty"`
}

// SensitivityRequest estimates d(column)/d(param). With Grid set, the
// estimate is repeated at each base value of Param.
type SensitivityRequest struct {
	Config  config.Config `json:"config"`
	Param   string        `json:"param" binding:"required"`
	H       float64       `json:"h,omitempty"`
	Samples int           `json:"samples,omitempty" binding:"omitempty,min=1"`
	Grid    []float64     `json:"grid,omitempty"`
	Columns []string      `json:"columns,omitempty"`
}

// ListRunsRequest is the query of GET /api/v1/runs.
type ListRunsRequest struct {
	Limit int `form:"limit,omitempty" binding:"omitempty,min=1,max=1000"` // default: 50
}
