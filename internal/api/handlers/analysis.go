package handlers

import (
	"net/http"
	"time"

	"supply-forecast/internal/analysis"
	"supply-forecast/internal/api/models"
	"supply-forecast/internal/config"
	"supply-forecast/internal/observability"

	"github.com/gin-gonic/gin"
)

// AnalysisHandler serves multi-run studies: Monte Carlo, sweeps and sensitivities.
type AnalysisHandler struct {
	deps *Deps
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(deps *Deps) *AnalysisHandler {
	return &AnalysisHandler{deps: deps}
}

// MonteCarlo handles POST /api/v1/montecarlo
func (h *AnalysisHandler) MonteCarlo(c *gin.Context) {
	var req models.MonteCarloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}

	start := time.Now()
	res, err := h.monteCarlo(c, req)
	h.deps.Metrics.RecordRun(observability.KindMonteCarlo, start, err)
	if err != nil {
		fail(c, err)
		return
	}
	h.deps.Metrics.RecordNegativeFund(res.NegativeFundRuns)
	c.JSON(http.StatusOK, res)
}

func (h *AnalysisHandler) monteCarlo(c *gin.Context, req models.MonteCarloRequest) (*analysis.MonteCarloResult, error) {
	if err := checkLimit("runs", req.Runs, h.deps.Limits.MaxRuns); err != nil {
		return nil, err
	}
	p, err := h.deps.prepare(c.Request.Context(), req.Config)
	if err != nil {
		return nil, err
	}
	gen, err := p.generator()
	if err != nil {
		return nil, err
	}
	return analysis.MonteCarlo(c.Request.Context(), p.cfg, gen, analysis.MonteCarloOptions{
		Runs:    req.Runs,
		Seed:    p.doc.Seed,
		Workers: h.deps.Workers,
		Columns: req.Columns,
	})
}

// Sweep handles POST /api/v1/sweep
func (h *AnalysisHandler) Sweep(c *gin.Context) {
	var req models.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}

	start := time.Now()
	resp, err := h.sweep(c, req)
	h.deps.Metrics.RecordRun(observability.KindSweep, start, err)
	if err != nil {
		fail(c, err)
		return
	}
	h.deps.Metrics.RecordSweep(resp.Combinations)
	c.JSON(http.StatusOK, resp)
}

func (h *AnalysisHandler) sweep(c *gin.Context, req models.SweepRequest) (*models.SweepResponse, error) {
	ranges, err := config.ToRanges(req.Ranges)
	if err != nil {
		return nil, err
	}
	combos := len(analysis.Combinations(ranges))
	if err := checkLimit("combinations", combos, h.deps.Limits.MaxCombinations); err != nil {
		return nil, err
	}
	samples := max(req.Samples, 1)
	if err := checkLimit("runs", combos*samples, h.deps.Limits.MaxRuns); err != nil {
		return nil, err
	}
	rankBy := req.RankBy
	if rankBy == "" {
		rankBy = "circ_supply"
	}

	p, err := h.deps.prepare(c.Request.Context(), req.Config)
	if err != nil {
		return nil, err
	}
	gen, err := p.generator()
	if err != nil {
		return nil, err
	}
	res, err := analysis.Sweep(c.Request.Context(), p.builder, gen, ranges, analysis.SweepOptions{
		Samples: samples,
		Seed:    p.doc.Seed,
		Workers: h.deps.Workers,
	})
	if err != nil {
		return nil, err
	}
	ranking, err := analysis.RankCombinations(res, rankBy, req.Ascending)
	if err != nil {
		return nil, err
	}

	runs := make([]models.SweepRunSummary, len(res.Runs))
	negative := 0
	for i, r := range res.Runs {
		runs[i] = models.SweepRunSummary{
			Combination: r.Combination,
			Sample:      r.Sample,
			Params:      r.Params,
			Summary:     r.Result.Summary,
		}
		if r.Result.Summary.NegativeFund {
			negative++
		}
	}
	h.deps.Metrics.RecordNegativeFund(negative)

	return &models.SweepResponse{
		Combinations: res.Combinations,
		Samples:      res.Samples,
		Ranges:       res.Ranges,
		Runs:         runs,
		RankedBy:     rankBy,
		Ranking:      ranking,
	}, nil
}

// Sensitivity handles POST /api/v1/sensitivity
func (h *AnalysisHandler) Sensitivity(c *gin.Context) {
	var req models.SensitivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}

	start := time.Now()
	resp, err := h.sensitivity(c, req)
	h.deps.Metrics.RecordRun(observability.KindSensitivity, start, err)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AnalysisHandler) sensitivity(c *gin.Context, req models.SensitivityRequest) (*models.SensitivityResponse, error) {
	samples := max(req.Samples, 1)
	// two runs per sample and grid point
	if err := checkLimit("runs", 2*samples*max(len(req.Grid), 1), h.deps.Limits.MaxRuns); err != nil {
		return nil, err
	}

	p, err := h.deps.prepare(c.Request.Context(), req.Config)
	if err != nil {
		return nil, err
	}
	gen, err := p.generator()
	if err != nil {
		return nil, err
	}
	opts := analysis.SensitivityOptions{
		Param:   req.Param,
		H:       req.H,
		Samples: samples,
		Seed:    p.doc.Seed,
		Workers: h.deps.Workers,
		Columns: req.Columns,
	}
	if len(req.Grid) > 0 {
		prof, err := analysis.Profile(c.Request.Context(), p.builder, gen, req.Grid, opts)
		if err != nil {
			return nil, err
		}
		return &models.SensitivityResponse{Profile: prof}, nil
	}
	res, err := analysis.Sensitivity(c.Request.Context(), p.builder, gen, opts)
	if err != nil {
		return nil, err
	}
	return &models.SensitivityResponse{Result: res}, nil
}
