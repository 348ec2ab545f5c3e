package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"supply-forecast/internal/api/middleware"
	"supply-forecast/internal/api/models"
	"supply-forecast/internal/forecast"
	"supply-forecast/internal/observability"
	"supply-forecast/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SimulationHandler runs single forecasts and serves stored runs.
type SimulationHandler struct {
	deps *Deps
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(deps *Deps) *SimulationHandler {
	return &SimulationHandler{deps: deps}
}

// Simulate handles POST /api/v1/simulate
func (h *SimulationHandler) Simulate(c *gin.Context) {
	var req models.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}

	start := time.Now()
	resp, err := h.simulate(c, req)
	h.deps.Metrics.RecordRun(observability.KindSimulate, start, err)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SimulationHandler) simulate(c *gin.Context, req models.SimulateRequest) (*models.SimulateResponse, error) {
	ctx := c.Request.Context()
	p, err := h.deps.prepare(ctx, req.Config)
	if err != nil {
		return nil, err
	}
	drivers, err := p.drivers(h.deps.Cache)
	if err != nil {
		return nil, err
	}
	res, err := forecast.Run(p.cfg, drivers)
	if err != nil {
		return nil, err
	}
	if res.Summary.NegativeFund {
		h.deps.Metrics.RecordNegativeFund(1)
	}

	resp := &models.SimulateResponse{
		Status:   "completed",
		Horizon:  p.cfg.Horizon(),
		Seed:     p.doc.Seed,
		Scenario: p.doc.Scenario.String(),
		Summary:  res.Summary,
	}
	if req.IncludeLedger {
		resp.Ledger = res.Ledger
	}

	persist := req.Persist == nil || *req.Persist
	if persist && h.deps.Archive != nil {
		raw, err := json.Marshal(p.doc)
		if err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		rec := storage.NewRunRecord(storage.KindSimulate, resp.Horizon, resp.Seed, resp.Scenario, raw, res.Summary)
		if err := h.deps.Archive.Save(ctx, &rec, res.Ledger); err != nil {
			return nil, err
		}
		resp.ID = rec.ID.String()
		zerolog.Ctx(ctx).Info().Str("run_id", resp.ID).Int("horizon_days", resp.Horizon).Msg("forecast stored")
	}
	return resp, nil
}

// ListRuns handles GET /api/v1/runs
func (h *SimulationHandler) ListRuns(c *gin.Context) {
	if h.deps.Archive == nil {
		fail(c, middleware.ErrStorageDisabled)
		return
	}
	var req models.ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		failBind(c, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = 50
	}
	runs, err := h.deps.Archive.Runs.List(c.Request.Context(), req.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	if runs == nil {
		runs = []*storage.RunRecord{}
	}
	c.JSON(http.StatusOK, models.RunsResponse{Runs: runs})
}

// GetRun handles GET /api/v1/runs/:id
func (h *SimulationHandler) GetRun(c *gin.Context) {
	id, ok := h.runID(c)
	if !ok {
		return
	}
	rec, err := h.deps.Archive.Runs.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetLedger handles GET /api/v1/runs/:id/ledger
func (h *SimulationHandler) GetLedger(c *gin.Context) {
	id, ok := h.runID(c)
	if !ok {
		return
	}
	ledger, err := h.deps.Archive.Ledger(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LedgerResponse{ID: id.String(), Ledger: ledger})
}

func (h *SimulationHandler) runID(c *gin.Context) (uuid.UUID, bool) {
	if h.deps.Archive == nil {
		fail(c, middleware.ErrStorageDisabled)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, fmt.Errorf("%w: run id %q: %v", storage.ErrInvalidInput, c.Param("id"), err))
		return uuid.Nil, false
	}
	return id, true
}
