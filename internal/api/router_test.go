package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supply-forecast/internal/api"
	"supply-forecast/internal/api/handlers"
	"supply-forecast/internal/api/models"
	"supply-forecast/internal/config"
	"supply-forecast/internal/data"
	"supply-forecast/internal/observability"
	"supply-forecast/internal/scenario"
	"supply-forecast/internal/storage"
	"supply-forecast/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, withStorage bool) (*gin.Engine, *handlers.Deps) {
	t.Helper()
	deps := &handlers.Deps{
		Defaults: config.Config{HorizonDays: 30, Seed: 7},
		Cache:    data.NewDriverCache(time.Minute),
		Drivers:  data.NewDriverClient("", zerolog.Nop()),
		Metrics:  observability.NewMetrics("test", nil),
		Workers:  2,
		Limits:   handlers.Limits{MaxHorizon: 400, MaxRuns: 50, MaxCombinations: 10},
	}
	if withStorage {
		deps.Archive = &storage.Archive{Runs: memory.NewRunStore(), Ledgers: memory.NewLedgerStore()}
	}
	return api.NewRouter(deps, api.RouterOptions{Logger: zerolog.Nop()}), deps
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[models.ErrorResponse](t, w).Error.Code
}

func TestHealth(t *testing.T) {
	r, _ := newServer(t, false)
	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSimulate_StoresRunAndLedger(t *testing.T) {
	r, _ := newServer(t, true)

	w := do(t, r, http.MethodPost, "/api/v1/simulate", map[string]any{
		"config":         map[string]any{"scenario": "good"},
		"include_ledger": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		ID       string           `json:"id"`
		Status   string           `json:"status"`
		Horizon  int              `json:"horizon_days"`
		Seed     uint64           `json:"seed"`
		Scenario string           `json:"scenario"`
		Ledger   []map[string]any `json:"ledger"`
	}](t, w)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 30, resp.Horizon)
	assert.Equal(t, uint64(7), resp.Seed)
	assert.Equal(t, "good", resp.Scenario)
	assert.Len(t, resp.Ledger, 30)
	// year inflation is undefined inside the first year
	assert.Nil(t, resp.Ledger[29]["year_inflation"])
	_, err := uuid.Parse(resp.ID)
	require.NoError(t, err)

	w = do(t, r, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[struct {
		Runs []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"runs"`
	}](t, w)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, resp.ID, runs.Runs[0].ID)
	assert.Equal(t, storage.KindSimulate, runs.Runs[0].Kind)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+resp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scenario":"good"`)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+resp.ID+"/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ledger := decode[struct {
		ID     string           `json:"id"`
		Ledger []map[string]any `json:"ledger"`
	}](t, w)
	assert.Equal(t, resp.ID, ledger.ID)
	require.Len(t, ledger.Ledger, 30)
	assert.Equal(t, resp.Ledger[10]["circ_supply"], ledger.Ledger[10]["circ_supply"])
}

func TestSimulate_PersistOff(t *testing.T) {
	r, _ := newServer(t, true)
	w := do(t, r, http.MethodPost, "/api/v1/simulate", map[string]any{"config": map[string]any{}, "persist": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"id"`)
	assert.NotContains(t, w.Body.String(), `"ledger"`)

	w = do(t, r, http.MethodGet, "/api/v1/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())
}

func TestSimulate_Errors(t *testing.T) {
	r, _ := newServer(t, true)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"malformed json", `{"config":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"rate out of range", map[string]any{"config": map[string]any{"staking": map[string]any{"staking_renewal_rate": 2}}}, http.StatusBadRequest, "INVALID_CONFIG"},
		{"unknown release function", map[string]any{"config": map[string]any{"staking": map[string]any{"release_rate": map[string]any{"function": "cubic"}}}}, http.StatusBadRequest, "INVALID_CONFIG"},
		{"unknown scenario", map[string]any{"config": map[string]any{"scenario": "meh"}}, http.StatusBadRequest, "INVALID_CONFIG"},
		{"horizon over limit", map[string]any{"config": map[string]any{"horizon_days": 401}}, http.StatusBadRequest, "INVALID_CONFIG"},
		{"local drivers file", map[string]any{"config": map[string]any{"drivers_file": "/etc/drivers.json"}}, http.StatusBadRequest, "INVALID_CONFIG"},
		{"local balances file", map[string]any{"config": map[string]any{"wallet_balances_file": "balances.csv"}}, http.StatusBadRequest, "INVALID_CONFIG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/simulate", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestSimulate_RemoteDrivers(t *testing.T) {
	var drivers bytes.Buffer
	require.NoError(t, json.NewEncoder(&drivers).Encode(map[string]any{
		"price":        repeat(0.1, 30),
		"service_fees": repeat(1000, 30),
		"tx_count":     repeat(100, 30),
		"validators":   repeat(5, 30),
	}))
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(drivers.Bytes())
	}))
	defer remote.Close()

	r, _ := newServer(t, false)
	w := do(t, r, http.MethodPost, "/api/v1/simulate", map[string]any{
		"config": map[string]any{"drivers_file": remote.URL + "/drivers.json"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/simulate", map[string]any{
		"config": map[string]any{"drivers_file": remote.URL + "/missing"},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))

	// fixed drivers cannot feed a Monte-Carlo study
	w = do(t, r, http.MethodPost, "/api/v1/montecarlo", map[string]any{
		"config": map[string]any{"drivers_file": remote.URL + "/drivers.json"},
		"runs":   2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONFIG", errorCode(t, w))
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRuns_Errors(t *testing.T) {
	r, _ := newServer(t, true)

	w := do(t, r, http.MethodGet, "/api/v1/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+uuid.NewString()+"/ledger", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/runs?limit=5000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))
}

func TestRuns_StorageDisabled(t *testing.T) {
	r, _ := newServer(t, false)
	for _, path := range []string{"/api/v1/runs", "/api/v1/runs/" + uuid.NewString(), "/api/v1/runs/" + uuid.NewString() + "/ledger"} {
		w := do(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Equal(t, "STORAGE_DISABLED", errorCode(t, w))
	}

	// simulate still works and returns no id
	w := do(t, r, http.MethodPost, "/api/v1/simulate", map[string]any{"config": map[string]any{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"id"`)
}

func TestMonteCarlo(t *testing.T) {
	r, _ := newServer(t, false)

	w := do(t, r, http.MethodPost, "/api/v1/montecarlo", map[string]any{
		"config":  map[string]any{"scenario": "base"},
		"runs":    4,
		"columns": []string{"circ_supply", "staking_tvl"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Runs      int `json:"runs"`
		Summaries []map[string]any `json:"summaries"`
		Bands     []struct {
			Column string    `json:"column"`
			Mean   []float64 `json:"mean"`
			P05    []float64 `json:"p05"`
			P95    []float64 `json:"p95"`
		} `json:"bands"`
	}](t, w)
	assert.Equal(t, 4, resp.Runs)
	assert.Len(t, resp.Summaries, 4)
	require.Len(t, resp.Bands, 2)
	assert.Equal(t, "circ_supply", resp.Bands[0].Column)
	require.Len(t, resp.Bands[0].Mean, 30)
	for d := range resp.Bands[0].Mean {
		assert.LessOrEqual(t, resp.Bands[0].P05[d], resp.Bands[0].P95[d])
	}

	w = do(t, r, http.MethodPost, "/api/v1/montecarlo", map[string]any{"runs": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))

	w = do(t, r, http.MethodPost, "/api/v1/montecarlo", map[string]any{"runs": 51})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONFIG", errorCode(t, w))

	w = do(t, r, http.MethodPost, "/api/v1/montecarlo", map[string]any{"runs": 2, "columns": []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONFIG", errorCode(t, w))
}

func TestSweep(t *testing.T) {
	r, _ := newServer(t, false)

	w := do(t, r, http.MethodPost, "/api/v1/sweep", map[string]any{
		"ranges": []map[string]any{
			{"name": "staking_renewal_rate", "values": []float64{0.5, 0.9}},
			{"name": "tipping_rate", "values": []float64{0.1, 0.3}},
		},
		"samples": 2,
		"rank_by": "staking_tvl",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Combinations int    `json:"combinations"`
		Samples      int    `json:"samples"`
		RankedBy     string `json:"ranked_by"`
		Runs         []struct {
			Combination int `json:"combination"`
			Sample      int `json:"sample"`
		} `json:"runs"`
		Ranking []struct {
			Combination int     `json:"combination"`
			Score       float64 `json:"score"`
		} `json:"ranking"`
	}](t, w)
	assert.Equal(t, 4, resp.Combinations)
	assert.Equal(t, 2, resp.Samples)
	assert.Equal(t, "staking_tvl", resp.RankedBy)
	assert.Len(t, resp.Runs, 8)
	require.Len(t, resp.Ranking, 4)
	for i := 1; i < len(resp.Ranking); i++ {
		assert.GreaterOrEqual(t, resp.Ranking[i-1].Score, resp.Ranking[i].Score)
	}

	w = do(t, r, http.MethodPost, "/api/v1/sweep", map[string]any{
		"ranges": []map[string]any{{"name": "not_a_param", "values": []float64{1}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONFIG", errorCode(t, w))

	w = do(t, r, http.MethodPost, "/api/v1/sweep", map[string]any{"ranges": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))

	// 11 combinations exceed the limit of 10
	values := make([]float64, 11)
	for i := range values {
		values[i] = float64(i) / 20
	}
	w = do(t, r, http.MethodPost, "/api/v1/sweep", map[string]any{
		"ranges": []map[string]any{{"name": "tipping_rate", "values": values}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONFIG", errorCode(t, w))
}

func TestSensitivity(t *testing.T) {
	r, _ := newServer(t, false)

	w := do(t, r, http.MethodPost, "/api/v1/sensitivity", map[string]any{
		"param":   "tipping_rate",
		"samples": 2,
		"columns": []string{"ecosystem_fund"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	one := decode[struct {
		Result *struct {
			Param   string               `json:"param"`
			Base    float64              `json:"base"`
			Samples int                  `json:"samples"`
			Values  map[string][]float64 `json:"values"`
		} `json:"result"`
		Profile json.RawMessage `json:"profile"`
	}](t, w)
	require.NotNil(t, one.Result)
	assert.Nil(t, one.Profile)
	assert.Equal(t, "tipping_rate", one.Result.Param)
	assert.InDelta(t, 0.3, one.Result.Base, 1e-12)
	assert.Equal(t, 2, one.Result.Samples)
	assert.Len(t, one.Result.Values["ecosystem_fund"], 30)

	w = do(t, r, http.MethodPost, "/api/v1/sensitivity", map[string]any{
		"param": "tipping_rate",
		"grid":  []float64{0.1, 0.2, 0.3},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	prof := decode[struct {
		Profile *struct {
			Grid   []float64         `json:"grid"`
			Points []json.RawMessage `json:"points"`
		} `json:"profile"`
	}](t, w)
	require.NotNil(t, prof.Profile)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, prof.Profile.Grid)
	assert.Len(t, prof.Profile.Points, 3)

	w = do(t, r, http.MethodPost, "/api/v1/sensitivity", map[string]any{"param": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONFIG", errorCode(t, w))

	w = do(t, r, http.MethodPost, "/api/v1/sensitivity", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))
}

func TestCatalog(t *testing.T) {
	r, _ := newServer(t, false)

	w := do(t, r, http.MethodGet, "/api/v1/scenarios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	scenarios := decode[struct {
		Scenarios []struct {
			Name string `json:"name"`
		} `json:"scenarios"`
	}](t, w)
	require.Len(t, scenarios.Scenarios, len(scenario.Names))
	assert.Equal(t, scenario.Names[0], scenarios.Scenarios[0].Name)

	w = do(t, r, http.MethodGet, "/api/v1/release-functions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, name := range []string{"linear", "sigmoid", "fractional", "fractional_convex"} {
		assert.Contains(t, w.Body.String(), `"name":"`+name+`"`)
	}

	w = do(t, r, http.MethodGet, "/api/v1/parameters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	params := decode[struct {
		Parameters []struct {
			Name    string  `json:"name"`
			Integer bool    `json:"integer"`
			Default float64 `json:"default"`
		} `json:"parameters"`
	}](t, w)
	byName := map[string]float64{}
	for _, p := range params.Parameters {
		byName[p.Name] = p.Default
		if p.Name == "min_stake_duration" {
			assert.True(t, p.Integer)
		}
	}
	assert.Equal(t, 0.3, byName["tipping_rate"])
	assert.Equal(t, 14.0, byName["min_stake_duration"])
}

func TestMetricsAndNotFound(t *testing.T) {
	r, _ := newServer(t, false)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/v1/simulate", map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/simulate", map[string]any{"config": map[string]any{"horizon_days": -1}}).Code)

	w := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `test_runs_total{kind="simulate",outcome="ok"} 1`)
	assert.Contains(t, body, `test_runs_total{kind="simulate",outcome="error"} 1`)

	w = do(t, r, http.MethodGet, "/api/v2/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newServer(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/simulate", strings.NewReader(""))
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
