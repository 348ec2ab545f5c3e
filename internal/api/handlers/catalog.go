package handlers

import (
	"net/http"

	"supply-forecast/internal/api/models"
	"supply-forecast/internal/model"
	"supply-forecast/internal/release"
	"supply-forecast/internal/scenario"

	"github.com/gin-gonic/gin"
)

// CatalogHandler lists the static choices a request can make.
type CatalogHandler struct{}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// ListScenarios handles GET /api/v1/scenarios
func (h *CatalogHandler) ListScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, models.ScenariosResponse{Scenarios: scenario.Infos()})
}

// ListReleaseFunctions handles GET /api/v1/release-functions
func (h *CatalogHandler) ListReleaseFunctions(c *gin.Context) {
	c.JSON(http.StatusOK, models.ReleaseFunctionsResponse{Functions: release.Functions()})
}

// ListParameters handles GET /api/v1/parameters
func (h *CatalogHandler) ListParameters(c *gin.Context) {
	defaults := model.DefaultParams()
	params := model.Parameters()
	out := make([]models.ParameterInfo, len(params))
	for i, p := range params {
		out[i] = models.ParameterInfo{Parameter: p, Default: p.Value(defaults)}
	}
	c.JSON(http.StatusOK, models.ParametersResponse{Parameters: out})
}
