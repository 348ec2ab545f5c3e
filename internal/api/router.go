// Package api wires the HTTP routes of the forecast service.
package api

import (
	"net/http"

	"supply-forecast/internal/api/handlers"
	"supply-forecast/internal/api/middleware"
	"supply-forecast/internal/api/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterOptions configure NewRouter.
type RouterOptions struct {
	Logger      zerolog.Logger
	CORSOrigins []string
}

// NewRouter builds the gin engine serving every route.
func NewRouter(deps *handlers.Deps, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(opts.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Errors())
	router.Use(middleware.CORS(opts.CORSOrigins))

	simulation := handlers.NewSimulationHandler(deps)
	studies := handlers.NewAnalysisHandler(deps)
	catalog := handlers.NewCatalogHandler()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": deps.Archive != nil})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/simulate", simulation.Simulate)
		v1.GET("/runs", simulation.ListRuns)
		v1.GET("/runs/:id", simulation.GetRun)
		v1.GET("/runs/:id/ledger", simulation.GetLedger)

		v1.POST("/montecarlo", studies.MonteCarlo)
		v1.POST("/sweep", studies.Sweep)
		v1.POST("/sensitivity", studies.Sensitivity)

		v1.GET("/scenarios", catalog.ListScenarios)
		v1.GET("/release-functions", catalog.ListReleaseFunctions)
		v1.GET("/parameters", catalog.ListParameters)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	})
	return router
}
