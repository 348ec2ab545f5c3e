package handlers

import (
	"context"
	"fmt"

	"supply-forecast/internal/config"
	"supply-forecast/internal/data"
	"supply-forecast/internal/model"
	"supply-forecast/internal/observability"
	"supply-forecast/internal/process"
	"supply-forecast/internal/storage"

	"github.com/gin-gonic/gin"
)

// Limits bound the work a single request may ask for.
type Limits struct {
	MaxHorizon      int
	MaxRuns         int
	MaxCombinations int
}

// DefaultLimits allow 30-year horizons and a thousand runs per request.
func DefaultLimits() Limits {
	return Limits{MaxHorizon: 30 * 365, MaxRuns: 1000, MaxCombinations: 1000}
}

// Deps are the services shared by every handler.
type Deps struct {
	// Defaults is the base config each request is merged over.
	Defaults config.Config
	// Archive is nil when no store is configured.
	Archive *storage.Archive
	Cache   *data.DriverCache
	Drivers *data.DriverClient
	Metrics *observability.Metrics
	Workers int
	Limits  Limits
}

// prepared is a request config resolved into a runnable forecast.
type prepared struct {
	doc     config.Config
	builder *model.ConfigBuilder
	cfg     model.SimulationConfig
	gen     *process.Generator
	fixed   *model.DriverVector
}

func (d *Deps) prepare(ctx context.Context, req config.Config) (*prepared, error) {
	if req.WalletBalancesFile != "" || (req.DriversFile != "" && !data.IsURL(req.DriversFile)) {
		return nil, fmt.Errorf("%w: local files are not accepted over the API", model.ErrConfig)
	}
	doc := config.Merge(d.Defaults, req)
	if d.Limits.MaxHorizon > 0 && doc.HorizonDays > d.Limits.MaxHorizon {
		return nil, fmt.Errorf("%w: horizon_days %d exceeds the limit of %d", model.ErrConfig, doc.HorizonDays, d.Limits.MaxHorizon)
	}

	b, drivers, err := doc.ToBuilder()
	if err != nil {
		return nil, err
	}
	cfg, err := b.Clone().Build()
	if err != nil {
		return nil, err
	}
	p := &prepared{doc: doc, builder: b, cfg: cfg}

	if doc.DriversFile != "" {
		v, err := data.OpenDrivers(ctx, d.Drivers, doc.DriversFile)
		if err != nil {
			return nil, err
		}
		p.fixed = &v
		return p, nil
	}
	if p.gen, err = process.NewGenerator(drivers); err != nil {
		return nil, fmt.Errorf("%w: drivers: %v", model.ErrConfig, err)
	}
	return p, nil
}

// drivers returns the fixed path or the (cached) generated one for the config seed.
func (p *prepared) drivers(cache *data.DriverCache) (model.DriverVector, error) {
	if p.fixed != nil {
		return *p.fixed, nil
	}
	return cache.Generate(p.gen, p.cfg.Horizon(), p.doc.Seed)
}

// generator rejects fixed driver paths for studies that draw many samples.
func (p *prepared) generator() (*process.Generator, error) {
	if p.gen == nil {
		return nil, fmt.Errorf("%w: drivers_file fixes one driver path; this study needs generated drivers", model.ErrConfig)
	}
	return p.gen, nil
}

// checkLimit ignores non-positive limits.
func checkLimit(what string, n, limit int) error {
	if limit > 0 && n > limit {
		return fmt.Errorf("%w: %s %d exceeds the limit of %d", model.ErrConfig, what, n, limit)
	}
	return nil
}

// fail hands err to the Errors middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func failBind(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	c.Abort()
}
