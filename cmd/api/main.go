package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"supply-forecast/internal/api"
	"supply-forecast/internal/api/handlers"
	"supply-forecast/internal/config"
	"supply-forecast/internal/data"
	"supply-forecast/internal/logging"
	"supply-forecast/internal/observability"
	"supply-forecast/internal/storage/backend"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	log, err := logging.FromEnv(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("api server stopped")
	}
}

func run(log zerolog.Logger) error {
	// Get configuration from environment
	port := envOr("API_PORT", "8080")
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	defaults := config.Config{HorizonDays: 3 * 365, Seed: 1}
	if path := os.Getenv("API_CONFIG"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		defaults = *cfg
		log.Info().Str("path", path).Msg("default config loaded")
	}

	archive, closeArchive, err := backend.Open(ctx, backend.Options{
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN: os.Getenv("CLICKHOUSE_DSN"),
		Memory:        os.Getenv("STORAGE") == "memory",
	})
	if err != nil {
		return err
	}
	defer closeArchive()
	if archive == nil {
		log.Warn().Msg("no run storage configured; /api/v1/runs is disabled")
	}

	cacheTTL, err := time.ParseDuration(envOr("DRIVER_CACHE_TTL", "10m"))
	if err != nil {
		return fmt.Errorf("DRIVER_CACHE_TTL: %w", err)
	}
	workers, err := strconv.Atoi(envOr("WORKERS", strconv.Itoa(runtime.NumCPU())))
	if err != nil {
		return fmt.Errorf("WORKERS: %w", err)
	}

	deps := &handlers.Deps{
		Defaults: defaults,
		Archive:  archive,
		Cache:    data.NewDriverCache(cacheTTL),
		Drivers:  data.NewDriverClient(os.Getenv("DRIVERS_TOKEN"), log),
		Metrics:  observability.NewMetrics("supply_forecast", nil),
		Workers:  workers,
		Limits:   handlers.DefaultLimits(),
	}
	router := api.NewRouter(deps, api.RouterOptions{
		Logger:      log,
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
	})

	if cacheTTL > 0 {
		go pruneCache(ctx, deps.Cache, cacheTTL)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting api server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pruneCache(ctx context.Context, cache *data.DriverCache, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cache.Prune()
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
