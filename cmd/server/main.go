package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stwalsh4118/bellfinder/internal/config"
	"github.com/stwalsh4118/bellfinder/internal/database"
	apierrors "github.com/stwalsh4118/bellfinder/internal/errors"
	"github.com/stwalsh4118/bellfinder/internal/handlers"
	"github.com/stwalsh4118/bellfinder/internal/logger"
	"github.com/stwalsh4118/bellfinder/internal/metrics"
	"github.com/stwalsh4118/bellfinder/internal/middleware"
	"github.com/stwalsh4118/bellfinder/internal/repository"
	"github.com/stwalsh4118/bellfinder/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	seedTimeout     = 2 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{Env: cfg.Server.Env, Level: cfg.Server.LogLevel})
	log.Info("Starting Bell Finder API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	applied, err := db.Migrate(ctx)
	if err != nil {
		log.Fatal("Failed to apply database migrations", err, nil)
	}
	if len(applied) > 0 {
		log.Info("Database migrations applied", map[string]interface{}{
			"migrations": applied,
		})
	}

	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg = prometheus.DefaultRegisterer
	}
	m := metrics.New(reg)
	if reg != nil {
		metrics.RegisterPool(reg, func() metrics.PoolStats {
			s := db.Stats()
			return metrics.PoolStats{Total: s.TotalConns(), Acquired: s.AcquiredConns(), Idle: s.IdleConns()}
		})
	}
	clock := clockwork.NewRealClock()

	towerRepo := repository.NewTowerRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	prefsRepo := repository.NewPreferencesRepository(db)

	towerService := services.NewTowerService(towerRepo, visitRepo, prefsRepo, m, log, cfg.Nearby)
	visitService := services.NewVisitService(visitRepo, towerRepo, clock, log)
	prefsService := services.NewPreferencesService(prefsRepo, log)

	seedDirectory(ctx, cfg.Dove, towerService, towerRepo, m, log)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := apierrors.RegisterTranslations(v); err != nil {
			log.Warn("Validation messages fall back to defaults", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	router := gin.New()

	// Middleware order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log, m))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env, cfg.Dove.Version, clock)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	handlers.RegisterRoutes(
		router.Group("/api/v1"),
		handlers.NewTowerHandler(towerService, visitService),
		handlers.NewVisitHandler(visitService, clock),
		handlers.NewPreferencesHandler(prefsService),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}

// seedDirectory loads the bundled Dove file when needed. Failures are
// logged and the server starts with whatever directory is stored.
func seedDirectory(
	ctx context.Context,
	dove config.DoveConfig,
	towers services.TowerService,
	towerRepo repository.TowerRepository,
	m *metrics.Metrics,
	log *logger.Logger,
) {
	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	report, err := towers.SeedDove(ctx, dove.File, dove.Version)
	switch {
	case err != nil:
		log.Error("Failed to load bundled Dove file", err, map[string]interface{}{
			"path":    dove.File,
			"version": dove.Version,
		})
	case report != nil:
		log.Info("Tower directory loaded", map[string]interface{}{
			"towers":  report.Inserted,
			"skipped": len(report.Skipped),
			"version": report.Version,
		})
		return
	}

	count, err := towerRepo.CountTowers(ctx)
	if err != nil {
		log.Warn("Could not count towers", map[string]interface{}{"error": err.Error()})
		return
	}
	m.TowersLoaded.Set(float64(count))
}
