package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/r2bridge/internal/api"
	"github.com/andresuchdata/r2bridge/internal/cache"
	"github.com/andresuchdata/r2bridge/internal/config"
	"github.com/andresuchdata/r2bridge/internal/metrics"
	"github.com/andresuchdata/r2bridge/internal/r2"
	"github.com/andresuchdata/r2bridge/internal/repository"
	"github.com/andresuchdata/r2bridge/internal/repository/postgres"
	"github.com/andresuchdata/r2bridge/internal/service"
	"github.com/andresuchdata/r2bridge/internal/transport"
	"github.com/andresuchdata/r2bridge/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Log.Level)
	if cfg.Log.JSON {
		logger.UseJSON(os.Stdout)
	}
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()

	httpClient := transport.NewHTTPClient(transport.Options{
		Timeout: cfg.R2.HTTPTimeout,
		Wrap:    m.InstrumentTransport,
	})
	client, err := r2.New(httpClient, r2.Options{
		StorageDomain:   cfg.R2.StorageDomain,
		StorageEndpoint: cfg.R2.StorageEndpoint,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize R2 client")
	}

	bucketCache, err := cache.NewBucketCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Bucket cache unavailable, continuing without cache")
		bucketCache = cache.NewNoopBucketCache()
	}

	audit := repository.NewNoopAuditRepository()
	if cfg.Audit.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		repo := postgres.NewAuditRepository(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to prepare audit schema")
		}
		audit = repo
	}

	storageService := service.NewStorageService(client, bucketCache, audit,
		service.WithDeleteConcurrency(cfg.R2.DeleteConcurrency))

	router := api.NewRouter(&api.Services{
		StorageService: storageService,
		Credential:     cfg.R2.Credential(),
		Metrics:        m,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	admin := &http.Server{
		Addr:    ":" + cfg.Server.AdminPort,
		Handler: adminRouter(m),
	}

	// Start servers in goroutines
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	go func() {
		logger.Log.Info().Str("port", cfg.Server.AdminPort).Msg("Starting admin listener")
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error().Err(err).Msg("Admin listener stopped")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := admin.Shutdown(ctx); err != nil {
		logger.Log.Warn().Err(err).Msg("Admin listener forced to shutdown")
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// adminRouter serves liveness and Prometheus scraping away from the public API.
func adminRouter(m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	return r
}
