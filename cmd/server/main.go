package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/api"
	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"github.com/yourusername/mediafetch-go/internal/telemetry"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: ./configs/config.yaml)")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(config, log); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}

func run(config *domain.Config, log *zap.Logger) error {
	log.Info("Starting mediafetch server",
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("temp_dir", config.Download.TempDir),
		zap.Int("max_concurrent", config.Download.MaxConcurrent),
		zap.Int("proxies", len(config.Egress.Proxies)))

	var multiLog *logger.MultiLogger
	if config.Logging.LogsDir != "" {
		ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize job logs: %w", err)
		}
		defer ml.Close()
		multiLog = ml
	}

	store, err := infrastructure.NewArtifactStore(config.Download.TempDir, config.Download.Expiry(), log)
	if err != nil {
		return err
	}

	repo, err := infrastructure.NewSQLiteRepository(config.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	client := infrastructure.NewYTDLPClient(&config.Extractor, config.Egress.UserAgents, log)
	caps := client.Capabilities()
	if !caps.ExtractorAvailable {
		log.Warn("Extraction engine not found on PATH", zap.String("binary", config.Extractor.Binary))
	}
	if !caps.TranscoderAvailable {
		log.Warn("FFmpeg not found, audio conversion and subtitle features are disabled")
	}

	selector := app.NewEgressSelector(&config.Egress, repo, log)
	if err := selector.Load(); err != nil {
		log.Warn("Failed to restore egress statistics", zap.Error(err))
	}

	var session domain.SessionCookieProvider
	if config.Credentials.LoginURL != "" {
		session = infrastructure.NewSessionLoginClient(config.Credentials.LoginURL, config.Credentials.LoginTimeout, log)
	}
	credentials, err := app.NewCredentialResolver(&config.Credentials, session, log)
	if err != nil {
		return err
	}

	gate := app.NewConcurrencyGate(config.Download.MaxConcurrent)

	orchestrator := app.NewOrchestrator(client, store, selector, credentials, gate, &config.Download, log).
		WithJobRepository(repo).
		WithEventLogger(multiLog)

	var metrics *telemetry.Metrics
	if config.Metrics.Enabled {
		metrics = telemetry.NewMetrics()
		orchestrator.WithMetrics(metrics)
	}

	cache, closeCache, err := newMetadataCache(&config.Cache, log)
	if err != nil {
		return err
	}
	defer closeCache()
	if cache != nil {
		orchestrator.WithCache(cache, config.Cache.TTL)
	}

	sweeper := app.NewSweeper(store, log)
	if config.Cleanup.OnStartup {
		sweeper.Sweep()
	}
	if err := sweeper.Start(config.Cleanup.Schedule); err != nil {
		return err
	}

	router := api.SetupRouter(api.Services{
		Media:     orchestrator,
		Prober:    client,
		Store:     store,
		Sweeper:   sweeper,
		Selector:  selector,
		Gate:      gate,
		Jobs:      repo,
		Metrics:   metrics,
		EventLog:  multiLog,
		RateLimit: config.RateLimit,
		Origins:   config.Server.CORSOrigins,
		Logger:    log,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sweeper.Stop(shutdownCtx)

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

// newMetadataCache builds the configured cache; a nil cache disables caching
func newMetadataCache(cfg *domain.CacheConfig, log *zap.Logger) (domain.MetadataCache, func(), error) {
	switch cfg.Driver {
	case "redis":
		client, err := infrastructure.NewRedisClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		cache := infrastructure.NewRedisCache(client, log)
		log.Info("Using redis metadata cache", zap.String("address", cfg.RedisAddress))
		return cache, func() { cache.Close() }, nil
	case "none":
		return nil, func() {}, nil
	default:
		return infrastructure.NewMemoryCache(cfg.MaxEntries), func() {}, nil
	}
}
