package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/api/handlers"
	"github.com/yourusername/mediafetch-go/api/middleware"
	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"github.com/yourusername/mediafetch-go/internal/telemetry"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

// Services bundles everything the HTTP surface depends on. Jobs, Metrics and
// EventLog are optional; their routes are only mounted when set.
type Services struct {
	Media     handlers.MediaService
	Prober    handlers.CapabilityProber
	Store     *infrastructure.ArtifactStore
	Sweeper   *app.Sweeper
	Selector  *app.EgressSelector
	Gate      *app.ConcurrencyGate
	Jobs      domain.JobRepository
	Metrics   *telemetry.Metrics
	EventLog  *logger.MultiLogger
	RateLimit domain.RateLimitConfig
	Origins   []string // CORS origins, empty allows all
	Logger    *zap.Logger
}

// SetupRouter sets up the HTTP router
func SetupRouter(s Services) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(logger.NewLoggerAdapter(s.Logger, s.EventLog)))
	router.Use(middleware.Recovery(s.Logger))
	router.Use(middleware.CORS(s.Origins))

	infoLimit, downloadLimit := rateLimits(s.RateLimit, s.Logger)

	media := handlers.NewMediaHandler(s.Media, s.Logger)
	files := handlers.NewFileHandler(s.Store, s.Logger)
	admin := handlers.NewAdminHandler(s.Sweeper, s.Selector, s.Logger)
	health := handlers.NewHealthHandler(s.Prober, s.Store, s.Gate)

	api := router.Group("/api")
	{
		api.POST("/extract", append(infoLimit, media.Extract)...)
		api.POST("/batch", append(infoLimit, media.Batch)...)
		api.POST("/download", append(downloadLimit, media.Download)...)
		api.POST("/stream", append(downloadLimit, media.Stream)...)

		api.GET("/file/:id/:name", files.GetFile)

		api.POST("/cleanup", admin.Cleanup)
		api.GET("/egress", admin.Egress)

		api.GET("/health", health.Health)
		api.GET("/ready", health.Ready)

		if s.Jobs != nil {
			jobs := handlers.NewJobHandler(s.Jobs, s.Logger)
			api.GET("/jobs/stats", jobs.GetStats)
			api.GET("/jobs/:id", jobs.GetJob)
		}

		if s.EventLog != nil {
			logsDir := s.EventLog.GetLogsDir()
			logHandler := handlers.NewLogHandler(logsDir)
			logStream := handlers.NewLogStreamHandler(logsDir, s.Logger)
			logs := api.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
				logs.GET("/:category/stream", logStream.Stream)
			}
		}
	}

	if s.Metrics != nil {
		router.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "not found"})
	})

	return router
}

// rateLimits builds the per-client limiters for info and download routes
func rateLimits(cfg domain.RateLimitConfig, log *zap.Logger) (info, download []gin.HandlerFunc) {
	if !cfg.Enabled {
		return nil, nil
	}
	infoLimiter := middleware.NewClientRateLimiter(cfg.InfoRequests, cfg.InfoWindow,
		"Too many requests, please try again later", log)
	downloadLimiter := middleware.NewClientRateLimiter(cfg.DownloadLimit, cfg.DownloadWindow,
		"Too many download requests, please try again later", log)
	return []gin.HandlerFunc{infoLimiter.Middleware()}, []gin.HandlerFunc{downloadLimiter.Middleware()}
}
