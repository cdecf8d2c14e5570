package router

import (
	"net/http"
	"time"

	"github.com/cgpaplus/exam-core/internal/config"
	"github.com/cgpaplus/exam-core/internal/handler"
	"github.com/cgpaplus/exam-core/internal/metrics"
	"github.com/cgpaplus/exam-core/internal/middleware"
	"github.com/cgpaplus/exam-core/internal/response"
	"github.com/cgpaplus/exam-core/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam    *handler.ExamHandler
	Monitor *handler.MonitorHandler
	Archive *handler.ArchiveHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(m.Middleware())
	router.Use(middleware.Brotli())

	if handlers.System != nil {
		router.GET("/health", handlers.System.Health)
	} else {
		router.GET("/health", func(c *gin.Context) {
			response.Success(c, http.StatusOK, gin.H{"status": "ok"})
		})
	}
	if gatherer != nil {
		router.GET("/metrics", metrics.Handler(gatherer))
	}

	// A rejected tick leaves the stored answered count behind until the next
	// accepted one; after submit the completion write sets it to the total.
	progressLimiter := middleware.NewRateLimiter(cfg.ProgressRatePerSecond, cfg.ProgressRateBurst)

	// ─── 1. Participant Group (any authenticated user) ─────────────────
	exam := router.Group("/api/exam")
	exam.Use(middleware.RequireJWT(authService))
	{
		exam.GET("/status", handlers.Exam.GetStatus)
		exam.POST("/progress", progressLimiter.PerUser(), handlers.Exam.UpdateProgress)
		exam.POST("/submit", handlers.Exam.SubmitExam)
	}

	// ─── 2. Admin Group (JWT + admin role) ─────────────────────────────
	admin := router.Group("/api/exam")
	admin.Use(middleware.RequireJWT(authService), middleware.RequireAdmin())
	{
		admin.GET("/leaderboard", handlers.Monitor.GetLeaderboard)
		admin.GET("/live", handlers.Monitor.GetLiveView)
		admin.POST("/reset", handlers.Archive.ResetExam)
		admin.GET("/history", handlers.Archive.GetHistory)
		admin.DELETE("/history/:id", handlers.Archive.DeleteArchive)
	}

	return router
}
