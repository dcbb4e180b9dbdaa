package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/handler"
	"github.com/stemsi/exstem-selftest/internal/middleware"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/response"
	"github.com/stemsi/exstem-selftest/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Public  *handler.PublicHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
	Bank    *handler.BankHandler
	Review  *handler.ReviewHandler
	Media   *handler.MediaHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	sessionService *service.SessionService,
	handlers *Handlers,
	cfg *config.Config,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	// Question images are immutable once uploaded.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{
			"status":        "ok",
			"live_sessions": sessionService.Count(),
		})
	})

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	{
		publicAPI.GET("/sample-bank", handlers.Public.SampleBank)
	}

	intentLimiter := middleware.NewRateLimiter(cfg.IntentRateLimit, time.Second)
	sessionOwner := middleware.RequireSessionOwner(sessionService)

	// ─── 1. Learner Group (JWT) ────────────────────────────────────────
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(middleware.RequireLearnerJWT(authService))
	{
		learnerAPI.POST("/sessions", handlers.Session.CreateSession)
		learnerAPI.GET("/sessions/:session_id", sessionOwner, handlers.Session.GetSession)
		learnerAPI.POST("/sessions/:session_id/intents",
			intentLimiter.Middleware(),
			sessionOwner,
			handlers.Session.DispatchIntent,
		)
		learnerAPI.DELETE("/sessions/:session_id", sessionOwner, handlers.Session.EndSession)

		learnerAPI.GET("/attempts", handlers.Session.ListAttempts)
		learnerAPI.GET("/attempts/:attempt_id", handlers.Session.GetAttempt)
	}

	// ─── 2. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(authService))
	{
		ws.GET("/learner/sessions/:session_id/stream", sessionOwner, handlers.WS.SessionStream)
	}

	// ─── 3. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.POST("/media/upload",
			middleware.RequirePermission(model.PermissionMediaUpload),
			handlers.Media.UploadMedia,
		)

		// Question banks
		adminAPI.GET("/banks",
			middleware.RequirePermission(model.PermissionBanksRead),
			handlers.Bank.ListBanks,
		)
		adminAPI.POST("/banks",
			middleware.RequirePermission(model.PermissionBanksWrite),
			handlers.Bank.CreateBank,
		)
		adminAPI.GET("/banks/:bank_id",
			middleware.RequirePermission(model.PermissionBanksRead),
			handlers.Bank.GetBank,
		)
		adminAPI.PUT("/banks/:bank_id/questions",
			middleware.RequirePermission(model.PermissionBanksWrite),
			handlers.Bank.ReplaceQuestions,
		)
		adminAPI.POST("/banks/:bank_id/refresh-cache",
			middleware.RequirePermission(model.PermissionBanksWrite),
			handlers.Bank.RefreshCache,
		)
		adminAPI.GET("/banks/:bank_id/results.xlsx",
			middleware.RequirePermission(model.PermissionBanksRead),
			handlers.Bank.ExportResults,
		)

		// Essay reviews
		adminAPI.GET("/reviews",
			middleware.RequirePermission(model.PermissionReviewsGrade),
			handlers.Review.ListPending,
		)
		adminAPI.POST("/reviews/:review_id/grade",
			middleware.RequirePermission(model.PermissionReviewsGrade),
			handlers.Review.GradeReview,
		)

		// System Monitoring
		adminAPI.GET("/system/metrics",
			handlers.System.SystemMetricsSSE, // Open to all admins
		)
	}

	return router
}
