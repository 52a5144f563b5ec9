package router

import (
	"net/http"
	"time"

	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/handler"
	"github.com/examina/examina-backend/internal/middleware"
	"github.com/examina/examina-backend/internal/response"
	"github.com/examina/examina-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
	Exam    *handler.ExamHandler
	Result  *handler.ResultHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
	}

	// ─── 2. Catalog Group (JWT) ────────────────────────────────────────
	catalog := router.Group("/api/v1/products")
	catalog.Use(middleware.RequireJWT(authService))
	{
		catalog.GET("", handlers.Catalog.ListProducts)
		catalog.GET("/:product_id", handlers.Catalog.GetProduct)
	}

	// ─── 3. Exam Group (JWT + Single Device) ───────────────────────────
	exam := router.Group("/api/v1/exam")
	exam.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		exam.POST("/start", handlers.Exam.Start)
		exam.GET("/state", handlers.Exam.State)
		exam.POST("/answer", handlers.Exam.Answer)
		exam.POST("/next", handlers.Exam.Next)
		exam.POST("/previous", handlers.Exam.Previous)
		exam.POST("/finish", handlers.Exam.Finish)
		exam.POST("/abandon", handlers.Exam.Abandon)
	}

	// ─── 4. Results Group (JWT) ────────────────────────────────────────
	results := router.Group("/api/v1/results")
	results.Use(middleware.RequireJWT(authService))
	{
		results.GET("", handlers.Result.ListCompleted)
		results.GET("/:session_id", handlers.Result.GetResult)
	}

	// ─── 5. WebSocket Group (token via query param) ────────────────────
	wsAPI := router.Group("/ws/v1")
	wsAPI.Use(middleware.RequireWSAuth(authService))
	{
		wsAPI.GET("/exam/stream", handlers.WS.SessionStream)
	}

	return router
}
