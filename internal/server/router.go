package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/brandpulse-backend/internal/handlers"
	"github.com/yungbote/brandpulse-backend/internal/middleware"
	"github.com/yungbote/brandpulse-backend/internal/utils"
)

type RouterConfig struct {
	AuthHandler         *handlers.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	BrandProfileHandler *handlers.BrandProfileHandler
	PersonaHandler      *handlers.PersonaHandler
	PostHandler         *handlers.PostHandler
	SimulationHandler   *handlers.SimulationHandler
	SSEHandler          *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(utils.GetEnv("OTEL_SERVICE_NAME", "brandpulse-backend", nil)))

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
	protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
	protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)

	api := protected.Group("/api")
	// Brand profile
	api.PUT("/brand-profile", cfg.BrandProfileHandler.Upsert)
	api.GET("/brand-profile", cfg.BrandProfileHandler.Get)
	// Audience panel
	api.POST("/personas", cfg.PersonaHandler.Create)
	api.GET("/personas", cfg.PersonaHandler.List)
	// Posts
	api.POST("/posts", cfg.PostHandler.Create)
	api.GET("/posts", cfg.PostHandler.List)
	// Simulations
	api.POST("/simulations", cfg.SimulationHandler.Trigger)
	api.GET("/simulations/ranking", cfg.SimulationHandler.GetRanking)
	api.GET("/simulations/:id", cfg.SimulationHandler.GetRun)

	return router
}
