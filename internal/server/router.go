package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docreview-backend/internal/handlers"
	"github.com/yungbote/docreview-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	ReviewHandler  *handlers.ReviewHandler
	FileHandler    *handlers.FileHandler
	FolderHandler  *handlers.FolderHandler
	StreamHandler  *handlers.StreamHandler
	SocketHandler  *handlers.SocketHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

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
	router.POST("/api/auth/register", cfg.AuthHandler.Register)
	router.POST("/api/auth/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	api := protected.Group("/api")

	// Auth
	api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	api.POST("/auth/logout", cfg.AuthHandler.Logout)
	api.GET("/auth/me", cfg.AuthHandler.Me)

	// Folders
	api.POST("/folders", cfg.FolderHandler.Create)
	api.GET("/folders", cfg.FolderHandler.List)
	api.GET("/folders/:id", cfg.FolderHandler.Get)
	api.DELETE("/folders/:id", cfg.FolderHandler.Delete)

	// Files
	api.POST("/files", cfg.FileHandler.Register)
	api.GET("/files", cfg.FileHandler.List)
	api.GET("/files/:id", cfg.FileHandler.Get)
	api.POST("/files/:id/text", cfg.FileHandler.IngestText)
	api.DELETE("/files/:id", cfg.FileHandler.Delete)

	// Reviews
	api.POST("/reviews", cfg.ReviewHandler.Create)
	api.GET("/reviews", cfg.ReviewHandler.List)
	api.GET("/reviews/summary", cfg.ReviewHandler.Summary)
	api.GET("/reviews/:id", cfg.ReviewHandler.Get)
	api.DELETE("/reviews/:id", cfg.ReviewHandler.Delete)
	api.POST("/reviews/:id/analyze", cfg.ReviewHandler.Analyze)
	api.GET("/reviews/:id/status", cfg.ReviewHandler.Status)
	api.GET("/reviews/:id/stats", cfg.ReviewHandler.Stats)
	api.POST("/reviews/:id/files", cfg.ReviewHandler.AddFiles)
	api.POST("/reviews/:id/columns", cfg.ReviewHandler.AddColumn)
	api.PUT("/reviews/:id/columns/:columnId", cfg.ReviewHandler.UpdateColumn)
	api.DELETE("/reviews/:id/columns/:columnId", cfg.ReviewHandler.DeleteColumn)
	api.PUT("/reviews/:id/results/:resultId", cfg.ReviewHandler.UpdateResult)
	api.GET("/reviews/:id/export", cfg.ReviewHandler.Export)

	// Realtime
	api.GET("/reviews/:id/stream", cfg.StreamHandler.Stream)
	api.GET("/reviews/:id/ws", cfg.SocketHandler.Socket)

	return router
}
