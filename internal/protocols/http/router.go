// Package http exposes the tracker over a gin REST API
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"codetracker/internal/core"
	"codetracker/pkg/config"
	"codetracker/pkg/logger"
)

// HealthChecker reports whether the statistics store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server manages the HTTP REST API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	authSvc     core.AuthService
	statsSvc    core.StatsService
	platformSvc core.PlatformService
	health      HealthChecker
}

// NewServer creates a new HTTP server with all handlers
func NewServer(
	cfg *config.Config,
	authSvc core.AuthService,
	statsSvc core.StatsService,
	platformSvc core.PlatformService,
	health HealthChecker,
) *Server {
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	s := &Server{
		router:      router,
		config:      cfg,
		authSvc:     authSvc,
		statsSvc:    statsSvc,
		platformSvc: platformSvc,
		health:      health,
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		user := v1.Group("/user", AuthMiddleware(s.authSvc))
		{
			user.GET("/stats", s.getUserStats)
			user.POST("/refresh-stats", s.refreshStats)
			user.PUT("/platforms", s.updatePlatforms)
			user.GET("/profile", s.getProfile)
			user.GET("/activity/:platform", s.getRecentActivity)
			user.DELETE("/account", s.deleteAccount)
		}
	}
}

// Start serves until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Infof("HTTP server listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
