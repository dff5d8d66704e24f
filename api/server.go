// Package api provides the HTTP surface of userhub: the middleware
// pipeline enforcing the gateway trust boundary and identity resolution,
// and the authentication endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nexa-sys/userhub/pkg/auth"
	"github.com/nexa-sys/userhub/pkg/config"
	"github.com/nexa-sys/userhub/pkg/identity"
	"github.com/nexa-sys/userhub/pkg/logger"
	"github.com/nexa-sys/userhub/pkg/users"
)

// Server represents the API server instance
type Server struct {
	config     *config.Config
	logger     logger.Logger
	router     *gin.Engine
	server     *http.Server
	flow       *auth.AuthenticationFlow
	issuer     *auth.BearerTokenIssuer
	repo       *users.Repository
	identities *identity.Builder
}

// NewServer creates a new API server instance. The configuration has been
// validated at startup; secrets inside it are read-only from here on.
func NewServer(cfg *config.Config, log logger.Logger, flow *auth.AuthenticationFlow, issuer *auth.BearerTokenIssuer, repo *users.Repository) *Server {
	if cfg.LogLevel == "error" || cfg.LogLevel == "warn" {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.IsTestEnvironment() {
		gin.SetMode(gin.TestMode)
	}

	router := gin.New()

	s := &Server{
		config:     cfg,
		logger:     log,
		router:     router,
		flow:       flow,
		issuer:     issuer,
		repo:       repo,
		identities: identity.NewBuilder(log),
	}

	if cfg.GatewaySecret == "" && !cfg.IsTestEnvironment() {
		// Running open weakens the trust boundary; say so once at startup
		log.Warn("gateway shared secret is not configured, gateway trust gate is disabled")
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures the request-processing pipeline. Order
// matters: the trust gate runs before any identity resolution, and the
// bearer stage runs before the identity builder that consumes its claims.
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	s.router.Use(cors.New(corsConfig))

	s.router.Use(s.gatewayTrustMiddleware())
	s.router.Use(s.bearerAuthMiddleware())
	s.router.Use(s.identityContextMiddleware())
}

// setupRoutes registers the HTTP endpoints
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	authGroup := s.router.Group("/auth")
	{
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/logout", s.handleLogout)
		authGroup.POST("/reset-password", s.handleResetPassword)
		authGroup.POST("/change-password", s.handleChangePassword)
	}

	userGroup := s.router.Group("/users")
	{
		userGroup.GET("/me", s.handleMe)
		userGroup.GET("/me/preferences", s.handleGetPreferences)
		userGroup.PUT("/me/preferences", s.handlePutPreferences)
	}
}

// Router exposes the underlying gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the API server and blocks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting API server", map[string]interface{}{
		"port":        s.config.HTTPPort,
		"environment": s.config.Environment,
	})

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Failed to start server", err)
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop gracefully stops the API server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
