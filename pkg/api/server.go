package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bpmflow/bpmflow/pkg/auth"
	"github.com/bpmflow/bpmflow/pkg/common/config"
	"github.com/bpmflow/bpmflow/pkg/observability"
)

// Server hosts the engine's HTTP surface
type Server struct {
	router *gin.Engine
	srv    *http.Server
	logger observability.Logger
}

// Deps carries everything the server wires into routes
type Deps struct {
	Workflows *WorkflowAPI
	Instances *InstanceAPI
	Forms     *FormAPI
	Directory *DirectoryAPI
	Verifier  *auth.Verifier
}

// NewServer builds the router: health endpoint open, everything else under
// /api/v1 behind auth and rate limiting
func NewServer(cfg config.APIConfig, env string, deps Deps, logger observability.Logger) *Server {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger.WithPrefix("http")))

	router.GET("/health", func(c *gin.Context) {
		respond(c, http.StatusOK, "ok", nil)
	})

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	if deps.Verifier != nil {
		v1.Use(AuthMiddleware(deps.Verifier))
	}

	deps.Workflows.RegisterRoutes(v1)
	deps.Instances.RegisterRoutes(v1)
	deps.Forms.RegisterRoutes(v1)
	deps.Directory.RegisterRoutes(v1)

	return &Server{
		router: router,
		srv: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.srv.Addr})
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
