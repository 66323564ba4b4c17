// Package api exposes the decision-support HTTP surface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/auth"
	"github.com/dental-cdss-server/internal/config"
	"github.com/dental-cdss-server/internal/database"
	"github.com/dental-cdss-server/internal/domain"
	"github.com/dental-cdss-server/internal/feedback"
	"github.com/dental-cdss-server/internal/middleware"
	"github.com/dental-cdss-server/internal/service"
)

// Dependencies carries the services the server routes to.
type Dependencies struct {
	Rules       domain.RuleStore
	Records     domain.RecordStore
	Assessments *service.AssessmentService
	Similarity  *service.SimilaritySearch
	Snapshots   *service.SnapshotProvider
	Feedback    feedback.Store
	TokenIssuer *auth.TokenIssuer
	DB          *database.DB
}

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	deps   Dependencies
	logger *logrus.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, deps Dependencies, logger *logrus.Logger) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Correlation-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Correlation-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		router: router,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	rateLimiter := middleware.NewRateLimiter(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst)

	v1 := s.router.Group("/api/v1")
	v1.Use(rateLimiter.Handler())
	v1.Use(middleware.Authenticate(s.deps.TokenIssuer))
	{
		v1.POST("/records/:recordID/assessments", s.handleAssess)
		v1.GET("/records/:recordID/assessments", s.handleAssessmentHistory)
		v1.GET("/records/:recordID/assessments/latest", s.handleLatestAssessment)
		v1.GET("/records/:recordID/similar", s.handleSimilarCases)
		v1.POST("/assessments/simulate", s.handleSimulate)

		v1.GET("/rules", s.handleListRules)
		v1.GET("/rule-categories", s.handleListCategories)

		v1.POST("/feedback", s.handleSaveFeedback)
		v1.GET("/feedback", s.handleListFeedback)
		v1.GET("/feedback/stats", s.handleFeedbackStats)
		v1.GET("/assessments/:assessmentID/feedback", s.handleGetFeedback)

		admin := v1.Group("")
		admin.Use(middleware.RequireRole(auth.RoleAdmin))
		{
			admin.POST("/rules", s.handleCreateRule)
			admin.PUT("/rules/:id", s.handleUpdateRule)
		}
	}
}

// Start runs the server until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the underlying handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if s.deps.DB != nil {
		if err := s.deps.DB.Health(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
