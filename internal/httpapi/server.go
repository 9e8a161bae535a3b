// Package httpapi provides the HTTP API for pipelined.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"github.com/fyrsmithlabs/pipelined/internal/queue"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides HTTP endpoints for pipelined.
type Server struct {
	echo       *echo.Echo
	store      pipeline.Store
	dispatcher *queue.Dispatcher
	logger     *zap.Logger
	config     *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(store pipeline.Store, dispatcher *queue.Dispatcher, logger *zap.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9190,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			RequestDuration.Observe(duration.Seconds())
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:       e,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		config:     cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// Prometheus metrics
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.GET("/builds/:id", s.handleGetBuild)
	v1.POST("/builds/:id/run", s.handleRunBuild)
}

// RunBuildRequest is the optional request body for POST /api/v1/builds/:id/run.
type RunBuildRequest struct {
	ResumeFrom *int `json:"resume_from"`
}

// RunBuildResponse is the response body for POST /api/v1/builds/:id/run.
type RunBuildResponse struct {
	BuildID    string `json:"build_id"`
	ResumeFrom int    `json:"resume_from"`
	Accepted   bool   `json:"accepted"`
}

// BuildResponse is the response body for GET /api/v1/builds/:id.
type BuildResponse struct {
	ID                string             `json:"id"`
	Pipeline          pipeline.Kind      `json:"pipeline"`
	Status            pipeline.Status    `json:"status"`
	CurrentPhaseIndex int                `json:"current_phase_index"`
	VisualScore       int                `json:"visual_score"`
	VisualPassed      bool               `json:"visual_passed"`
	FixIteration      int                `json:"fix_iteration"`
	LastError         *pipeline.RunError `json:"last_error,omitempty"`
	InFlight          bool               `json:"in_flight"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleGetBuild returns the persisted state of one build.
func (s *Server) handleGetBuild(c echo.Context) error {
	buildID := c.Param("id")
	run, err := s.store.LoadRun(c.Request().Context(), buildID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "build not found")
	}

	return c.JSON(http.StatusOK, BuildResponse{
		ID:                run.ID,
		Pipeline:          run.Pipeline,
		Status:            run.Status,
		CurrentPhaseIndex: run.CurrentPhaseIndex,
		VisualScore:       run.VisualScore,
		VisualPassed:      run.VisualPassed,
		FixIteration:      run.FixIteration,
		LastError:         run.LastError,
		InFlight:          s.dispatcher.InFlight(run.ID),
		UpdatedAt:         run.UpdatedAt,
	})
}

// handleRunBuild submits one pipeline invocation for the build. The default
// resume point is the build's persisted phase index; the body may override it.
func (s *Server) handleRunBuild(c echo.Context) error {
	buildID := c.Param("id")
	run, err := s.store.LoadRun(c.Request().Context(), buildID)
	if err != nil {
		RunRequestsTotal.WithLabelValues("not_found").Inc()
		return echo.NewHTTPError(http.StatusNotFound, "build not found")
	}

	resumeFrom := run.CurrentPhaseIndex
	var req RunBuildRequest
	if err := c.Bind(&req); err != nil {
		RunRequestsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ResumeFrom != nil {
		resumeFrom = *req.ResumeFrom
	}

	// The invocation outlives the request; it runs on the server's lifetime,
	// not the request's.
	if err := s.dispatcher.Submit(context.WithoutCancel(c.Request().Context()), buildID, resumeFrom); err != nil {
		if errors.Is(err, queue.ErrBusy) {
			RunRequestsTotal.WithLabelValues("busy").Inc()
			return echo.NewHTTPError(http.StatusConflict, "build already running")
		}
		RunRequestsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	RunRequestsTotal.WithLabelValues("accepted").Inc()
	return c.JSON(http.StatusAccepted, RunBuildResponse{
		BuildID:    buildID,
		ResumeFrom: resumeFrom,
		Accepted:   true,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
