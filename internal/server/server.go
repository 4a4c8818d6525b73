// Package server provides the HTTP sidecar API for maskd.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maskd/internal/config"
	"github.com/fyrsmithlabs/maskd/internal/logging"
	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

// Server exposes the masking engine over HTTP. Registration endpoints go
// through a LoggedMasker so every dictionary change leaves an origin-tagged
// trace; scan endpoints delegate to the same engine.
type Server struct {
	echo    *echo.Echo
	masker  *masker.LoggedMasker
	logger  *logging.Logger
	config  *config.ServerConfig
	metrics *HTTPMetrics
	limiter *clientLimiter
}

// NewServer creates the sidecar server.
func NewServer(m *masker.LoggedMasker, logger *logging.Logger, cfg *config.ServerConfig) (*Server, error) {
	if m == nil {
		return nil, fmt.Errorf("masker cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		def := config.NewDefaultConfig()
		cfg = &def.Server
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		masker:  m,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(logger),
		limiter: newClientLimiter(cfg.RateLimit, cfg.RateBurst),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.bodyLimit())
	e.Use(s.limiter.Middleware())
	e.Use(s.metrics.Middleware())
	e.Use(s.requestLogger())

	s.registerRoutes()

	return s, nil
}

// requestLogger logs one line per request. Request bodies are never logged:
// they may contain secrets that are not yet registered with the engine.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			s.logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	}
}

// bodyLimit caps request body size.
func (s *Server) bodyLimit() echo.MiddlewareFunc {
	limit := s.config.MaxBodyBytes
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.ContentLength > limit {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
			}
			req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)
			return next(c)
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")
	v1.POST("/mask", s.handleMask)
	v1.POST("/secrets", s.handleAddSecrets)
	v1.POST("/patterns", s.handleAddPatterns)
	v1.POST("/secrets/prune", s.handlePrune)
	v1.PUT("/min-length", s.handleMinLength)
}

// MaskRequest is the request body for POST /v1/mask.
type MaskRequest struct {
	Inputs []string `json:"inputs"`
}

// MaskResponse is the response body for POST /v1/mask. Changed counts the
// inputs that needed redaction, not individual matches.
type MaskResponse struct {
	Outputs []string `json:"outputs"`
	Changed int      `json:"changed"`
}

// SecretsRequest is the request body for POST /v1/secrets.
type SecretsRequest struct {
	Values []string `json:"values"`
	Origin string   `json:"origin"`
}

// PatternsRequest is the request body for POST /v1/patterns.
type PatternsRequest struct {
	Patterns []string `json:"patterns"`
	Origin   string   `json:"origin"`
}

// MinLengthRequest is the request body for PUT /v1/min-length.
type MinLengthRequest struct {
	MinLength int `json:"min_length"`
}

// MinLengthResponse reports the effective floor after clamping.
type MinLengthResponse struct {
	MinLength int `json:"min_length"`
}

// AcceptedResponse acknowledges a registration request. Counts refer to
// submitted entries, not dictionary growth: the response never reveals
// whether an entry was a duplicate or a rejected pattern.
type AcceptedResponse struct {
	Submitted int `json:"submitted"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleMask scans each input and returns the redacted form.
func (s *Server) handleMask(c echo.Context) error {
	var req MaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Inputs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "inputs field is required")
	}

	resp := MaskResponse{Outputs: make([]string, len(req.Inputs))}
	for i, input := range req.Inputs {
		resp.Outputs[i] = s.masker.MaskSecrets(input)
		if resp.Outputs[i] != input {
			resp.Changed++
		}
	}

	s.logger.Debug(c.Request().Context(), "masked inputs",
		zap.Int("inputs", len(req.Inputs)),
		zap.Int("changed", resp.Changed),
	)

	return c.JSON(http.StatusOK, resp)
}

// handleAddSecrets registers literal secret values. The values never
// appear in logs or in the response.
func (s *Server) handleAddSecrets(c echo.Context) error {
	var req SecretsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Values) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "values field is required")
	}

	origin := req.Origin
	if origin == "" {
		origin = "api"
	}
	for _, value := range req.Values {
		s.masker.AddValue(value, origin)
	}

	return c.JSON(http.StatusAccepted, AcceptedResponse{Submitted: len(req.Values)})
}

// handleAddPatterns registers detection patterns. Invalid patterns are
// dropped silently by the engine; the response acknowledges submission
// only.
func (s *Server) handleAddPatterns(c echo.Context) error {
	var req PatternsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Patterns) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "patterns field is required")
	}

	origin := req.Origin
	if origin == "" {
		origin = "api"
	}
	for _, pattern := range req.Patterns {
		s.masker.AddRegex(pattern, origin)
	}

	return c.JSON(http.StatusAccepted, AcceptedResponse{Submitted: len(req.Patterns)})
}

// handlePrune removes dictionary entries below the active length floor.
func (s *Server) handlePrune(c echo.Context) error {
	s.masker.RemoveShortSecrets()
	return c.NoContent(http.StatusNoContent)
}

// handleMinLength updates the length floor and reports the clamped value.
func (s *Server) handleMinLength(c echo.Context) error {
	var req MinLengthRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	s.masker.SetMinSecretLength(req.MinLength)
	return c.JSON(http.StatusOK, MinLengthResponse{MinLength: s.masker.MinSecretLength()})
}

// Echo exposes the underlying router for extra route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("localhost:%d", s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
