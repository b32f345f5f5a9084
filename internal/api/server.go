// Package api provides the HTTP API of the toolbridge server.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/mcpjungle/toolbridge/internal/service/confirm"
	"github.com/mcpjungle/toolbridge/internal/service/mcp"
	"github.com/mcpjungle/toolbridge/internal/service/orchestrator"
	"github.com/mcpjungle/toolbridge/internal/telemetry"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/mcpjungle/toolbridge/pkg/version"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	V0PathPrefix    = "/v0"
	V0ApiPathPrefix = "/api" + V0PathPrefix
)

type ServerOptions struct {
	// Port is the HTTP port to bind the server to
	Port string

	MCPService *mcp.MCPService

	// Broker parks confirmation requests until they are resolved through the API.
	// A new broker is created when nil.
	Broker *confirm.Broker

	// AccessToken, when set, must be sent as a bearer token on every /api/v0 request.
	AccessToken string

	OtelProviders *telemetry.Providers
	Metrics       telemetry.CustomMetrics
	Logger        *zap.Logger
}

// Server represents the toolbridge API server
type Server struct {
	port   string
	router *gin.Engine

	mcpService  *mcp.MCPService
	broker      *confirm.Broker
	accessToken string

	// runs holds the invocation aggregate of every tool-calls stream in progress, keyed by run id.
	runs sync.Map

	otelProviders *telemetry.Providers
	metrics       telemetry.CustomMetrics
	logger        *zap.Logger
}

// NewServer initializes a new Gin server for the toolbridge API
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.MCPService == nil {
		return nil, errors.New("mcp service is required")
	}
	if opts.AccessToken != "" {
		if err := ValidateAccessToken(opts.AccessToken); err != nil {
			return nil, fmt.Errorf("invalid access token: %w", err)
		}
	}

	s := &Server{
		port:          opts.Port,
		mcpService:    opts.MCPService,
		broker:        opts.Broker,
		accessToken:   opts.AccessToken,
		otelProviders: opts.OtelProviders,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopCustomMetrics()
	}
	if s.broker == nil {
		s.broker = confirm.NewBroker(s.logger)
	}

	s.router = s.setupRouter()
	return s, nil
}

// Handler returns the HTTP handler serving all API routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the Gin server (blocking call)
func (s *Server) Start() error {
	if err := s.router.Run(":" + s.port); err != nil {
		return fmt.Errorf("failed to run the server: %w", err)
	}
	return nil
}

func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	if s.otelProviders != nil && s.otelProviders.IsEnabled() {
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))
		r.GET("/metrics", gin.WrapH(s.otelProviders.MetricsHandler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metadata", func(c *gin.Context) {
		c.JSON(http.StatusOK, &types.ServerMetadata{Version: version.GetVersion()})
	})

	apiV0 := r.Group(V0ApiPathPrefix)
	if s.accessToken != "" {
		apiV0.Use(s.requireAccessToken())
	}
	{
		apiV0.GET("/servers", s.listServersHandler())
		apiV0.POST("/servers", s.registerServerHandler())
		apiV0.DELETE("/servers/:name", s.deregisterServerHandler())
		apiV0.POST("/servers/:name/activate", s.activateServerHandler())
		apiV0.PUT("/servers/:name/auto-approve", s.setAutoApproveHandler())

		apiV0.GET("/tools", s.listToolsHandler())
		apiV0.POST("/tools/enable", s.enableToolsHandler())
		apiV0.POST("/tools/disable", s.disableToolsHandler())

		apiV0.POST("/tool-calls", s.toolCallsHandler())

		apiV0.GET("/runs/:run", s.getRunHandler())
		apiV0.GET("/runs/:run/confirmations", s.listConfirmationsHandler())
		apiV0.POST("/runs/:run/confirmations/:id", s.confirmHandler())
	}

	return r
}

// newOrchestrator builds the orchestrator of one run. Confirmations are scoped to the run id.
func (s *Server) newOrchestrator(runID string) *orchestrator.Orchestrator {
	return orchestrator.New(&orchestrator.Config{
		Servers:   s.mcpService,
		Executor:  s.mcpService,
		Confirmer: s.broker.Scoped(runID),
		Logger:    s.logger.With(zap.String("run_id", runID)),
		Metrics:   s.metrics,
	})
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, mcp.ErrServerNotFound), errors.Is(err, confirm.ErrNoPendingConfirmation):
		return http.StatusNotFound
	case errors.Is(err, mcp.ErrServerExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
