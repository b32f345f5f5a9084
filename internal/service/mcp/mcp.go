// Package mcp provides the MCP registry and tool execution functionality of toolbridge.
package mcp

import (
	"errors"

	"github.com/mcpjungle/toolbridge/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoInstallServerName is the reserved name of the helper MCP server whose tool results describe
// new MCP servers to install. Servers it reports are registered as inactive.
const AutoInstallServerName = "mcp-auto-install"

// defaultInitReqTimeoutSec is used when the configured init request timeout is not positive.
const defaultInitReqTimeoutSec = 10

// ServiceConfig holds the configuration parameters for initializing the MCPService.
type ServiceConfig struct {
	DB *gorm.DB

	Metrics telemetry.CustomMetrics
	Logger  *zap.Logger

	McpServerInitReqTimeout int
}

// MCPService coordinates operations amongst the registry database and upstream MCP servers.
// It implements the server lookup and tool execution needed by the orchestrator.
type MCPService struct {
	db *gorm.DB

	metrics telemetry.CustomMetrics
	logger  *zap.Logger

	mcpServerInitReqTimeoutSec int
}

// NewMCPService creates a new instance of MCPService.
func NewMCPService(c *ServiceConfig) (*MCPService, error) {
	if c.DB == nil {
		return nil, errors.New("database connection is required")
	}

	s := &MCPService{
		db:                         c.DB,
		metrics:                    c.Metrics,
		logger:                     c.Logger,
		mcpServerInitReqTimeoutSec: c.McpServerInitReqTimeout,
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopCustomMetrics()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.mcpServerInitReqTimeoutSec <= 0 {
		s.mcpServerInitReqTimeoutSec = defaultInitReqTimeoutSec
	}
	return s, nil
}
