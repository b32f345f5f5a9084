package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mcpjungle/toolbridge/internal/model"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrServerNotFound is returned when no MCP server with the given name or id is registered.
	ErrServerNotFound = errors.New("mcp server not found")

	// ErrServerExists is returned when registering a server whose name is already taken.
	ErrServerExists = errors.New("mcp server already exists")
)

// RegisterMcpServer registers a new MCP server in the registry.
// Active servers are connected to and their tools are stored. Inactive servers are only stored.
func (m *MCPService) RegisterMcpServer(ctx context.Context, s *model.McpServer) error {
	if err := validateServerName(s.Name); err != nil {
		return err
	}
	if err := m.ensureNameAvailable(s.Name); err != nil {
		return err
	}

	if !s.Active {
		if err := m.db.Create(s).Error; err != nil {
			return fmt.Errorf("failed to register mcp server %s: %w", s.Name, err)
		}
		m.logger.Info("registered inactive mcp server", zap.String("server", s.Name))
		return nil
	}

	tools, err := m.fetchServerTools(ctx, s)
	if err != nil {
		return err
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return fmt.Errorf("failed to register mcp server %s: %w", s.Name, err)
		}
		m.storeServerTools(tx, s, tools)
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("registered mcp server", zap.String("server", s.Name), zap.Int("tools", len(tools)))
	return nil
}

// ActivateMcpServer connects to an inactive server, stores its tools and marks it active.
// Activating an active server is a no-op.
func (m *MCPService) ActivateMcpServer(ctx context.Context, name string) (*model.McpServer, error) {
	s, err := m.GetMcpServer(name)
	if err != nil {
		return nil, err
	}
	if s.Active {
		return s, nil
	}

	tools, err := m.fetchServerTools(ctx, s)
	if err != nil {
		return nil, err
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(s).Update("active", true).Error; err != nil {
			return fmt.Errorf("failed to activate mcp server %s: %w", name, err)
		}
		if err := tx.Unscoped().Where("server_id = ?", s.ID).Delete(&model.Tool{}).Error; err != nil {
			return fmt.Errorf("failed to clear stale tools of server %s: %w", name, err)
		}
		m.storeServerTools(tx, s, tools)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeregisterMcpServer removes a server and all its tools from the registry.
func (m *MCPService) DeregisterMcpServer(name string) error {
	s, err := m.GetMcpServer(name)
	if err != nil {
		return err
	}
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("server_id = ?", s.ID).Delete(&model.Tool{}).Error; err != nil {
			return fmt.Errorf("failed to delete tools for server %s: %w", name, err)
		}
		if err := tx.Unscoped().Delete(s).Error; err != nil {
			return fmt.Errorf("failed to delete mcp server %s: %w", name, err)
		}
		return nil
	})
}

// ListMcpServers returns all registered servers ordered by registration.
func (m *MCPService) ListMcpServers() ([]model.McpServer, error) {
	var servers []model.McpServer
	if err := m.db.Order("id").Find(&servers).Error; err != nil {
		return nil, fmt.Errorf("failed to list mcp servers: %w", err)
	}
	return servers, nil
}

// GetMcpServer fetches a server by name.
func (m *MCPService) GetMcpServer(name string) (*model.McpServer, error) {
	var s model.McpServer
	err := m.db.Where("name = ?", name).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mcp server %s: %w", name, err)
	}
	return &s, nil
}

// GetServerByID returns the descriptor of the server with the given id.
// It returns (nil, nil) when the id is malformed or unknown.
func (m *MCPService) GetServerByID(id string) (*types.McpServer, error) {
	pk, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, nil
	}

	var s model.McpServer
	err = m.db.First(&s, pk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mcp server %s: %w", id, err)
	}
	return s.ToDescriptor()
}

// SetDisabledAutoApproveTools replaces the list of tools on a server that need explicit confirmation.
func (m *MCPService) SetDisabledAutoApproveTools(name string, tools []string) (*model.McpServer, error) {
	s, err := m.GetMcpServer(name)
	if err != nil {
		return nil, err
	}
	if err := s.SetDisabledAutoApproveTools(tools); err != nil {
		return nil, err
	}
	if err := m.db.Model(s).Update("disabled_auto_approve_tools", s.DisabledAutoApproveTools).Error; err != nil {
		return nil, fmt.Errorf("failed to update auto-approve policy of server %s: %w", name, err)
	}
	return s, nil
}

func (m *MCPService) ensureNameAvailable(name string) error {
	var count int64
	if err := m.db.Model(&model.McpServer{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check mcp server name %s: %w", name, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrServerExists, name)
	}
	return nil
}
