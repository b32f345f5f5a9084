package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcpjungle/toolbridge/internal/model"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fetchServerTools opens a session with the server and lists its tools.
func (m *MCPService) fetchServerTools(ctx context.Context, s *model.McpServer) ([]mcp.Tool, error) {
	c, err := m.newMcpServerSession(ctx, s)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	resp, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tools from MCP server %s: %w", s.Name, err)
	}
	return resp.Tools, nil
}

// storeServerTools saves the tools of a server.
// A tool that cannot be stored is logged and skipped so that one bad schema does not block the server.
func (m *MCPService) storeServerTools(tx *gorm.DB, s *model.McpServer, tools []mcp.Tool) {
	for _, tool := range tools {
		jsonSchema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			m.logger.Warn("failed to marshal tool input schema",
				zap.String("server", s.Name), zap.String("tool", tool.GetName()), zap.Error(err))
			jsonSchema = []byte(`{"type":"object"}`)
		}

		t := &model.Tool{
			ServerID:    s.ID,
			Name:        tool.GetName(),
			Enabled:     true,
			Description: tool.Description,
			InputSchema: jsonSchema,
		}
		if err := tx.Create(t).Error; err != nil {
			m.logger.Error("failed to register tool",
				zap.String("tool", mergeServerToolNames(s.Name, tool.GetName())), zap.Error(err))
		}
	}
}

// ListTools returns the descriptors of all enabled tools provided by active servers.
// Each descriptor's ID is the canonical name `<server>__<tool>`.
func (m *MCPService) ListTools() ([]types.Tool, error) {
	servers, err := m.ListMcpServers()
	if err != nil {
		return nil, err
	}

	tools := []types.Tool{}
	for i := range servers {
		if !servers[i].Active {
			continue
		}
		serverTools, err := m.listServerTools(&servers[i], true)
		if err != nil {
			return nil, err
		}
		tools = append(tools, serverTools...)
	}
	return tools, nil
}

// ListToolsByServer returns the descriptors of all tools of a server, enabled or not.
func (m *MCPService) ListToolsByServer(name string) ([]types.Tool, error) {
	s, err := m.GetMcpServer(name)
	if err != nil {
		return nil, err
	}
	return m.listServerTools(s, false)
}

func (m *MCPService) listServerTools(s *model.McpServer, enabledOnly bool) ([]types.Tool, error) {
	q := m.db.Where("server_id = ?", s.ID)
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}

	var records []model.Tool
	if err := q.Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get tools for server %s: %w", s.Name, err)
	}

	tools := make([]types.Tool, 0, len(records))
	for i := range records {
		t, err := records[i].ToDescriptor(s, mergeServerToolNames(s.Name, records[i].Name))
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// EnableTools enables a tool (`<server>__<tool>`) or all tools of a server (`<server>`).
// It returns the canonical names of the affected tools.
func (m *MCPService) EnableTools(entity string) ([]string, error) {
	return m.setToolsEnabled(entity, true)
}

// DisableTools disables a tool or all tools of a server. Disabled tools are not offered to LLMs.
func (m *MCPService) DisableTools(entity string) ([]string, error) {
	return m.setToolsEnabled(entity, false)
}

func (m *MCPService) setToolsEnabled(entity string, enabled bool) ([]string, error) {
	serverName, toolName, isTool := splitServerToolName(entity)
	if !isTool {
		serverName = entity
	}

	s, err := m.GetMcpServer(serverName)
	if err != nil {
		return nil, err
	}

	q := m.db.Where("server_id = ?", s.ID)
	if isTool {
		q = q.Where("name = ?", toolName)
	}

	var tools []model.Tool
	if err := q.Find(&tools).Error; err != nil {
		return nil, fmt.Errorf("failed to get tools for %s: %w", entity, err)
	}
	if isTool && len(tools) == 0 {
		return nil, fmt.Errorf("tool %s not found", entity)
	}

	changed := make([]string, 0, len(tools))
	for i := range tools {
		if err := m.db.Model(&tools[i]).Update("enabled", enabled).Error; err != nil {
			return nil, fmt.Errorf("failed to set tool %s enabled=%t: %w", tools[i].Name, enabled, err)
		}
		changed = append(changed, mergeServerToolNames(s.Name, tools[i].Name))
	}
	return changed, nil
}
