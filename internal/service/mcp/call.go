package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcpjungle/toolbridge/internal/model"
	"github.com/mcpjungle/toolbridge/internal/telemetry"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"go.uber.org/zap"
)

var invalidServerNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// discoveredServer is the structured payload returned by the auto-install helper server.
type discoveredServer struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	BaseURL     string            `json:"baseUrl"`
	URL         string            `json:"url"`
	Command     string            `json:"command"`
	Args        []string          `json:"args"`
	Env         map[string]string `json:"env"`
}

// CallTool invokes the tool of an invocation on its MCP server.
// A tool that reports an error is not a Go error: the result is returned with IsError set.
func (m *MCPService) CallTool(ctx context.Context, inv types.InvocationRequest) (*types.CallResult, error) {
	started := time.Now()
	outcome := telemetry.ToolCallOutcomeError
	serverName, toolName := inv.Tool.ServerName, inv.Tool.Name

	defer func() {
		m.metrics.RecordToolCall(ctx, serverName, toolName, outcome, time.Since(started))
	}()

	s, err := m.toolServer(inv.Tool)
	if err != nil {
		return nil, err
	}
	serverName = s.Name
	if !s.Active {
		return nil, fmt.Errorf("mcp server %s is not active", s.Name)
	}

	c, err := m.newMcpServerSession(ctx, s)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = callArguments(inv.Arguments)

	resp, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call tool %s on MCP server %s: %w", toolName, s.Name, err)
	}

	res := &types.CallResult{
		IsError:           resp.IsError,
		Content:           convertContent(resp.Content),
		StructuredContent: resp.StructuredContent,
	}
	if resp.IsError {
		m.logger.Debug("tool reported an error", zap.String("server", s.Name), zap.String("tool", toolName))
	} else {
		outcome = telemetry.ToolCallOutcomeSuccess
	}

	if s.Name == AutoInstallServerName && res.StructuredContent != nil {
		m.registerDiscoveredServer(ctx, res.StructuredContent)
	}
	return res, nil
}

// toolServer finds the server that owns a tool, by id first and by name second.
func (m *MCPService) toolServer(t types.Tool) (*model.McpServer, error) {
	if pk, err := strconv.ParseUint(t.ServerID, 10, 64); err == nil {
		var s model.McpServer
		if err := m.db.First(&s, pk).Error; err == nil {
			return &s, nil
		}
	}
	if t.ServerName != "" {
		return m.GetMcpServer(t.ServerName)
	}
	return nil, fmt.Errorf("%w: tool %s has no server", ErrServerNotFound, t.ID)
}

// callArguments normalizes parsed arguments for the MCP request.
// Missing arguments are sent as an empty object.
func callArguments(args any) any {
	switch a := args.(type) {
	case nil:
		return map[string]any{}
	case string:
		if strings.TrimSpace(a) == "" {
			return map[string]any{}
		}
		return a
	default:
		return a
	}
}

// convertContent maps MCP content onto result items.
// Content kinds without a dedicated item shape keep only their type.
func convertContent(content []mcp.Content) []types.ContentItem {
	items := make([]types.ContentItem, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case mcp.TextContent:
			items = append(items, types.ContentItem{Type: types.ContentTypeText, Text: v.Text})
		case *mcp.TextContent:
			items = append(items, types.ContentItem{Type: types.ContentTypeText, Text: v.Text})
		case mcp.ImageContent:
			items = append(items, types.ContentItem{Type: types.ContentTypeImage, Data: v.Data, MimeType: v.MIMEType})
		case *mcp.ImageContent:
			items = append(items, types.ContentItem{Type: types.ContentTypeImage, Data: v.Data, MimeType: v.MIMEType})
		case mcp.AudioContent:
			items = append(items, types.ContentItem{Type: types.ContentTypeAudio, Data: v.Data, MimeType: v.MIMEType})
		case *mcp.AudioContent:
			items = append(items, types.ContentItem{Type: types.ContentTypeAudio, Data: v.Data, MimeType: v.MIMEType})
		default:
			items = append(items, types.ContentItem{Type: contentType(c)})
		}
	}
	return items
}

func contentType(c mcp.Content) types.ContentType {
	b, err := json.Marshal(c)
	if err != nil {
		return "unknown"
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil || probe.Type == "" {
		return "unknown"
	}
	return types.ContentType(probe.Type)
}

// registerDiscoveredServer stores a server reported by the auto-install helper as inactive.
// Failures are logged and never affect the tool result.
func (m *MCPService) registerDiscoveredServer(ctx context.Context, payload any) {
	input, err := discoveredServerInput(payload)
	if err != nil {
		m.logger.Warn("ignoring auto-install result", zap.Error(err))
		return
	}

	s, err := model.NewMcpServerFromInput(input)
	if err != nil {
		m.logger.Warn("ignoring invalid auto-install server", zap.String("server", input.Name), zap.Error(err))
		return
	}

	err = m.RegisterMcpServer(ctx, s)
	if errors.Is(err, ErrServerExists) {
		s.Name = s.Name + "-" + uuid.NewString()[:8]
		err = m.RegisterMcpServer(ctx, s)
	}
	if err != nil {
		m.logger.Error("failed to register auto-installed server", zap.String("server", s.Name), zap.Error(err))
		return
	}
	m.logger.Info("registered auto-installed server", zap.String("server", s.Name))
}

func discoveredServerInput(payload any) (*types.RegisterServerInput, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal structured content: %w", err)
	}
	var d discoveredServer
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("failed to decode discovered server: %w", err)
	}

	input := &types.RegisterServerInput{
		Name:        sanitizeServerName(d.Name),
		Description: d.Description,
		Inactive:    true,
	}
	switch {
	case d.Command != "":
		input.Transport = string(types.TransportStdio)
		input.Command = d.Command
		input.Args = d.Args
		input.Env = d.Env
	case d.BaseURL != "" || d.URL != "":
		input.Transport = string(types.TransportStreamableHTTP)
		input.URL = d.BaseURL
		if input.URL == "" {
			input.URL = d.URL
		}
	default:
		return nil, errors.New("discovered server has neither a command nor a url")
	}
	return input, nil
}

// sanitizeServerName turns an arbitrary package or display name into a valid server name.
func sanitizeServerName(name string) string {
	name = invalidServerNameChars.ReplaceAllString(name, "-")
	for strings.Contains(name, serverToolNameSep) {
		name = strings.ReplaceAll(name, serverToolNameSep, "_")
	}
	name = strings.Trim(name, "-_")
	if name == "" {
		return "server"
	}
	return name
}
