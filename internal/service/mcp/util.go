package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcpjungle/toolbridge/internal/model"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/mcpjungle/toolbridge/pkg/version"
	"go.uber.org/zap"
)

// serverToolNameSep is the separator used to combine server name and tool name.
// This combination produces the canonical name that uniquely identifies a tool across toolbridge
// and is the function name advertised to LLM providers.
const serverToolNameSep = "__"

// Only allow letters, numbers, hyphens, and underscores
var validServerName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateServerName checks if the server name is valid.
// Tools are identified by `<server_name>__<tool_name>` (eg- `github__git_commit`) and the text
// before the first __ is treated as the server name, so a server name must not contain `__`
// or end with an underscore.
func validateServerName(name string) error {
	if name == "" {
		return fmt.Errorf("invalid server name: '%s' must not be empty", name)
	}
	if !validServerName.MatchString(name) {
		return fmt.Errorf("invalid server name: '%s' must follow the regular expression %s", name, validServerName)
	}
	if strings.Contains(name, serverToolNameSep) {
		return fmt.Errorf("invalid server name: '%s' must not contain multiple consecutive underscores", name)
	}
	if strings.HasSuffix(name, string(serverToolNameSep[0])) {
		// `aws_` + `ec2_create_sg` -> `aws___ec2_create_sg` would split into `aws` + `_ec2_create_sg`
		return fmt.Errorf("invalid server name: '%s' must not end with an underscore", name)
	}
	return nil
}

// mergeServerToolNames combines the server name and tool name into a single tool name unique across the registry.
func mergeServerToolNames(s, t string) string {
	return s + serverToolNameSep + t
}

// splitServerToolName splits the unique tool name into server name and tool name.
func splitServerToolName(name string) (string, string, bool) {
	return strings.Cut(name, serverToolNameSep)
}

// isLoopbackURL returns true if rawURL resolves to a loopback address.
func isLoopbackURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

func newInitializeRequest(clientName string) mcp.InitializeRequest {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: version.GetVersion(),
	}
	req.Params.Capabilities = mcp.ClientCapabilities{}
	return req
}

// initialize performs the MCP handshake on c, bounded by the init request timeout.
// hint is appended to timeout errors to point the user at the likely cause.
func (m *MCPService) initialize(ctx context.Context, c *client.Client, clientName, hint string) error {
	initCtx, cancel := context.WithTimeout(ctx, time.Duration(m.mcpServerInitReqTimeoutSec)*time.Second)
	defer cancel()

	if _, err := c.Initialize(initCtx, newInitializeRequest(clientName)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf(
				"initialization request to MCP server timed out after %d seconds%s", m.mcpServerInitReqTimeoutSec, hint,
			)
		}
		return fmt.Errorf("failed to initialize connection with MCP server: %w", err)
	}
	return nil
}

// prepareSHTTPClientOptions prepares the http headers for a streamable HTTP client.
// A custom Authorization header takes precedence over the bearer token.
func (m *MCPService) prepareSHTTPClientOptions(serverName string, conf *model.StreamableHTTPConfig) []transport.StreamableHTTPCOption {
	headers := make(map[string]string, len(conf.Headers)+1)
	for key, value := range conf.Headers {
		headers[key] = value
	}

	if conf.BearerToken != "" {
		if _, ok := headers["Authorization"]; ok {
			m.logger.Info("custom Authorization header used, bearer_token ignored", zap.String("server", serverName))
		} else {
			headers["Authorization"] = "Bearer " + conf.BearerToken
		}
	}

	if len(headers) == 0 {
		return nil
	}
	return []transport.StreamableHTTPCOption{transport.WithHTTPHeaders(headers)}
}

func (m *MCPService) createHTTPMcpServerConn(ctx context.Context, s *model.McpServer) (*client.Client, error) {
	conf, err := s.GetStreamableHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get streamable HTTP config for MCP server %s: %w", s.Name, err)
	}

	c, err := client.NewStreamableHttpClient(conf.URL, m.prepareSHTTPClientOptions(s.Name, conf)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create streamable HTTP client for MCP server: %w", err)
	}

	if err := m.initialize(ctx, c, "toolbridge client for "+conf.URL, ""); err != nil {
		_ = c.Close()
		if errors.Is(err, syscall.ECONNREFUSED) && isLoopbackURL(conf.URL) {
			return nil, fmt.Errorf(
				"connection to the MCP server %s was refused. "+
					"If toolbridge is running inside Docker, use 'host.docker.internal' as your MCP server's hostname",
				conf.URL,
			)
		}
		return nil, err
	}
	return c, nil
}

// captureStdioServerStderr forwards the stderr output of a stdio MCP server to the logs in the background.
func (m *MCPService) captureStdioServerStderr(name string, c *client.Client) {
	stdio, ok := c.GetTransport().(*transport.Stdio)
	if !ok {
		return
	}
	logger := m.logger.With(zap.String("server", name))

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := stdio.Stderr().Read(buf)
			if n > 0 {
				logger.Info("mcp server stderr", zap.String("output", string(buf[:n])))
			}
			if err != nil {
				if err == io.EOF || errors.Is(err, os.ErrClosed) {
					logger.Debug("stdio mcp server process exited")
				} else {
					logger.Warn("failed to read mcp server stderr", zap.Error(err))
				}
				return
			}
		}
	}()
}

func (m *MCPService) runStdioServer(ctx context.Context, s *model.McpServer) (*client.Client, error) {
	conf, err := s.GetStdioConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdio config for MCP server %s: %w", s.Name, err)
	}

	envVars := make([]string, 0, len(conf.Env))
	for k, v := range conf.Env {
		envVars = append(envVars, k+"="+v)
	}

	c, err := client.NewStdioMCPClient(conf.Command, envVars, conf.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdio client for MCP server: %w", err)
	}
	m.captureStdioServerStderr(s.Name, c)

	hint := ", check toolbridge server logs for any errors from this MCP server"
	if err := m.initialize(ctx, c, "toolbridge client for stdio", hint); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (m *MCPService) createSSEMcpServerConn(ctx context.Context, s *model.McpServer) (*client.Client, error) {
	conf, err := s.GetSSEConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get SSE transport config for MCP server %s: %w", s.Name, err)
	}

	var opts []transport.ClientOption
	if conf.BearerToken != "" {
		opts = append(opts, transport.WithHeaders(map[string]string{
			"Authorization": "Bearer " + conf.BearerToken,
		}))
	}

	c, err := client.NewSSEMCPClient(conf.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE client for MCP server: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start SSE transport for MCP server: %w", err)
	}

	if err := m.initialize(ctx, c, "toolbridge client for "+conf.URL, ""); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// newMcpServerSession opens an initialized client session with the MCP server.
// A new sub-process is spun up for every stdio session. The caller must close the client.
func (m *MCPService) newMcpServerSession(ctx context.Context, s *model.McpServer) (*client.Client, error) {
	var (
		c   *client.Client
		err error
	)
	switch s.Transport {
	case types.TransportStreamableHTTP:
		c, err = m.createHTTPMcpServerConn(ctx, s)
	case types.TransportSSE:
		c, err = m.createSSEMcpServerConn(ctx, s)
	case types.TransportStdio:
		c, err = m.runStdioServer(ctx, s)
	default:
		return nil, fmt.Errorf("unsupported transport %q for MCP server %s", s.Transport, s.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s MCP server %s: %w", s.Transport, s.Name, err)
	}
	return c, nil
}
