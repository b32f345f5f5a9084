package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mcpjungle/toolbridge/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StreamableHTTPConfig struct {
	// URL must be a valid http/https URL.
	URL string `json:"url"`

	// BearerToken is an optional token used for authenticating requests to the MCP server.
	BearerToken string `json:"bearer_token,omitempty"`

	// Headers are optional custom HTTP headers forwarded to the MCP server.
	Headers map[string]string `json:"headers,omitempty"`
}

type StdioConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

type SSEConfig struct {
	URL         string `json:"url"`
	BearerToken string `json:"bearer_token,omitempty"`
}

// McpServer represents a MCP server registered in toolbridge
type McpServer struct {
	gorm.Model

	Name      string                   `json:"name" gorm:"uniqueIndex;not null"`
	Transport types.McpServerTransport `json:"transport" gorm:"type:varchar(30);not null"`

	Description string `json:"description"`

	// Config contains the JSON representation of the transport-specific configuration,
	// one of StreamableHTTPConfig, StdioConfig or SSEConfig.
	Config datatypes.JSON `json:"config" gorm:"type:jsonb;not null"`

	// Active servers are connected to and have their tools offered to LLMs.
	// Always set explicitly, a gorm default would override false on create.
	Active bool `json:"active" gorm:"not null"`

	// DisabledAutoApproveTools is the JSON list of tool names on this server that
	// require an explicit user confirmation before every call.
	DisabledAutoApproveTools datatypes.JSON `json:"disabled_auto_approve_tools" gorm:"type:jsonb"`
}

func newServer(name, description string, transport types.McpServerTransport, config any) (*McpServer, error) {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s config: %w", transport, err)
	}
	return &McpServer{
		Name:        name,
		Description: description,
		Transport:   transport,
		Config:      configJSON,
		Active:      true,
	}, nil
}

// NewStreamableHTTPServer creates a new active MCP server with streamable HTTP transport configuration.
func NewStreamableHTTPServer(name, description, url, bearerToken string, headers map[string]string) (*McpServer, error) {
	if url == "" {
		return nil, errors.New("url is required for streamable HTTP transport")
	}
	return newServer(name, description, types.TransportStreamableHTTP, StreamableHTTPConfig{
		URL:         url,
		BearerToken: bearerToken,
		Headers:     headers,
	})
}

// NewStdioServer creates a new active MCP server with stdio transport configuration.
func NewStdioServer(name, description, command string, args []string, env map[string]string) (*McpServer, error) {
	if command == "" {
		return nil, errors.New("command is required for stdio transport")
	}
	return newServer(name, description, types.TransportStdio, StdioConfig{
		Command: command,
		Args:    args,
		Env:     env,
	})
}

// NewSSEServer creates a new active MCP server with SSE transport configuration.
func NewSSEServer(name, description, url, bearerToken string) (*McpServer, error) {
	if url == "" {
		return nil, errors.New("url is required for SSE transport")
	}
	return newServer(name, description, types.TransportSSE, SSEConfig{
		URL:         url,
		BearerToken: bearerToken,
	})
}

// NewMcpServerFromInput creates a server model from an API or config file registration input.
func NewMcpServerFromInput(input *types.RegisterServerInput) (*McpServer, error) {
	transport, err := types.ValidateTransport(input.Transport)
	if err != nil {
		return nil, err
	}

	var s *McpServer
	switch transport {
	case types.TransportStreamableHTTP:
		s, err = NewStreamableHTTPServer(input.Name, input.Description, input.URL, input.BearerToken, input.Headers)
	case types.TransportSSE:
		s, err = NewSSEServer(input.Name, input.Description, input.URL, input.BearerToken)
	default:
		s, err = NewStdioServer(input.Name, input.Description, input.Command, input.Args, input.Env)
	}
	if err != nil {
		return nil, err
	}

	s.Active = !input.Inactive
	if err := s.SetDisabledAutoApproveTools(input.DisabledAutoApproveTools); err != nil {
		return nil, err
	}
	return s, nil
}

// GetStreamableHTTPConfig returns the configuration if this is a streamable HTTP server
func (s *McpServer) GetStreamableHTTPConfig() (*StreamableHTTPConfig, error) {
	if s.Transport != types.TransportStreamableHTTP {
		return nil, errors.New("server is not a streamable HTTP transport type")
	}
	var config StreamableHTTPConfig
	if err := json.Unmarshal(s.Config, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// GetStdioConfig returns the configuration if this is a stdio server
func (s *McpServer) GetStdioConfig() (*StdioConfig, error) {
	if s.Transport != types.TransportStdio {
		return nil, errors.New("server is not a stdio transport type")
	}
	var config StdioConfig
	if err := json.Unmarshal(s.Config, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// GetSSEConfig returns the configuration if this is an SSE server
func (s *McpServer) GetSSEConfig() (*SSEConfig, error) {
	if s.Transport != types.TransportSSE {
		return nil, errors.New("server is not a SSE transport type")
	}
	var config SSEConfig
	if err := json.Unmarshal(s.Config, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// GetDisabledAutoApproveTools returns the names of the tools that always need a confirmation.
func (s *McpServer) GetDisabledAutoApproveTools() ([]string, error) {
	tools := []string{}
	if len(s.DisabledAutoApproveTools) == 0 {
		return tools, nil
	}
	if err := json.Unmarshal(s.DisabledAutoApproveTools, &tools); err != nil {
		return nil, fmt.Errorf("failed to unmarshal disabled auto-approve tools of server %s: %w", s.Name, err)
	}
	return tools, nil
}

// SetDisabledAutoApproveTools replaces the names of the tools that always need a confirmation.
func (s *McpServer) SetDisabledAutoApproveTools(tools []string) error {
	if tools == nil {
		tools = []string{}
	}
	b, err := json.Marshal(tools)
	if err != nil {
		return fmt.Errorf("failed to marshal disabled auto-approve tools: %w", err)
	}
	s.DisabledAutoApproveTools = b
	return nil
}

// IDString returns the server's primary key in the string form used by tool descriptors.
func (s *McpServer) IDString() string {
	return strconv.FormatUint(uint64(s.ID), 10)
}

// ToDescriptor converts the server model into the API representation.
// Secrets such as bearer tokens are not included.
func (s *McpServer) ToDescriptor() (*types.McpServer, error) {
	disabled, err := s.GetDisabledAutoApproveTools()
	if err != nil {
		return nil, err
	}

	d := &types.McpServer{
		ID:                       s.IDString(),
		Name:                     s.Name,
		Transport:                string(s.Transport),
		Description:              s.Description,
		Active:                   s.Active,
		DisabledAutoApproveTools: disabled,
	}

	switch s.Transport {
	case types.TransportStreamableHTTP:
		conf, err := s.GetStreamableHTTPConfig()
		if err != nil {
			return nil, err
		}
		d.URL = conf.URL
	case types.TransportSSE:
		conf, err := s.GetSSEConfig()
		if err != nil {
			return nil, err
		}
		d.URL = conf.URL
	case types.TransportStdio:
		conf, err := s.GetStdioConfig()
		if err != nil {
			return nil, err
		}
		d.Command = conf.Command
		d.Args = conf.Args
		d.Env = conf.Env
	}
	return d, nil
}
