package types

import "fmt"

// McpServerTransport represents the transport protocol used by an MCP server.
// All transport types supported by toolbridge are defined in this file with this type.
type McpServerTransport string

const (
	TransportStdio          McpServerTransport = "stdio"
	TransportStreamableHTTP McpServerTransport = "streamable_http"
	TransportSSE            McpServerTransport = "sse"
)

// McpServer represents an MCP server registered in toolbridge.
type McpServer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Transport   string `json:"transport"`
	Description string `json:"description"`

	// Active servers have their tools offered to LLMs.
	// Servers discovered by the auto-install helper start out inactive.
	Active bool `json:"active"`

	// DisabledAutoApproveTools lists the names of tools on this server that
	// always require an explicit user confirmation before being called.
	DisabledAutoApproveTools []string `json:"disabled_auto_approve_tools"`

	URL string `json:"url,omitempty"`

	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// RegisterServerInput is the input structure for registering a new MCP server with toolbridge.
// It is also the basis for the JSON/YAML configuration files used to seed servers at startup.
type RegisterServerInput struct {
	// Name (mandatory) is the unique name of an MCP server registered in toolbridge
	Name string `json:"name" yaml:"name"`

	// Transport (mandatory) is the transport protocol used by the MCP server.
	// valid values are "stdio", "streamable_http", and "sse".
	Transport string `json:"transport" yaml:"transport"`

	Description string `json:"description" yaml:"description"`

	// URL is the URL of the remote mcp server.
	// It is mandatory when transport is streamable_http or sse.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// BearerToken is an optional token used for authenticating requests to the remote MCP server.
	// If the transport is "stdio", this field is ignored.
	BearerToken string `json:"bearer_token,omitempty" yaml:"bearer_token,omitempty"`

	// Headers is an optional set of HTTP headers to forward to upstream streamable_http MCP servers.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Command is the command to run the mcp server.
	// It is mandatory when the transport is "stdio".
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	Args []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env  map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// Inactive registers the server without connecting to it or offering its tools.
	Inactive bool `json:"inactive,omitempty" yaml:"inactive,omitempty"`

	DisabledAutoApproveTools []string `json:"disabled_auto_approve_tools,omitempty" yaml:"disabled_auto_approve_tools,omitempty"`
}

// SetAutoApproveInput replaces the list of tools that require explicit confirmation on a server.
type SetAutoApproveInput struct {
	DisabledAutoApproveTools []string `json:"disabled_auto_approve_tools"`
}

// ServerMetadata represents the server metadata response
type ServerMetadata struct {
	Version string `json:"version"`
}

// ValidateTransport validates the input string and returns the corresponding McpServerTransport.
// It returns an error if the input is invalid or empty.
func ValidateTransport(input string) (McpServerTransport, error) {
	errMsgExt := fmt.Sprintf(
		"(acceptable values: '%s', '%s', '%s')", TransportStreamableHTTP, TransportStdio, TransportSSE,
	)

	switch input {
	case string(TransportStreamableHTTP):
		return TransportStreamableHTTP, nil
	case string(TransportStdio):
		return TransportStdio, nil
	case string(TransportSSE):
		return TransportSSE, nil
	case "":
		return "", fmt.Errorf("transport is required %s", errMsgExt)
	default:
		return "", fmt.Errorf("unsupported transport type: %s %s", input, errMsgExt)
	}
}
