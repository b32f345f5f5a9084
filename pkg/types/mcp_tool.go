package types

// ToolInputSchema is the JSON-schema-like description of a tool's input parameters.
// It is kept as a generic tree so that provider adapters can filter it down to the
// vocabulary each provider accepts.
type ToolInputSchema map[string]any

// Properties returns the "properties" mapping of the schema, or nil if absent or malformed.
func (s ToolInputSchema) Properties() map[string]any {
	props, _ := s["properties"].(map[string]any)
	return props
}

// Required returns the "required" list of the schema.
// Non-string entries are skipped.
func (s ToolInputSchema) Required() []string {
	switch req := s["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if name, ok := r.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}

// Tool represents a tool provided by an MCP Server registered in toolbridge.
type Tool struct {
	// ID is the canonical name of the tool, unique across toolbridge (eg- "github__git_commit").
	// It is the name advertised to LLM providers.
	ID string `json:"id"`

	// Name is the name of the tool as known by its MCP server.
	// Two tools may share a name if they belong to different servers.
	Name string `json:"name"`

	Description string `json:"description"`

	ServerID   string `json:"server_id"`
	ServerName string `json:"server_name"`

	InputSchema ToolInputSchema `json:"input_schema"`
}

// CallToolInput is the generic, provider-independent shape of a tool call reference
// accepted by the tool-calls API. Name is matched against both Tool.ID and Tool.Name.
type CallToolInput struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
}
