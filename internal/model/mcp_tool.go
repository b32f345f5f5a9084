package model

import (
	"encoding/json"
	"fmt"

	"github.com/mcpjungle/toolbridge/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tool represents a tool provided by an MCP server.
type Tool struct {
	gorm.Model

	// Name is just the name of the tool, without the server name prefix.
	// A tool name is unique only within the context of a server.
	Name string `json:"name" gorm:"not null"`

	// Enabled indicates whether the tool is offered to LLMs.
	Enabled bool `json:"enabled" gorm:"default:true"`

	Description string `json:"description"`

	// InputSchema is a JSON schema that describes the input parameters for the tool.
	InputSchema datatypes.JSON `json:"input_schema" gorm:"type:jsonb"`

	// ServerID is the ID of the MCP server that provides this tool.
	ServerID uint      `json:"-" gorm:"not null"`
	Server   McpServer `json:"-" gorm:"foreignKey:ServerID;references:ID"`
}

// ToDescriptor converts the tool into the provider-independent descriptor.
// canonicalName is the name of the tool prefixed by its server's name.
func (t *Tool) ToDescriptor(server *McpServer, canonicalName string) (types.Tool, error) {
	schema := types.ToolInputSchema{}
	if len(t.InputSchema) > 0 {
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
			return types.Tool{}, fmt.Errorf("failed to unmarshal input schema of tool %s: %w", canonicalName, err)
		}
	}
	return types.Tool{
		ID:          canonicalName,
		Name:        t.Name,
		Description: t.Description,
		ServerID:    server.IDString(),
		ServerName:  server.Name,
		InputSchema: schema,
	}, nil
}
