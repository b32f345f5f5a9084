package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mcpjungle/toolbridge/internal/schema"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/sashabaranov/go-openai"
)

// ToOpenAIResponsesTools converts tools into strict OpenAI responses API function tools.
// Parameter schemas are filtered down to the strict-mode vocabulary and every property is required.
func ToOpenAIResponsesTools(tools []types.Tool) []ResponsesTool {
	out := make([]ResponsesTool, 0, len(tools))
	for _, t := range tools {
		filtered, _ := schema.Filter(map[string]any(t.InputSchema), schema.OpenAIResponsesKeys).(map[string]any)
		out = append(out, ResponsesTool{
			Type:        "function",
			Name:        t.ID,
			Description: t.Description,
			Parameters: map[string]any{
				"type":                 "object",
				"properties":           filtered["properties"],
				"required":             schema.RequiredNames(t.InputSchema.Properties()),
				"additionalProperties": false,
			},
			Strict: true,
		})
	}
	return out
}

// ToOpenAIChatTools converts tools into OpenAI chat completions function tools.
// The parameter schema is passed through unfiltered.
func ToOpenAIChatTools(tools []types.Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		params := map[string]any{
			"type":       "object",
			"properties": t.InputSchema.Properties(),
		}
		if req := t.InputSchema.Required(); req != nil {
			params["required"] = req
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.ID,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// ToAnthropicTools converts tools into Anthropic messages API tools.
// The input schema is passed through whole, keywords such as $defs travel as extra fields.
func ToAnthropicTools(tools []types.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.ID,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties:  t.InputSchema.Properties(),
					Required:    t.InputSchema.Required(),
					ExtraFields: anthropicSchemaExtras(t.InputSchema),
				},
			},
		})
	}
	return out
}

// anthropicSchemaExtras returns the top-level schema keywords ToolInputSchemaParam has no field for.
func anthropicSchemaExtras(s types.ToolInputSchema) map[string]any {
	var extras map[string]any
	for k, v := range s {
		switch k {
		case "type", "properties", "required":
			continue
		}
		if extras == nil {
			extras = make(map[string]any)
		}
		extras[k] = v
	}
	return extras
}

// ToGeminiTools converts tools into a single Gemini function declaration group.
func ToGeminiTools(tools []types.Tool) []GeminiTool {
	decls := make([]GeminiFunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		filtered, _ := schema.Filter(map[string]any(t.InputSchema), schema.GeminiKeys).(map[string]any)
		decls = append(decls, GeminiFunctionDeclaration{
			Name:        t.ID,
			Description: t.Description,
			Parameters: &GeminiSchema{
				Type:       GeminiSchemaTypeObject,
				Properties: filtered["properties"],
				Required:   t.InputSchema.Required(),
			},
		})
	}
	return []GeminiTool{{FunctionDeclarations: decls}}
}

// FindTool returns the tool whose ID or Name equals name.
// An ID match takes precedence over a Name match, since names are only unique per server.
// The boolean is false if no tool matches.
func FindTool(tools []types.Tool, name string) (types.Tool, bool) {
	for _, t := range tools {
		if t.ID == name {
			return t, true
		}
	}
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return types.Tool{}, false
}

// FromOpenAIResponsesCall resolves a responses API function call to a tool.
func FromOpenAIResponsesCall(tools []types.Tool, call ResponsesFunctionCall) (types.Tool, bool) {
	return FindTool(tools, call.Name)
}

// FromOpenAIChatCall resolves a chat completions tool call to a tool.
func FromOpenAIChatCall(tools []types.Tool, call openai.ToolCall) (types.Tool, bool) {
	return FindTool(tools, call.Function.Name)
}

// FromAnthropicToolUse resolves an Anthropic tool_use block to a tool.
func FromAnthropicToolUse(tools []types.Tool, block anthropic.ToolUseBlock) (types.Tool, bool) {
	return FindTool(tools, block.Name)
}

// FromGeminiFunctionCall resolves a Gemini function call to a tool.
func FromGeminiFunctionCall(tools []types.Tool, call *GeminiFunctionCall) (types.Tool, bool) {
	if call == nil {
		return types.Tool{}, false
	}
	return FindTool(tools, call.Name)
}

// FilterToolsByServers keeps only the tools that belong to one of the enabled servers.
// A nil server list means no server is enabled.
func FilterToolsByServers(tools []types.Tool, enabled []types.McpServer) []types.Tool {
	out := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		for _, s := range enabled {
			if s.Name == t.ServerName {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
