package provider

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) []types.Tool {
	t.Helper()
	var search types.ToolInputSchema
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "object",
		"properties": {
			"q": {"type": "string", "minLength": 1},
			"filter": {"oneOf": [{"type": "string"}, {"type": "null"}]},
			"headers": {"type": "object"}
		},
		"required": ["q"]
	}`), &search))

	return []types.Tool{
		{ID: "web__search", Name: "search", Description: "search the web", ServerID: "1", ServerName: "web", InputSchema: search},
		{ID: "fs__read", Name: "read", Description: "read a file", ServerID: "2", ServerName: "fs", InputSchema: types.ToolInputSchema{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
		}},
		{ID: "docs__search", Name: "search", Description: "search the docs", ServerID: "3", ServerName: "docs", InputSchema: types.ToolInputSchema{}},
	}
}

func TestToOpenAIResponsesTools(t *testing.T) {
	tools := ToOpenAIResponsesTools(testCatalog(t))
	require.Len(t, tools, 3)

	got := tools[0]
	assert.Equal(t, "function", got.Type)
	assert.Equal(t, "web__search", got.Name)
	assert.True(t, got.Strict)
	assert.Equal(t, "object", got.Parameters["type"])
	assert.Equal(t, false, got.Parameters["additionalProperties"])
	assert.Equal(t, []string{"filter", "q"}, got.Parameters["required"])

	props := got.Parameters["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, props["q"])
	assert.Contains(t, props["filter"], "anyOf")

	empty := tools[2]
	assert.Nil(t, empty.Parameters["properties"])
	assert.Equal(t, []string{}, empty.Parameters["required"])
}

func TestToOpenAIChatTools(t *testing.T) {
	catalog := testCatalog(t)
	tools := ToOpenAIChatTools(catalog)
	require.Len(t, tools, 3)

	got := tools[0]
	assert.Equal(t, openai.ToolTypeFunction, got.Type)
	require.NotNil(t, got.Function)
	assert.Equal(t, "web__search", got.Function.Name)
	assert.Equal(t, "search the web", got.Function.Description)

	params := got.Function.Parameters.(map[string]any)
	assert.Equal(t, catalog[0].InputSchema.Properties(), params["properties"], "chat tools pass the schema through")
	assert.Equal(t, []string{"q"}, params["required"])

	assert.NotContains(t, tools[1].Function.Parameters.(map[string]any), "required")
}

func TestToAnthropicTools(t *testing.T) {
	catalog := testCatalog(t)
	tools := ToAnthropicTools(catalog)
	require.Len(t, tools, 3)

	got := tools[0].OfTool
	require.NotNil(t, got)
	assert.Equal(t, "web__search", got.Name)
	assert.Equal(t, "search the web", got.Description.Value)
	assert.Equal(t, catalog[0].InputSchema.Properties(), got.InputSchema.Properties)
	assert.Equal(t, []string{"q"}, got.InputSchema.Required)

	assert.Nil(t, got.InputSchema.ExtraFields)

	b, err := json.Marshal(tools[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"input_schema"`)
}

func TestToAnthropicToolsKeepsWholeSchema(t *testing.T) {
	var in types.ToolInputSchema
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "object",
		"description": "a point",
		"properties": {"p": {"$ref": "#/$defs/P"}},
		"required": ["p"],
		"additionalProperties": false,
		"$defs": {"P": {"type": "object", "properties": {"x": {"type": "number"}}}}
	}`), &in))

	tools := ToAnthropicTools([]types.Tool{{ID: "geo__plot", Name: "plot", InputSchema: in}})
	require.Len(t, tools, 1)

	b, err := json.Marshal(tools[0].OfTool.InputSchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"description": "a point",
		"properties": {"p": {"$ref": "#/$defs/P"}},
		"required": ["p"],
		"additionalProperties": false,
		"$defs": {"P": {"type": "object", "properties": {"x": {"type": "number"}}}}
	}`, string(b))
}

func TestToGeminiTools(t *testing.T) {
	tools := ToGeminiTools(testCatalog(t))
	require.Len(t, tools, 1, "gemini declarations are wrapped in a single group")

	decls := tools[0].FunctionDeclarations
	require.Len(t, decls, 3)
	assert.Equal(t, "web__search", decls[0].Name)
	assert.Equal(t, GeminiSchemaTypeObject, decls[0].Parameters.Type)
	assert.Equal(t, []string{"q"}, decls[0].Parameters.Required)

	props := decls[0].Parameters.Properties.(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "minLength": float64(1)}, props["q"])
}

func TestFindToolPrefersID(t *testing.T) {
	catalog := testCatalog(t)

	got, ok := FindTool(catalog, "docs__search")
	require.True(t, ok)
	assert.Equal(t, "docs", got.ServerName)

	got, ok = FindTool(catalog, "search")
	require.True(t, ok)
	assert.Equal(t, "web__search", got.ID, "name match returns the first tool with that name")

	_, ok = FindTool(catalog, "missing")
	assert.False(t, ok)
}

func TestResolveNotFound(t *testing.T) {
	catalog := testCatalog(t)

	_, ok := FromOpenAIChatCall(catalog, openai.ToolCall{Function: openai.FunctionCall{Name: "nope"}})
	assert.False(t, ok)
	_, ok = FromOpenAIResponsesCall(catalog, ResponsesFunctionCall{Name: "nope"})
	assert.False(t, ok)
	_, ok = FromAnthropicToolUse(catalog, anthropic.ToolUseBlock{Name: "nope"})
	assert.False(t, ok)
	_, ok = FromGeminiFunctionCall(catalog, &GeminiFunctionCall{Name: "nope"})
	assert.False(t, ok)
	_, ok = FromGeminiFunctionCall(catalog, nil)
	assert.False(t, ok)
	_, ok = FromGeminiFunctionCall(nil, &GeminiFunctionCall{Name: "web__search"})
	assert.False(t, ok)
}

func TestRoundTripNameResolution(t *testing.T) {
	catalog := testCatalog(t)

	for _, want := range catalog {
		t.Run(want.ID, func(t *testing.T) {
			for _, w := range ToOpenAIResponsesTools(catalog) {
				if w.Name != want.ID {
					continue
				}
				got, ok := FromOpenAIResponsesCall(catalog, ResponsesFunctionCall{Type: "function_call", CallID: "c1", Name: w.Name})
				require.True(t, ok)
				assert.Equal(t, want, got)
			}

			for _, w := range ToOpenAIChatTools(catalog) {
				if w.Function.Name != want.ID {
					continue
				}
				got, ok := FromOpenAIChatCall(catalog, openai.ToolCall{ID: "c1", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: w.Function.Name}})
				require.True(t, ok)
				assert.Equal(t, want, got)
			}

			for _, w := range ToAnthropicTools(catalog) {
				if w.OfTool.Name != want.ID {
					continue
				}
				got, ok := FromAnthropicToolUse(catalog, anthropic.ToolUseBlock{ID: "toolu_1", Name: w.OfTool.Name})
				require.True(t, ok)
				assert.Equal(t, want, got)
			}

			for _, d := range ToGeminiTools(catalog)[0].FunctionDeclarations {
				if d.Name != want.ID {
					continue
				}
				got, ok := FromGeminiFunctionCall(catalog, &GeminiFunctionCall{Name: d.Name})
				require.True(t, ok)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestFilterToolsByServers(t *testing.T) {
	catalog := testCatalog(t)

	got := FilterToolsByServers(catalog, []types.McpServer{{Name: "fs"}, {Name: "docs"}})
	require.Len(t, got, 2)
	assert.Equal(t, "fs__read", got[0].ID)
	assert.Equal(t, "docs__search", got[1].ID)

	assert.Empty(t, FilterToolsByServers(catalog, nil))
}

func TestParseFamily(t *testing.T) {
	for _, f := range Families() {
		got, err := ParseFamily(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)

		_, ok := Lookup(f)
		assert.True(t, ok)
	}

	got, err := ParseFamily(" Anthropic ")
	require.NoError(t, err)
	assert.Equal(t, FamilyAnthropic, got)

	_, err = ParseFamily("")
	assert.Error(t, err)
	_, err = ParseFamily("cohere")
	assert.Error(t, err)
}
