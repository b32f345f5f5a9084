// Package tooluse extracts tool invocations that a model embedded in free text
// using the <tool_use> tag format:
//
//	<tool_use>
//	  <name>TOOL_ID</name>
//	  <arguments>{"json": "or plain string"}</arguments>
//	</tool_use>
package tooluse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mcpjungle/toolbridge/pkg/types"
)

const openTag = "<tool_use>"

var blockPattern = regexp.MustCompile(`(?s)<tool_use>(.*?)<name>(.*?)</name>(.*?)<arguments>(.*?)</arguments>(.*?)</tool_use>`)

// WarnFunc receives user-facing, non-fatal warnings such as unknown tool names.
type WarnFunc func(message string)

// NotFoundWarning returns the warning reported for a tool name that matches no known tool.
func NotFoundWarning(name string) string {
	return fmt.Sprintf("Tool %q not found in MCP tools", name)
}

// Parse scans text for <tool_use> blocks and returns one pending invocation per block
// whose name matches the ID of a known tool, in encounter order.
// Text without an opening <tool_use> tag is treated as the inner content of a single block.
// Invocation IDs are "<name>-<n>" where n starts at start and only advances on a match.
// Blocks naming an unknown tool are dropped and reported through warn, which may be nil,
// so an empty tool list reports every block.
func Parse(text string, tools []types.Tool, start int, warn WarnFunc) []types.InvocationRequest {
	if text == "" {
		return nil
	}
	if !strings.Contains(text, openTag) {
		text = openTag + "\n" + text + "\n</tool_use>"
	}

	var out []types.InvocationRequest
	idx := start
	for _, m := range blockPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[2])
		rawArgs := strings.TrimSpace(m[4])

		tool, ok := findByID(tools, name)
		if !ok {
			if warn != nil {
				warn(NotFoundWarning(name))
			}
			continue
		}

		out = append(out, types.InvocationRequest{
			ID:        fmt.Sprintf("%s-%d", name, idx),
			ToolUseID: tool.ID,
			Tool:      tool,
			Arguments: parseArguments(rawArgs),
			Status:    types.StatusPending,
		})
		idx++
	}
	return out
}

// parseArguments decodes the arguments as JSON, falling back to the raw string.
func parseArguments(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func findByID(tools []types.Tool, id string) (types.Tool, bool) {
	for _, t := range tools {
		if t.ID == id {
			return t, true
		}
	}
	return types.Tool{}, false
}
