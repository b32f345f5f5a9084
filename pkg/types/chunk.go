package types

// ChunkType identifies the kind of a Chunk streamed to the caller.
type ChunkType string

const (
	ChunkTypeToolPending    ChunkType = "mcp_tool_pending"
	ChunkTypeToolInProgress ChunkType = "mcp_tool_in_progress"
	ChunkTypeToolComplete   ChunkType = "mcp_tool_complete"
	ChunkTypeImageCreated   ChunkType = "image_created"
	ChunkTypeImageComplete  ChunkType = "image_complete"
	ChunkTypeWarning        ChunkType = "warning"
)

// ImageData carries images produced by a tool call as base64 data URIs.
type ImageData struct {
	Type   string   `json:"type"`
	Images []string `json:"images"`
}

// Chunk is one unit of the incremental status stream produced while tool calls are processed.
// Consumers must key invocation updates by InvocationRequest.ID, not by arrival order.
type Chunk struct {
	Type      ChunkType           `json:"type"`
	Responses []InvocationRequest `json:"responses,omitempty"`
	Image     *ImageData          `json:"image,omitempty"`
	Message   string              `json:"message,omitempty"`
}

// ChunkTypeForStatus returns the chunk type used to announce an invocation in the given status.
func ChunkTypeForStatus(s InvocationStatus) (ChunkType, bool) {
	switch s {
	case StatusPending:
		return ChunkTypeToolPending, true
	case StatusInvoking:
		return ChunkTypeToolInProgress, true
	case StatusCancelled, StatusDone:
		return ChunkTypeToolComplete, true
	default:
		return "", false
	}
}

// ToolCallsRequest is the body of a tool-calls API request.
// Either Text (model output possibly containing <tool_use> blocks) or ToolCalls must be set.
type ToolCallsRequest struct {
	Provider   string          `json:"provider"`
	Model      Model           `json:"model"`
	Text       string          `json:"text,omitempty"`
	ToolCalls  []CallToolInput `json:"tool_calls,omitempty"`
	StartIndex int             `json:"start_index,omitempty"`
}

// ToolCallsResult is the final event of a tool-calls stream.
type ToolCallsResult struct {
	RunID       string              `json:"run_id"`
	ToolResults []any               `json:"tool_results"`
	Confirmed   []InvocationRequest `json:"confirmed"`
}

// ConfirmInvocationInput is the body of a confirmation request.
type ConfirmInvocationInput struct {
	Confirmed bool `json:"confirmed"`
}
