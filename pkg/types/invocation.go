package types

// InvocationStatus is the lifecycle state of a single tool invocation.
// The only legal paths are pending -> invoking -> done and pending -> cancelled.
type InvocationStatus string

const (
	StatusPending   InvocationStatus = "pending"
	StatusInvoking  InvocationStatus = "invoking"
	StatusCancelled InvocationStatus = "cancelled"
	StatusDone      InvocationStatus = "done"
)

// IsTerminal returns true for done and cancelled.
func (s InvocationStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// CanTransition reports whether an invocation in status s may move to status next.
// Re-asserting the current non-terminal status is allowed so repeated upserts are harmless.
func (s InvocationStatus) CanTransition(next InvocationStatus) bool {
	switch s {
	case "":
		return next == StatusPending
	case StatusPending:
		return next == StatusPending || next == StatusInvoking || next == StatusCancelled
	case StatusInvoking:
		return next == StatusInvoking || next == StatusDone
	default:
		return false
	}
}

// ContentType identifies the kind of a ContentItem.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeAudio ContentType = "audio"
)

// ContentItem is a single piece of a tool call result.
// Text items carry Text; image and audio items carry base64 Data and a MimeType.
// Any other Type is passed through so that adapters can report it as unsupported.
type ContentItem struct {
	Type     ContentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	Data     string      `json:"data,omitempty"`
	MimeType string      `json:"mimeType,omitempty"`
}

// DataURI returns the item's payload as a base64 data URI.
func (c ContentItem) DataURI() string {
	return "data:" + c.MimeType + ";base64," + c.Data
}

// CallResult represents the result of a tool call.
type CallResult struct {
	IsError bool          `json:"isError"`
	Content []ContentItem `json:"content"`

	// StructuredContent holds the tool's structured output, if any.
	StructuredContent any `json:"structuredContent,omitempty"`
}

// TextResult returns a CallResult with a single text item.
func TextResult(text string, isError bool) *CallResult {
	return &CallResult{
		IsError: isError,
		Content: []ContentItem{{Type: ContentTypeText, Text: text}},
	}
}

// InvocationRequest tracks a single tool invocation from detection to completion.
type InvocationRequest struct {
	// ID is unique per invocation instance within a run (eg- "search-0").
	ID string `json:"id"`

	// ToolUseID is the provider-issued id of the tool call, or the tool id for tagged text.
	ToolUseID string `json:"toolUseId"`

	Tool      Tool             `json:"tool"`
	Arguments any              `json:"arguments"`
	Status    InvocationStatus `json:"status"`
	Response  *CallResult      `json:"response,omitempty"`
}

// Model describes the LLM the tool results are sent back to.
type Model struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`

	// Vision is true if the model accepts image (and audio) input.
	Vision bool `json:"vision"`
}
