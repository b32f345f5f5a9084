package provider

import "encoding/json"

// ResponsesTool is a function tool of the OpenAI responses API.
type ResponsesTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// ResponsesFunctionCall is a function_call output item of the OpenAI responses API.
type ResponsesFunctionCall struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ResponsesInputContent is one content part of an OpenAI responses input message.
type ResponsesInputContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ResponsesMessageContent is either a plain string or a list of content parts.
type ResponsesMessageContent struct {
	Text  string
	Parts []ResponsesInputContent
}

func (c ResponsesMessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Parts)
}

// ResponsesInputMessage is an input message of the OpenAI responses API.
type ResponsesInputMessage struct {
	Role    string                  `json:"role"`
	Content ResponsesMessageContent `json:"content"`
}

// GeminiSchemaTypeObject is the Gemini schema type of an object.
const GeminiSchemaTypeObject = "OBJECT"

// GeminiSchema is the parameters schema of a Gemini function declaration.
type GeminiSchema struct {
	Type       string   `json:"type"`
	Properties any      `json:"properties,omitempty"`
	Required   []string `json:"required,omitempty"`
}

// GeminiFunctionDeclaration declares one callable function to Gemini.
type GeminiFunctionDeclaration struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Parameters  *GeminiSchema `json:"parameters,omitempty"`
}

// GeminiTool is a group of function declarations.
type GeminiTool struct {
	FunctionDeclarations []GeminiFunctionDeclaration `json:"functionDeclarations"`
}

// GeminiFunctionCall is a function call requested by a Gemini model.
type GeminiFunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// GeminiBlob is inline binary data of a Gemini part.
type GeminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GeminiPart is one part of a Gemini content.
type GeminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *GeminiBlob `json:"inlineData,omitempty"`
}

// GeminiContent is a Gemini message.
type GeminiContent struct {
	Role  string       `json:"role"`
	Parts []GeminiPart `json:"parts"`
}
