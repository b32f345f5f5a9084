package provider

import (
	"encoding/json"
	"testing"

	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testInvocation = types.InvocationRequest{
		ID:   "calc-0",
		Tool: types.Tool{ID: "math__calc", Name: "calc", ServerName: "math"},
	}
	mixedResult = &types.CallResult{Content: []types.ContentItem{
		{Type: types.ContentTypeText, Text: "42"},
		{Type: types.ContentTypeImage, Data: "aGk=", MimeType: "image/png"},
		{Type: types.ContentTypeAudio, Data: "YXU=", MimeType: "audio/wav"},
	}}
)

const (
	wantPreamble  = "Here is the result of mcp tool use `calc`:"
	wantMixedJSON = `[{"type":"text","text":"42"},{"type":"image","data":"aGk=","mimeType":"image/png"},{"type":"audio","data":"YXU=","mimeType":"audio/wav"}]`
)

func TestMessageErrorResultIsSerializedContent(t *testing.T) {
	res := types.TextResult("Error executing tool: boom", true)
	wantJSON := `[{"type":"text","text":"Error executing tool: boom"}]`

	chat := ToOpenAIChatMessage(testInvocation, res, true)
	assert.Equal(t, openai.ChatMessageRoleUser, chat.Role)
	assert.Equal(t, wantJSON, chat.Content)
	assert.Nil(t, chat.MultiContent)

	compat := ToOpenAICompatibleMessage(testInvocation, res, true)
	assert.Equal(t, wantJSON, compat.Content)

	responses := ToOpenAIResponsesMessage(testInvocation, res, true)
	b, err := json.Marshal(responses)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"[{\"type\":\"text\",\"text\":\"Error executing tool: boom\"}]"}`, string(b))

	gemini := ToGeminiMessage(testInvocation, res, true)
	require.Len(t, gemini.Parts, 1)
	assert.Equal(t, wantJSON, gemini.Parts[0].Text)

	claude := ToAnthropicMessage(testInvocation, res, true)
	require.Len(t, claude.Content, 1)
	require.NotNil(t, claude.Content[0].OfText)
	assert.Equal(t, wantJSON, claude.Content[0].OfText.Text)
}

func TestMessageWithoutVision(t *testing.T) {
	chat := ToOpenAIChatMessage(testInvocation, mixedResult, false)
	require.Len(t, chat.MultiContent, 2)
	assert.Equal(t, wantPreamble, chat.MultiContent[0].Text)
	assert.Equal(t, wantMixedJSON, chat.MultiContent[1].Text)

	compat := ToOpenAICompatibleMessage(testInvocation, mixedResult, false)
	assert.Equal(t, wantPreamble+"\n"+wantMixedJSON+"\n", compat.Content)

	responses := ToOpenAIResponsesMessage(testInvocation, mixedResult, false)
	assert.Equal(t, []ResponsesInputContent{
		{Type: "input_text", Text: wantPreamble},
		{Type: "input_text", Text: wantMixedJSON},
	}, responses.Content.Parts)

	gemini := ToGeminiMessage(testInvocation, mixedResult, false)
	assert.Equal(t, []GeminiPart{{Text: wantPreamble}, {Text: wantMixedJSON}}, gemini.Parts)

	claude := ToAnthropicMessage(testInvocation, mixedResult, false)
	require.Len(t, claude.Content, 2)
	assert.Equal(t, wantMixedJSON, claude.Content[1].OfText.Text)
}

func TestMessageNilContentWithoutVision(t *testing.T) {
	compat := ToOpenAICompatibleMessage(testInvocation, &types.CallResult{}, false)
	assert.Equal(t, wantPreamble+"\n[]\n", compat.Content)

	compat = ToOpenAICompatibleMessage(testInvocation, nil, false)
	assert.Equal(t, wantPreamble+"\n[]\n", compat.Content)
}

func TestOpenAIChatMessageWithVision(t *testing.T) {
	msg := ToOpenAIChatMessage(testInvocation, mixedResult, true)
	require.Len(t, msg.MultiContent, 4)

	assert.Equal(t, wantPreamble, msg.MultiContent[0].Text)
	assert.Equal(t, "42", msg.MultiContent[1].Text)

	img := msg.MultiContent[2]
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, img.Type)
	require.NotNil(t, img.ImageURL)
	assert.Equal(t, "data:image/png;base64,aGk=", img.ImageURL.URL)
	assert.Equal(t, openai.ImageURLDetailAuto, img.ImageURL.Detail)

	assert.Equal(t, "Unsupported type: audio", msg.MultiContent[3].Text)
}

func TestOpenAICompatibleMessageWithVision(t *testing.T) {
	res := &types.CallResult{Content: append([]types.ContentItem{{Type: types.ContentTypeText}}, append(mixedResult.Content, types.ContentItem{Type: "resource"})...)}

	msg := ToOpenAICompatibleMessage(testInvocation, res, true)
	assert.Equal(t, wantPreamble+"\n"+
		"no content\n"+
		"42\n"+
		"Here is a image result: data:image/png;base64,aGk=\n"+
		"Here is a audio result: data:audio/wav;base64,YXU=\n"+
		"Here is a unsupported result type: resource\n", msg.Content)
	assert.Nil(t, msg.MultiContent)
}

func TestOpenAIResponsesMessageWithVision(t *testing.T) {
	msg := ToOpenAIResponsesMessage(testInvocation, mixedResult, true)
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, []ResponsesInputContent{
		{Type: "input_text", Text: wantPreamble},
		{Type: "input_text", Text: "42"},
		{Type: "input_image", ImageURL: "data:image/png;base64,aGk=", Detail: "auto"},
		{Type: "input_text", Text: "Unsupported type: audio"},
	}, msg.Content.Parts)
}

func TestAnthropicMessageWithVision(t *testing.T) {
	res := &types.CallResult{Content: append(mixedResult.Content, types.ContentItem{Type: types.ContentTypeImage, Data: "Qk0=", MimeType: "image/bmp"})}

	msg := ToAnthropicMessage(testInvocation, res, true)
	require.Len(t, msg.Content, 5)

	assert.Equal(t, wantPreamble, msg.Content[0].OfText.Text)
	assert.Equal(t, "42", msg.Content[1].OfText.Text)

	img := msg.Content[2].OfImage
	require.NotNil(t, img)
	require.NotNil(t, img.Source.OfBase64)
	assert.Equal(t, "aGk=", img.Source.OfBase64.Data)
	assert.Equal(t, "image/png", string(img.Source.OfBase64.MediaType))

	assert.Equal(t, "Unsupported type: audio", msg.Content[3].OfText.Text)
	assert.Equal(t, "Unsupported image type: image/bmp", msg.Content[4].OfText.Text)
}

func TestGeminiMessageWithVision(t *testing.T) {
	res := &types.CallResult{Content: []types.ContentItem{
		{Type: types.ContentTypeText, Text: "42"},
		{Type: types.ContentTypeImage, Data: "aGk="},
		{Type: types.ContentTypeImage},
		{Type: types.ContentTypeAudio, Data: "YXU=", MimeType: "audio/wav"},
		{Type: types.ContentTypeAudio},
		{Type: "resource"},
	}}

	msg := ToGeminiMessage(testInvocation, res, true)
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, []GeminiPart{
		{Text: wantPreamble},
		{Text: "42"},
		{InlineData: &GeminiBlob{Data: "aGk=", MimeType: "image/png"}},
		{Text: "No image data provided"},
		{InlineData: &GeminiBlob{Data: "YXU=", MimeType: "audio/wav"}},
		{Text: "No audio data provided"},
		{Text: "Unsupported type: resource"},
	}, msg.Parts)
}

func TestAdapterTableDispatches(t *testing.T) {
	catalog := []types.Tool{testInvocation.Tool}

	tests := []struct {
		family      Family
		wantTools   any
		wantMessage any
	}{
		{FamilyOpenAIResponses, ToOpenAIResponsesTools(catalog), ToOpenAIResponsesMessage(testInvocation, mixedResult, true)},
		{FamilyOpenAIChat, ToOpenAIChatTools(catalog), ToOpenAIChatMessage(testInvocation, mixedResult, true)},
		{FamilyOpenAICompatible, ToOpenAIChatTools(catalog), ToOpenAICompatibleMessage(testInvocation, mixedResult, true)},
		{FamilyAnthropic, ToAnthropicTools(catalog), ToAnthropicMessage(testInvocation, mixedResult, true)},
		{FamilyGemini, ToGeminiTools(catalog), ToGeminiMessage(testInvocation, mixedResult, true)},
	}
	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			a, ok := Lookup(tt.family)
			require.True(t, ok)
			assert.Equal(t, tt.family, a.Family)
			assert.Equal(t, tt.wantTools, a.Tools(catalog))
			assert.Equal(t, tt.wantMessage, a.Message(testInvocation, mixedResult, true))
		})
	}

	_, ok := Lookup("cohere")
	assert.False(t, ok)
}
