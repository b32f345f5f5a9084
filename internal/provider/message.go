package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/sashabaranov/go-openai"
)

const noContent = "no content"

// anthropicImageTypes are the image MIME types accepted by the Anthropic messages API.
var anthropicImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

func preamble(inv types.InvocationRequest) string {
	return fmt.Sprintf("Here is the result of mcp tool use `%s`:", inv.Tool.Name)
}

// contentJSON serializes the result content list the way it is shown to
// models that cannot consume the items natively.
func contentJSON(res *types.CallResult) string {
	content := res.Content
	if content == nil {
		content = []types.ContentItem{}
	}
	b, err := json.Marshal(content)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func textOrNoContent(item types.ContentItem) string {
	if item.Text == "" {
		return noContent
	}
	return item.Text
}

func unsupported(item types.ContentItem) string {
	return fmt.Sprintf("Unsupported type: %s", item.Type)
}

func orEmpty(res *types.CallResult) *types.CallResult {
	if res == nil {
		return &types.CallResult{}
	}
	return res
}

// ToOpenAIChatMessage converts a tool call result into an OpenAI chat completions user message.
// go-openai does not model input_audio parts, so audio items are reported as unsupported.
func ToOpenAIChatMessage(inv types.InvocationRequest, res *types.CallResult, vision bool) openai.ChatCompletionMessage {
	res = orEmpty(res)
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}

	if res.IsError {
		msg.Content = contentJSON(res)
		return msg
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: preamble(inv)}}
	if !vision {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: contentJSON(res)})
		msg.MultiContent = parts
		return msg
	}

	for _, item := range res.Content {
		switch item.Type {
		case types.ContentTypeText:
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: textOrNoContent(item)})
		case types.ContentTypeImage:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    item.DataURI(),
					Detail: openai.ImageURLDetailAuto,
				},
			})
		default:
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: unsupported(item)})
		}
	}
	msg.MultiContent = parts
	return msg
}

// ToOpenAICompatibleMessage converts a tool call result into a chat completions user message
// whose content is a single string, for providers that only accept text content.
func ToOpenAICompatibleMessage(inv types.InvocationRequest, res *types.CallResult, vision bool) openai.ChatCompletionMessage {
	res = orEmpty(res)
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}

	if res.IsError {
		msg.Content = contentJSON(res)
		return msg
	}

	var b strings.Builder
	b.WriteString(preamble(inv))
	b.WriteString("\n")

	if !vision {
		b.WriteString(contentJSON(res))
		b.WriteString("\n")
		msg.Content = b.String()
		return msg
	}

	for _, item := range res.Content {
		switch item.Type {
		case types.ContentTypeText:
			b.WriteString(textOrNoContent(item) + "\n")
		case types.ContentTypeImage:
			b.WriteString("Here is a image result: " + item.DataURI() + "\n")
		case types.ContentTypeAudio:
			b.WriteString("Here is a audio result: " + item.DataURI() + "\n")
		default:
			fmt.Fprintf(&b, "Here is a unsupported result type: %s\n", item.Type)
		}
	}
	msg.Content = b.String()
	return msg
}

// ToOpenAIResponsesMessage converts a tool call result into an OpenAI responses API input message.
func ToOpenAIResponsesMessage(inv types.InvocationRequest, res *types.CallResult, vision bool) ResponsesInputMessage {
	res = orEmpty(res)
	msg := ResponsesInputMessage{Role: "user"}

	if res.IsError {
		msg.Content = ResponsesMessageContent{Text: contentJSON(res)}
		return msg
	}

	parts := []ResponsesInputContent{{Type: "input_text", Text: preamble(inv)}}
	if !vision {
		parts = append(parts, ResponsesInputContent{Type: "input_text", Text: contentJSON(res)})
		msg.Content = ResponsesMessageContent{Parts: parts}
		return msg
	}

	for _, item := range res.Content {
		switch item.Type {
		case types.ContentTypeText:
			parts = append(parts, ResponsesInputContent{Type: "input_text", Text: textOrNoContent(item)})
		case types.ContentTypeImage:
			parts = append(parts, ResponsesInputContent{Type: "input_image", ImageURL: item.DataURI(), Detail: "auto"})
		default:
			parts = append(parts, ResponsesInputContent{Type: "input_text", Text: unsupported(item)})
		}
	}
	msg.Content = ResponsesMessageContent{Parts: parts}
	return msg
}

// ToAnthropicMessage converts a tool call result into an Anthropic user message.
// Images are sent as base64 sources; MIME types Anthropic does not accept become a text note.
func ToAnthropicMessage(inv types.InvocationRequest, res *types.CallResult, vision bool) anthropic.MessageParam {
	res = orEmpty(res)

	if res.IsError {
		return anthropic.NewUserMessage(anthropic.NewTextBlock(contentJSON(res)))
	}

	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(preamble(inv))}
	if !vision {
		blocks = append(blocks, anthropic.NewTextBlock(contentJSON(res)))
		return anthropic.NewUserMessage(blocks...)
	}

	for _, item := range res.Content {
		switch item.Type {
		case types.ContentTypeText:
			blocks = append(blocks, anthropic.NewTextBlock(textOrNoContent(item)))
		case types.ContentTypeImage:
			if anthropicImageTypes[item.MimeType] {
				blocks = append(blocks, anthropic.NewImageBlockBase64(item.MimeType, item.Data))
			} else {
				blocks = append(blocks, anthropic.NewTextBlock(fmt.Sprintf("Unsupported image type: %s", item.MimeType)))
			}
		default:
			blocks = append(blocks, anthropic.NewTextBlock(unsupported(item)))
		}
	}
	return anthropic.NewUserMessage(blocks...)
}

// ToGeminiMessage converts a tool call result into a Gemini user content.
// Images and audio are sent as inline data.
func ToGeminiMessage(inv types.InvocationRequest, res *types.CallResult, vision bool) GeminiContent {
	res = orEmpty(res)
	msg := GeminiContent{Role: "user"}

	if res.IsError {
		msg.Parts = []GeminiPart{{Text: contentJSON(res)}}
		return msg
	}

	parts := []GeminiPart{{Text: preamble(inv)}}
	if !vision {
		msg.Parts = append(parts, GeminiPart{Text: contentJSON(res)})
		return msg
	}

	for _, item := range res.Content {
		switch item.Type {
		case types.ContentTypeText:
			parts = append(parts, GeminiPart{Text: textOrNoContent(item)})
		case types.ContentTypeImage:
			if item.Data == "" {
				parts = append(parts, GeminiPart{Text: "No image data provided"})
				continue
			}
			mime := item.MimeType
			if mime == "" {
				mime = "image/png"
			}
			parts = append(parts, GeminiPart{InlineData: &GeminiBlob{Data: item.Data, MimeType: mime}})
		case types.ContentTypeAudio:
			if item.Data == "" {
				parts = append(parts, GeminiPart{Text: "No audio data provided"})
				continue
			}
			parts = append(parts, GeminiPart{InlineData: &GeminiBlob{Data: item.Data, MimeType: item.MimeType}})
		default:
			parts = append(parts, GeminiPart{Text: unsupported(item)})
		}
	}
	msg.Parts = parts
	return msg
}
