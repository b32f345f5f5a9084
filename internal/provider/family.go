// Package provider adapts toolbridge tools and tool call results to the wire formats
// of the LLM provider APIs: OpenAI (responses and chat completions), Anthropic and Gemini.
package provider

import (
	"fmt"
	"strings"

	"github.com/mcpjungle/toolbridge/pkg/types"
)

// Family identifies an LLM provider API dialect.
type Family string

const (
	FamilyOpenAIResponses Family = "openai-responses"
	FamilyOpenAIChat      Family = "openai-chat"
	// FamilyOpenAICompatible is the chat completions API of text-only providers
	// that only accept string message content.
	FamilyOpenAICompatible Family = "openai-compatible"
	FamilyAnthropic        Family = "anthropic"
	FamilyGemini           Family = "gemini"
)

// Adapter groups the pure conversion functions of one provider family.
type Adapter struct {
	Family Family

	// Tools converts tools into the provider's tool registration payload.
	Tools func(tools []types.Tool) any

	// Message converts a completed tool call into the provider's follow-up message.
	Message func(inv types.InvocationRequest, res *types.CallResult, vision bool) any
}

var adapters = map[Family]Adapter{
	FamilyOpenAIResponses: {
		Family: FamilyOpenAIResponses,
		Tools:  func(tools []types.Tool) any { return ToOpenAIResponsesTools(tools) },
		Message: func(inv types.InvocationRequest, res *types.CallResult, vision bool) any {
			return ToOpenAIResponsesMessage(inv, res, vision)
		},
	},
	FamilyOpenAIChat: {
		Family: FamilyOpenAIChat,
		Tools:  func(tools []types.Tool) any { return ToOpenAIChatTools(tools) },
		Message: func(inv types.InvocationRequest, res *types.CallResult, vision bool) any {
			return ToOpenAIChatMessage(inv, res, vision)
		},
	},
	FamilyOpenAICompatible: {
		Family: FamilyOpenAICompatible,
		Tools:  func(tools []types.Tool) any { return ToOpenAIChatTools(tools) },
		Message: func(inv types.InvocationRequest, res *types.CallResult, vision bool) any {
			return ToOpenAICompatibleMessage(inv, res, vision)
		},
	},
	FamilyAnthropic: {
		Family: FamilyAnthropic,
		Tools:  func(tools []types.Tool) any { return ToAnthropicTools(tools) },
		Message: func(inv types.InvocationRequest, res *types.CallResult, vision bool) any {
			return ToAnthropicMessage(inv, res, vision)
		},
	},
	FamilyGemini: {
		Family: FamilyGemini,
		Tools:  func(tools []types.Tool) any { return ToGeminiTools(tools) },
		Message: func(inv types.InvocationRequest, res *types.CallResult, vision bool) any {
			return ToGeminiMessage(inv, res, vision)
		},
	},
}

// Families returns all supported provider families in a stable order.
func Families() []Family {
	return []Family{
		FamilyOpenAIResponses,
		FamilyOpenAIChat,
		FamilyOpenAICompatible,
		FamilyAnthropic,
		FamilyGemini,
	}
}

// Lookup returns the adapter registered for the family.
func Lookup(f Family) (Adapter, bool) {
	a, ok := adapters[f]
	return a, ok
}

// ParseFamily validates the input string and returns the corresponding Family.
// Matching is case-insensitive.
func ParseFamily(input string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(input)))
	if _, ok := adapters[f]; ok {
		return f, nil
	}
	if input == "" {
		return "", fmt.Errorf("provider is required (acceptable values: %s)", familyList())
	}
	return "", fmt.Errorf("unsupported provider: %s (acceptable values: %s)", input, familyList())
}

func familyList() string {
	names := make([]string, 0, len(adapters))
	for _, f := range Families() {
		names = append(names, "'"+string(f)+"'")
	}
	return strings.Join(names, ", ")
}
