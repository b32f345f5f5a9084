// Package schema prunes JSON-schema-like tool parameter descriptions down to the
// vocabulary supported by a given LLM provider.
package schema

import (
	"slices"
	"sort"
)

// ExtraSchemaKeys are property names that are never listed as required.
var ExtraSchemaKeys = []string{"schema", "headers"}

// OpenAIResponsesKeys is the schema vocabulary accepted by OpenAI strict function tools.
var OpenAIResponsesKeys = []string{"type", "description", "items", "enum", "additionalProperties", "anyOf"}

// GeminiKeys is the schema vocabulary accepted by Gemini function declarations.
var GeminiKeys = []string{
	"example",
	"pattern",
	"default",
	"maxLength",
	"minLength",
	"minProperties",
	"maxProperties",
	"anyOf",
	"description",
	"enum",
	"format",
	"items",
	"maxItems",
	"maximum",
	"minItems",
	"minimum",
	"nullable",
	"properties",
	"propertyOrdering",
	"required",
	"title",
	"type",
}

// Filter returns a copy of node containing only the permitted keys, recursively.
//
// Every "properties" mapping has each of its property schemas filtered and forces
// additionalProperties=false and required=<all property names except ExtraSchemaKeys>
// on the enclosing object. "oneOf" is emitted as "anyOf". A kept "type": "object"
// also forces additionalProperties=false. Scalars and unexpected types pass through.
//
// Forced values are applied after the plain keys, so the result does not depend on
// map iteration order.
func Filter(node any, keys []string) any {
	switch n := node.(type) {
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = Filter(item, keys)
		}
		return out
	case []map[string]any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = Filter(item, keys)
		}
		return out
	case map[string]any:
		return filterMap(n, keys)
	default:
		return node
	}
}

func filterMap(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(m))
	forced := make(map[string]any)

	for key, value := range m {
		switch key {
		case "properties":
			props, ok := asMap(value)
			if !ok {
				out[key] = Filter(value, keys)
				continue
			}
			filtered := make(map[string]any, len(props))
			for name, prop := range props {
				filtered[name] = Filter(prop, keys)
			}
			forced["properties"] = filtered
			forced["additionalProperties"] = false
			forced["required"] = RequiredNames(props)
		case "oneOf":
			forced["anyOf"] = Filter(value, keys)
		default:
			if !slices.Contains(keys, key) {
				continue
			}
			out[key] = Filter(value, keys)
			if key == "type" && value == "object" {
				forced["additionalProperties"] = false
			}
		}
	}

	for key, value := range forced {
		out[key] = value
	}
	return out
}

// RequiredNames returns the sorted names of props, minus ExtraSchemaKeys.
func RequiredNames(props map[string]any) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		if slices.Contains(ExtraSchemaKeys, name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}
