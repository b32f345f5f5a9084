package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mcpjungle/toolbridge/pkg/types"
)

// ListTools returns the descriptors of all enabled tools of active servers.
func (c *Client) ListTools() ([]types.Tool, error) {
	u, _ := c.constructAPIEndpoint("/tools")

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var tools []types.Tool
	if err := c.do(req, http.StatusOK, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// ListProviderTools returns the tool catalog rendered in the registration shape of a provider family,
// e.g. "anthropic" or "openai-chat". The tools are returned undecoded so that they can be passed
// straight to the provider's SDK.
func (c *Client) ListProviderTools(provider string) (json.RawMessage, error) {
	u, _ := c.constructAPIEndpoint("/tools")
	u += "?" + url.Values{"provider": {provider}}.Encode()

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var tools json.RawMessage
	if err := c.do(req, http.StatusOK, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// EnableTools enables a single tool (server__tool) or all tools of a server.
// It returns the canonical names of the tools that were changed.
func (c *Client) EnableTools(entity string) ([]string, error) {
	return c.setToolsEnabled("/tools/enable", entity)
}

// DisableTools disables a single tool (server__tool) or all tools of a server.
func (c *Client) DisableTools(entity string) ([]string, error) {
	return c.setToolsEnabled("/tools/disable", entity)
}

func (c *Client) setToolsEnabled(path, entity string) ([]string, error) {
	u, _ := c.constructAPIEndpoint(path)
	u += "?" + url.Values{"entity": {entity}}.Encode()

	req, err := c.newRequest(http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var changed []string
	if err := c.do(req, http.StatusOK, &changed); err != nil {
		return nil, err
	}
	return changed, nil
}
