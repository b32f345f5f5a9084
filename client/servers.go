package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mcpjungle/toolbridge/pkg/types"
)

// ListServers returns all registered MCP servers.
func (c *Client) ListServers() ([]types.McpServer, error) {
	u, _ := c.constructAPIEndpoint("/servers")

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var servers []types.McpServer
	if err := c.do(req, http.StatusOK, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// RegisterServer registers a new MCP server with toolbridge.
func (c *Client) RegisterServer(input *types.RegisterServerInput) (*types.McpServer, error) {
	u, _ := c.constructAPIEndpoint("/servers")

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal server input: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var server types.McpServer
	if err := c.do(req, http.StatusCreated, &server); err != nil {
		return nil, err
	}
	return &server, nil
}

// DeregisterServer removes a server and its tools.
func (c *Client) DeregisterServer(name string) error {
	u, _ := c.constructAPIEndpoint("/servers/" + url.PathEscape(name))

	req, err := c.newRequest(http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, http.StatusNoContent, nil)
}

func (c *Client) ActivateServer(name string) (*types.McpServer, error) {
	u, _ := c.constructAPIEndpoint("/servers/" + url.PathEscape(name) + "/activate")

	req, err := c.newRequest(http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var server types.McpServer
	if err := c.do(req, http.StatusOK, &server); err != nil {
		return nil, err
	}
	return &server, nil
}

// SetAutoApprove replaces the list of tools of a server that always need the user's confirmation.
func (c *Client) SetAutoApprove(name string, disabledTools []string) (*types.McpServer, error) {
	u, _ := c.constructAPIEndpoint("/servers/" + url.PathEscape(name) + "/auto-approve")

	if disabledTools == nil {
		disabledTools = []string{}
	}
	body, err := json.Marshal(&types.SetAutoApproveInput{DisabledAutoApproveTools: disabledTools})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal auto-approve input: %w", err)
	}

	req, err := c.newRequest(http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var server types.McpServer
	if err := c.do(req, http.StatusOK, &server); err != nil {
		return nil, err
	}
	return &server, nil
}
