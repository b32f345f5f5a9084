// Package client provides a Go client for the toolbridge HTTP API.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mcpjungle/toolbridge/internal/api"
	"github.com/mcpjungle/toolbridge/pkg/types"
)

// Client represents a client for interacting with the toolbridge HTTP API
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a new client for the server at baseURL.
// accessToken is sent as a bearer token when non-empty.
func NewClient(baseURL string, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

// BaseURL returns the base URL of the server this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// constructAPIEndpoint constructs the full API endpoint URL for the given suffix path.
func (c *Client) constructAPIEndpoint(suffixPath string) (string, error) {
	return url.JoinPath(c.baseURL, api.V0ApiPathPrefix, suffixPath)
}

func (c *Client) newRequest(method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return req, nil
}

// parseErrorResponse turns a non-success response into an error.
// The server reports failures as {"error": "..."}; any other body is returned verbatim.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}

	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("request failed with status: %d, message: %s", resp.StatusCode, errResp.Error)
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("request failed with status: %d, message: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("request failed with status: %d", resp.StatusCode)
}

// do sends the request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.parseErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetMetadata returns the metadata of the toolbridge server.
func (c *Client) GetMetadata() (*types.ServerMetadata, error) {
	u, err := url.JoinPath(c.baseURL, "/metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to construct metadata URL: %w", err)
	}

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var meta types.ServerMetadata
	if err := c.do(req, http.StatusOK, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
