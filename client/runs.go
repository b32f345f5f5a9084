package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mcpjungle/toolbridge/internal/api"
	"github.com/mcpjungle/toolbridge/pkg/types"
)

// ErrStreamIncomplete is returned when a tool-calls stream ends before its result event.
var ErrStreamIncomplete = errors.New("tool-calls stream ended without a result")

// StreamCallbacks receive the events of a tool-calls stream as they arrive.
// Both callbacks are optional.
type StreamCallbacks struct {
	// OnRun is called once with the run id, before any chunk.
	// Confirmations of the run are resolved with this id.
	OnRun func(runID string)

	OnChunk func(chunk types.Chunk)
}

// RunToolCalls submits the tool calls of one model response and follows the stream until
// the final result arrives. It blocks while invocations wait for confirmation, so confirmations
// have to be resolved from another goroutine or process.
func (c *Client) RunToolCalls(ctx context.Context, input *types.ToolCallsRequest, cb StreamCallbacks) (*types.ToolCallsResult, error) {
	u, _ := c.constructAPIEndpoint("/tool-calls")

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool calls request: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			if v, ok := strings.CutPrefix(line, "event:"); ok {
				event = strings.TrimSpace(v)
			} else if v, ok := strings.CutPrefix(line, "data:"); ok {
				data += strings.TrimSpace(v)
			}
			continue
		}

		result, err := dispatchEvent(event, data, cb)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		event, data = "", ""
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tool-calls stream: %w", err)
	}
	return nil, ErrStreamIncomplete
}

// dispatchEvent hands one complete event to the callbacks. It returns the result for the result event.
func dispatchEvent(event, data string, cb StreamCallbacks) (*types.ToolCallsResult, error) {
	switch event {
	case api.EventRun:
		var run struct {
			RunID string `json:"run_id"`
		}
		if err := json.Unmarshal([]byte(data), &run); err != nil {
			return nil, fmt.Errorf("failed to decode run event: %w", err)
		}
		if cb.OnRun != nil {
			cb.OnRun(run.RunID)
		}
	case api.EventChunk:
		var chunk types.Chunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("failed to decode chunk event: %w", err)
		}
		if cb.OnChunk != nil {
			cb.OnChunk(chunk)
		}
	case api.EventResult:
		var result types.ToolCallsResult
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			return nil, fmt.Errorf("failed to decode result event: %w", err)
		}
		return &result, nil
	}
	return nil, nil
}

// GetRun returns the invocations of a run that is still in progress.
func (c *Client) GetRun(runID string) ([]types.InvocationRequest, error) {
	u, _ := c.constructAPIEndpoint("/runs/" + url.PathEscape(runID))

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var invocations []types.InvocationRequest
	if err := c.do(req, http.StatusOK, &invocations); err != nil {
		return nil, err
	}
	return invocations, nil
}

// ListPendingConfirmations returns the ids of the invocations of a run waiting for the user's decision.
func (c *Client) ListPendingConfirmations(runID string) ([]string, error) {
	u, _ := c.constructAPIEndpoint("/runs/" + url.PathEscape(runID) + "/confirmations")

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var ids []string
	if err := c.do(req, http.StatusOK, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Confirm delivers the user's decision for a pending invocation.
func (c *Client) Confirm(runID, invocationID string, confirmed bool) error {
	u, _ := c.constructAPIEndpoint("/runs/" + url.PathEscape(runID) + "/confirmations/" + url.PathEscape(invocationID))

	body, err := json.Marshal(&types.ConfirmInvocationInput{Confirmed: confirmed})
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, http.StatusNoContent, nil)
}
