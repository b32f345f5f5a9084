package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpjungle/toolbridge/internal/model"
	"github.com/mcpjungle/toolbridge/internal/service/mcp"
	"github.com/mcpjungle/toolbridge/internal/telemetry"
	"github.com/mcpjungle/toolbridge/pkg/testhelpers"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	url string
	svc *mcp.MCPService
}

func newTestAPI(t *testing.T, providers *telemetry.Providers) *testAPI {
	t.Helper()
	setup := testhelpers.SetupTestDB(t)
	t.Cleanup(setup.Cleanup)

	svc, err := mcp.NewMCPService(&mcp.ServiceConfig{DB: setup.DB, McpServerInitReqTimeout: 5})
	require.NoError(t, err)

	s, err := NewServer(&ServerOptions{MCPService: svc, OtelProviders: providers})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testAPI{url: ts.URL, svc: svc}
}

func addTools(s *server.MCPServer) {
	s.AddTool(
		mcpgo.NewTool("add", mcpgo.WithDescription("add two numbers"),
			mcpgo.WithNumber("a", mcpgo.Required()), mcpgo.WithNumber("b", mcpgo.Required())),
		func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			args := req.GetArguments()
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)
			return mcpgo.NewToolResultText(strconv.FormatFloat(a+b, 'f', -1, 64)), nil
		},
	)
}

// registerCalc registers an active "calc" server backed by an in-process upstream.
func (a *testAPI) registerCalc(t *testing.T) {
	t.Helper()
	url := testhelpers.NewUpstreamMCPServer(t, "calc", addTools)
	s, err := model.NewStreamableHTTPServer("calc", "calculator", url, "", nil)
	require.NoError(t, err)
	require.NoError(t, a.svc.RegisterMcpServer(context.Background(), s))
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.url+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type sseEvent struct {
	name string
	data string
}

// readEvents reads server-sent events from r and sends them on the returned channel until EOF.
func readEvents(r io.Reader) <-chan sseEvent {
	events := make(chan sseEvent, 32)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var ev sseEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if ev.name != "" {
					events <- ev
				}
				ev = sseEvent{}
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
		}
	}()
	return events
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream ended early")
		return ev
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for an event")
		return sseEvent{}
	}
}

// collect drains the stream and returns the chunks and the final result.
func collect(t *testing.T, events <-chan sseEvent) ([]types.Chunk, types.ToolCallsResult) {
	t.Helper()
	var (
		chunks []types.Chunk
		result types.ToolCallsResult
		done   bool
	)
	for !done {
		ev := nextEvent(t, events)
		switch ev.name {
		case EventChunk:
			var chunk types.Chunk
			require.NoError(t, json.Unmarshal([]byte(ev.data), &chunk))
			chunks = append(chunks, chunk)
		case EventResult:
			require.NoError(t, json.Unmarshal([]byte(ev.data), &result))
			done = true
		}
	}
	return chunks, result
}

func (a *testAPI) startToolCalls(t *testing.T, req types.ToolCallsRequest) (string, <-chan sseEvent) {
	t.Helper()
	resp := a.do(t, http.MethodPost, V0ApiPathPrefix+"/tool-calls", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := readEvents(resp.Body)
	first := nextEvent(t, events)
	require.Equal(t, EventRun, first.name)

	var run struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(first.data), &run))
	require.NotEmpty(t, run.RunID)
	return run.RunID, events
}

func chunkTypes(chunks []types.Chunk) []types.ChunkType {
	out := make([]types.ChunkType, len(chunks))
	for i, c := range chunks {
		out[i] = c.Type
	}
	return out
}

func TestHealthAndMetadata(t *testing.T) {
	a := newTestAPI(t, nil)

	resp := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	meta := decode[types.ServerMetadata](t, a.do(t, http.MethodGet, "/metadata", nil))
	assert.NotEmpty(t, meta.Version)

	resp = a.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "metrics are only served with telemetry enabled")
}

func TestMetricsEndpoint(t *testing.T) {
	providers, err := telemetry.Init(context.Background(), &telemetry.Config{Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	a := newTestAPI(t, providers)
	resp := a.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerRegistration(t *testing.T) {
	a := newTestAPI(t, nil)
	url := testhelpers.NewUpstreamMCPServer(t, "calc", addTools)

	input := types.RegisterServerInput{Name: "calc", Transport: "streamable_http", URL: url, BearerToken: "secret"}
	resp := a.do(t, http.MethodPost, V0ApiPathPrefix+"/servers", input)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[types.McpServer](t, resp)
	assert.Equal(t, "calc", created.Name)
	assert.True(t, created.Active)
	assert.Equal(t, url, created.URL)

	resp = a.do(t, http.MethodPost, V0ApiPathPrefix+"/servers", input)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do(t, http.MethodPost, V0ApiPathPrefix+"/servers", types.RegisterServerInput{Name: "x", Transport: "grpc"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	later := types.RegisterServerInput{Name: "later", Transport: "streamable_http", URL: url, Inactive: true}
	resp = a.do(t, http.MethodPost, V0ApiPathPrefix+"/servers", later)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	servers := decode[[]types.McpServer](t, a.do(t, http.MethodGet, V0ApiPathPrefix+"/servers", nil))
	require.Len(t, servers, 2)
	assert.False(t, servers[1].Active)
	body, err := json.Marshal(servers)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "secret")

	resp = a.do(t, http.MethodPost, V0ApiPathPrefix+"/servers/later/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[types.McpServer](t, resp).Active)

	resp = a.do(t, http.MethodPut, V0ApiPathPrefix+"/servers/calc/auto-approve",
		types.SetAutoApproveInput{DisabledAutoApproveTools: []string{"add"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"add"}, decode[types.McpServer](t, resp).DisabledAutoApproveTools)

	resp = a.do(t, http.MethodPut, V0ApiPathPrefix+"/servers/nope/auto-approve", types.SetAutoApproveInput{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.do(t, http.MethodDelete, V0ApiPathPrefix+"/servers/later", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = a.do(t, http.MethodDelete, V0ApiPathPrefix+"/servers/later", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListToolsByProvider(t *testing.T) {
	a := newTestAPI(t, nil)
	a.registerCalc(t)

	tools := decode[[]types.Tool](t, a.do(t, http.MethodGet, V0ApiPathPrefix+"/tools", nil))
	require.Len(t, tools, 1)
	assert.Equal(t, "calc__add", tools[0].ID)

	anthropicTools := decode[[]map[string]any](t, a.do(t, http.MethodGet, V0ApiPathPrefix+"/tools?provider=anthropic", nil))
	require.Len(t, anthropicTools, 1)
	assert.Equal(t, "calc__add", anthropicTools[0]["name"])
	assert.Contains(t, anthropicTools[0], "input_schema")

	chatTools := decode[[]map[string]any](t, a.do(t, http.MethodGet, V0ApiPathPrefix+"/tools?provider=openai-chat", nil))
	require.Len(t, chatTools, 1)
	assert.Equal(t, "function", chatTools[0]["type"])

	filtered := decode[[]types.Tool](t, a.do(t, http.MethodGet, V0ApiPathPrefix+"/tools?servers=other", nil))
	assert.Empty(t, filtered)

	resp := a.do(t, http.MethodGet, V0ApiPathPrefix+"/tools?provider=cohere", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEnableDisableTools(t *testing.T) {
	a := newTestAPI(t, nil)
	a.registerCalc(t)

	resp := a.do(t, http.MethodPost, V0ApiPathPrefix+"/tools/disable?entity=calc__add", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"calc__add"}, decode[[]string](t, resp))
	assert.Empty(t, decode[[]types.Tool](t, a.do(t, http.MethodGet, V0ApiPathPrefix+"/tools", nil)))

	resp = a.do(t, http.MethodPost, V0ApiPathPrefix+"/tools/enable?entity=calc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]types.Tool](t, a.do(t, http.MethodGet, V0ApiPathPrefix+"/tools", nil)), 1)

	resp = a.do(t, http.MethodPost, V0ApiPathPrefix+"/tools/enable", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToolCallsAutoApproved(t *testing.T) {
	a := newTestAPI(t, nil)
	a.registerCalc(t)

	_, events := a.startToolCalls(t, types.ToolCallsRequest{
		Provider: "openai-compatible",
		Model:    types.Model{ID: "local-model"},
		Text:     `<tool_use><name>calc__add</name><arguments>{"a":40,"b":2}</arguments></tool_use>`,
	})
	chunks, result := collect(t, events)

	assert.Equal(t, []types.ChunkType{
		types.ChunkTypeToolPending, types.ChunkTypeToolInProgress, types.ChunkTypeToolComplete,
	}, chunkTypes(chunks))

	done := chunks[2].Responses[0]
	assert.Equal(t, "calc__add-0", done.ID)
	assert.Equal(t, types.StatusDone, done.Status)
	assert.Equal(t, "42", done.Response.Content[0].Text)

	require.Len(t, result.ToolResults, 1)
	msg := result.ToolResults[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Contains(t, msg["content"], "Here is the result of mcp tool use `add`:")
	require.Len(t, result.Confirmed, 1)
	assert.Equal(t, "calc__add-0", result.Confirmed[0].ID)
}

func TestToolCallsConfirmation(t *testing.T) {
	tests := []struct {
		name      string
		confirmed bool
	}{
		{"approved", true},
		{"denied", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t, nil)
			a.registerCalc(t)
			_, err := a.svc.SetDisabledAutoApproveTools("calc", []string{"add"})
			require.NoError(t, err)

			runID, events := a.startToolCalls(t, types.ToolCallsRequest{
				Provider:  "anthropic",
				ToolCalls: []types.CallToolInput{{ID: "toolu_1", Name: "calc__add", Arguments: map[string]any{"a": 1, "b": 2}}},
			})

			pending := nextEvent(t, events)
			assert.Equal(t, EventChunk, pending.name)
			assert.Contains(t, pending.data, string(types.ChunkTypeToolPending))

			confirmations := V0ApiPathPrefix + "/runs/" + runID + "/confirmations"
			require.Eventually(t, func() bool {
				var ids []string
				resp := a.do(t, http.MethodGet, confirmations, nil)
				return json.NewDecoder(resp.Body).Decode(&ids) == nil && len(ids) == 1 && ids[0] == "toolu_1"
			}, 5*time.Second, 10*time.Millisecond)

			snapshot := decode[[]types.InvocationRequest](t, a.do(t, http.MethodGet, V0ApiPathPrefix+"/runs/"+runID, nil))
			require.Len(t, snapshot, 1)
			assert.Equal(t, types.StatusPending, snapshot[0].Status)

			resp := a.do(t, http.MethodPost, confirmations+"/toolu_1", types.ConfirmInvocationInput{Confirmed: tt.confirmed})
			require.Equal(t, http.StatusNoContent, resp.StatusCode)

			chunks, result := collect(t, events)
			last := chunks[len(chunks)-1]
			require.Equal(t, types.ChunkTypeToolComplete, last.Type)

			if tt.confirmed {
				assert.Equal(t, types.StatusDone, last.Responses[0].Status)
				assert.Equal(t, "3", last.Responses[0].Response.Content[0].Text)
				require.Len(t, result.ToolResults, 1)
				require.Len(t, result.Confirmed, 1)
			} else {
				assert.Equal(t, types.StatusCancelled, last.Responses[0].Status)
				assert.Equal(t, "Tool call cancelled by user.", last.Responses[0].Response.Content[0].Text)
				assert.Empty(t, result.ToolResults)
				assert.Empty(t, result.Confirmed)
			}

			resp = a.do(t, http.MethodGet, V0ApiPathPrefix+"/runs/"+runID, nil)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, "finished runs are forgotten")
		})
	}
}

func TestToolCallsUnknownTool(t *testing.T) {
	a := newTestAPI(t, nil)
	a.registerCalc(t)

	_, events := a.startToolCalls(t, types.ToolCallsRequest{
		Provider:  "gemini",
		ToolCalls: []types.CallToolInput{{Name: "ghost"}},
		Text:      `<tool_use><name>calc__add</name><arguments>{}</arguments></tool_use>`,
	})
	chunks, result := collect(t, events)

	require.Len(t, chunks, 1, "structured calls take precedence over the text")
	assert.Equal(t, types.ChunkTypeWarning, chunks[0].Type)
	assert.Equal(t, `Tool "ghost" not found in MCP tools`, chunks[0].Message)
	assert.Empty(t, result.ToolResults)
}

func TestToolCallsBadRequests(t *testing.T) {
	a := newTestAPI(t, nil)

	resp := a.do(t, http.MethodPost, V0ApiPathPrefix+"/tool-calls", types.ToolCallsRequest{Provider: "anthropic"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodPost, V0ApiPathPrefix+"/tool-calls", types.ToolCallsRequest{Provider: "cohere", Text: "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodPost, V0ApiPathPrefix+"/tool-calls", types.ToolCallsRequest{
		Provider: "anthropic",
		ToolCalls: []types.CallToolInput{
			{ID: "toolu_1", Name: "calc__add"},
			{Name: "calc__add"},
			{ID: "toolu_1", Name: "calc__add"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[map[string]string](t, resp)["error"], `duplicate tool call id "toolu_1"`)

	resp = a.do(t, http.MethodPost, V0ApiPathPrefix+"/runs/nope/confirmations/x", types.ConfirmInvocationInput{Confirmed: true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ids := decode[[]string](t, a.do(t, http.MethodGet, V0ApiPathPrefix+"/runs/nope/confirmations", nil))
	assert.Empty(t, ids)
}

func TestResolveToolCalls(t *testing.T) {
	tools := []types.Tool{
		{ID: "calc__add", Name: "add", ServerName: "calc"},
		{ID: "web__search", Name: "search", ServerName: "web"},
	}
	var warnings []string

	got := resolveToolCalls(tools, []types.CallToolInput{
		{Name: "calc__add", Arguments: map[string]any{"a": 1}},
		{Name: "missing"},
		{ID: "call_9", Name: "search"},
	}, 4, func(msg string) { warnings = append(warnings, msg) })

	require.Len(t, got, 2)
	assert.Equal(t, "calc__add-4", got[0].ID)
	assert.Equal(t, "calc__add", got[0].ToolUseID)
	assert.Equal(t, map[string]any{"a": 1}, got[0].Arguments)
	assert.Equal(t, "call_9", got[1].ID)
	assert.Equal(t, "call_9", got[1].ToolUseID)
	assert.Equal(t, "web__search", got[1].Tool.ID)
	assert.Equal(t, []string{`Tool "missing" not found in MCP tools`}, warnings)

	assert.NotNil(t, resolveToolCalls(tools, nil, 0, func(string) {}))
}

func TestDuplicateToolCallID(t *testing.T) {
	_, ok := duplicateToolCallID([]types.CallToolInput{{ID: "a"}, {}, {}, {ID: "b"}})
	assert.False(t, ok, "calls without an id get generated ones")

	id, ok := duplicateToolCallID([]types.CallToolInput{{ID: "a"}, {ID: "b"}, {ID: "a"}})
	assert.True(t, ok)
	assert.Equal(t, "a", id)
}
