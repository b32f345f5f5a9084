package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mcpjungle/toolbridge/internal/provider"
	"github.com/mcpjungle/toolbridge/internal/service/orchestrator"
	"github.com/mcpjungle/toolbridge/internal/tooluse"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"go.uber.org/zap"
)

// Server-sent event names of a tool-calls stream.
const (
	EventRun    = "run"
	EventChunk  = "chunk"
	EventResult = "result"
)

// toolCallsHandler streams the processing of the tool calls of one model response as server-sent events.
// The stream opens with a run event carrying the run id used to resolve confirmations, continues
// with one chunk event per status change and ends with a result event.
func (s *Server) toolCallsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ToolCallsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(req.Text) == "" && len(req.ToolCalls) == 0 {
			abortWithError(c, http.StatusBadRequest, errors.New("either 'text' or 'tool_calls' is required"))
			return
		}
		if id, ok := duplicateToolCallID(req.ToolCalls); ok {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("duplicate tool call id %q", id))
			return
		}

		adapter, err := lookupAdapter(req.Provider)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		if req.Model.Provider == "" {
			req.Model.Provider = string(adapter.Family)
		}

		tools, err := s.mcpService.ListTools()
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}

		runID := uuid.NewString()
		aggregate := orchestrator.NewAggregate()
		s.runs.Store(runID, aggregate)
		defer s.runs.Delete(runID)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)

		send := func(event string, data any) {
			c.SSEvent(event, data)
			c.Writer.Flush()
		}
		send(EventRun, gin.H{"run_id": runID})

		sink := func(chunk types.Chunk) { send(EventChunk, chunk) }

		var invocations []types.InvocationRequest
		if len(req.ToolCalls) > 0 {
			invocations = resolveToolCalls(tools, req.ToolCalls, req.StartIndex, func(msg string) {
				sink(types.Chunk{Type: types.ChunkTypeWarning, Message: msg})
			})
		}

		outcome, err := orchestrator.Run(c.Request.Context(), s.newOrchestrator(runID), orchestrator.Request[any]{
			Invocations: invocations,
			Text:        req.Text,
			Tools:       tools,
			StartIndex:  req.StartIndex,
			Aggregate:   aggregate,
			Sink:        sink,
			Convert: func(inv types.InvocationRequest, res *types.CallResult, model types.Model) (any, bool) {
				return adapter.Message(inv, res, model.Vision), true
			},
			Model: req.Model,
		})
		if err != nil {
			s.logger.Error("tool-calls run failed", zap.String("run_id", runID), zap.Error(err))
			send(EventChunk, types.Chunk{Type: types.ChunkTypeWarning, Message: err.Error()})
			return
		}

		send(EventResult, types.ToolCallsResult{
			RunID:       runID,
			ToolResults: outcome.Results,
			Confirmed:   outcome.Confirmed,
		})
	}
}

// resolveToolCalls turns generic tool call references into invocations.
// Calls that match no tool are reported through warn and skipped.
// The returned slice is never nil so that the caller's text is not parsed as a fallback.
func resolveToolCalls(tools []types.Tool, calls []types.CallToolInput, start int, warn tooluse.WarnFunc) []types.InvocationRequest {
	invocations := make([]types.InvocationRequest, 0, len(calls))
	idx := start
	for _, call := range calls {
		tool, ok := provider.FindTool(tools, call.Name)
		if !ok {
			warn(tooluse.NotFoundWarning(call.Name))
			continue
		}

		inv := types.InvocationRequest{
			ID:        call.ID,
			ToolUseID: call.ID,
			Tool:      tool,
			Arguments: call.Arguments,
			Status:    types.StatusPending,
		}
		if inv.ID == "" {
			inv.ID = fmt.Sprintf("%s-%d", tool.ID, idx)
			inv.ToolUseID = tool.ID
		}
		idx++
		invocations = append(invocations, inv)
	}
	return invocations
}

// duplicateToolCallID returns the first explicit id used by more than one call.
func duplicateToolCallID(calls []types.CallToolInput) (string, bool) {
	seen := make(map[string]struct{}, len(calls))
	for _, call := range calls {
		if call.ID == "" {
			continue
		}
		if _, ok := seen[call.ID]; ok {
			return call.ID, true
		}
		seen[call.ID] = struct{}{}
	}
	return "", false
}
