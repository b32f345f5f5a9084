// Package orchestrator runs the approval, confirmation and execution workflow of the tool
// invocations found in an LLM response, streaming every status change to the caller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mcpjungle/toolbridge/internal/telemetry"
	"github.com/mcpjungle/toolbridge/internal/tooluse"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"go.uber.org/zap"
)

const (
	cancelledByUserText     = "Tool call cancelled by user."
	executionErrorPrefix    = "Error executing tool: "
	confirmationErrorPrefix = "Error in confirmation process: "
	imageDataType           = "base64"
)

var (
	ErrNilSink      = errors.New("chunk sink is required")
	ErrNilConverter = errors.New("result converter is required")
	ErrNilAggregate = errors.New("invocation aggregate is required")
)

// DuplicateInvocationWarning is reported for a second invocation with the same ID in one run.
func DuplicateInvocationWarning(id string) string {
	return fmt.Sprintf("Duplicate tool call %q skipped", id)
}

// FinishedInvocationWarning is reported for an invocation whose ID already finished in the aggregate.
func FinishedInvocationWarning(id string) string {
	return fmt.Sprintf("Tool call %q already finished, skipped", id)
}

// ServerLookup resolves the MCP server that owns a tool.
// A nil server or an error both mean the server is unknown and its tools are never auto-approved.
type ServerLookup interface {
	GetServerByID(id string) (*types.McpServer, error)
}

// Executor calls a tool on its MCP server.
type Executor interface {
	CallTool(ctx context.Context, inv types.InvocationRequest) (*types.CallResult, error)
}

// Confirmer asks the user whether an invocation may run.
// It must return when ctx is done.
type Confirmer interface {
	RequestConfirmation(ctx context.Context, invocationID string) (bool, error)
}

// ChunkSink receives the status chunks of a run.
// It is only ever called from one goroutine at a time.
type ChunkSink func(chunk types.Chunk)

// ConvertFunc turns a completed tool call into the provider message sent back to the model.
// Returning false drops the result.
type ConvertFunc[R any] func(inv types.InvocationRequest, res *types.CallResult, model types.Model) (R, bool)

// Config holds the collaborators of an Orchestrator.
type Config struct {
	Servers   ServerLookup
	Executor  Executor
	Confirmer Confirmer

	Logger  *zap.Logger
	Metrics telemetry.CustomMetrics
}

// Orchestrator runs tool invocations. It is safe for concurrent use by multiple runs.
type Orchestrator struct {
	servers   ServerLookup
	executor  Executor
	confirmer Confirmer

	logger  *zap.Logger
	metrics telemetry.CustomMetrics
}

// New creates an Orchestrator. A nil logger or metrics falls back to a no-op implementation.
func New(c *Config) *Orchestrator {
	o := &Orchestrator{
		servers:   c.Servers,
		executor:  c.Executor,
		confirmer: c.Confirmer,
		logger:    c.Logger,
		metrics:   c.Metrics,
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = telemetry.NewNoopCustomMetrics()
	}
	return o
}

// Request describes one run.
type Request[R any] struct {
	// Invocations is the list of structured tool calls from the provider.
	// When nil, Text is parsed for <tool_use> blocks instead.
	Invocations []types.InvocationRequest

	Text  string
	Tools []types.Tool

	// StartIndex numbers the invocations parsed from Text. Runs that share an Aggregate must
	// advance it past the IDs already used, for example to Aggregate.Len(), or the parsed
	// invocations collide with finished records and are skipped.
	StartIndex int

	// Aggregate receives every status change. It may be shared by the runs of a conversation.
	Aggregate *Aggregate

	Sink    ChunkSink
	Convert ConvertFunc[R]
	Model   types.Model

	// Warn optionally receives user-facing warnings in addition to the warning chunks.
	Warn tooluse.WarnFunc
}

// Outcome is the result of a run.
type Outcome[R any] struct {
	// Results holds the converted messages of the completed tool calls, in completion order.
	Results []R

	// Confirmed holds the invocations whose results appear in Results, in the same order.
	Confirmed []types.InvocationRequest
}

// update is a message from an invocation goroutine to the run's dispatcher.
// Exactly one of its fields is set.
type update[R any] struct {
	upsert    *types.InvocationRequest
	chunk     *types.Chunk
	converted *converted[R]
}

type converted[R any] struct {
	inv    types.InvocationRequest
	result R
}

// run holds the state of a single Run call.
type run[R any] struct {
	o      *Orchestrator
	req    Request[R]
	ledger *Ledger

	updates chan update[R]
	outcome *Outcome[R]
}

// Run detects, approves and executes the tool invocations of one model response.
//
// Every status change goes to req.Aggregate and is pushed to req.Sink.
// Per-invocation failures never fail the run. The returned error is only set
// when the request is missing a required collaborator.
func Run[R any](ctx context.Context, o *Orchestrator, req Request[R]) (*Outcome[R], error) {
	if req.Sink == nil {
		return nil, ErrNilSink
	}
	if req.Convert == nil {
		return nil, ErrNilConverter
	}
	if req.Aggregate == nil {
		return nil, ErrNilAggregate
	}

	r := &run[R]{
		o:       o,
		req:     req,
		ledger:  NewLedger(),
		updates: make(chan update[R]),
		outcome: &Outcome[R]{Results: []R{}, Confirmed: []types.InvocationRequest{}},
	}

	parsed := slices.Clone(req.Invocations)
	if parsed == nil {
		parsed = tooluse.Parse(req.Text, req.Tools, req.StartIndex, r.warn)
	}
	if len(parsed) == 0 {
		return r.outcome, nil
	}

	// Registration happens before any invocation goroutine exists, so the pending chunks
	// are emitted and same-name release targets are known before the first confirmation.
	invocations := make([]types.InvocationRequest, 0, len(parsed))
	autoApproved := make([]bool, 0, len(parsed))
	seen := make(map[string]struct{}, len(parsed))
	for _, inv := range parsed {
		if _, ok := seen[inv.ID]; ok {
			r.warn(DuplicateInvocationWarning(inv.ID))
			continue
		}
		seen[inv.ID] = struct{}{}

		inv.Status = types.StatusPending
		if !r.apply(update[R]{upsert: &inv}) {
			r.warn(FinishedInvocationWarning(inv.ID))
			continue
		}
		auto := o.isAutoApproved(inv.Tool)
		if !auto {
			r.ledger.Register(inv.ID, inv.Tool.Name)
		}
		invocations = append(invocations, inv)
		autoApproved = append(autoApproved, auto)
	}

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for u := range r.updates {
			r.apply(u)
		}
	}()

	var wg sync.WaitGroup
	for i := range invocations {
		wg.Add(1)
		go func(inv types.InvocationRequest, auto bool) {
			defer wg.Done()
			r.process(ctx, inv, auto)
		}(invocations[i], autoApproved[i])
	}
	wg.Wait()

	close(r.updates)
	<-dispatched

	return r.outcome, nil
}

// isAutoApproved reports whether the tool may run without asking the user.
// Tools of unknown servers are never auto-approved.
func (o *Orchestrator) isAutoApproved(tool types.Tool) bool {
	if o.servers == nil {
		return false
	}
	s, err := o.servers.GetServerByID(tool.ServerID)
	if err != nil {
		o.logger.Debug("failed to look up server of tool, asking for confirmation",
			zap.String("tool", tool.ID), zap.String("server_id", tool.ServerID), zap.Error(err))
		return false
	}
	if s == nil {
		return false
	}
	return !slices.Contains(s.DisabledAutoApproveTools, tool.Name)
}

// process runs the whole lifecycle of one invocation. It only communicates through r.updates.
func (r *run[R]) process(ctx context.Context, inv types.InvocationRequest, autoApproved bool) {
	confirmed := true
	if !autoApproved {
		var err error
		confirmed, err = r.awaitConfirmation(ctx, inv)
		if err != nil {
			r.o.logger.Warn("failed to get tool call confirmation",
				zap.String("invocation_id", inv.ID), zap.String("tool", inv.Tool.ID), zap.Error(err))
			r.send(inv, types.StatusCancelled, types.TextResult(confirmationErrorPrefix+err.Error(), true))
			return
		}
	}

	if !confirmed {
		r.send(inv, types.StatusCancelled, types.TextResult(cancelledByUserText, false))
		return
	}

	r.send(inv, types.StatusInvoking, nil)

	res, err := r.execute(ctx, inv)
	if err != nil {
		r.o.logger.Error("failed to execute tool",
			zap.String("invocation_id", inv.ID), zap.String("tool", inv.Tool.ID), zap.Error(err))
		r.send(inv, types.StatusDone, types.TextResult(executionErrorPrefix+err.Error(), true))
		return
	}
	done := r.send(inv, types.StatusDone, res)

	if images := collectImages(res); len(images) > 0 {
		r.updates <- update[R]{chunk: &types.Chunk{Type: types.ChunkTypeImageCreated}}
		r.updates <- update[R]{chunk: &types.Chunk{
			Type:  types.ChunkTypeImageComplete,
			Image: &types.ImageData{Type: imageDataType, Images: images},
		}}
	}

	if msg, ok := r.req.Convert(done, res, r.req.Model); ok {
		r.updates <- update[R]{converted: &converted[R]{inv: done, result: msg}}
	}
}

// awaitConfirmation waits for the user's decision on inv, or for the confirmation of another
// invocation of the same tool name in this run. The outstanding confirmation request is
// cancelled when the invocation is released.
func (r *run[R]) awaitConfirmation(ctx context.Context, inv types.InvocationRequest) (bool, error) {
	defer r.ledger.Settle(inv.ID)

	if r.o.confirmer == nil {
		return false, errors.New("no confirmer configured")
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type decision struct {
		confirmed bool
		err       error
	}
	decided := make(chan decision, 1)
	go func() {
		confirmed, err := r.o.confirmer.RequestConfirmation(waitCtx, inv.ID)
		decided <- decision{confirmed, err}
	}()

	select {
	case d := <-decided:
		if d.err != nil {
			return false, d.err
		}
		if d.confirmed {
			if released := r.ledger.ReleaseSameName(inv.ID); len(released) > 0 {
				r.o.logger.Debug("confirmed invocations of the same tool",
					zap.String("invocation_id", inv.ID), zap.Strings("released", released))
			}
		}
		return d.confirmed, nil
	case <-r.ledger.Released(inv.ID):
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// execute calls the tool. Cancelling the run does not abort a call that already started.
func (r *run[R]) execute(ctx context.Context, inv types.InvocationRequest) (res *types.CallResult, err error) {
	if r.o.executor == nil {
		return nil, errors.New("no executor configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool call panicked: %v", p)
		}
	}()

	res, err = r.o.executor.CallTool(context.WithoutCancel(ctx), inv)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &types.CallResult{Content: []types.ContentItem{}}
	}
	return res, nil
}

// send hands a status change to the dispatcher and returns the invocation as sent.
func (r *run[R]) send(inv types.InvocationRequest, status types.InvocationStatus, res *types.CallResult) types.InvocationRequest {
	inv.Status = status
	inv.Response = res
	r.updates <- update[R]{upsert: &inv}
	return inv
}

// apply is only called by the goroutine that owns the run's shared state.
// It returns false if an invocation update was rejected by the aggregate.
func (r *run[R]) apply(u update[R]) bool {
	switch {
	case u.upsert != nil:
		stored, err := r.req.Aggregate.Upsert(*u.upsert)
		if err != nil {
			r.o.logger.Warn("dropped invocation update",
				zap.String("invocation_id", u.upsert.ID), zap.Error(err))
			return false
		}
		if stored.Status.IsTerminal() {
			r.o.metrics.RecordInvocation(context.Background(), stored.Tool.Name, stored.Status)
		}
		if chunkType, ok := types.ChunkTypeForStatus(stored.Status); ok {
			r.req.Sink(types.Chunk{Type: chunkType, Responses: []types.InvocationRequest{stored}})
		}

	case u.chunk != nil:
		r.req.Sink(*u.chunk)

	case u.converted != nil:
		r.outcome.Results = append(r.outcome.Results, u.converted.result)
		r.outcome.Confirmed = append(r.outcome.Confirmed, u.converted.inv)
	}
	return true
}

// warn reports a parse warning as a chunk. Parsing happens before the dispatcher starts.
func (r *run[R]) warn(message string) {
	r.o.logger.Warn(message)
	r.req.Sink(types.Chunk{Type: types.ChunkTypeWarning, Message: message})
	if r.req.Warn != nil {
		r.req.Warn(message)
	}
}

// collectImages returns the image items of res as data URIs.
func collectImages(res *types.CallResult) []string {
	var images []string
	for _, item := range res.Content {
		if item.Type == types.ContentTypeImage && item.Data != "" {
			images = append(images, item.DataURI())
		}
	}
	return images
}
