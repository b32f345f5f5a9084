package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/mcpjungle/toolbridge/pkg/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ToolCallOutcome is the outcome of a tool call made to an upstream MCP server.
type ToolCallOutcome string

const (
	ToolCallOutcomeSuccess ToolCallOutcome = "success"
	ToolCallOutcomeError   ToolCallOutcome = "error"
)

// CustomMetrics records the toolbridge-specific metrics.
type CustomMetrics interface {
	// RecordToolCall records a single tool call to an upstream MCP server.
	RecordToolCall(ctx context.Context, serverName, toolName string, outcome ToolCallOutcome, elapsed time.Duration)

	// RecordInvocation records an invocation reaching a terminal status.
	RecordInvocation(ctx context.Context, toolName string, status types.InvocationStatus)
}

type noopCustomMetrics struct{}

// NewNoopCustomMetrics returns a CustomMetrics implementation that records nothing.
func NewNoopCustomMetrics() CustomMetrics {
	return noopCustomMetrics{}
}

func (noopCustomMetrics) RecordToolCall(context.Context, string, string, ToolCallOutcome, time.Duration) {
}

func (noopCustomMetrics) RecordInvocation(context.Context, string, types.InvocationStatus) {}

type otelCustomMetrics struct {
	toolCalls        metric.Int64Counter
	toolCallDuration metric.Float64Histogram
	invocations      metric.Int64Counter
}

// NewOtelCustomMetrics creates the toolbridge instruments on the given meter.
func NewOtelCustomMetrics(meter metric.Meter) (CustomMetrics, error) {
	toolCalls, err := meter.Int64Counter(
		"toolbridge.tool_calls",
		metric.WithDescription("Number of tool calls made to upstream MCP servers"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	toolCallDuration, err := meter.Float64Histogram(
		"toolbridge.tool_call.duration",
		metric.WithDescription("Latency of tool calls made to upstream MCP servers"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call duration histogram: %w", err)
	}

	invocations, err := meter.Int64Counter(
		"toolbridge.invocations",
		metric.WithDescription("Number of tool invocations that reached a terminal status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocations counter: %w", err)
	}

	return &otelCustomMetrics{
		toolCalls:        toolCalls,
		toolCallDuration: toolCallDuration,
		invocations:      invocations,
	}, nil
}

func (m *otelCustomMetrics) RecordToolCall(
	ctx context.Context, serverName, toolName string, outcome ToolCallOutcome, elapsed time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("server", serverName),
		attribute.String("tool", toolName),
		attribute.String("outcome", string(outcome)),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolCallDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *otelCustomMetrics) RecordInvocation(ctx context.Context, toolName string, status types.InvocationStatus) {
	m.invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", toolName),
		attribute.String("status", string(status)),
	))
}
