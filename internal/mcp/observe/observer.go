// Package observe reports MCP tool calls to OpenTelemetry.
package observe

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the meter and tracer used by the observer.
const InstrumentationName = "github.com/Laisky/xero-mcp/internal/mcp"

// ToolObserver records tool invocations as spans, counters and latency histograms.
type ToolObserver struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	if meter == nil {
		return nil, errors.New("meter is required")
	}

	invocations, err := meter.Int64Counter(
		"xero_mcp.tool.invocations",
		metric.WithDescription("Number of MCP tool invocations"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create invocation counter")
	}
	latency, err := meter.Float64Histogram(
		"xero_mcp.tool.latency",
		metric.WithDescription("MCP tool latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create latency histogram")
	}

	return &ToolObserver{
		tracer:      tracer,
		invocations: invocations,
		latency:     latency,
	}, nil
}

// Invocation is one in-flight tool call.
type Invocation struct {
	observer *ToolObserver
	ctx      context.Context
	span     trace.Span
	toolName string
	startAt  time.Time
}

// Start opens a span for toolName. The returned context carries the span so
// outbound Xero requests nest under it.
func (o *ToolObserver) Start(ctx context.Context, toolName string) (context.Context, *Invocation) {
	if o == nil {
		return ctx, nil
	}

	inv := &Invocation{
		observer: o,
		toolName: toolName,
		startAt:  time.Now(),
	}
	if o.tracer != nil {
		ctx, inv.span = o.tracer.Start(ctx, "mcp.tool "+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("tool_name", toolName)),
		)
	}
	inv.ctx = ctx
	return ctx, inv
}

// Finish records the outcome of the call. errText is empty on success.
func (i *Invocation) Finish(success bool, errText string) {
	if i == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", i.toolName),
		attribute.Bool("success", success),
	}
	ctx := context.WithoutCancel(i.ctx)
	options := metric.WithAttributes(attrs...)
	i.observer.invocations.Add(ctx, 1, options)
	i.observer.latency.Record(ctx, time.Since(i.startAt).Seconds(), options)

	if i.span == nil {
		return
	}
	i.span.SetAttributes(attribute.Bool("success", success))
	if success {
		i.span.SetStatus(codes.Ok, "")
	} else {
		i.span.SetStatus(codes.Error, errText)
	}
	i.span.End()
}
