// Package telemetry provides OpenTelemetry observability for chatgraph:
// spans around node execution and checkpoint persistence, and counters for
// the archival sweep.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the name of the instrumentation.
	InstrumentationName = "github.com/chatgraph-go/chatgraph"
	// InstrumentationVersion is the version of the instrumentation.
	InstrumentationVersion = "1.0.0"
)

// SpanAttributes holds common attributes for spans.
var SpanAttributes = struct {
	NodeName     attribute.Key
	ThreadID     attribute.Key
	Step         attribute.Key
	RouteLabel   attribute.Key
	ErrorType    attribute.Key
	RetryAttempt attribute.Key
}{
	NodeName:     "chatgraph.node_name",
	ThreadID:     "chatgraph.thread_id",
	Step:         "chatgraph.step",
	RouteLabel:   "chatgraph.route_label",
	ErrorType:    "chatgraph.error_type",
	RetryAttempt: "chatgraph.retry_attempt",
}

// Metrics holds the instruments for engine and sweep instrumentation.
type Metrics struct {
	meter metric.Meter

	nodeExecutionDuration  metric.Float64Histogram
	nodeExecutionCount     metric.Int64Counter
	nodeErrorCount         metric.Int64Counter
	checkpointSaveDuration metric.Float64Histogram
	checkpointLoadDuration metric.Float64Histogram
	sweepThreadCount       metric.Int64Counter
	sweepFailureCount      metric.Int64Counter
	messagesArchivedCount  metric.Int64Counter
}

// NewMetrics creates the metric instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	if m.nodeExecutionDuration, err = meter.Float64Histogram(
		"chatgraph.node.execution.duration",
		metric.WithDescription("Duration of node execution in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.nodeExecutionCount, err = meter.Int64Counter(
		"chatgraph.node.execution.count",
		metric.WithDescription("Number of node executions"),
	); err != nil {
		return nil, err
	}
	if m.nodeErrorCount, err = meter.Int64Counter(
		"chatgraph.node.error.count",
		metric.WithDescription("Number of node execution errors"),
	); err != nil {
		return nil, err
	}
	if m.checkpointSaveDuration, err = meter.Float64Histogram(
		"chatgraph.checkpoint.save.duration",
		metric.WithDescription("Duration of checkpoint saves in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.checkpointLoadDuration, err = meter.Float64Histogram(
		"chatgraph.checkpoint.load.duration",
		metric.WithDescription("Duration of checkpoint loads in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.sweepThreadCount, err = meter.Int64Counter(
		"chatgraph.sweep.thread.count",
		metric.WithDescription("Number of threads processed by the archival sweep"),
	); err != nil {
		return nil, err
	}
	if m.sweepFailureCount, err = meter.Int64Counter(
		"chatgraph.sweep.failure.count",
		metric.WithDescription("Number of threads the archival sweep failed to archive"),
	); err != nil {
		return nil, err
	}
	if m.messagesArchivedCount, err = meter.Int64Counter(
		"chatgraph.sweep.messages.archived.count",
		metric.WithDescription("Number of messages forwarded to the archival index"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// Provider bundles a tracer and metrics.
type Provider struct {
	tracer  trace.Tracer
	metrics *Metrics
}

// NewProvider creates a Provider from the global otel tracer and meter
// providers.
func NewProvider() (*Provider, error) {
	tracer := otel.Tracer(InstrumentationName, trace.WithInstrumentationVersion(InstrumentationVersion))
	meter := otel.Meter(InstrumentationName, metric.WithInstrumentationVersion(InstrumentationVersion))

	metrics, err := NewMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &Provider{
		tracer:  tracer,
		metrics: metrics,
	}, nil
}

// StartNodeSpan starts a span for a node execution.
func (p *Provider) StartNodeSpan(ctx context.Context, nodeName, threadID string, step int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "node."+nodeName,
		trace.WithAttributes(
			SpanAttributes.NodeName.String(nodeName),
			SpanAttributes.ThreadID.String(threadID),
			SpanAttributes.Step.Int(step),
		),
	)
}

// EndNodeSpan finishes a node span and records execution metrics.
func (p *Provider) EndNodeSpan(ctx context.Context, span trace.Span, nodeName string, start time.Time, err error) {
	attrs := metric.WithAttributes(SpanAttributes.NodeName.String(nodeName))
	p.metrics.nodeExecutionCount.Add(ctx, 1, attrs)
	p.metrics.nodeExecutionDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, attrs)

	if err != nil {
		p.metrics.nodeErrorCount.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordCheckpointSave records the duration of a checkpoint save.
func (p *Provider) RecordCheckpointSave(ctx context.Context, threadID string, start time.Time) {
	p.metrics.checkpointSaveDuration.Record(ctx,
		float64(time.Since(start).Microseconds())/1000.0,
		metric.WithAttributes(SpanAttributes.ThreadID.String(threadID)))
}

// RecordCheckpointLoad records the duration of a checkpoint load.
func (p *Provider) RecordCheckpointLoad(ctx context.Context, threadID string, start time.Time) {
	p.metrics.checkpointLoadDuration.Record(ctx,
		float64(time.Since(start).Microseconds())/1000.0,
		metric.WithAttributes(SpanAttributes.ThreadID.String(threadID)))
}

// RecordSweepThread records a thread processed by the archival sweep.
func (p *Provider) RecordSweepThread(ctx context.Context, failed bool) {
	p.metrics.sweepThreadCount.Add(ctx, 1)
	if failed {
		p.metrics.sweepFailureCount.Add(ctx, 1)
	}
}

// RecordMessagesArchived records messages forwarded to the archival index.
func (p *Provider) RecordMessagesArchived(ctx context.Context, count int) {
	p.metrics.messagesArchivedCount.Add(ctx, int64(count))
}
