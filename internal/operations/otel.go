package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"salesinsight/internal/infrastructure"
)

// TracerName is the instrumentation scope of pipeline spans
const TracerName = "salesinsight.operation"

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs.
// A nil tracer is valid and records nothing.
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer over the given providers
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	tracer := otel.Tracer(TracerName)
	if providers == nil {
		return &OperationTracer{tracer: tracer}, nil
	}
	if providers.Tracer != nil {
		tracer = providers.Tracer
	}
	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	return &OperationTracer{tracer: tracer, metrics: metrics}, nil
}

// Metrics returns the pipeline instruments
func (pt *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	if pt == nil {
		return nil
	}
	return pt.metrics
}

// TraceOperationExecution creates a span for a whole run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string, req Request) (context.Context, trace.Span) {
	if pt == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return pt.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("operation.source", req.Source),
			attribute.Int("operation.top_n", req.TopN),
		),
	)
}

// TraceStageExecution creates a span for one step
func (pt *OperationTracer) TraceStageExecution(ctx context.Context, operationID, stageID string) (context.Context, trace.Span) {
	if pt == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return pt.tracer.Start(ctx, "operation.step."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stageID),
		),
	)
}

// RecordStageCompletion ends a step span and records its duration
func (pt *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stageID string, duration time.Duration, err error) {
	if pt == nil {
		return
	}
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	pt.metrics.RecordStep(ctx, stageID, duration, err == nil)
}

// RecordRows records the size of a table a step produced
func (pt *OperationTracer) RecordRows(ctx context.Context, stage string, rows int) {
	if pt == nil {
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("rows."+stage, rows))
	pt.metrics.RecordRows(ctx, stage, rows)
}

// RecordOperationCompletion ends the run span and records run metrics
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, result *Result, err error) {
	if pt == nil {
		return
	}
	span.SetAttributes(
		attribute.String("operation.status", string(result.Status)),
		attribute.Int("operation.reports", len(result.Reports)),
		attribute.Int("operation.diagnostics", len(result.Diagnostics())),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	pt.metrics.RecordRun(ctx, result.Duration, err == nil, len(result.Reports), len(result.Diagnostics()))
}
