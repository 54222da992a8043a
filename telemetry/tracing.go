// OpenTelemetry spans for agent runs: one per run, per oracle call, per tool
// call and per automation step.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with agent-specific helpers.
type Tracer struct {
	tracer trace.Tracer
	debug  bool // When true, include prompts and results in span attributes
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a tracer on the global OpenTelemetry provider.
func NewTracer(name string, debug bool) *Tracer {
	return &Tracer{
		tracer: otel.Tracer(name),
		debug:  debug,
	}
}

// NewTracerFrom creates a tracer on an explicit provider.
func NewTracerFrom(tp trace.TracerProvider, name string, debug bool) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(name),
		debug:  debug,
	}
}

// SetDebug enables or disables debug mode.
func (t *Tracer) SetDebug(debug bool) {
	t.debug = debug
}

// Debug returns whether debug mode is enabled.
func (t *Tracer) Debug() bool {
	return t.debug
}

// --- Run Spans ---

// StartRunSpan starts the root span of one agent run.
func (t *Tracer) StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "agent.run", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("run.id", runID))
	return ctx, span
}

// EndRunSpan ends a run span.
func (t *Tracer) EndRunSpan(span trace.Span, iterations int, finalAnswer string, err error) {
	span.SetAttributes(attribute.Int("run.iterations", iterations))
	if finalAnswer != "" {
		span.SetAttributes(attribute.String("run.final_answer", truncate(finalAnswer, 500)))
	}
	finish(span, err)
}

// --- Oracle Spans ---

// OracleSpanOptions contains options for oracle call spans.
type OracleSpanOptions struct {
	Iteration int
	Provider  string
	Model     string
	TokensIn  int
	TokensOut int
	Prompt    string // Only included if debug=true
	Response  string // Only included if debug=true
}

// StartOracleSpan starts a span for one generation.
func (t *Tracer) StartOracleSpan(ctx context.Context, iteration int) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "oracle.generate", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.Int("oracle.iteration", iteration))
	return ctx, span
}

// EndOracleSpan ends an oracle span with attributes.
func (t *Tracer) EndOracleSpan(span trace.Span, opts OracleSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("oracle.provider", opts.Provider),
		attribute.String("oracle.model", opts.Model),
		attribute.Int("oracle.tokens.input", opts.TokensIn),
		attribute.Int("oracle.tokens.output", opts.TokensOut),
	}
	if t.debug {
		if opts.Prompt != "" {
			attrs = append(attrs, attribute.String("oracle.prompt", truncate(opts.Prompt, 4000)))
		}
		if opts.Response != "" {
			attrs = append(attrs, attribute.String("oracle.response", truncate(opts.Response, 4000)))
		}
	}
	span.SetAttributes(attrs...)
	finish(span, err)
}

// --- Tool Spans ---

// ToolSpanOptions contains options for tool call spans.
type ToolSpanOptions struct {
	Tool   string
	Args   string // Ordered JSON object; always included
	Result string // Only included if debug=true
}

// StartToolSpan starts a span for a tool call.
func (t *Tracer) StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "tool."+toolName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("tool.name", toolName))
	return ctx, span
}

// EndToolSpan ends a tool span with attributes.
func (t *Tracer) EndToolSpan(span trace.Span, opts ToolSpanOptions, err error) {
	if opts.Args != "" {
		span.SetAttributes(attribute.String("tool.args", truncate(opts.Args, 500)))
	}
	if t.debug && opts.Result != "" {
		span.SetAttributes(attribute.String("tool.result", truncate(opts.Result, 4000)))
	}
	finish(span, err)
}

// --- Automation Spans ---

// StepSpanOptions contains options for automation step spans.
type StepSpanOptions struct {
	Status   string
	Strategy string // The strategy that succeeded, if any
	Attempts int
}

// StartStepSpan starts a span for one automation step.
func (t *Tracer) StartStepSpan(ctx context.Context, step string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "automation."+step, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("automation.step", step))
	return ctx, span
}

// EndStepSpan ends a step span. A failed step is recorded as an error on
// the span even though the sequence carries on.
func (t *Tracer) EndStepSpan(span trace.Span, opts StepSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("automation.status", opts.Status),
		attribute.Int("automation.attempts", opts.Attempts),
	}
	if opts.Strategy != "" {
		attrs = append(attrs, attribute.String("automation.strategy", opts.Strategy))
	}
	span.SetAttributes(attrs...)
	finish(span, err)
}

// --- Helpers ---

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
