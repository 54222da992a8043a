package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNoopExporter(t *testing.T) {
	exp := NewNoopExporter()

	// Should not panic
	exp.LogEvent("test", map[string]interface{}{"key": "value"})
	exp.LogExchange(Exchange{Reply: "FINAL_ANSWER: [1]"})

	if err := exp.Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestFileExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	exp, err := NewFileExporter(path)
	if err != nil {
		t.Fatalf("NewFileExporter() error = %v", err)
	}

	exp.LogEvent(EventToolCall, map[string]interface{}{"tool": "add"})
	exp.LogExchange(Exchange{
		RunID:     "run-1",
		Iteration: 1,
		Reply:     "FUNCTION_CALL: add|5|3",
		Tokens:    TokenCount{Input: 100, Output: 5},
		Latency:   time.Second,
		Model:     "gemini-2.0-flash",
	})
	if err := exp.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("line is not JSON: %s", scanner.Text())
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["name"] != EventToolCall {
		t.Errorf("first line = %v", lines[0])
	}
	if lines[1]["run_id"] != "run-1" || lines[1]["reply"] != "FUNCTION_CALL: add|5|3" {
		t.Errorf("second line = %v", lines[1])
	}
}

func TestHTTPExporter(t *testing.T) {
	var received []json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("body is not a JSON array: %s", body)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	exp := NewHTTPExporter(server.URL)
	exp.LogEvent(EventRunStarted, map[string]interface{}{"run_id": "r"})
	exp.LogEvent(EventRunComplete, map[string]interface{}{"run_id": "r"})

	if err := exp.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(received) != 2 {
		t.Errorf("expected 2 entries, got %d", len(received))
	}

	// Nothing buffered: no request.
	received = nil
	if err := exp.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if received != nil {
		t.Error("empty flush should not post")
	}
}

func TestHTTPExporter_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	exp := NewHTTPExporter(server.URL)
	exp.LogEvent("x", nil)
	if err := exp.Flush(); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		protocol string
		endpoint string
		wantErr  bool
	}{
		{"noop", "", false},
		{"", "", false},
		{"file", filepath.Join(t.TempDir(), "j.jsonl"), false},
		{"file", "", true},
		{"http", "", true},
		{"unknown", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.protocol+"/"+tt.endpoint, func(t *testing.T) {
			exp, err := NewExporter(tt.protocol, tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewExporter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && exp != nil {
				t.Fatalf("NewExporter() returned %T alongside error %v", exp, err)
			}
			if exp != nil {
				exp.Close()
			}
		})
	}
}

func TestTracer_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := NewTracerFrom(tp, "test", false)
	ctx := context.Background()

	ctx, run := tracer.StartRunSpan(ctx, "run-1")

	_, oracle := tracer.StartOracleSpan(ctx, 1)
	tracer.EndOracleSpan(oracle, OracleSpanOptions{Provider: "mock", Prompt: "secret"}, nil)

	_, tool := tracer.StartToolSpan(ctx, "add")
	tracer.EndToolSpan(tool, ToolSpanOptions{Tool: "add", Args: `{"a":5,"b":3}`, Result: "[8]"}, nil)

	_, step := tracer.StartStepSpan(ctx, "DrawShape")
	tracer.EndStepSpan(step, StepSpanOptions{Status: "failed", Attempts: 3}, errors.New("all strategies failed"))

	tracer.EndRunSpan(run, 2, "[42]", nil)

	spans := recorder.Ended()
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %d", len(spans))
	}

	names := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		names[s.Name()] = s
	}
	for _, want := range []string{"agent.run", "oracle.generate", "tool.add", "automation.DrawShape"} {
		if _, ok := names[want]; !ok {
			t.Errorf("missing span %q", want)
		}
	}

	for _, kv := range names["oracle.generate"].Attributes() {
		if kv.Key == "oracle.prompt" {
			t.Error("prompt must not be recorded without debug")
		}
	}
	if names["automation.DrawShape"].Status().Description != "all strategies failed" {
		t.Errorf("step status = %v", names["automation.DrawShape"].Status())
	}
}

func TestGetTracer_DefaultNoop(t *testing.T) {
	SetGlobalTracer(nil)
	tracer := GetTracer()
	_, span := tracer.StartToolSpan(context.Background(), "add")
	tracer.EndToolSpan(span, ToolSpanOptions{}, nil)
}

func TestInitProvider_NoEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if _, err := InitProvider(context.Background(), ProviderConfig{}); err == nil {
		t.Error("expected error without endpoint")
	}
}

func TestProviderConfig_Resolution(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://collector:4318")
	t.Setenv("OTEL_SERVICE_NAME", "")

	cfg := ProviderConfig{}
	if got := cfg.endpoint(); got != "collector:4318" {
		t.Errorf("endpoint() = %q", got)
	}
	if got := cfg.serviceName(); got != DefaultServiceName {
		t.Errorf("serviceName() = %q", got)
	}

	cfg.Endpoint = "http://local:4317"
	cfg.ServiceName = "bench"
	if cfg.endpoint() != "local:4317" || cfg.serviceName() != "bench" {
		t.Errorf("explicit config ignored: %q %q", cfg.endpoint(), cfg.serviceName())
	}
}

func TestProviderConfig_Sampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := ProviderConfig{SampleRatio: tt.ratio}.sampler().Description()
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("ratio %g: sampler = %q, want prefix %q", tt.ratio, got, tt.want)
		}
	}
}
