// Package telemetry records what a run did: a JSON journal of run events
// (Exporter) and OpenTelemetry spans (Tracer, InitProvider).
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// Journal event names.
const (
	EventRunStarted   = "run_started"
	EventIteration    = "iteration"
	EventToolCall     = "tool_call"
	EventStepComplete = "step_complete"
	EventRunComplete  = "run_complete"
)

// Exporter is the interface for run journals.
type Exporter interface {
	// LogEvent logs an event with the given name and data.
	LogEvent(name string, data map[string]interface{})
	// LogExchange logs one prompt/reply exchange with the oracle.
	LogExchange(ex Exchange)
	// Flush sends any buffered data.
	Flush() error
	// Close closes the exporter.
	Close() error
}

// Exchange is one oracle round as recorded in the journal.
type Exchange struct {
	RunID     string        `json:"run_id"`
	Iteration int           `json:"iteration"`
	Prompt    string        `json:"prompt,omitempty"`
	Reply     string        `json:"reply"`
	Tokens    TokenCount    `json:"tokens"`
	Latency   time.Duration `json:"latency"`
	Model     string        `json:"model,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// TokenCount represents token usage.
type TokenCount struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Event represents a journal event.
type Event struct {
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewExporter creates an exporter by protocol: "http" posts batches to
// endpoint, "file" appends JSON lines to the path in endpoint.
func NewExporter(protocol, endpoint string) (Exporter, error) {
	switch protocol {
	case "http":
		if endpoint == "" {
			return nil, fmt.Errorf("http journal requires an endpoint")
		}
		return NewHTTPExporter(endpoint), nil
	case "file":
		fe, err := NewFileExporter(endpoint)
		if err != nil {
			return nil, err
		}
		return fe, nil
	case "noop", "":
		return NewNoopExporter(), nil
	default:
		return nil, fmt.Errorf("unknown journal protocol: %s", protocol)
	}
}

// --- HTTP Exporter ---

const httpBatchSize = 100

// HTTPExporter posts buffered journal entries as a JSON array.
type HTTPExporter struct {
	endpoint string
	client   *http.Client
	buffer   []interface{}
	mu       sync.Mutex
}

// NewHTTPExporter creates a new HTTP exporter.
func NewHTTPExporter(endpoint string) *HTTPExporter {
	return &HTTPExporter{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		buffer: make([]interface{}, 0, httpBatchSize),
	}
}

func (e *HTTPExporter) LogEvent(name string, data map[string]interface{}) {
	e.add(Event{Name: name, Timestamp: time.Now(), Data: data})
}

func (e *HTTPExporter) LogExchange(ex Exchange) {
	ex.Timestamp = time.Now()
	e.add(ex)
}

func (e *HTTPExporter) add(v interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = append(e.buffer, v)
	if len(e.buffer) >= httpBatchSize {
		e.flush()
	}
}

func (e *HTTPExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flush()
}

func (e *HTTPExporter) flush() error {
	if len(e.buffer) == 0 {
		return nil
	}

	data, err := json.Marshal(e.buffer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("journal endpoint returned %d", resp.StatusCode)
	}

	e.buffer = e.buffer[:0]
	return nil
}

func (e *HTTPExporter) Close() error {
	return e.Flush()
}

// --- File Exporter ---

// FileExporter appends journal entries to a file as JSON lines.
type FileExporter struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileExporter creates a new file exporter.
func NewFileExporter(path string) (*FileExporter, error) {
	if path == "" {
		return nil, fmt.Errorf("file journal requires a path")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	return &FileExporter{file: file}, nil
}

func (e *FileExporter) LogEvent(name string, data map[string]interface{}) {
	e.write(Event{Name: name, Timestamp: time.Now(), Data: data})
}

func (e *FileExporter) LogExchange(ex Exchange) {
	ex.Timestamp = time.Now()
	e.write(ex)
}

func (e *FileExporter) write(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.file.Write(append(data, '\n'))
}

func (e *FileExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.file.Sync()
}

func (e *FileExporter) Close() error {
	e.Flush()
	return e.file.Close()
}

// --- Noop Exporter ---

// NoopExporter discards everything.
type NoopExporter struct{}

// NewNoopExporter creates a new noop exporter.
func NewNoopExporter() *NoopExporter {
	return &NoopExporter{}
}

func (e *NoopExporter) LogEvent(name string, data map[string]interface{}) {}
func (e *NoopExporter) LogExchange(ex Exchange)                           {}
func (e *NoopExporter) Flush() error                                      { return nil }
func (e *NoopExporter) Close() error                                      { return nil }
