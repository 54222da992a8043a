// Package logging provides leveled, component-scoped console logging for
// agent runs. Lines look like:
//
//	INFO  2026-02-05T04:00:00.000Z [loop] tool_call tool=add iteration=2
//
// Run journals (see package telemetry) are the machine-readable record; this
// package is for people watching a run.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a config string to a Level. Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes one line per event.
type Logger struct {
	mu        *sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	traceID   string
}

// New creates a Logger writing INFO and above to stdout.
func New() *Logger {
	return &Logger{
		mu:       &sync.Mutex{},
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	l := New()
	l.output = io.Discard
	return l
}

// WithComponent returns a logger tagged with the given component name.
// The derived logger shares output and lock with its parent.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		mu:        l.mu,
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		traceID:   l.traceID,
	}
}

// WithTraceID returns a logger that stamps every line with trace=<id>.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{
		mu:        l.mu,
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		traceID:   traceID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields renders fields as key=value pairs in key order.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}
	if l.traceID != "" {
		fieldStr += " trace=" + l.traceID
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Run events ---

// Header logs a banner line such as "ITERATION 3: Processing".
func (l *Logger) Header(n int, action string) {
	l.Info(fmt.Sprintf("ITERATION %d: %s", n, action))
}

// IterationStart logs the start of a decision round.
func (l *Logger) IterationStart(n int) {
	l.Header(n, "Processing")
}

// OracleResponse logs the raw text returned by the oracle.
func (l *Logger) OracleResponse(n int, text string, duration time.Duration) {
	l.Info("oracle_response", map[string]interface{}{
		"iteration": n,
		"duration":  duration.String(),
		"response":  fmt.Sprintf("%q", text),
	})
}

// ToolCall logs a tool invocation with its typed arguments.
func (l *Logger) ToolCall(n int, tool string, args string) {
	l.Info("tool_call", map[string]interface{}{
		"iteration": n,
		"tool":      tool,
		"args":      args,
	})
}

// ToolResult logs a tool result or failure.
func (l *Logger) ToolResult(n int, tool string, result string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"iteration": n,
		"tool":      tool,
		"duration":  duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("tool_error", fields)
		return
	}
	fields["result"] = result
	l.Info("tool_result", fields)
}

// StepStart logs the start of an automation state.
func (l *Logger) StepStart(n int, step string) {
	l.Header(n, step)
}

// StrategyFailed logs one failed strategy attempt. Attempts never abort a
// step by themselves, so this is a warning.
func (l *Logger) StrategyFailed(step, strategy string, err error) {
	l.Warn("strategy_failed", map[string]interface{}{
		"step":     step,
		"strategy": strategy,
		"error":    err.Error(),
	})
}

// StepComplete logs how an automation state resolved.
func (l *Logger) StepComplete(step, status, strategy string, duration time.Duration) {
	fields := map[string]interface{}{
		"step":     step,
		"status":   status,
		"duration": duration.String(),
	}
	if strategy != "" {
		fields["strategy"] = strategy
	}
	if status == "failed" {
		l.Warn("step_complete", fields)
		return
	}
	l.Info("step_complete", fields)
}

// RunComplete logs the end of a run.
func (l *Logger) RunComplete(duration time.Duration, status string) {
	l.Info("run_complete", map[string]interface{}{
		"duration": duration.String(),
		"status":   status,
	})
}
