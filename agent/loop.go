package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/slideagent/automation"
	"github.com/vinayprograms/slideagent/errors"
	"github.com/vinayprograms/slideagent/llm"
	"github.com/vinayprograms/slideagent/logging"
	"github.com/vinayprograms/slideagent/telemetry"
	"github.com/vinayprograms/slideagent/tools"
)

// DefaultMaxIterations caps the decision rounds of one run.
const DefaultMaxIterations = 10

// Config tunes the decision loop.
type Config struct {
	MaxIterations int
	OracleTimeout time.Duration
	ToolTimeout   time.Duration // 0 leaves tool calls unbounded

	// FeedBackErrors records dispatch errors in the history and keeps going
	// instead of ending the run, so the oracle can correct itself.
	FeedBackErrors bool
}

// DefaultConfig returns the loop defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		OracleTimeout: llm.DefaultOracleTimeout,
	}
}

// Sequencer runs the automation that follows a final answer.
type Sequencer interface {
	Run(ctx context.Context, text string) (*automation.Report, error)
}

// Outcome is everything one run produced. It is returned even when the run
// fails, holding whatever was recorded up to that point.
type Outcome struct {
	RunID       string
	Task        string
	FinalAnswer string
	Iterations  int
	History     []IterationRecord
	Automation  *automation.Report
	Duration    time.Duration
}

// Agent drives the oracle through bounded decision rounds.
type Agent struct {
	oracle    llm.Oracle
	toolbox   Toolbox
	sequencer Sequencer
	config    Config
	logger    *logging.Logger
	tracer    *telemetry.Tracer
	journal   telemetry.Exporter

	catalogMu sync.Mutex
	catalog   []tools.Descriptor
}

// Option configures an Agent.
type Option func(*Agent)

// WithConfig sets the loop configuration.
func WithConfig(cfg Config) Option {
	return func(a *Agent) {
		a.config = cfg
	}
}

// WithSequencer sets the automation run on a final answer.
func WithSequencer(s Sequencer) Option {
	return func(a *Agent) {
		a.sequencer = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Agent) {
		a.logger = l
	}
}

// WithTracer sets the span tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(a *Agent) {
		a.tracer = t
	}
}

// WithJournal sets the run journal.
func WithJournal(j telemetry.Exporter) Option {
	return func(a *Agent) {
		a.journal = j
	}
}

// New creates an agent.
func New(oracle llm.Oracle, toolbox Toolbox, opts ...Option) *Agent {
	a := &Agent{
		oracle:  oracle,
		toolbox: toolbox,
		config:  DefaultConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.config.MaxIterations <= 0 {
		a.config.MaxIterations = DefaultMaxIterations
	}
	if a.config.OracleTimeout <= 0 {
		a.config.OracleTimeout = llm.DefaultOracleTimeout
	}
	if a.logger == nil {
		a.logger = logging.Nop()
	}
	if a.tracer == nil {
		a.tracer = telemetry.GetTracer()
	}
	if a.journal == nil {
		a.journal = telemetry.NewNoopExporter()
	}
	return a
}

// Catalog fetches the tool descriptors and reuses them for every later run.
// A failed fetch is not cached; the next run asks the toolbox again.
func (a *Agent) Catalog(ctx context.Context) ([]tools.Descriptor, error) {
	a.catalogMu.Lock()
	defer a.catalogMu.Unlock()
	if a.catalog != nil {
		return a.catalog, nil
	}
	catalog, err := a.toolbox.Descriptors(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch tool catalog")
	}
	if catalog == nil {
		catalog = []tools.Descriptor{}
	}
	a.catalog = catalog
	return catalog, nil
}

// run is the state owned by one Run call.
type run struct {
	id      string
	task    string
	started time.Time
	history History
	logger  *logging.Logger
}

// Run solves task through oracle rounds. On a final answer the sequencer,
// if any, runs exactly once with the answer value.
func (a *Agent) Run(ctx context.Context, task string) (*Outcome, error) {
	r := &run{
		id:      uuid.New().String(),
		task:    task,
		started: time.Now(),
	}
	r.logger = a.logger.WithTraceID(r.id)

	ctx, span := a.tracer.StartRunSpan(ctx, r.id)
	out, err := a.loop(ctx, r)
	out.History = r.history.Records()
	out.Duration = time.Since(r.started)
	a.tracer.EndRunSpan(span, out.Iterations, out.FinalAnswer, err)

	status := "success"
	data := map[string]interface{}{
		"run_id":     r.id,
		"iterations": out.Iterations,
		"duration":   out.Duration.String(),
	}
	if err != nil {
		status = "failed"
		data["error"] = err.Error()
		data["code"] = string(errors.Code(err))
	} else {
		data["final_answer"] = out.FinalAnswer
	}
	data["status"] = status
	a.journal.LogEvent(telemetry.EventRunComplete, data)
	r.logger.RunComplete(out.Duration, status)

	return out, err
}

func (a *Agent) loop(ctx context.Context, r *run) (*Outcome, error) {
	out := &Outcome{RunID: r.id, Task: r.task}

	catalog, err := a.Catalog(ctx)
	if err != nil {
		r.logger.Error("catalog unavailable", map[string]interface{}{"error": err.Error()})
		return out, errors.Wrap(err, "start run", errors.WithRunID(r.id))
	}
	dispatcher := NewDispatcher(a.toolbox, catalog, a.config.ToolTimeout, r.logger.WithComponent("dispatch"))
	system := SystemPrompt(catalog)

	names := make([]string, len(catalog))
	for i, d := range catalog {
		names[i] = d.Name
	}
	r.logger.Info("run_started", map[string]interface{}{"tools": len(catalog)})
	a.journal.LogEvent(telemetry.EventRunStarted, map[string]interface{}{
		"run_id": r.id,
		"task":   r.task,
		"tools":  strings.Join(names, ","),
	})

	for i := 0; i < a.config.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrap(err, "run interrupted", errors.WithRunID(r.id), errors.WithIteration(i+1))
		}

		out.Iterations = i + 1
		r.logger.IterationStart(i + 1)

		prompt := BuildPrompt(system, r.history.Context(r.task))
		started := time.Now()
		text, err := llm.GenerateWithTimeout(llm.WithIteration(ctx, i+1), a.oracle, prompt, a.config.OracleTimeout)
		a.logExchange(r, i+1, prompt, text, time.Since(started), err)
		if err != nil {
			r.logger.Error("oracle failed", map[string]interface{}{"iteration": i + 1, "error": err.Error()})
			return out, errors.Wrap(err, fmt.Sprintf("iteration %d", i+1),
				errors.WithRunID(r.id), errors.WithIteration(i+1))
		}
		r.logger.OracleResponse(i+1, text, time.Since(started))

		dec := ParseDecision(text)
		a.journal.LogEvent(telemetry.EventIteration, map[string]interface{}{
			"run_id":    r.id,
			"iteration": i + 1,
			"decision":  dec.Kind.String(),
			"line":      dec.Raw,
		})

		switch dec.Kind {
		case FinalAnswer:
			out.FinalAnswer = dec.Value
			r.logger.Info("final_answer", map[string]interface{}{"iteration": i + 1, "value": dec.Value})
			if a.sequencer == nil {
				return out, nil
			}
			report, err := a.sequencer.Run(ctx, dec.Value)
			out.Automation = report
			if err != nil {
				return out, errors.Wrap(err, "automation", errors.WithRunID(r.id))
			}
			return out, nil

		case FunctionCall:
			if err := a.dispatch(ctx, r, dispatcher, i, dec); err != nil {
				if a.config.FeedBackErrors && correctable(err) {
					continue
				}
				return out, err
			}

		default:
			err := errors.ProtocolViolation(dec.Raw)
			r.logger.Error("unparseable response", map[string]interface{}{"iteration": i + 1, "error": err.Error()})
			return out, errors.Wrap(err, fmt.Sprintf("iteration %d", i+1),
				errors.WithRunID(r.id), errors.WithIteration(i+1))
		}
	}

	return out, errors.New(errors.ErrCodeIterationsExhausted,
		fmt.Sprintf("no final answer after %d iterations", a.config.MaxIterations),
		errors.WithRunID(r.id), errors.WithIteration(a.config.MaxIterations))
}

// dispatch runs one FunctionCall and records its line. A failed dispatch is
// recorded before the error is returned.
func (a *Agent) dispatch(ctx context.Context, r *run, d *Dispatcher, i int, dec Decision) error {
	ctx, span := a.tracer.StartToolSpan(ctx, dec.Name)
	started := time.Now()
	args, result, err := d.Dispatch(ctx, dec)
	elapsed := time.Since(started)

	argsJSON := ""
	if args != nil {
		argsJSON = args.JSON()
		r.logger.ToolCall(i+1, dec.Name, argsJSON)
	}
	a.tracer.EndToolSpan(span, telemetry.ToolSpanOptions{
		Tool:   dec.Name,
		Args:   argsJSON,
		Result: result.Render(),
	}, err)
	r.logger.ToolResult(i+1, dec.Name, result.Render(), elapsed, err)

	event := map[string]interface{}{
		"run_id":    r.id,
		"iteration": i + 1,
		"tool":      dec.Name,
		"args":      argsJSON,
		"duration":  elapsed.String(),
	}

	if err != nil {
		rec := r.history.RecordError(i, dec, args, err)
		event["error"] = err.Error()
		event["line"] = rec.Line
		a.journal.LogEvent(telemetry.EventToolCall, event)
		return errors.Wrap(err, fmt.Sprintf("iteration %d", i+1),
			errors.WithRunID(r.id), errors.WithIteration(i+1))
	}

	rec := r.history.RecordSuccess(i, dec, args, result)
	event["result"] = result.Render()
	event["line"] = rec.Line
	a.journal.LogEvent(telemetry.EventToolCall, event)
	return nil
}

// correctable reports dispatch errors the oracle can fix by choosing again.
func correctable(err error) bool {
	switch errors.Code(err) {
	case errors.ErrCodeUnknownTool, errors.ErrCodeInsufficientArgs, errors.ErrCodeTypeCoercion:
		return true
	}
	return false
}

func (a *Agent) logExchange(r *run, iteration int, prompt, reply string, latency time.Duration, err error) {
	ex := telemetry.Exchange{
		RunID:     r.id,
		Iteration: iteration,
		Reply:     reply,
		Latency:   latency,
	}
	if a.tracer.Debug() {
		ex.Prompt = prompt
	}
	if err != nil {
		ex.Error = err.Error()
	}
	a.journal.LogExchange(ex)
}
