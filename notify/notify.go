// Package notify delivers end-of-run reports.
//
// A report goes out once per run: SendSuccess after a final answer and a
// completed automation, SendError otherwise. Delivery failures never change
// the run's outcome; callers log them and move on.
//
// Channels:
//   - Webhook: JSON POST with optional HMAC-SHA256 signature and retries
//   - Email: plain-text mail over SMTP
//   - Log: writes the report through the logger
//   - Nop: discards everything
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vinayprograms/slideagent/errors"
)

// EventType names what a report describes.
type EventType string

const (
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
)

// Report summarizes one run.
type Report struct {
	RunID       string        `json:"run_id"`
	Task        string        `json:"task"`
	FinalAnswer string        `json:"final_answer,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	Error       string        `json:"error,omitempty"`
	Logs        []string      `json:"logs,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Event is the payload sent to channels.
type Event struct {
	Type EventType `json:"type"`
	Report
}

// NewEvent stamps a report with its type and time.
func NewEvent(eventType EventType, r Report) Event {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return Event{Type: eventType, Report: r}
}

// Notifier sends run reports.
type Notifier interface {
	SendSuccess(ctx context.Context, r Report) error
	SendError(ctx context.Context, r Report) error
}

// Sender delivers a single event. Every channel implements it; Wrap turns
// one into a Notifier.
type Sender interface {
	Send(ctx context.Context, e Event) error
}

type senderNotifier struct {
	s Sender
}

// Wrap adapts a Sender to the Notifier interface.
func Wrap(s Sender) Notifier {
	return &senderNotifier{s: s}
}

func (n *senderNotifier) SendSuccess(ctx context.Context, r Report) error {
	return n.s.Send(ctx, NewEvent(EventRunCompleted, r))
}

func (n *senderNotifier) SendError(ctx context.Context, r Report) error {
	return n.s.Send(ctx, NewEvent(EventRunFailed, r))
}

// Nop discards every report.
type Nop struct{}

func (Nop) SendSuccess(ctx context.Context, r Report) error { return nil }
func (Nop) SendError(ctx context.Context, r Report) error   { return nil }

// Multi fans a report out to several notifiers concurrently. It waits for
// all of them and reports every failure.
type Multi []Notifier

func (m Multi) SendSuccess(ctx context.Context, r Report) error {
	return m.each(func(n Notifier) error { return n.SendSuccess(ctx, r) })
}

func (m Multi) SendError(ctx context.Context, r Report) error {
	return m.each(func(n Notifier) error { return n.SendError(ctx, r) })
}

func (m Multi) each(fn func(Notifier) error) error {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		msgs []string
	)
	for _, n := range m {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			if err := fn(n); err != nil {
				mu.Lock()
				msgs = append(msgs, err.Error())
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()

	if len(msgs) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeInternal,
		fmt.Sprintf("%d of %d notifications failed: %s", len(msgs), len(m), strings.Join(msgs, "; ")))
}

// Subject returns the mail subject line for an event.
func Subject(e Event) string {
	if e.Type == EventRunFailed {
		return "PowerPoint Agent - Error"
	}
	return "PowerPoint Agent - Success"
}

// Body renders the plain-text report used by mail and log channels.
func Body(e Event) string {
	var b strings.Builder
	if e.Type == EventRunFailed {
		b.WriteString("The agent run failed.\n\n")
		fmt.Fprintf(&b, "Error: %s\n", e.Error)
	} else {
		b.WriteString("The agent run completed successfully.\n\n")
		fmt.Fprintf(&b, "Final answer: %s\n", e.FinalAnswer)
	}
	if e.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", e.RunID)
	}
	if e.Task != "" {
		fmt.Fprintf(&b, "Task: %s\n", e.Task)
	}
	if e.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %.2fs\n", e.Duration.Seconds())
	}
	fmt.Fprintf(&b, "Time: %s\n", e.Timestamp.Format(time.RFC3339))

	if len(e.Logs) > 0 {
		b.WriteString("\nLogs:\n")
		for _, line := range e.Logs {
			b.WriteString(strings.TrimRight(line, "\n"))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
