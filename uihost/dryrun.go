// Package uihost provides automation.Host implementations.
package uihost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vinayprograms/slideagent/automation"
	"github.com/vinayprograms/slideagent/logging"
)

// DryRun is a host that performs nothing and logs every action. Every start
// succeeds, every window and control exists and is always ready.
type DryRun struct {
	logger *logging.Logger

	mu      sync.Mutex
	actions []string
}

// NewDryRun creates a dry-run host.
func NewDryRun(logger *logging.Logger) *DryRun {
	if logger == nil {
		logger = logging.Nop()
	}
	return &DryRun{logger: logger.WithComponent("uihost")}
}

// Actions returns every action performed, in order.
func (h *DryRun) Actions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.actions...)
}

func (h *DryRun) record(target, action string) error {
	line := target + " " + action
	h.mu.Lock()
	h.actions = append(h.actions, line)
	h.mu.Unlock()
	h.logger.Info("dry-run", map[string]interface{}{"target": target, "action": action})
	return nil
}

// Start implements automation.Host.
func (h *DryRun) Start(ctx context.Context, location string) (automation.App, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.record("host", "start "+location)
	return &dryApp{h: h}, nil
}

type dryApp struct {
	h *DryRun
}

func (a *dryApp) Window(ctx context.Context, titlePattern string, timeout time.Duration) (automation.Window, error) {
	a.h.record("app", fmt.Sprintf("window %s (timeout %s)", titlePattern, timeout))
	return &dryWindow{dryElement{h: a.h, name: "window"}}, nil
}

type dryElement struct {
	h    *DryRun
	name string
}

func (e *dryElement) Invoke(ctx context.Context) error {
	return e.h.record(e.name, "invoke")
}

func (e *dryElement) Press(ctx context.Context, p automation.Point) error {
	return e.h.record(e.name, "press "+p.String())
}

func (e *dryElement) Move(ctx context.Context, p automation.Point) error {
	return e.h.record(e.name, "move "+p.String())
}

func (e *dryElement) Release(ctx context.Context, p automation.Point) error {
	return e.h.record(e.name, "release "+p.String())
}

func (e *dryElement) Click(ctx context.Context, p automation.Point) error {
	return e.h.record(e.name, "click "+p.String())
}

func (e *dryElement) Drag(ctx context.Context, from, to automation.Point) error {
	return e.h.record(e.name, "drag "+from.String()+"->"+to.String())
}

type dryWindow struct {
	dryElement
}

func (w *dryWindow) Focus(ctx context.Context) error {
	return w.h.record(w.name, "focus")
}

func (w *dryWindow) SendKeys(ctx context.Context, keys string) error {
	return w.h.record(w.name, "keys "+keys)
}

func (w *dryWindow) TypeText(ctx context.Context, text string) error {
	return w.h.record(w.name, fmt.Sprintf("type %q", text))
}

func (w *dryWindow) Child(ctx context.Context, q automation.Query) (automation.Element, error) {
	return &dryElement{h: w.h, name: q.String()}, nil
}

// Ready implements automation.ReadinessProbe.
func (w *dryWindow) Ready(ctx context.Context) (bool, error) {
	return true, nil
}
