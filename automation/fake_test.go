package automation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// fakeHost records every UI action as a string such as "window keys %" or
// "{class=MsoDockTop} press (300,250)" and fails, panics or stalls on
// request.
type fakeHost struct {
	mu      sync.Mutex
	log     []string
	fail    map[string]error
	failN   map[string]int // Fail an action this many times, then succeed
	panicOn map[string]bool
	delay   map[string]time.Duration
	missing map[string]bool // Child queries that find nothing

	probe      bool // Main window implements ReadinessProbe
	readyAfter int
	readyCalls int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		fail:    map[string]error{},
		failN:   map[string]int{},
		panicOn: map[string]bool{},
		delay:   map[string]time.Duration{},
		missing: map[string]bool{},
	}
}

func (h *fakeHost) do(action string) error {
	h.mu.Lock()
	h.log = append(h.log, action)
	err := h.fail[action]
	if h.failN[action] > 0 {
		h.failN[action]--
		err = fmt.Errorf("injected failure: %s", action)
	}
	p := h.panicOn[action]
	d := h.delay[action]
	h.mu.Unlock()

	if d > 0 {
		time.Sleep(d)
	}
	if p {
		panic("injected panic: " + action)
	}
	return err
}

func (h *fakeHost) actions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.log...)
}

func (h *fakeHost) has(action string) bool {
	for _, a := range h.actions() {
		if a == action {
			return true
		}
	}
	return false
}

func (h *fakeHost) count(prefix string) int {
	n := 0
	for _, a := range h.actions() {
		if strings.HasPrefix(a, prefix) {
			n++
		}
	}
	return n
}

func (h *fakeHost) Start(ctx context.Context, location string) (App, error) {
	if err := h.do("start " + location); err != nil {
		return nil, err
	}
	return &fakeApp{h: h}, nil
}

type fakeApp struct {
	h *fakeHost
}

func (a *fakeApp) Window(ctx context.Context, titlePattern string, timeout time.Duration) (Window, error) {
	if err := a.h.do("window " + titlePattern); err != nil {
		return nil, err
	}
	w := &fakeWindow{fakeElement{h: a.h, name: "window"}}
	if a.h.probe {
		return &probeWindow{w}, nil
	}
	return w, nil
}

type fakeElement struct {
	h    *fakeHost
	name string
}

func (e *fakeElement) Invoke(ctx context.Context) error { return e.h.do(e.name + " invoke") }
func (e *fakeElement) Press(ctx context.Context, p Point) error {
	return e.h.do(e.name + " press " + p.String())
}
func (e *fakeElement) Move(ctx context.Context, p Point) error {
	return e.h.do(e.name + " move " + p.String())
}
func (e *fakeElement) Release(ctx context.Context, p Point) error {
	return e.h.do(e.name + " release " + p.String())
}
func (e *fakeElement) Click(ctx context.Context, p Point) error {
	return e.h.do(e.name + " click " + p.String())
}
func (e *fakeElement) Drag(ctx context.Context, from, to Point) error {
	return e.h.do(fmt.Sprintf("%s drag %s->%s", e.name, from, to))
}

type fakeWindow struct {
	fakeElement
}

func (w *fakeWindow) Focus(ctx context.Context) error { return w.h.do("window focus") }
func (w *fakeWindow) SendKeys(ctx context.Context, keys string) error {
	return w.h.do("window keys " + keys)
}
func (w *fakeWindow) TypeText(ctx context.Context, text string) error {
	return w.h.do("window type " + text)
}
func (w *fakeWindow) Child(ctx context.Context, q Query) (Element, error) {
	if err := w.h.do("window child " + q.String()); err != nil {
		return nil, err
	}
	w.h.mu.Lock()
	missing := w.h.missing[q.String()]
	w.h.mu.Unlock()
	if missing {
		return nil, fmt.Errorf("no control matches %s", q)
	}
	return &fakeElement{h: w.h, name: q.String()}, nil
}

type probeWindow struct {
	*fakeWindow
}

func (w *probeWindow) Ready(ctx context.Context) (bool, error) {
	w.h.mu.Lock()
	defer w.h.mu.Unlock()
	w.h.readyCalls++
	return w.h.readyCalls > w.h.readyAfter, nil
}
