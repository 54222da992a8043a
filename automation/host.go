// Package automation drives a slide editor through a fixed sequence of UI
// steps, each tried with an ordered list of fallback strategies.
package automation

import (
	"context"
	"fmt"
	"time"
)

// Point is a position in window coordinates.
type Point struct {
	X, Y int
}

// String renders "(x,y)".
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Query locates a child control. Empty fields match anything; Title must
// match exactly, TitlePattern is a regular expression.
type Query struct {
	Title        string
	TitlePattern string
	Class        string
	ControlType  string
}

// String renders the non-empty fields.
func (q Query) String() string {
	s := ""
	add := func(k, v string) {
		if v == "" {
			return
		}
		if s != "" {
			s += " "
		}
		s += k + "=" + v
	}
	add("title", q.Title)
	add("title_re", q.TitlePattern)
	add("class", q.Class)
	add("control_type", q.ControlType)
	return "{" + s + "}"
}

// Host starts applications.
type Host interface {
	Start(ctx context.Context, location string) (App, error)
}

// App is a started application.
type App interface {
	// Window waits up to timeout for a top-level window whose title matches
	// the pattern.
	Window(ctx context.Context, titlePattern string, timeout time.Duration) (Window, error)
}

// Element is anything that takes pointer input.
type Element interface {
	Invoke(ctx context.Context) error
	Press(ctx context.Context, p Point) error
	Move(ctx context.Context, p Point) error
	Release(ctx context.Context, p Point) error
	Click(ctx context.Context, p Point) error
	Drag(ctx context.Context, from, to Point) error
}

// Window is a top-level window.
type Window interface {
	Element
	Focus(ctx context.Context) error
	// SendKeys sends a keystroke sequence in host notation ("%" is Alt,
	// "^n" is Ctrl+N).
	SendKeys(ctx context.Context, keys string) error
	// TypeText types text literally.
	TypeText(ctx context.Context, text string) error
	// Child finds a descendant control, failing when none matches.
	Child(ctx context.Context, q Query) (Element, error)
}

// ReadinessProbe is implemented by windows that can report when they have
// finished redrawing.
type ReadinessProbe interface {
	Ready(ctx context.Context) (bool, error)
}
