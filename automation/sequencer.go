package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vinayprograms/slideagent/errors"
	"github.com/vinayprograms/slideagent/logging"
	"github.com/vinayprograms/slideagent/telemetry"
)

// DefaultCandidates are the start locations tried for the slide editor.
var DefaultCandidates = []string{
	`powerpnt.exe`,
	`C:\Program Files\Microsoft Office\root\Office16\POWERPNT.EXE`,
	`C:\Program Files (x86)\Microsoft Office\root\Office16\POWERPNT.EXE`,
	`C:\Program Files\Microsoft Office\root\Office15\POWERPNT.EXE`,
	`C:\Program Files (x86)\Microsoft Office\root\Office15\POWERPNT.EXE`,
}

// Control lookups used by the fallback strategies.
var (
	InsertTab      = Query{Title: "Insert", ControlType: "TabItem"}
	ShapesButton   = Query{TitlePattern: ".*Shapes.*", ControlType: "Button"}
	RectangleItem  = Query{TitlePattern: ".*Rectangle.*", ControlType: "MenuItem"}
	TextBoxButton  = Query{TitlePattern: ".*Text Box.*", ControlType: "Button"}
	TextBoxControl = Query{ControlType: "Edit"}
)

// SurfaceQueries are tried in order to find the drawing surface; the main
// window is used when none exists.
var SurfaceQueries = []Query{
	{Class: "MsoDockTop"},
	{TitlePattern: ".*Slide.*"},
	{Class: "NetUIHWND"},
	{Class: "MsoCommandBar"},
}

// Config tunes the sequence.
type Config struct {
	Candidates    []string
	WindowTitle   string
	StartDelay    time.Duration
	WindowTimeout time.Duration
	ActionTimeout time.Duration

	SettleDelay   time.Duration // Fixed wait when the window has no readiness probe
	SettlePoll    time.Duration
	SettleTimeout time.Duration

	CanvasCenter Point
	ShapeWidth   int
	ShapeHeight  int
	OutsidePoint Point
}

// DefaultConfig returns the sequence defaults.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if len(c.Candidates) == 0 {
		c.Candidates = append([]string(nil), DefaultCandidates...)
	}
	if c.WindowTitle == "" {
		c.WindowTitle = ".*PowerPoint.*"
	}
	if c.StartDelay == 0 {
		c.StartDelay = 3 * time.Second
	}
	if c.WindowTimeout == 0 {
		c.WindowTimeout = 15 * time.Second
	}
	if c.ActionTimeout == 0 {
		c.ActionTimeout = 30 * time.Second
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 500 * time.Millisecond
	}
	if c.SettlePoll == 0 {
		c.SettlePoll = 100 * time.Millisecond
	}
	if c.SettleTimeout == 0 {
		c.SettleTimeout = 5 * time.Second
	}
	if c.CanvasCenter == (Point{}) {
		c.CanvasCenter = Point{X: 400, Y: 300}
	}
	if c.ShapeWidth == 0 {
		c.ShapeWidth = 200
	}
	if c.ShapeHeight == 0 {
		c.ShapeHeight = 100
	}
	if c.OutsidePoint == (Point{}) {
		c.OutsidePoint = Point{X: 100, Y: 100}
	}
}

// ShapeCorners returns the drag corners of the shape centered on the canvas.
func (c Config) ShapeCorners() (Point, Point) {
	from := Point{X: c.CanvasCenter.X - c.ShapeWidth/2, Y: c.CanvasCenter.Y - c.ShapeHeight/2}
	to := Point{X: c.CanvasCenter.X + c.ShapeWidth/2, Y: c.CanvasCenter.Y + c.ShapeHeight/2}
	return from, to
}

// Sequencer runs the six steps against a Host.
type Sequencer struct {
	host    Host
	config  Config
	logger  *logging.Logger
	tracer  *telemetry.Tracer
	journal telemetry.Exporter
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Sequencer) {
		s.logger = l
	}
}

// WithTracer sets the span tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(s *Sequencer) {
		s.tracer = t
	}
}

// WithJournal sets the run journal.
func WithJournal(j telemetry.Exporter) Option {
	return func(s *Sequencer) {
		s.journal = j
	}
}

// New creates a sequencer. Zero config fields take their defaults.
func New(host Host, cfg Config, opts ...Option) *Sequencer {
	cfg.ApplyDefaults()
	s := &Sequencer{host: host, config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.tracer == nil {
		s.tracer = telemetry.GetTracer()
	}
	if s.journal == nil {
		s.journal = telemetry.NewNoopExporter()
	}
	return s
}

// session holds the handles one sequence builds up. Strategies abandoned on
// timeout may still be running, so the handles are guarded.
type session struct {
	text string

	mu     sync.Mutex
	app    App
	window Window
}

func (ss *session) setApp(app App) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.app = app
}

func (ss *session) handles() (App, Window) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.app, ss.window
}

// main returns the guarded main window, looking it up again when no earlier
// lookup succeeded.
func (s *Sequencer) main(ctx context.Context, ss *session) (liveWindow, error) {
	app, w := ss.handles()
	if w != nil {
		return live(w), nil
	}
	if app == nil {
		return liveWindow{}, errors.New(errors.ErrCodeUIAction, "main window not available")
	}
	if err := ctx.Err(); err != nil {
		return liveWindow{}, err
	}
	w, err := app.Window(ctx, s.config.WindowTitle, s.config.WindowTimeout)
	if err != nil {
		return liveWindow{}, errors.WrapWithCode(err, errors.ErrCodeUIAction, "locate main window")
	}
	if w == nil {
		return liveWindow{}, errors.New(errors.ErrCodeUIAction, "locate main window: no window returned")
	}

	ss.mu.Lock()
	if ss.window == nil {
		ss.window = w
	}
	w = ss.window
	ss.mu.Unlock()
	return live(w), nil
}

// Run executes the steps in order with text as the value to insert. Only a
// failure to start the application stops the sequence; the returned error
// is then APP_START and the remaining steps are marked skipped.
func (s *Sequencer) Run(ctx context.Context, text string) (*Report, error) {
	ss := &session{text: text}
	report := &Report{}

	for i, step := range Steps {
		if report.Aborted {
			report.Steps = append(report.Steps, StepResult{Step: step, Status: Skipped})
			s.logger.StepComplete(step.String(), Skipped.String(), "", 0)
			continue
		}

		s.logger.StepStart(i+1, step.Title())
		stepCtx, span := s.tracer.StartStepSpan(ctx, step.String())

		res := runStrategies(stepCtx, step, s.strategies(step, ss), s.config.ActionTimeout,
			func(strategy string, err error) {
				s.logger.StrategyFailed(step.String(), strategy, err)
			})

		if step == OpenApp {
			if res.Status == Failed {
				report.Aborted = true
				report.Err = errors.AppStart(len(s.config.Candidates), res.Err)
				res.Err = report.Err
			} else if err := s.prepare(stepCtx, ss); err != nil {
				s.logger.Warn("could not prepare a new document", map[string]interface{}{"error": err.Error()})
				res.Status = DegradedSuccess
				res.Err = err
			}
		}

		s.tracer.EndStepSpan(span, telemetry.StepSpanOptions{
			Status:   res.Status.String(),
			Strategy: res.Strategy,
			Attempts: len(res.Attempts),
		}, stepError(res))
		s.logger.StepComplete(step.String(), res.Status.String(), res.Strategy, res.Duration)
		s.journal.LogEvent(telemetry.EventStepComplete, map[string]interface{}{
			"step":     step.String(),
			"status":   res.Status.String(),
			"strategy": res.Strategy,
			"attempts": len(res.Attempts),
			"duration": res.Duration.String(),
		})

		report.Steps = append(report.Steps, res)
	}

	if report.Aborted {
		return report, report.Err
	}
	return report, nil
}

func stepError(res StepResult) error {
	if res.Status == Failed {
		return res.Err
	}
	return nil
}

func (s *Sequencer) strategies(step Step, ss *session) []Strategy {
	switch step {
	case OpenApp:
		return s.startStrategies(ss)
	case SelectShapeTool:
		return []Strategy{
			{Name: "ribbon_keys", Run: s.sendKeys(ss, "%", "i", "s", "r")},
			{Name: "ribbon_controls", Run: s.invoke(ss, InsertTab, ShapesButton, RectangleItem)},
		}
	case DrawShape:
		from, to := s.config.ShapeCorners()
		return []Strategy{
			{Name: "drag", Run: s.pressDrag(ss, from, to)},
			{Name: "click_drag", Run: s.clickDrag(ss, from, to)},
			{Name: "center_click", Degraded: true, Run: s.clickSurface(ss, s.config.CanvasCenter)},
		}
	case SelectTextTool:
		return []Strategy{
			{Name: "ribbon_keys", Run: s.sendKeys(ss, "%", "i", "x")},
			{Name: "ribbon_controls", Run: s.invoke(ss, InsertTab, TextBoxButton)},
		}
	case ClickTarget:
		return []Strategy{
			{Name: "surface_click", Run: s.clickSurface(ss, s.config.CanvasCenter)},
			{Name: "window_click", Run: s.clickWindow(ss, s.config.CanvasCenter)},
		}
	case InsertText:
		return []Strategy{
			{Name: "type_text", Run: s.typeText(ss)},
			{Name: "text_box_control", Run: s.typeIntoControl(ss)},
		}
	}
	return nil
}

func (s *Sequencer) startStrategies(ss *session) []Strategy {
	strategies := make([]Strategy, len(s.config.Candidates))
	for i, location := range s.config.Candidates {
		location := location
		strategies[i] = Strategy{
			Name: "start:" + location,
			Run: func(ctx context.Context) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				app, err := s.host.Start(ctx, location)
				if err != nil {
					return err
				}
				if app == nil {
					return fmt.Errorf("start %s returned no application", location)
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				ss.setApp(app)
				s.logger.Info("application started", map[string]interface{}{"location": location})
				return nil
			},
		}
	}
	return strategies
}

// prepare waits for the main window and opens a new document.
func (s *Sequencer) prepare(ctx context.Context, ss *session) error {
	if err := sleep(ctx, s.config.StartDelay); err != nil {
		return err
	}
	w, err := s.main(ctx, ss)
	if err != nil {
		return err
	}
	if err := w.Focus(ctx); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeUIAction, "focus main window")
	}
	if err := s.settle(ctx, w); err != nil {
		return err
	}
	if err := w.SendKeys(ctx, "^n"); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeUIAction, "new document")
	}
	return s.settle(ctx, w)
}

// surface returns the drawing surface, falling back to the main window.
func (s *Sequencer) surface(ctx context.Context, w liveWindow) Element {
	for _, q := range SurfaceQueries {
		if el, err := w.Child(ctx, q); err == nil && el != nil {
			return el
		}
	}
	return w
}

func (s *Sequencer) sendKeys(ss *session, keys ...string) func(context.Context) error {
	return func(ctx context.Context) error {
		w, err := s.main(ctx, ss)
		if err != nil {
			return err
		}
		if err := w.Focus(ctx); err != nil {
			return err
		}
		for _, k := range keys {
			if err := w.SendKeys(ctx, k); err != nil {
				return fmt.Errorf("send %q: %w", k, err)
			}
			if err := s.settle(ctx, w); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *Sequencer) invoke(ss *session, queries ...Query) func(context.Context) error {
	return func(ctx context.Context) error {
		w, err := s.main(ctx, ss)
		if err != nil {
			return err
		}
		for _, q := range queries {
			el, err := w.Child(ctx, q)
			if err != nil {
				return fmt.Errorf("find %s: %w", q, err)
			}
			if err := el.Invoke(ctx); err != nil {
				return fmt.Errorf("invoke %s: %w", q, err)
			}
			if err := s.settle(ctx, w); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *Sequencer) pressDrag(ss *session, from, to Point) func(context.Context) error {
	return func(ctx context.Context) error {
		w, err := s.main(ctx, ss)
		if err != nil {
			return err
		}
		surface := s.surface(ctx, w)
		if err := surface.Press(ctx, from); err != nil {
			return err
		}
		if err := s.settle(ctx, w); err != nil {
			return err
		}
		if err := surface.Move(ctx, to); err != nil {
			return err
		}
		if err := s.settle(ctx, w); err != nil {
			return err
		}
		if err := surface.Release(ctx, to); err != nil {
			return err
		}
		return s.settle(ctx, w)
	}
}

func (s *Sequencer) clickDrag(ss *session, from, to Point) func(context.Context) error {
	return func(ctx context.Context) error {
		w, err := s.main(ctx, ss)
		if err != nil {
			return err
		}
		surface := s.surface(ctx, w)
		if err := surface.Click(ctx, from); err != nil {
			return err
		}
		if err := s.settle(ctx, w); err != nil {
			return err
		}
		if err := surface.Drag(ctx, from, to); err != nil {
			return err
		}
		return s.settle(ctx, w)
	}
}

func (s *Sequencer) clickSurface(ss *session, p Point) func(context.Context) error {
	return func(ctx context.Context) error {
		w, err := s.main(ctx, ss)
		if err != nil {
			return err
		}
		if err := s.surface(ctx, w).Click(ctx, p); err != nil {
			return err
		}
		return s.settle(ctx, w)
	}
}

func (s *Sequencer) clickWindow(ss *session, p Point) func(context.Context) error {
	return func(ctx context.Context) error {
		w, err := s.main(ctx, ss)
		if err != nil {
			return err
		}
		if err := w.Click(ctx, p); err != nil {
			return err
		}
		return s.settle(ctx, w)
	}
}

func (s *Sequencer) typeText(ss *session) func(context.Context) error {
	return func(ctx context.Context) error {
		w, err := s.main(ctx, ss)
		if err != nil {
			return err
		}
		if err := w.Focus(ctx); err != nil {
			return err
		}
		if err := w.TypeText(ctx, ss.text); err != nil {
			return err
		}
		if err := s.settle(ctx, w); err != nil {
			return err
		}
		// Leave text editing
		if err := s.surface(ctx, w).Click(ctx, s.config.OutsidePoint); err != nil {
			return err
		}
		return s.settle(ctx, w)
	}
}

func (s *Sequencer) typeIntoControl(ss *session) func(context.Context) error {
	return func(ctx context.Context) error {
		w, err := s.main(ctx, ss)
		if err != nil {
			return err
		}
		el, err := w.Child(ctx, TextBoxControl)
		if err != nil {
			return fmt.Errorf("find %s: %w", TextBoxControl, err)
		}
		if err := el.Invoke(ctx); err != nil {
			return err
		}
		if err := w.TypeText(ctx, ss.text); err != nil {
			return err
		}
		return s.settle(ctx, w)
	}
}

// settle waits for the window to finish redrawing. Windows with a readiness
// probe are polled; others get the fixed delay. A probe that never reports
// ready is not an error, an ended context is.
func (s *Sequencer) settle(ctx context.Context, w liveWindow) error {
	if w.probe == nil {
		return sleep(ctx, s.config.SettleDelay)
	}

	deadline := time.Now().Add(s.config.SettleTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ready, err := w.probe.Ready(ctx)
		if err == nil && ready {
			return nil
		}
		if time.Now().After(deadline) {
			s.logger.Debug("window not ready, continuing", map[string]interface{}{"timeout": s.config.SettleTimeout.String()})
			return nil
		}
		if err := sleep(ctx, s.config.SettlePoll); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
