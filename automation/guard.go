package automation

import "context"

// liveElement refuses host calls once the attempt's context has ended, so a
// strategy abandoned on timeout cannot touch the UI while later steps run.
type liveElement struct {
	el Element
}

func (e liveElement) Invoke(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Invoke(ctx)
}

func (e liveElement) Press(ctx context.Context, p Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Press(ctx, p)
}

func (e liveElement) Move(ctx context.Context, p Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Move(ctx, p)
}

func (e liveElement) Release(ctx context.Context, p Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Release(ctx, p)
}

func (e liveElement) Click(ctx context.Context, p Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Click(ctx, p)
}

func (e liveElement) Drag(ctx context.Context, from, to Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Drag(ctx, from, to)
}

// liveWindow is the guarded main window. probe is nil when the window
// cannot report readiness.
type liveWindow struct {
	liveElement
	w     Window
	probe ReadinessProbe
}

func live(w Window) liveWindow {
	probe, _ := w.(ReadinessProbe)
	return liveWindow{liveElement: liveElement{el: w}, w: w, probe: probe}
}

func (w liveWindow) Focus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.w.Focus(ctx)
}

func (w liveWindow) SendKeys(ctx context.Context, keys string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.w.SendKeys(ctx, keys)
}

func (w liveWindow) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.w.TypeText(ctx, text)
}

func (w liveWindow) Child(ctx context.Context, q Query) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	el, err := w.w.Child(ctx, q)
	if err != nil || el == nil {
		return el, err
	}
	return liveElement{el: el}, nil
}
