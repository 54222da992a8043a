package shutdown

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestShutdown_PhaseOrder(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	var mu sync.Mutex
	var order []string
	record := func(name string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	coord.RegisterFunc("journal", PhaseTelemetry, record("journal"))
	coord.RegisterFunc("run", PhaseRun, record("run"))
	coord.RegisterFunc("tools", PhaseTransport, record("tools"))

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"run", "tools", "journal"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestShutdown_SamePhaseConcurrent(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	for _, name := range []string{"a", "b"} {
		coord.RegisterFunc(name, PhaseTransport, func(ctx context.Context) error {
			started.Done()
			<-release
			return nil
		})
	}

	go func() {
		started.Wait()
		close(release)
	}()

	done := make(chan error, 1)
	go func() { done <- coord.Shutdown(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handlers in one phase did not run concurrently")
	}
}

func TestShutdown_ErrorsContinue(t *testing.T) {
	var progress []HandlerResult
	var mu sync.Mutex
	coord := NewCoordinator(Config{OnProgress: func(hr HandlerResult) {
		mu.Lock()
		progress = append(progress, hr)
		mu.Unlock()
	}})

	coord.RegisterCloser("tools", PhaseTransport, func() error { return errors.New("broken pipe") })
	ran := false
	coord.RegisterFunc("journal", PhaseTelemetry, func(ctx context.Context) error {
		ran = true
		return nil
	})

	err := coord.Shutdown(context.Background())
	if !errors.Is(err, ErrHandlerFailed) {
		t.Fatalf("expected ErrHandlerFailed, got %v", err)
	}
	if !ran {
		t.Error("later phases should still run")
	}
	if failed := coord.Result().FailedHandlers(); len(failed) != 1 || failed[0] != "tools" {
		t.Errorf("FailedHandlers() = %v", failed)
	}
	if len(progress) != 2 {
		t.Errorf("progress callbacks = %d, want 2", len(progress))
	}
}

func TestShutdown_Timeout(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())
	coord.RegisterFunc("slow", PhaseRun, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	coord.RegisterFunc("never", PhaseTelemetry, func(ctx context.Context) error {
		t.Error("phase after timeout should not run")
		return nil
	})

	err := coord.ShutdownWithTimeout(20 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestShutdown_Once(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())
	calls := 0
	coord.RegisterFunc("x", PhaseRun, func(ctx context.Context) error {
		calls++
		return nil
	})

	if coord.Result() != nil {
		t.Error("Result() should be nil before shutdown")
	}
	coord.Shutdown(context.Background())
	if err := coord.Shutdown(context.Background()); !errors.Is(err, ErrAlreadyShutdown) {
		t.Errorf("second Shutdown() = %v", err)
	}
	if calls != 1 {
		t.Errorf("handler ran %d times", calls)
	}
	select {
	case <-coord.Done():
	default:
		t.Error("Done() should be closed")
	}
}

func TestHandleSignals(t *testing.T) {
	var got os.Signal
	coord := NewCoordinator(Config{OnSignal: func(sig os.Signal) { got = sig }})
	ctx := coord.HandleSignals(context.Background())

	coord.signals <- syscall.SIGINT

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled by the signal")
	}
	if got != syscall.SIGINT {
		t.Errorf("OnSignal got %v", got)
	}
}

func TestHandleSignals_ReleasedOnShutdown(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())
	ctx := coord.HandleSignals(context.Background())
	coord.Shutdown(context.Background())

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context should end with shutdown")
	}
}

func TestGroupByPhase(t *testing.T) {
	if groups := groupByPhase(nil); len(groups) != 0 {
		t.Errorf("empty input gave %d groups", len(groups))
	}

	regs := []registration{{name: "a", phase: 1}, {name: "b", phase: 1}, {name: "c", phase: 2}}
	groups := groupByPhase(regs)
	if len(groups) != 2 || len(groups[0]) != 2 || groups[1][0].name != "c" {
		t.Errorf("groups = %+v", groups)
	}
}
