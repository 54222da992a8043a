package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/vinayprograms/slideagent/errors"
)

// Strategy is one way of achieving a step's effect.
type Strategy struct {
	Name     string
	Degraded bool // Success only approximates the step's effect
	Run      func(ctx context.Context) error
}

// attempt runs one strategy in its own goroutine. A panic becomes an error
// and a run that outlives timeout is abandoned.
func attempt(ctx context.Context, step Step, s Strategy, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errors.RecoverPanic(r)
			}
		}()
		done <- s.Run(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}
	return errors.WrapWithCode(err, errors.ErrCodeUIAction, fmt.Sprintf("%s/%s", step, s.Name),
		errors.WithMetadata("step", step.String()),
		errors.WithMetadata("strategy", s.Name))
}

// runStrategies tries each strategy in order and stops at the first success.
// Failures are reported through onFail and never propagate.
func runStrategies(ctx context.Context, step Step, strategies []Strategy, timeout time.Duration,
	onFail func(strategy string, err error)) StepResult {

	started := time.Now()
	res := StepResult{Step: step, Status: Failed}

	for _, s := range strategies {
		t := time.Now()
		err := attempt(ctx, step, s, timeout)
		res.Attempts = append(res.Attempts, Attempt{Strategy: s.Name, Err: err, Duration: time.Since(t)})
		if err != nil {
			res.Err = err
			if onFail != nil {
				onFail(s.Name, err)
			}
			continue
		}
		res.Strategy = s.Name
		res.Status = Success
		if s.Degraded {
			res.Status = DegradedSuccess
		} else {
			res.Err = nil
		}
		break
	}

	if len(strategies) == 0 {
		res.Err = errors.New(errors.ErrCodeUIAction, "no strategies for "+step.String())
	}
	res.Duration = time.Since(started)
	return res
}
