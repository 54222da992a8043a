// Command slideagent solves a task with tool calls chosen by an LLM, then
// writes the final answer into a rectangle on a fresh slide.
//
// Usage:
//
//	slideagent [-config slideagent.toml] [-task "..."] [-dry-run] [-builtin-tools]
//
// Exit codes: 0 success, 1 configuration or startup error, 2 the decision
// loop failed, 3 the automation was aborted because the application never
// started.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vinayprograms/slideagent/config"
	"github.com/vinayprograms/slideagent/credentials"
	"github.com/vinayprograms/slideagent/errors"
	"github.com/vinayprograms/slideagent/logging"
	"github.com/vinayprograms/slideagent/notify"
	"github.com/vinayprograms/slideagent/shutdown"
)

const (
	exitOK         = 0
	exitConfig     = 1
	exitLoop       = 2
	exitAutomation = 3
)

const defaultTask = "Find the ASCII values of characters in INDIA and then return sum of exponentials of those values. " +
	"After getting the final answer, open PowerPoint, draw a rectangle, and write the result inside it."

const notifyTimeout = 30 * time.Second

// version is set at build time.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("slideagent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to slideagent.toml")
	task := fs.String("task", "", "task for the agent (default: the INDIA exponential sum)")
	dryRun := fs.Bool("dry-run", false, "log UI actions instead of driving the application")
	builtinTools := fs.Bool("builtin-tools", false, "use in-process math tools instead of the MCP server")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	if err := credentials.LoadDotenv(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitConfig
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitConfig
	}
	if *dryRun {
		cfg.Automation.DryRun = true
	}
	if *builtinTools {
		cfg.Tools.Source = config.ToolsBuiltin
	}
	if *task == "" {
		*task = cfg.Loop.Task
	}
	if *task == "" {
		*task = defaultTask
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: invalid config: %v\n", err)
		return exitConfig
	}

	capture := logging.NewCapture(cfg.Notify.LogLines)
	logger := logging.New()
	logger.SetOutput(io.MultiWriter(stdout, capture))
	logger.SetLevel(logging.ParseLevel(cfg.Log.Level))

	coord := shutdown.NewCoordinator(shutdown.Config{
		OnSignal: func(sig os.Signal) {
			logger.Warn("interrupted", map[string]interface{}{"signal": sig.String()})
		},
		OnProgress: func(hr shutdown.HandlerResult) {
			if hr.Err != nil {
				logger.Warn("cleanup failed", map[string]interface{}{"handler": hr.Name, "error": hr.Err.Error()})
			}
		},
	})
	ctx := coord.HandleSignals(context.Background())
	defer coord.ShutdownWithTimeout(0)

	app, err := setup(ctx, cfg, logger, coord)
	if err != nil {
		logger.Error("startup failed", map[string]interface{}{"error": err.Error()})
		return exitConfig
	}

	logger.Info("starting", map[string]interface{}{
		"version":  version,
		"provider": cfg.Oracle.Provider,
		"model":    cfg.Oracle.Model,
		"tools":    cfg.Tools.Source,
		"dry_run":  cfg.Automation.DryRun,
	})

	out, runErr := app.agent.Run(ctx, *task)

	if out.Automation != nil {
		counts := out.Automation.Counts()
		fields := map[string]interface{}{"aborted": out.Automation.Aborted}
		for status, n := range counts {
			fields[status.String()] = n
		}
		logger.Info("automation summary", fields)
	}

	// Reports still go out after an interrupt.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	report := notify.Report{
		RunID:       out.RunID,
		Task:        *task,
		FinalAnswer: out.FinalAnswer,
		Duration:    out.Duration,
	}
	if runErr != nil {
		logger.Error("run failed", map[string]interface{}{
			"code":  string(errors.Code(runErr)),
			"error": runErr.Error(),
		})
		report.Error = runErr.Error()
		report.Logs = capture.Lines()
		if err := app.notifier.SendError(notifyCtx, report); err != nil {
			logger.Warn("notification failed", map[string]interface{}{"error": err.Error()})
		}
		return exitCode(runErr)
	}

	fmt.Fprintf(stdout, "Final answer: %s\n", out.FinalAnswer)
	report.Logs = capture.Lines()
	if err := app.notifier.SendSuccess(notifyCtx, report); err != nil {
		logger.Warn("notification failed", map[string]interface{}{"error": err.Error()})
	}
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errors.ErrCodeAppStart):
		return exitAutomation
	default:
		return exitLoop
	}
}
