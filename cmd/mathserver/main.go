// Command mathserver serves the math tools over stdio MCP. Logs go to stderr
// so stdout carries only protocol messages.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vinayprograms/slideagent/logging"
	"github.com/vinayprograms/slideagent/mcp"
	"github.com/vinayprograms/slideagent/tools"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mathserver", flag.ContinueOnError)
	fs.SetOutput(stderr)
	level := fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	logger := logging.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logging.ParseLevel(*level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(tools.NewRegistry(), mcp.ServerInfo{Name: "math", Version: version}, logger)
	if err := srv.Serve(ctx, stdin, stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
