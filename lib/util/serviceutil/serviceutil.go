package serviceutil

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const (
	ExitFailure = 1
	// ExitInterrupted follows the shell convention of 128 + SIGINT.
	ExitInterrupted = 130
)

// replaced in tests
var exit = os.Exit

// SignalContext returns a context that is canceled on Ctrl+C or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ExitCode maps the error a command failed with to the process exit code.
func ExitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	return ExitFailure
}

// Fatal logs err and exits with the code ExitCode picks for it.
func Fatal(message string, err error) {
	code := ExitCode(err)
	slog.Error(message, "err", err, "exit", code)
	exit(code)
}
