package main

import (
	"context"
	"log/slog"
	"time"

	"scriptbrowser/cmd/scriptbrowser/commands"
	"scriptbrowser/internal/components/telemetry"
	"scriptbrowser/lib/util/serviceutil"
)

func main() {
	ctx, stop := serviceutil.SignalContext()
	defer stop()

	otel, err := telemetry.SetupFromEnv(ctx, "scriptbrowser")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := otel.Shutdown(shutdownCtx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()

	commands.ExecuteContext(ctx)
}
