// diagrun renders diagram blocks embedded in HTML files to inline SVG.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/diagrun/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "diagrun",
	Short:         "Render embedded diagram blocks in HTML documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(renderCmd, parseCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger builds the process logger from settings, with correlation IDs
// injected from contexts.
func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.Level(level),
	})
	return slog.New(logging.NewCorrelationHandler(handler))
}
