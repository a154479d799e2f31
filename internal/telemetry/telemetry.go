package telemetry

import (
	"fmt"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// MeterName prefixes the otel meters of every package.
const MeterName = "wmsdash"

// SetupLogging installs the default slog logger: text on stdout, plus JSON
// lines appended to logFile when one is set. The returned func closes the
// log file.
func SetupLogging(service string, debug bool, logFile string) (func() error, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug || os.Getenv("WMSDASH_DEBUG") != "" {
		opts.Level = slog.LevelDebug
	}

	stdout := slog.NewTextHandler(os.Stdout, opts)
	if logFile == "" {
		slog.SetDefault(slog.New(stdout).With(slog.String("service", service)))
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	slog.SetDefault(slog.New(slogmulti.Fanout(
		stdout,
		slog.NewJSONHandler(f, opts),
	)).With(slog.String("service", service)))
	return f.Close, nil
}
