package betree

import (
	"io"
	"log/slog"
	"os"
)

// LoggingOptions configures the process-wide default logger the same way
// Params configures a Tree's page layout: as an explicit struct a caller
// builds and passes in, rather than a setup function that reaches into the
// environment on its own.
type LoggingOptions struct {
	// Level is the minimum level the handler emits.
	Level slog.Level
	// Output is where the handler writes. nil means os.Stdout.
	Output io.Writer
}

// DefaultLoggingOptions returns Info level logging to stdout.
func DefaultLoggingOptions() LoggingOptions {
	return LoggingOptions{Level: slog.LevelInfo, Output: os.Stdout}
}

// LoggingOptionsFromEnv builds LoggingOptions from the BETREE_LOG_LEVEL
// environment variable (DEBUG/WARN/ERROR; anything else, including unset,
// means Info), for command-line entry points such as cmd/betree-admin that
// want operators to control verbosity without a flag.
func LoggingOptionsFromEnv() LoggingOptions {
	opts := DefaultLoggingOptions()
	switch os.Getenv("BETREE_LOG_LEVEL") {
	case "DEBUG":
		opts.Level = slog.LevelDebug
	case "WARN":
		opts.Level = slog.LevelWarn
	case "ERROR":
		opts.Level = slog.LevelError
	}
	return opts
}

var logLevel = new(slog.LevelVar)

// ConfigureLogging installs a TextHandler over opts.Output at opts.Level as
// the global default logger. Applications embedding betree should call
// this at startup if they want its default logging configuration; betree
// itself never calls it.
func ConfigureLogging(opts LoggingOptions) {
	logLevel.Set(opts.Level)
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

// SetLogLevel overrides the level configured by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}
