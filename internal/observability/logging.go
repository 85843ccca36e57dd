// Package observability provides the structured logger every package in
// this module uses. It is adapted from tvarr's internal/observability
// package: the same slog.HandlerOptions/ReplaceAttr shape, the same
// m-mizutani/masq field redaction, and the same GlobalLogLevel LevelVar for
// runtime-adjustable verbosity, generalized from HTTP request/response
// logging to processor and compiler lifecycle logging.
package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/masq"
)

// GlobalLogLevel is shared across every logger created by NewLogger, so a
// single level change (GlobalLogLevel.Set) adjusts verbosity everywhere
// at once.
var GlobalLogLevel = &slog.LevelVar{}

// Config controls logger construction. Mirrors tvarr's
// config.LoggingConfig shape closely enough that cmd/streamlibd can decode
// it straight out of viper.
type Config struct {
	Level     string `mapstructure:"level"` // debug, info, warn, error
	Format    string `mapstructure:"format"` // json, text
	AddSource bool   `mapstructure:"add_source"`
}

// DefaultConfig returns the logger configuration streamlibd starts with
// absent any user override.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text"}
}

// redactedFieldNames lists the processor-config keys most likely to carry
// credentials (e.g. an RTP/WHEP source's ingest URL with embedded auth).
// Redaction here protects the same class of secret tvarr redacts in
// its HTTP config handlers, just surfacing through processor Setup/Config
// logging instead of request bodies.
var redactedFieldNames = []string{
	"password", "Password",
	"secret", "Secret",
	"token", "Token",
	"apikey", "ApiKey", "api_key",
	"credential", "Credential",
}

func sensitiveFieldRedactor() func(groups []string, a slog.Attr) slog.Attr {
	opts := make([]masq.Option, 0, len(redactedFieldNames))
	for _, name := range redactedFieldNames {
		opts = append(opts, masq.WithFieldName(name))
	}
	return masq.New(opts...)
}

// NewLogger builds a slog.Logger writing to stdout per cfg.
func NewLogger(cfg Config) *slog.Logger {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// NewLoggerWithWriter is NewLogger with an explicit writer, used by tests
// and by any processor that wants its own log sink (e.g. a recording sink
// that also writes a session log alongside its media output).
func NewLoggerWithWriter(cfg Config, w io.Writer) *slog.Logger {
	GlobalLogLevel.Set(parseLevel(cfg.Level))
	redactor := sensitiveFieldRedactor()

	opts := &slog.HandlerOptions{
		Level:     GlobalLogLevel,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			return redactor(groups, a)
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the verbosity of every logger sharing GlobalLogLevel.
func SetLevel(level string) {
	GlobalLogLevel.Set(parseLevel(level))
}

// WithComponent tags logger with a component name, matching tvarr's
// WithComponent helper.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithProcessor tags logger with a processor id, the engine's equivalent of
// tvarr's WithRequestID/WithCorrelationID per-call tagging.
func WithProcessor(logger *slog.Logger, processorID string) *slog.Logger {
	return logger.With(slog.String("processor_id", processorID))
}
