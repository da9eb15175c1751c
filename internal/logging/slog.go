package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// DefaultServiceName names the OTel instrumentation scope of bridged logs.
const DefaultServiceName = "tollsim"

// Options configures SlogManager.Setup.
type Options struct {
	// Console receives text output. Defaults to stdout when File is nil.
	Console io.Writer
	// File receives the same text output as Console.
	File  io.Writer
	Level string
	// Provider enables the OTel handler when non-nil.
	Provider    *sdklog.LoggerProvider
	ServiceName string
	// Context stamps dynamic attributes (tick, run) onto every record.
	Context ContextProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel converts a string log level to slog.Level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func rfc3339UTC(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
		}
	}
	return a
}

// Setup builds the logger. Calling it again replaces the previous logger.
func (m *SlogManager) Setup(opts Options) {
	level := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: rfc3339UTC,
	}

	console := opts.Console
	if console == nil && opts.File == nil {
		console = os.Stdout
	}

	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, handlerOpts))
	}
	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	}
	if opts.Provider != nil {
		name := opts.ServiceName
		if name == "" {
			name = DefaultServiceName
		}
		handlers = append(handlers, otelslog.NewHandler(name, otelslog.WithLoggerProvider(opts.Provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		h = NewContextHandler(h, opts.Context)
	}

	m.logProvider = opts.Provider
	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "logLevel", level.String())
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
