package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	// Console receives human readable output. Defaults to stderr since stdout
	// may carry the NDJSON event stream to the parent process.
	Console io.Writer

	// Dynamic state callbacks, read on every record
	GetMapName      func() string
	IsPollerRunning func() bool
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{Console: os.Stderr}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup initializes the logging system with console, file, optional OTel output
// and any extra handlers (GELF). A nil file or provider disables that output.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	opts := handlerOptions(level)
	m.logProvider = provider

	var handlers []slog.Handler

	if m.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(m.Console, opts))
	}

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, opts))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler("fc2observ", otelslog.WithLoggerProvider(provider)))
	}

	handlers = append(handlers, extra...)

	m.logger = slog.New(newStateHandler(m.contextAttrs, handlers...))
	m.logger.Info("Logging initialized", "level", level)
}

// contextAttrs reports the live match state stamped on every record.
func (m *SlogManager) contextAttrs() []slog.Attr {
	var attrs []slog.Attr
	if m.GetMapName != nil {
		if name := m.GetMapName(); name != "" {
			attrs = append(attrs, slog.String("map", name))
		}
	}
	if m.IsPollerRunning != nil {
		attrs = append(attrs, slog.Bool("pollerRunning", m.IsPollerRunning()))
	}
	return attrs
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

// stateHandler stamps each record with the live match state and hands it to
// every sink enabled for its level. A failing sink does not stop the others.
type stateHandler struct {
	sinks []slog.Handler
	state func() []slog.Attr
}

func newStateHandler(state func() []slog.Attr, sinks ...slog.Handler) *stateHandler {
	valid := make([]slog.Handler, 0, len(sinks))
	for _, h := range sinks {
		if h != nil {
			valid = append(valid, h)
		}
	}
	return &stateHandler{sinks: valid, state: state}
}

func (h *stateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *stateHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.state != nil {
		r.AddAttrs(h.state()...)
	}

	var errs []error
	for _, s := range h.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *stateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *stateHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *stateHandler) derive(fn func(slog.Handler) slog.Handler) *stateHandler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = fn(s)
	}
	return &stateHandler{sinks: sinks, state: h.state}
}
