// Package output delivers outbound events to every configured sink.
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/FC2Observ/observ/internal/config"
	"github.com/FC2Observ/observ/internal/output/mqtt"
	"github.com/FC2Observ/observ/internal/output/stdout"
	"github.com/FC2Observ/observ/internal/output/websocket"
	"github.com/FC2Observ/observ/pkg/streaming"
)

// Sink is the interface all event transports must satisfy
type Sink interface {
	Init() error
	Close() error
	Send(e streaming.Event) error
}

// Named sinks report a short name for logs.
type Named interface {
	Name() string
}

func sinkName(s Sink) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// Multi fans every event out to all sinks. A failing sink never blocks the others.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{sinks: sinks, logger: logger}
}

// NewSinks builds the sinks enabled in cfg. w receives stdout NDJSON.
func NewSinks(cfg config.OutputConfig, w io.Writer, logger *slog.Logger) *Multi {
	var sinks []Sink
	if cfg.Stdout {
		sinks = append(sinks, stdout.New(w))
	}
	if cfg.Websocket.URL != "" {
		sinks = append(sinks, websocket.New(websocket.Config{
			URL:    cfg.Websocket.URL,
			Secret: cfg.Websocket.Secret,
		}, logger))
	}
	if cfg.MQTT.Broker != "" {
		sinks = append(sinks, mqtt.New(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, logger))
	}
	return NewMulti(logger, sinks...)
}

func (m *Multi) Len() int {
	return len(m.sinks)
}

// Init initializes every sink. Sinks that fail are logged and removed.
func (m *Multi) Init() error {
	ready := m.sinks[:0]
	var errs []error
	for _, s := range m.sinks {
		if err := s.Init(); err != nil {
			m.logger.Error("Output sink unavailable", "sink", sinkName(s), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sinkName(s), err))
			continue
		}
		m.logger.Info("Output sink ready", "sink", sinkName(s))
		ready = append(ready, s)
	}
	m.sinks = ready
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sinkName(s), err))
		}
	}
	return errors.Join(errs...)
}

// Send delivers e to every sink and returns the joined errors.
func (m *Multi) Send(e streaming.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Send(e); err != nil {
			m.logger.Debug("Send failed", "sink", sinkName(s), "type", e.Type, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
