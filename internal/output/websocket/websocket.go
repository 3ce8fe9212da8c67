package websocket

import (
	"log/slog"

	"github.com/FC2Observ/observ/pkg/streaming"
)

// Config holds WebSocket sink configuration.
type Config struct {
	URL    string
	Secret string
}

// Sink streams events to an overlay over WebSocket, one {type, data} text
// frame per event. Only the newest frame of each type is kept while the
// overlay is slow or away; connection and map are replayed on every socket.
type Sink struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket sink.
func New(cfg Config, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		conn: newConnection(logger.With("sink", "websocket")),
		cfg:  cfg,
	}
}

func (s *Sink) Name() string { return "websocket" }

// Init connects to the WebSocket server.
func (s *Sink) Init() error {
	return s.conn.dial(s.cfg.URL, s.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (s *Sink) Close() error {
	return s.conn.close()
}

func (s *Sink) Send(e streaming.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}
	s.conn.send(e.Type, data)
	return nil
}
