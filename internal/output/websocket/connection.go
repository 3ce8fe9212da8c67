package websocket

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/FC2Observ/observ/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	defaultMaxBackoff = 30 * time.Second
	writeWait         = 10 * time.Second
)

// stickyTypes are replayed, in this order, as the first frames of every
// socket so a freshly connected overlay knows the feed state and the radar
// image before the next tick arrives.
var stickyTypes = []string{streaming.TypeConnection, streaming.TypeMap}

func isSticky(typ string) bool {
	for _, s := range stickyTypes {
		if s == typ {
			return true
		}
	}
	return false
}

// connection owns one overlay socket at a time. Outbound frames are kept
// per event type, newest wins, so a slow or absent overlay never builds a
// backlog of old ticks. A single goroutine (run) dials, writes and
// redials until close.
type connection struct {
	mu      sync.Mutex
	pending map[string][]byte
	order   []string
	sticky  map[string][]byte
	closed  bool
	started bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}

	wsURL  string
	secret string
	dialer *ws.Dialer

	// reconnect delays, shortened in tests
	baseBackoff time.Duration
	maxBackoff  time.Duration

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		pending:     make(map[string][]byte),
		sticky:      make(map[string][]byte),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		dialer:      &ws.Dialer{HandshakeTimeout: writeWait},
		baseBackoff: time.Second,
		maxBackoff:  defaultMaxBackoff,
		logger:      logger,
	}
}

// dial validates the URL, tries one connection and starts the run loop.
// An unreachable overlay is not an error; the loop keeps redialing.
func (c *connection) dial(rawURL, secret string) error {
	if _, err := url.Parse(rawURL); err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}

	c.mu.Lock()
	if c.closed || c.started {
		c.mu.Unlock()
		return nil
	}
	c.wsURL = rawURL
	c.secret = secret
	c.started = true
	c.mu.Unlock()

	conn, err := c.dialOnce()
	if err != nil {
		c.logger.Warn("WebSocket not reachable yet, retrying in background", "url", rawURL, "error", err)
		conn = nil
	}
	go c.run(conn)
	return nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := c.dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) run(conn *ws.Conn) {
	defer close(c.stopped)

	for {
		if conn == nil {
			var ok bool
			if conn, ok = c.redial(); !ok {
				return
			}
		}

		err := c.serve(conn)
		_ = conn.Close()
		if err == nil {
			return
		}

		c.logger.Warn("WebSocket connection lost", "error", err)
		c.discardPending()
		conn = nil
	}
}

// redial retries with exponential backoff, capped at maxBackoff, until a
// dial succeeds or the connection is closed.
func (c *connection) redial() (*ws.Conn, bool) {
	backoff := c.baseBackoff
	for attempt := 1; ; attempt++ {
		select {
		case <-c.done:
			return nil, false
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err == nil {
			c.logger.Info("WebSocket reconnected", "attempt", attempt)
			return conn, true
		}
		c.logger.Warn("Reconnect dial failed", "attempt", attempt, "retryIn", backoff, "error", err)
		backoff = min(backoff*2, c.maxBackoff)
	}
}

// serve replays the sticky frames, then writes pending frames whenever
// send wakes it. It returns nil after a clean close and the write or read
// error otherwise.
func (c *connection) serve(conn *ws.Conn) error {
	readErr := make(chan error, 1)
	go func() { readErr <- discardReads(conn) }()

	if err := c.writeAll(conn, c.takeSticky()); err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	for {
		if err := c.writeAll(conn, c.takePending()); err != nil {
			return err
		}

		select {
		case <-c.done:
			_ = conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return nil
		case err := <-readErr:
			return fmt.Errorf("read: %w", err)
		case <-c.wake:
		}
	}
}

// discardReads drains inbound frames; it exists to notice a closed peer.
func discardReads(conn *ws.Conn) error {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return err
		}
	}
}

func (c *connection) writeAll(conn *ws.Conn, frames [][]byte) error {
	for _, data := range frames {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
		if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	return nil
}

// takeSticky returns the sticky frames in replay order and removes them
// from pending so they are not written twice.
func (c *connection) takeSticky() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	var frames [][]byte
	for _, typ := range stickyTypes {
		if data, ok := c.sticky[typ]; ok {
			frames = append(frames, data)
			c.dropPendingLocked(typ)
		}
	}
	return frames
}

func (c *connection) takePending() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	frames := make([][]byte, 0, len(c.order))
	for _, typ := range c.order {
		frames = append(frames, c.pending[typ])
	}
	clear(c.pending)
	c.order = c.order[:0]
	return frames
}

func (c *connection) dropPendingLocked(typ string) {
	if _, ok := c.pending[typ]; !ok {
		return
	}
	delete(c.pending, typ)
	for i, t := range c.order {
		if t == typ {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// discardPending drops every unsent frame after a lost connection. Snapshot
// frames are older than the outage; sticky frames come back on replay.
func (c *connection) discardPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.pending)
	c.order = c.order[:0]
}

// pendingTypes lists the event types waiting to be written, oldest first.
func (c *connection) pendingTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// send stores data as the newest frame of typ and wakes the writer.
// It never blocks.
func (c *connection) send(typ string, data []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, ok := c.pending[typ]; !ok {
		c.order = append(c.order, typ)
	}
	c.pending[typ] = data
	if isSticky(typ) {
		c.sticky[typ] = data
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// close sends a close frame on the live socket, if any, and waits for the
// run loop to exit.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	started := c.started
	c.mu.Unlock()

	if started {
		<-c.stopped
	}
	return nil
}
