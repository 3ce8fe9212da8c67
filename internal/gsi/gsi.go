// Package gsi receives game state integration pushes from the game client
// and turns them into connection and map events.
package gsi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sync"

	"github.com/FC2Observ/observ/internal/cache"
	"github.com/FC2Observ/observ/internal/dispatcher"
	"github.com/FC2Observ/observ/internal/parser"
	"github.com/FC2Observ/observ/pkg/core"
	"github.com/FC2Observ/observ/pkg/streaming"
)

// RunningText is the body answered to anything but POST.
const RunningText = "FC2observ running\nPlease POST GSI data here"

const maxBodySize = 1 << 20

// activityPlaying is the player activity of a client that is playing, not spectating.
const activityPlaying = "playing"

// owner ids are 64-bit steam ids that lose precision as JSON numbers
var ownerPattern = regexp.MustCompile(`"owner":\s*([0-9]{10,})`)

// QuoteOwners rewrites large integer owner ids as JSON strings.
func QuoteOwners(body []byte) []byte {
	return ownerPattern.ReplaceAll(body, []byte(`"owner": "$1"`))
}

// Payload is the subset of a push this service reads.
type Payload struct {
	Provider json.RawMessage `json:"provider"`
	Player   *PlayerInfo     `json:"player"`
	Map      *MapInfo        `json:"map"`
}

type PlayerInfo struct {
	SteamID  string `json:"steamid"`
	Name     string `json:"name"`
	Activity string `json:"activity"`
}

type MapInfo struct {
	Name  string `json:"name"`
	Phase string `json:"phase"`
}

// Emitter receives connection and map events.
type Emitter interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Stats counts received pushes.
type Stats struct {
	Received int `json:"received"`
	Dropped  int `json:"dropped"`
}

// Handler answers GSI pushes. A push is acknowledged with an empty 200
// before it is parsed; malformed bodies are logged and dropped.
type Handler struct {
	emitter Emitter
	logger  *slog.Logger

	mu      sync.Mutex
	lastMap string

	received cache.SafeCounter
	dropped  cache.SafeCounter
}

func NewHandler(emitter Emitter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{emitter: emitter, logger: logger}
}

func (h *Handler) Stats() Stats {
	return Stats{Received: h.received.Value(), Dropped: h.dropped.Value()}
}

// LastMap returns the last map name reported by a push.
func (h *Handler) LastMap() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastMap
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = io.WriteString(w, RunningText)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	h.received.Inc()

	if err != nil {
		h.dropped.Inc()
		h.logger.Warn("Failed to read GSI body", "error", err)
		return
	}

	if err := h.Process(body); err != nil {
		h.dropped.Inc()
		h.logger.Warn("Dropping malformed GSI push", "error", err, "bytes", len(body))
	}
}

// Process parses one push body and emits its events.
func (h *Handler) Process(body []byte) error {
	var p Payload
	if err := json.Unmarshal(QuoteOwners(body), &p); err != nil {
		return &parser.ParseError{Source: "gsi", Err: err}
	}

	if len(p.Provider) > 0 && string(p.Provider) != "null" {
		conn := core.Connection{Status: core.ConnectionUp}
		if p.Player != nil && p.Player.Activity != activityPlaying {
			conn.Player = p.Player.Name
		}
		h.emit(dispatcher.NewEvent(streaming.TypeConnection, conn))
	}

	if p.Map != nil && p.Map.Name != "" && h.swapMap(p.Map.Name) {
		h.logger.Info("Map reported", "map", p.Map.Name)
		h.emit(dispatcher.NewEvent(streaming.TypeMap, p.Map.Name))
	}
	return nil
}

// swapMap stores name and reports whether it differs from the previous map.
func (h *Handler) swapMap(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastMap == name {
		return false
	}
	h.lastMap = name
	return true
}

func (h *Handler) emit(e dispatcher.Event) {
	if _, err := h.emitter.Dispatch(e); err != nil {
		h.logger.Debug("Event not delivered", "type", e.Type, "error", err)
	}
}
