package worker

import (
	"log/slog"
	"sync"

	"github.com/FC2Observ/observ/internal/config"
	"github.com/FC2Observ/observ/internal/dispatcher"
	"github.com/FC2Observ/observ/internal/mapdata"
	"github.com/FC2Observ/observ/internal/match"
	"github.com/FC2Observ/observ/internal/radar"
	"github.com/FC2Observ/observ/pkg/streaming"
)

// Sender delivers outbound events to renderers.
type Sender interface {
	Send(e streaming.Event) error
}

// MapLoader resolves map calibration data by name.
type MapLoader interface {
	Load(name string) (*mapdata.MapData, error)
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Output Sender
	Maps   MapLoader
	Match  *match.Context
	Mapper *radar.Mapper
	Radar  config.RadarConfig
	Logger *slog.Logger
}

// Manager turns dispatched events into outbound messages and radar updates.
// radarMu keeps a map switch and its pool reset from interleaving with
// the projection of a players event.
type Manager struct {
	deps    Dependencies
	emitter *dispatcher.Dispatcher
	radarMu sync.RWMutex
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Match == nil {
		deps.Match = match.NewContext()
	}
	if deps.Mapper == nil {
		deps.Mapper = radar.NewMapper(radar.NewPool(deps.Radar.TrailLength))
	}
	return &Manager{deps: deps}
}

// forward hands e to the sinks. Sink failures are logged by the sinks and
// never fail the handler.
func (m *Manager) forward(e dispatcher.Event) {
	_ = m.deps.Output.Send(streaming.Event{Type: e.Type, Data: e.Data})
}
