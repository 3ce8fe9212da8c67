package worker

import (
	"encoding/json"
	"fmt"

	"github.com/FC2Observ/observ/internal/dispatcher"
	"github.com/FC2Observ/observ/internal/mapdata"
	"github.com/FC2Observ/observ/internal/radar"
	"github.com/FC2Observ/observ/pkg/streaming"
)

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.emitter = d

	// Snapshot groups - buffered, one tick behind at most
	d.Register(streaming.TypePlayers, m.handlePlayers, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(streaming.TypeBomb, m.handleForward, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(streaming.TypeSmokes, m.handleForward, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(streaming.TypeInfernos, m.handleForward, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(streaming.TypeFlashbangs, m.handleForward, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(streaming.TypeProjectiles, m.handleForward, dispatcher.Buffered(100), dispatcher.Logged())

	// Push feed - sync, low volume
	d.Register(streaming.TypeConnection, m.handleForward, dispatcher.Logged())
	// Map change - sync (radar must use the new map before the next players event)
	d.Register(streaming.TypeMap, m.handleMap, dispatcher.Logged())

	d.Register(streaming.TypeRadar, m.handleForward, dispatcher.Buffered(100), dispatcher.Logged())
}

func (m *Manager) handleForward(e dispatcher.Event) (any, error) {
	m.forward(e)
	return nil, nil
}

func (m *Manager) handlePlayers(e dispatcher.Event) (any, error) {
	payload, ok := e.Data.(streaming.PlayersPayload)
	if !ok {
		return nil, fmt.Errorf("players event carries %T", e.Data)
	}
	m.forward(e)

	if !m.deps.Radar.Enabled {
		return nil, nil
	}
	out, ok, err := m.project(payload)
	if err != nil || !ok {
		return nil, err
	}

	if m.emitter == nil {
		m.forward(dispatcher.NewEvent(streaming.TypeRadar, out))
		return nil, nil
	}
	if _, err := m.emitter.Dispatch(dispatcher.NewEvent(streaming.TypeRadar, out)); err != nil {
		return nil, fmt.Errorf("dispatch radar: %w", err)
	}
	return nil, nil
}

// project tracks every player on the current map. ok is false when the map
// has no calibration data.
func (m *Manager) project(payload streaming.PlayersPayload) (streaming.RadarPayload, bool, error) {
	m.radarMu.RLock()
	defer m.radarMu.RUnlock()

	md := m.deps.Match.Map()
	if md == nil {
		return streaming.RadarPayload{}, false, nil
	}

	out := streaming.RadarPayload{
		Map:     m.deps.Match.MapName(),
		Players: make([]streaming.RadarPoint, 0, len(payload.Players)),
	}
	pool := m.deps.Mapper.Pool()
	for _, p := range payload.Players {
		pt := m.deps.Mapper.Track(radar.FromCore(p.Position), md, p.Num)
		rp := streaming.RadarPoint{Num: p.Num, X: pt.X, Y: pt.Y, Split: pt.Split}
		if line, ok := pool.TrailLine(p.Num); ok {
			raw, err := json.Marshal(line)
			if err != nil {
				return streaming.RadarPayload{}, false, fmt.Errorf("encode trail of slot %d: %w", p.Num, err)
			}
			rp.Trail = raw
		}
		out.Players = append(out.Players, rp)
	}
	return out, true, nil
}

// handleMap switches the match to the reported map. A map without
// calibration data disables radar projection until the next change.
func (m *Manager) handleMap(e dispatcher.Event) (any, error) {
	name, ok := e.Data.(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("map event carries %T", e.Data)
	}

	var md *mapdata.MapData
	if m.deps.Radar.Enabled && m.deps.Maps != nil {
		var err error
		md, err = m.deps.Maps.Load(name)
		if err != nil {
			m.deps.Logger.Error("Map data unavailable, radar disabled", "map", name, "error", err)
			md = nil
		} else {
			m.deps.Logger.Info("Map loaded", "map", name, "splits", len(md.Splits))
		}
	}

	m.radarMu.Lock()
	m.deps.Match.SetMap(name, md)
	m.deps.Mapper.Pool().Reset()
	m.radarMu.Unlock()

	m.forward(e)
	return nil, nil
}
