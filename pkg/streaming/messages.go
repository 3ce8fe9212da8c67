package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/FC2Observ/observ/pkg/core"
)

// Event type constants of the outbound protocol.
const (
	TypePlayers     = "players"
	TypeBomb        = "bomb"
	TypeSmokes      = "smokes"
	TypeInfernos    = "infernos"
	TypeFlashbangs  = "flashbangs"
	TypeProjectiles = "projectiles"
	TypeConnection  = "connection"
	TypeMap         = "map"
	TypeRadar       = "radar"
)

// Types lists every outbound event type in emission order.
var Types = []string{
	TypePlayers,
	TypeBomb,
	TypeSmokes,
	TypeInfernos,
	TypeFlashbangs,
	TypeProjectiles,
	TypeConnection,
	TypeMap,
	TypeRadar,
}

// Event is one outbound message delivered to renderers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Marshal encodes the event as a single JSON object.
func (e Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return data, nil
}

// PlayersPayload is the data of a players event.
type PlayersPayload struct {
	Players []core.Player `json:"players"`
}

// RadarPoint is one player projected onto the radar image, in percent.
type RadarPoint struct {
	Num   int     `json:"num"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Split int     `json:"split"`
	// Trail is a GeoJSON LineString of the slot's recent points on the same split, ending at this one.
	Trail json.RawMessage `json:"trail,omitempty"`
}

// RadarPayload is the data of a radar event.
type RadarPayload struct {
	Map     string       `json:"map"`
	Players []RadarPoint `json:"players"`
}
