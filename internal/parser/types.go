package parser

import (
	"encoding/json"

	"github.com/FC2Observ/observ/pkg/core"
)

// RawSnapshot is the top level of a snapshot document. Entries stay raw so
// a malformed entry can be skipped without losing the rest of the tick.
type RawSnapshot struct {
	Players     []json.RawMessage `json:"players"`
	LocalPlayer json.RawMessage   `json:"localplayer,omitempty"`
	Bomb        json.RawMessage   `json:"bomb,omitempty"`
	Grenades    []json.RawMessage `json:"grenades,omitempty"`
}

// RawVector is an engine vector with each component number-or-string.
type RawVector struct {
	X Number `json:"x"`
	Y Number `json:"y"`
	Z Number `json:"z"`
}

func (v RawVector) Position() core.Position3D {
	return core.Position3D{X: v.X.Float(), Y: v.Y.Float(), Z: v.Z.Float()}
}

func (v RawVector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

type RawPlayer struct {
	Name       *string    `json:"name"`
	Index      *Number    `json:"index"`
	Team       *Number    `json:"team"`
	Health     Number     `json:"health"`
	Flashed    *Number    `json:"flashed"`
	ViewAngles *RawVector `json:"viewangles"`
	Position   *RawVector `json:"position"`
}

type RawBomb struct {
	State    string    `json:"state"`
	Player   *Number   `json:"player"`
	Position RawVector `json:"position"`
}

type RawGrenade struct {
	ID         *ID         `json:"id"`
	Type       string      `json:"type"`
	Team       *Number     `json:"team"`
	Position   RawVector   `json:"position"`
	Velocity   RawVector   `json:"velocity"`
	EffectTime Number      `json:"effecttime"`
	Flames     []RawVector `json:"flames"`
}

// Result is every event produced by one snapshot.
type Result struct {
	Players  []core.Player
	Bomb     *core.Bomb
	Grenades core.Grenades
}
