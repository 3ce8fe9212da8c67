// pkg/core/types.go
package core

// Position3D is an in-game engine coordinate.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Team is the side a player is on, as shown on the radar.
type Team string

const (
	TeamCT Team = "CT"
	TeamT  Team = "T"
)

// Engine team codes as reported by the observer client.
const (
	EngineTeamUnassigned = 0
	EngineTeamSpectator  = 1
	EngineTeamT          = 2
	EngineTeamCT         = 3
)
