// pkg/core/player.go
package core

// Player is one entry of the players snapshot.
// Num is the zero-based radar slot.
type Player struct {
	ID         string     `json:"id"`
	Num        int        `json:"num"`
	Team       Team       `json:"team"`
	Health     int        `json:"health"`
	Active     bool       `json:"active"`
	Flashed    float64    `json:"flashed"`
	Bomb       bool       `json:"bomb"`
	BombActive bool       `json:"bombActive"`
	Angle      float64    `json:"angle"`
	Position   Position3D `json:"position"`
}
