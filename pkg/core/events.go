// pkg/core/events.go
package core

// BombState is passed through from the snapshot source unchanged.
type BombState string

const (
	BombCarried  BombState = "carried"
	BombDropped  BombState = "dropped"
	BombPlanted  BombState = "planted"
	BombDefused  BombState = "defused"
	BombExploded BombState = "exploded"
)

// Bomb is the current bomb state and location.
type Bomb struct {
	State    BombState  `json:"state"`
	Position Position3D `json:"position"`
}

// Smoke is a landed smoke grenade.
type Smoke struct {
	ID       string     `json:"id"`
	Team     Team       `json:"team,omitempty"`
	Position Position3D `json:"position"`
	Time     float64    `json:"time"`
}

// Inferno is the burning footprint of a molotov or incendiary.
type Inferno struct {
	ID             string       `json:"id"`
	FlamesNum      int          `json:"flamesNum"`
	FlamesPosition []Position3D `json:"flamesPosition"`
}

// Flashbang is a detonated flashbang marker.
type Flashbang struct {
	ID       string     `json:"id"`
	Team     Team       `json:"team,omitempty"`
	Position Position3D `json:"position"`
	Time     float64    `json:"time"`
}

// Projectile is any grenade still in flight.
// ID is the grenade type followed by the raw id so simultaneous throws of one type stay distinct.
type Projectile struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Team     Team       `json:"team,omitempty"`
	Position Position3D `json:"position"`
}

// Grenades holds the four disjoint grenade groups of one tick.
type Grenades struct {
	Smokes      []Smoke
	Infernos    []Inferno
	Flashbangs  []Flashbang
	Projectiles []Projectile
}

// ConnectionStatus of the game client push feed.
type ConnectionStatus string

const ConnectionUp ConnectionStatus = "up"

// Connection is emitted whenever the game client pushes provider state.
// Player is set only when the observed player is not actively playing.
type Connection struct {
	Status ConnectionStatus `json:"status"`
	Player string           `json:"player,omitempty"`
}
