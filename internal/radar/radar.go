// Package radar projects engine coordinates onto a radar image as percentages
// of its width, tracking per-slot split membership for multi-level maps.
package radar

import (
	"github.com/FC2Observ/observ/internal/mapdata"
	"github.com/FC2Observ/observ/pkg/core"
)

const (
	// RadarSize is the edge length in pixels of every radar image.
	RadarSize = 1024
	// MaxSlots is the number of tracked player slots.
	MaxSlots = 10
	// Ground is the split index of a position outside every split.
	Ground = -1
)

// Axis selects the planar component to project.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Position is an engine position. Z is optional; without it split detection is skipped.
type Position struct {
	X float64
	Y float64
	Z *float64
}

func At(x, y, z float64) Position {
	return Position{X: x, Y: y, Z: &z}
}

func AtXY(x, y float64) Position {
	return Position{X: x, Y: y}
}

func FromCore(p core.Position3D) Position {
	return At(p.X, p.Y, p.Z)
}

func (p Position) axis(a Axis) float64 {
	if a == AxisY {
		return p.Y
	}
	return p.X
}

func component(v mapdata.Vec2, a Axis) float64 {
	if a == AxisY {
		return v.Y
	}
	return v.X
}

// Point is a projected position in radar percentage space.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Split int     `json:"split"`
}

// Project converts one axis of pos into a radar percentage and reports the
// split it falls in (Ground when none). The first split whose open bounds
// contain z wins and its axis offset is added once.
func Project(pos Position, a Axis, md *mapdata.MapData) (float64, int) {
	game := pos.axis(a) + component(md.Offset, a)
	pixel := game / md.Resolution
	perc := pixel / RadarSize * 100

	split := Ground
	if pos.Z != nil {
		for i, s := range md.Splits {
			if s.Bounds.Contains(*pos.Z) {
				perc += component(s.Offset, a)
				split = i
				break
			}
		}
	}
	return perc, split
}

// Mapper projects positions and keeps the slot pool in step.
type Mapper struct {
	pool *Pool
}

func NewMapper(pool *Pool) *Mapper {
	return &Mapper{pool: pool}
}

func (m *Mapper) Pool() *Pool {
	return m.pool
}

// ProjectSlot is Project followed by a split update of slot. Slots outside
// [0, MaxSlots) skip the state step.
func (m *Mapper) ProjectSlot(pos Position, a Axis, md *mapdata.MapData, slot int) float64 {
	perc, split := Project(pos, a, md)
	m.pool.Observe(slot, split)
	return perc
}

// ProjectPoint projects both axes of pos for slot.
func (m *Mapper) ProjectPoint(pos Position, md *mapdata.MapData, slot int) Point {
	x := m.ProjectSlot(pos, AxisX, md, slot)
	y, split := Project(pos, AxisY, md)
	m.pool.Observe(slot, split)
	return Point{X: x, Y: y, Split: split}
}

// Track projects pos for slot and appends the result to the slot's trail.
func (m *Mapper) Track(pos Position, md *mapdata.MapData, slot int) Point {
	p := m.ProjectPoint(pos, md, slot)
	m.pool.Append(slot, p)
	return p
}
