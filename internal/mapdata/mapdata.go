// Package mapdata describes radar calibration for a map and loads it from
// a metadata directory or a database.
package mapdata

import (
	"errors"
	"fmt"
)

// ErrNotFound matches every NotFoundError.
var ErrNotFound = errors.New("map not found")

// Vec2 is a planar offset.
type Vec2 struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// Bounds is an open vertical range on the engine Z axis.
type Bounds struct {
	Bottom float64 `json:"bottom" mapstructure:"bottom"`
	Top    float64 `json:"top" mapstructure:"top"`
}

// Contains reports bottom < z < top. Points exactly on a bound are outside.
func (b Bounds) Contains(z float64) bool {
	return z > b.Bottom && z < b.Top
}

// Split is a vertical level of a multi-level map, drawn at an offset on the radar image.
type Split struct {
	Bounds Bounds `json:"bounds" mapstructure:"bounds"`
	Offset Vec2   `json:"offset" mapstructure:"offset"`
}

// MapData is the calibration of one radar image. It is never mutated after load.
type MapData struct {
	Name       string  `json:"name" mapstructure:"name"`
	Offset     Vec2    `json:"offset" mapstructure:"offset"`
	Resolution float64 `json:"resolution" mapstructure:"resolution"`
	Splits     []Split `json:"splits" mapstructure:"splits"`
}

// Validate checks the invariants every loaded map must hold.
func (m *MapData) Validate() error {
	if m.Resolution <= 0 {
		return fmt.Errorf("resolution must be > 0, got %v", m.Resolution)
	}
	for i, s := range m.Splits {
		if s.Bounds.Bottom >= s.Bounds.Top {
			return fmt.Errorf("split %d: bottom %v must be below top %v", i, s.Bounds.Bottom, s.Bounds.Top)
		}
	}
	return nil
}

// Source loads map calibration by map name.
type Source interface {
	Load(name string) (*MapData, error)
}

// NotFoundError is returned when no description exists for a map.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("map %q not found", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MapLoadError wraps a description that exists but could not be read or is invalid.
type MapLoadError struct {
	Name string
	Err  error
}

func (e *MapLoadError) Error() string {
	return fmt.Sprintf("failed to load map %q: %v", e.Name, e.Err)
}

func (e *MapLoadError) Unwrap() error {
	return e.Err
}

func finish(name string, md *MapData) (*MapData, error) {
	if md.Name == "" {
		md.Name = name
	}
	if md.Splits == nil {
		md.Splits = []Split{}
	}
	if err := md.Validate(); err != nil {
		return nil, &MapLoadError{Name: name, Err: err}
	}
	return md, nil
}
