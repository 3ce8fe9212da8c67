package match

import (
	"sync"

	"github.com/FC2Observ/observ/internal/mapdata"
)

// NoMap is the map name before the push receiver reports one.
const NoMap = "none"

// Context holds the current map name and its calibration data.
type Context struct {
	mu      sync.RWMutex
	mapName string
	mapData *mapdata.MapData
}

// NewContext creates a new Context with no map loaded
func NewContext() *Context {
	return &Context{mapName: NoMap}
}

// MapName returns the last reported map name
func (mc *Context) MapName() string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.mapName
}

// Map returns the calibration of the current map, nil when it could not be loaded
func (mc *Context) Map() *mapdata.MapData {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.mapData
}

// SetMap records a map change. md may be nil when the map is unknown.
func (mc *Context) SetMap(name string, md *mapdata.MapData) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.mapName = name
	mc.mapData = md
}
