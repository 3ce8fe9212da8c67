package mapdata

import (
	"fmt"

	"github.com/FC2Observ/observ/internal/cache"
)

// Catalog loads each map at most once per process.
type Catalog struct {
	source Source
	maps   *cache.Cache[string, *MapData]
}

func NewCatalog(source Source) *Catalog {
	return &Catalog{
		source: source,
		maps:   cache.New[string, *MapData](),
	}
}

// Load returns the cached description of name, reading it from the source on first use.
// Failed loads are retried on the next call.
func (c *Catalog) Load(name string) (*MapData, error) {
	return c.maps.GetOrLoad(name, c.source.Load)
}

// Preload loads every name, stopping at the first failure.
func (c *Catalog) Preload(names ...string) error {
	for _, name := range names {
		if _, err := c.Load(name); err != nil {
			return fmt.Errorf("preload: %w", err)
		}
	}
	return nil
}

// Loaded returns the number of cached maps.
func (c *Catalog) Loaded() int {
	return c.maps.Len()
}
