package main

import (
	"fmt"

	"github.com/FC2Observ/observ/internal/config"
	"github.com/FC2Observ/observ/internal/mapdata"
)

// openCatalog opens the configured map source and preloads maps.preload.
// A preload failure is fatal: the radar cannot render without calibration.
func openCatalog(mapsCfg config.MapsConfig, dbCfg config.DBConfig) (*mapdata.Catalog, func() error, error) {
	src, closeFn, err := mapdata.OpenSource(mapsCfg, dbCfg)
	if err != nil {
		return nil, closeFn, fmt.Errorf("failed to open map source %q: %w", mapsCfg.Source, err)
	}
	Logger.Info("Map source initialized", "source", mapsCfg.Source)

	catalog := mapdata.NewCatalog(src)
	if len(mapsCfg.Preload) > 0 {
		if err := catalog.Preload(mapsCfg.Preload...); err != nil {
			_ = closeFn()
			return nil, func() error { return nil }, err
		}
		Logger.Info("Maps preloaded", "count", catalog.Loaded())
	}
	return catalog, closeFn, nil
}
