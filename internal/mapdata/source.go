package mapdata

import (
	"fmt"

	"github.com/FC2Observ/observ/internal/config"
	"github.com/FC2Observ/observ/internal/database"
	"gorm.io/gorm"
)

// Source kinds accepted in maps.source.
const (
	SourceFile     = "file"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// OpenSource builds the Source selected by cfg. The returned close func
// releases any database connection and is never nil.
func OpenSource(cfg config.MapsConfig, dbCfg config.DBConfig) (Source, func() error, error) {
	noop := func() error { return nil }

	var db *gorm.DB
	var err error
	switch cfg.Source {
	case SourceFile, "":
		return NewFileSource(cfg.Dir), noop, nil
	case SourceSQLite:
		db, err = database.OpenSQLite(cfg.SQLitePath)
	case SourcePostgres:
		db, err = database.OpenPostgres(dbCfg.DSN())
	default:
		return nil, noop, fmt.Errorf("unknown maps.source %q", cfg.Source)
	}
	if err != nil {
		return nil, noop, err
	}

	src := NewDBSource(db)
	if err := src.Migrate(); err != nil {
		_ = database.Close(db)
		return nil, noop, err
	}
	return src, func() error { return database.Close(db) }, nil
}
