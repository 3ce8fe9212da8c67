package mapdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MapRecord is the database row of a map description.
type MapRecord struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	Name       string         `json:"name" gorm:"size:127;uniqueIndex"`
	OffsetX    float64        `json:"offsetX"`
	OffsetY    float64        `json:"offsetY"`
	Resolution float64        `json:"resolution"`
	Splits     datatypes.JSON `json:"splits"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (MapRecord) TableName() string {
	return "maps"
}

func (r *MapRecord) toMapData() (*MapData, error) {
	md := &MapData{
		Name:       r.Name,
		Offset:     Vec2{X: r.OffsetX, Y: r.OffsetY},
		Resolution: r.Resolution,
	}
	if len(r.Splits) > 0 {
		if err := json.Unmarshal(r.Splits, &md.Splits); err != nil {
			return nil, fmt.Errorf("decode splits: %w", err)
		}
	}
	return md, nil
}

// DBSource reads map descriptions from the maps table through GORM.
// Works with the SQLite and Postgres dialectors alike.
type DBSource struct {
	db *gorm.DB
}

func NewDBSource(db *gorm.DB) *DBSource {
	return &DBSource{db: db}
}

// Migrate creates or updates the maps table.
func (s *DBSource) Migrate() error {
	if err := s.db.AutoMigrate(&MapRecord{}); err != nil {
		return fmt.Errorf("failed to migrate maps table: %w", err)
	}
	return nil
}

func (s *DBSource) Load(name string) (*MapData, error) {
	var rec MapRecord
	err := s.db.Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Name: name}
	}
	if err != nil {
		return nil, &MapLoadError{Name: name, Err: err}
	}

	md, err := rec.toMapData()
	if err != nil {
		return nil, &MapLoadError{Name: name, Err: err}
	}
	return finish(name, md)
}

// Save inserts md or replaces the existing row with the same name.
func (s *DBSource) Save(md *MapData) error {
	if err := md.Validate(); err != nil {
		return &MapLoadError{Name: md.Name, Err: err}
	}

	splits := md.Splits
	if splits == nil {
		splits = []Split{}
	}
	raw, err := json.Marshal(splits)
	if err != nil {
		return fmt.Errorf("encode splits: %w", err)
	}

	rec := MapRecord{
		Name:       md.Name,
		OffsetX:    md.Offset.X,
		OffsetY:    md.Offset.Y,
		Resolution: md.Resolution,
		Splits:     datatypes.JSON(raw),
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"offset_x", "offset_y", "resolution", "splits", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save map %q: %w", md.Name, err)
	}
	return nil
}

// Names lists every stored map name in alphabetical order.
func (s *DBSource) Names() ([]string, error) {
	var names []string
	if err := s.db.Model(&MapRecord{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}
