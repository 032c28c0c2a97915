// Package routes loads the line geometry the flow-trips animation
// follows. Records live in a gorm-backed store (SQLite or Postgres) or
// an in-memory backend for tests and the simulator.
package routes

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yairtitelboim/Maps-sub002/internal/core"
	"github.com/yairtitelboim/Maps-sub002/internal/geo"
)

// RouteRecord is the persisted form of a route. Geometry is WKT in
// lon/lat (EPSG:4326); projection happens at load time.
type RouteRecord struct {
	ID         uint   `gorm:"primarykey"`
	Name       string `gorm:"size:255;not null"`
	Color      string `gorm:"size:9"` // #rrggbb or #rrggbbaa
	Geometry   string `gorm:"type:text;not null"`
	Properties datatypes.JSON
	CreatedAt  time.Time
}

func (RouteRecord) TableName() string {
	return "routes"
}

// ToRoute parses and projects the record into the domain type.
func (r RouteRecord) ToRoute() (core.Route, error) {
	ls, err := geo.ParseWKTLineString(r.Geometry)
	if err != nil {
		return core.Route{}, fmt.Errorf("route %d (%s): %w", r.ID, r.Name, err)
	}

	color, err := ParseHexColor(r.Color)
	if err != nil {
		return core.Route{}, fmt.Errorf("route %d (%s): %w", r.ID, r.Name, err)
	}

	props, err := decodeProperties(r.Properties)
	if err != nil {
		return core.Route{}, fmt.Errorf("route %d (%s): %w", r.ID, r.Name, err)
	}

	return core.Route{
		ID:         r.ID,
		Name:       r.Name,
		Color:      color,
		Path:       geo.MercatorPathFromLineString(ls),
		Properties: props,
	}, nil
}

// FromRoute builds a persistable record. The path is expected in
// lon/lat order already; callers persisting projected paths must
// unproject first.
func FromRoute(name, colorHex, geometryWKT string, properties map[string]any) (RouteRecord, error) {
	if _, err := ParseHexColor(colorHex); err != nil {
		return RouteRecord{}, err
	}
	if _, err := geo.ParseWKTLineString(geometryWKT); err != nil {
		return RouteRecord{}, err
	}
	props, err := encodeProperties(properties)
	if err != nil {
		return RouteRecord{}, err
	}
	return RouteRecord{
		Name:       name,
		Color:      colorHex,
		Geometry:   geometryWKT,
		Properties: props,
	}, nil
}
