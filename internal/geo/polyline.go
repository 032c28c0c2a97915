package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yairtitelboim/Maps-sub002/internal/core"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrTooFewPoints marks a line-geometry record that cannot form a path.
// Callers skip these entries; they are never fatal to a batch.
var ErrTooFewPoints = errors.New("polyline must have at least 2 points")

// ParsePolyline parses a JSON array of lon/lat coordinates into a
// geom.LineString. Input format: "[[lon1,lat1],[lon2,lat2],...]"
func ParsePolyline(input string) (geom.LineString, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return geom.LineString{}, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	if len(coords) < 2 {
		return geom.LineString{}, fmt.Errorf("%w, got %d", ErrTooFewPoints, len(coords))
	}

	// Build coordinate sequence for LineString
	flatCoords := make([]float64, 0, len(coords)*2)
	for i, coord := range coords {
		if len(coord) < 2 {
			return geom.LineString{}, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		flatCoords = append(flatCoords, coord[0], coord[1])
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("failed to build line string: %w", err)
	}

	return ls, nil
}

// ParseWKTLineString parses a WKT LINESTRING (how route rows store
// geometry) into a geom.LineString.
func ParseWKTLineString(wkt string) (geom.LineString, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("failed to parse WKT geometry: %w", err)
	}
	ls, ok := g.AsLineString()
	if !ok {
		return geom.LineString{}, fmt.Errorf("geometry is %s, not LineString", g.Type())
	}
	if ls.Coordinates().Length() < 2 {
		return geom.LineString{}, ErrTooFewPoints
	}
	return ls, nil
}

// MercatorPathFromLineString projects a lon/lat LineString into an
// EPSG:3857 core.Polyline.
func MercatorPathFromLineString(ls geom.LineString) core.Polyline {
	seq := ls.Coordinates()
	path := make(core.Polyline, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		path = append(path, MercatorFromLonLat(xy.X, xy.Y))
	}
	return path
}
