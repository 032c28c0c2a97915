package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/yairtitelboim/Maps-sub002/internal/core"

	"github.com/wroge/wgs84"
)

// GEO POINTS
// Overlay coordinates are always Web Mercator (EPSG:3857) so layer
// geometry lands in the same space the host camera projects. Route data
// arrives as WGS84 longitude/latitude (EPSG:4326) and is converted once
// at load time.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// MercatorFromLonLat projects a WGS84 longitude/latitude into EPSG:3857.
func MercatorFromLonLat(longitude, latitude float64) core.Position2D {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return core.Position2D{X: x, Y: y}
}

// LonLatFromMercator converts an EPSG:3857 point back to WGS84.
func LonLatFromMercator(p core.Position2D) (longitude, latitude float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	longitude, latitude, _ = f(p.X, p.Y, 0)
	return longitude, latitude
}

// Position3DFromString parses a "long,lat" or "long,lat,elev" string into a core.Position3D.
func Position3DFromString(coords string) (core.Position3D, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	long, err := strconv.ParseFloat(coordsSplit[0], 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(coordsSplit[1], 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	var elev float64
	if len(coordsSplit) > 2 {
		elev, err = strconv.ParseFloat(coordsSplit[2], 64)
		if err != nil {
			return core.Position3D{}, ErrInvalidCoordinates
		}
	}
	return core.Position3D{X: long, Y: lat, Z: elev}, nil
}
