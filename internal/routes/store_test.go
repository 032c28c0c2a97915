package routes

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairtitelboim/Maps-sub002/internal/core"
)

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#ff4040")
	require.NoError(t, err)
	assert.Equal(t, core.Color{R: 255, G: 64, B: 64, A: 255}, c)

	c, err = ParseHexColor("#00c8ff80")
	require.NoError(t, err)
	assert.Equal(t, core.Color{R: 0, G: 200, B: 255, A: 128}, c)

	_, err = ParseHexColor("red")
	assert.Error(t, err)
	_, err = ParseHexColor("#zzzzzz")
	assert.Error(t, err)
}

func TestHexColorRoundTrip(t *testing.T) {
	in := core.Color{R: 12, G: 200, B: 7, A: 99}
	out, err := ParseHexColor(HexColor(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRouteRecord_ToRoute(t *testing.T) {
	rec, err := FromRoute(
		"harbor-loop",
		"#ff4040",
		"LINESTRING(-71.06 42.36, -71.05 42.37)",
		map[string]any{"mode": "ferry"},
	)
	require.NoError(t, err)
	rec.ID = 7

	route, err := rec.ToRoute()
	require.NoError(t, err)
	assert.Equal(t, uint(7), route.ID)
	assert.Equal(t, "harbor-loop", route.Name)
	assert.Len(t, route.Path, 2)
	assert.Equal(t, "ferry", route.Properties["mode"])
	// projected, not raw lon/lat
	assert.Greater(t, route.Path[0].Y, 5_000_000.0)
}

func TestFromRoute_RejectsBadInput(t *testing.T) {
	_, err := FromRoute("x", "nope", "LINESTRING(0 0, 1 1)", nil)
	assert.Error(t, err)

	_, err = FromRoute("x", "#ffffff", "POINT(0 0)", nil)
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Init())

	rec, err := FromRoute("a", "#ffffff", "LINESTRING(0 0, 1 1)", nil)
	require.NoError(t, err)
	require.NoError(t, m.Save(&rec))
	assert.Equal(t, uint(1), rec.ID)

	all, err := m.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].Name)
	require.NoError(t, m.Close())
}

func TestGormStore_SQLiteRoundTrip(t *testing.T) {
	s := newGormStore(sqlite.Open(":memory:"))
	require.NoError(t, s.Init())
	defer s.Close()

	rec, err := FromRoute(
		"harbor-loop",
		"#00c8ff",
		"LINESTRING(-71.06 42.36, -71.05 42.37, -71.04 42.36)",
		map[string]any{"mode": "ferry", "headway": 12.0},
	)
	require.NoError(t, err)
	require.NoError(t, s.Save(&rec))
	require.NotZero(t, rec.ID)

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 1)

	route, err := all[0].ToRoute()
	require.NoError(t, err)
	assert.Equal(t, "harbor-loop", route.Name)
	assert.Len(t, route.Path, 3)
	assert.Equal(t, 12.0, route.Properties["headway"])
}

func TestLoad_SkipsMalformed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Init())

	good, err := FromRoute("good", "#ffffff", "LINESTRING(0 0, 1 1)", nil)
	require.NoError(t, err)
	require.NoError(t, m.Save(&good))

	// bypass validation to plant a corrupt row
	require.NoError(t, m.Save(&RouteRecord{Name: "bad", Color: "#ffffff", Geometry: "LINESTRING(garbage"}))
	require.NoError(t, m.Save(&RouteRecord{Name: "badcolor", Color: "chartreuse", Geometry: "LINESTRING(0 0, 1 1)"}))

	routes, err := Load(zerolog.Nop(), m)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "good", routes[0].Name)
}
