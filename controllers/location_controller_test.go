package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopet/ecopet/models"
)

func TestUpdateLocation(t *testing.T) {
	ts := newTestServer(t)
	u, token := ts.user(t, "mover", 0, 0)

	status, _ := ts.do(t, http.MethodPost, "/api/v1/profile/location", token, obj{"latitude": campus.lat, "longitude": campus.lon})
	require.Equal(t, http.StatusOK, status)
	var got models.User
	require.NoError(t, ts.db.First(&got, u.ID).Error)
	assert.Equal(t, campus.lat, got.Latitude)
	assert.Equal(t, campus.lon, got.Longitude)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/profile/location", token, obj{"latitude": 10, "longitude": 181})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.do(t, http.MethodPost, "/api/v1/profile/location", token, obj{"latitude": 10})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNearbyTiles(t *testing.T) {
	ts := newTestServer(t)
	tiles := []models.MapTile{
		{FileName: "far.glb", CenterLat: campus.lat + 0.01, CenterLon: campus.lon},
		{FileName: "edge.glb", CenterLat: campus.lat + 0.0005, CenterLon: campus.lon},
		{FileName: "here.glb", CenterLat: campus.lat, CenterLon: campus.lon},
	}
	require.NoError(t, ts.db.Create(&tiles).Error)
	require.NoError(t, ts.db.Create(&models.FeatureTileMap{TileID: tiles[2].ID, FeatureSlug: "bin"}).Error)
	ts.feature(t, "bin", campus.lat, campus.lon, "")

	status, env := ts.do(t, http.MethodGet, "/api/v1/tiles/nearby?lat=50.7365&lon=-3.5344", "", nil)
	require.Equal(t, http.StatusOK, status)
	items := data(t, env)["tiles"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "here.glb", items[0].(map[string]interface{})["file_name"])
	assert.Equal(t, "edge.glb", items[1].(map[string]interface{})["file_name"])

	_, env = ts.do(t, http.MethodGet, "/api/v1/tiles/nearby?lat=50.7365&lon=-3.5344&distance=5000", "", nil)
	assert.Len(t, data(t, env)["tiles"], 3)

	for _, q := range []string{"lat=abc&lon=1", "lat=1", "lat=95&lon=1", "lat=1&lon=1&distance=-3"} {
		status, _ = ts.do(t, http.MethodGet, "/api/v1/tiles/nearby?"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, status, q)
	}

	status, env = ts.do(t, http.MethodGet, "/api/v1/tiles/features?tiles=3,1", "", nil)
	require.Equal(t, http.StatusOK, status)
	byTile := data(t, env)["tiles"].(map[string]interface{})
	assert.Len(t, byTile["3"], 1)
	assert.Len(t, byTile["1"], 0)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/tiles/features?tiles=1,x", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMapSettings(t *testing.T) {
	ts := newTestServer(t)
	status, env := ts.do(t, http.MethodGet, "/api/v1/map/settings", "", nil)
	require.Equal(t, http.StatusOK, status)
	body := data(t, env)
	assert.Equal(t, 50.73, body["min_lat"])
	assert.Equal(t, -3.525, body["max_lon"])
	assert.Equal(t, "#87CEEB", body["bg_colour"])
	assert.EqualValues(t, 1000, body["render_dist"])
}

func TestCurrentLocation(t *testing.T) {
	ts := newTestServer(t)

	t.Run("anonymous gets the default", func(t *testing.T) {
		_, env := ts.do(t, http.MethodGet, "/api/v1/location/current", "", nil)
		body := data(t, env)
		assert.Equal(t, 50.735, body["lat"])
		assert.Equal(t, -3.53, body["lon"])
		assert.Equal(t, false, body["in_bounds"])
	})

	t.Run("player inside the map", func(t *testing.T) {
		_, token := ts.user(t, "inside", campus.lat, campus.lon)
		_, env := ts.do(t, http.MethodGet, "/api/v1/location/current", token, nil)
		body := data(t, env)
		assert.Equal(t, campus.lat, body["lat"])
		assert.Equal(t, campus.lon, body["lon"])
		assert.Equal(t, true, body["in_bounds"])
	})

	t.Run("player outside the map", func(t *testing.T) {
		_, token := ts.user(t, "outside", 51.5074, -0.1278)
		_, env := ts.do(t, http.MethodGet, "/api/v1/location/current", token, nil)
		body := data(t, env)
		assert.Equal(t, 50.735, body["lat"])
		assert.Equal(t, false, body["in_bounds"])
	})

	t.Run("player on the edge", func(t *testing.T) {
		_, token := ts.user(t, "edge", 50.7300, campus.lon)
		_, env := ts.do(t, http.MethodGet, "/api/v1/location/current", token, nil)
		assert.Equal(t, false, data(t, env)["in_bounds"])
	})
}
