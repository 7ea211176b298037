package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopet/ecopet/models"
)

func TestBadges(t *testing.T) {
	ts := newTestServer(t)
	_, adminToken := ts.user(t, "admin", campus.lat, campus.lon)
	player, playerToken := ts.user(t, "player", campus.lat, campus.lon)

	status, _ := ts.do(t, http.MethodPost, "/api/v1/admin/badges", adminToken, obj{"badges": []obj{
		{"title": "Recycler", "hover_text": "Sorted 10 bins", "colour": "#00ff00", "rarity": 2},
		{"title": "Explorer", "hover_text": "Reached every feature", "rarity": 7},
	}})
	require.Equal(t, http.StatusOK, status)

	var explorer models.Badge
	require.NoError(t, ts.db.First(&explorer, "title = ?", "Explorer").Error)
	assert.Equal(t, "#FF0000", explorer.Colour)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/admin/badges", adminToken, obj{"badges": []obj{{"title": "Legend", "rarity": 11}}})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.do(t, http.MethodPost, "/api/v1/admin/badges", playerToken, obj{"badges": []obj{{"title": "Cheat"}}})
	assert.Equal(t, http.StatusForbidden, status)

	award := func(title string) (int, envelope) {
		return ts.do(t, http.MethodPost, "/api/v1/admin/badges/award", adminToken, obj{"user_id": player.ID, "title": title})
	}
	status, env := award("Recycler")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(t, env)["awarded"])
	_, env = award("Recycler")
	assert.Equal(t, false, data(t, env)["awarded"])
	_, _ = award("Explorer")
	status, _ = award("Unknown")
	assert.Equal(t, http.StatusNotFound, status)

	status, env = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/badges", player.ID), "", nil)
	require.Equal(t, http.StatusOK, status)
	held := data(t, env)["badges"].([]interface{})
	require.Len(t, held, 2)
	assert.Equal(t, "Explorer", held[0].(map[string]interface{})["title"])
	assert.Equal(t, "#00FF00", held[1].(map[string]interface{})["colour"])

	_, env = ts.do(t, http.MethodGet, "/api/v1/badges", "", nil)
	assert.Len(t, data(t, env)["badges"], 2)

	status, env = ts.do(t, http.MethodPost, "/api/v1/admin/badges/revoke", adminToken, obj{"user_id": player.ID, "title": "Explorer"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(t, env)["revoked"])
	var count int64
	require.NoError(t, ts.db.Model(&models.BadgeInstance{}).Where("user_id = ?", player.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
