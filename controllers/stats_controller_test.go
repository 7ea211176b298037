package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopet/ecopet/models"
)

func TestGroupsAndLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	ann, annToken := ts.user(t, "ann", campus.lat, campus.lon)
	ben, benToken := ts.user(t, "ben", campus.lat, campus.lon)
	cat, catToken := ts.user(t, "cat", campus.lat, campus.lon)
	require.NoError(t, ts.db.Model(&ann).UpdateColumn("points", 5).Error)
	require.NoError(t, ts.db.Model(&ben).UpdateColumn("points", 12).Error)
	require.NoError(t, ts.db.Model(&cat).UpdateColumn("points", 30).Error)

	status, env := ts.do(t, http.MethodPost, "/api/v1/groups", annToken, obj{"name": "<b>Eco</b> crew"})
	require.Equal(t, http.StatusCreated, status)
	group := data(t, env)
	code := group["code"].(string)
	assert.Len(t, code, 8)
	assert.Equal(t, "Eco crew", group["name"])

	status, _ = ts.do(t, http.MethodPost, "/api/v1/groups/join", benToken, obj{"code": code})
	require.Equal(t, http.StatusOK, status)
	// joining twice is harmless
	status, _ = ts.do(t, http.MethodPost, "/api/v1/groups/join", benToken, obj{"code": code})
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodPost, "/api/v1/groups/join", benToken, obj{"code": "NOPE"})
	assert.Equal(t, http.StatusNotFound, status)

	_, env = ts.do(t, http.MethodGet, "/api/v1/groups", benToken, nil)
	assert.Len(t, data(t, env)["items"], 1)

	require.NoError(t, ts.db.Create(&[]models.Pet{
		{OwnerID: ann.ID, Name: "Sprout", Health: 40},
		{OwnerID: cat.ID, Name: "Bloom", Health: 90},
	}).Error)

	_, env = ts.do(t, http.MethodGet, "/api/v1/leaderboard?group="+code, annToken, nil)
	body := data(t, env)
	users := body["users"].([]interface{})
	require.Len(t, users, 3)
	assert.Equal(t, "cat", users[0].(map[string]interface{})["username"])
	pets := body["pets"].([]interface{})
	require.Len(t, pets, 2)
	assert.Equal(t, "Bloom", pets[0].(map[string]interface{})["name"])

	members := body["group"].(map[string]interface{})["users"].([]interface{})
	require.Len(t, members, 2)
	assert.Equal(t, "ben", members[0].(map[string]interface{})["username"])
	assert.EqualValues(t, 2, members[1].(map[string]interface{})["rank"])

	// non-members only see the global board
	_, env = ts.do(t, http.MethodGet, "/api/v1/leaderboard?group="+code, catToken, nil)
	assert.NotContains(t, data(t, env), "group")

	status, _ = ts.do(t, http.MethodPost, "/api/v1/groups/"+code+"/leave", benToken, nil)
	require.Equal(t, http.StatusOK, status)
	_, env = ts.do(t, http.MethodGet, "/api/v1/groups", benToken, nil)
	assert.Len(t, data(t, env)["items"], 0)
}

func TestPets(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user(t, "keeper", campus.lat, campus.lon)

	status, env := ts.do(t, http.MethodPost, "/api/v1/pets", token, obj{"name": "Pip"})
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, models.MaxPetHealth, data(t, env)["health"])

	status, _ = ts.do(t, http.MethodPost, "/api/v1/pets", token, obj{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	_, env = ts.do(t, http.MethodGet, "/api/v1/pets", token, nil)
	assert.Len(t, data(t, env)["items"], 1)
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	ts.user(t, "one", 0, 0)
	ts.feature(t, "f1", campus.lat, campus.lon, "")

	_, env := ts.do(t, http.MethodGet, "/api/v1/stats", "", nil)
	body := data(t, env)
	assert.EqualValues(t, 1, body["user_count"])
	assert.EqualValues(t, 1, body["feature_count"])
	assert.EqualValues(t, 0, body["pet_count"])
}
