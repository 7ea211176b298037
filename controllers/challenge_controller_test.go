package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopet/ecopet/models"
)

func TestSubmitAnswer(t *testing.T) {
	ts := newTestServer(t)
	q := ts.feature(t, "bin", campus.lat, campus.lon, "Paper")
	near, nearToken := ts.user(t, "near", campus.lat, campus.lon)
	_, farToken := ts.user(t, "far", campus.lat+1, campus.lon)

	t.Run("anonymous gets verdict only", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/api/v1/answer/submit", "", obj{"question_id": q.ID, "answer": "paper"})
		require.Equal(t, http.StatusOK, status)
		body := data(t, env)
		assert.Equal(t, "The answer is correct but you are not signed in", body["message"])
		assert.Equal(t, true, body["correct"])
	})

	t.Run("out of range", func(t *testing.T) {
		_, env := ts.do(t, http.MethodPost, "/api/v1/answer/submit", farToken, obj{"question_id": q.ID, "answer": "paper"})
		body := data(t, env)
		assert.Equal(t, "You are not in range of the feature", body["message"])
		assert.EqualValues(t, 0, body["points_awarded"])
	})

	t.Run("wrong answer uses the window", func(t *testing.T) {
		_, env := ts.do(t, http.MethodPost, "/api/v1/answer/submit", nearToken, obj{"question_id": q.ID, "answer": "glass"})
		body := data(t, env)
		assert.Equal(t, "The answer is incorrect", body["message"])
		assert.Equal(t, false, body["correct"])

		_, env = ts.do(t, http.MethodPost, "/api/v1/answer/submit", nearToken, obj{"question_id": q.ID, "answer": "paper"})
		body = data(t, env)
		assert.Equal(t, "You have already reached this feature in this window", body["message"])
		assert.Equal(t, 0, ts.points(t, near.ID))
	})

	t.Run("correct answer awards points", func(t *testing.T) {
		other, token := ts.user(t, "other", campus.lat, campus.lon)
		_, env := ts.do(t, http.MethodPost, "/api/v1/answer/submit", token, obj{"question_id": q.ID, "answer": "PAPER"})
		body := data(t, env)
		assert.Equal(t, "The answer is correct", body["message"])
		assert.EqualValues(t, 2, body["points_awarded"])
		assert.Equal(t, 2, ts.points(t, other.ID))
	})

	t.Run("unknown question", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPost, "/api/v1/answer/submit", nearToken, obj{"question_id": 999, "answer": "x"})
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestReachFeature(t *testing.T) {
	ts := newTestServer(t)
	ts.feature(t, "tree", campus.lat, campus.lon, "")
	u, token := ts.user(t, "walker", 0, 0)

	_, env := ts.do(t, http.MethodPost, "/api/v1/features/tree/reach", token, nil)
	assert.Equal(t, "You are not in range of the feature", data(t, env)["message"])

	// the body moves the player next to the feature first
	_, env = ts.do(t, http.MethodPost, "/api/v1/features/tree/reach", token, obj{"latitude": campus.lat, "longitude": campus.lon})
	assert.EqualValues(t, 1, data(t, env)["points_awarded"])
	assert.Equal(t, 1, ts.points(t, u.ID))

	_, env = ts.do(t, http.MethodPost, "/api/v1/features/tree/reach", token, nil)
	assert.Equal(t, "You have already reached this feature in this window", data(t, env)["message"])
	assert.Equal(t, 1, ts.points(t, u.ID))

	var reach models.UserFeatureReach
	require.NoError(t, ts.db.Where("user_id = ?", u.ID).First(&reach).Error)
	assert.True(t, reach.WindowStart.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, reach.WindowEnd.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))

	status, _ := ts.do(t, http.MethodPost, "/api/v1/features/nowhere/reach", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/features/tree/reach", token, obj{"latitude": 91, "longitude": 0})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNearby(t *testing.T) {
	ts := newTestServer(t)
	ts.feature(t, "near", campus.lat+0.0005, campus.lon, "Paper")
	ts.feature(t, "far", campus.lat+0.002, campus.lon, "")
	ts.feature(t, "done", campus.lat+0.0001, campus.lon, "")
	u, token := ts.user(t, "explorer", campus.lat, campus.lon)

	require.NoError(t, ts.db.Create(&models.UserFeatureReach{
		UserID:      u.ID,
		FeatureSlug: "done",
		WindowStart: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	}).Error)

	_, env := ts.do(t, http.MethodGet, "/api/v1/challenges/nearby", "", nil)
	assert.Empty(t, data(t, env)["challenges"])

	_, env = ts.do(t, http.MethodGet, "/api/v1/challenges/nearby", token, nil)
	items, ok := data(t, env)["challenges"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 2)

	first := items[0].(map[string]interface{})
	second := items[1].(map[string]interface{})
	assert.Equal(t, "near", first["slug"])
	assert.Equal(t, true, first["has_question"])
	assert.Equal(t, "56 m north", first["directions"])
	assert.Equal(t, "#00FF00", first["colour"])
	assert.Equal(t, "far", second["slug"])
	assert.Equal(t, false, second["has_question"])
}

func TestGetFeature(t *testing.T) {
	ts := newTestServer(t)
	ts.feature(t, "bench", campus.lat, campus.lon, "Wood")

	status, env := ts.do(t, http.MethodGet, "/api/v1/features/bench", "", nil)
	require.Equal(t, http.StatusOK, status)
	body := data(t, env)
	assert.Equal(t, "Feature bench", body["name"])
	assert.Len(t, body["questions"], 1)
	assert.NotContains(t, string(env.Data), "Wood")

	status, _ = ts.do(t, http.MethodGet, "/api/v1/features/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListFeatures(t *testing.T) {
	ts := newTestServer(t)
	ts.feature(t, "solar", campus.lat, campus.lon, "")
	ts.feature(t, "bins", campus.lat+0.001, campus.lon, "")

	status, env := ts.do(t, http.MethodGet, "/api/v1/features", "", nil)
	require.Equal(t, http.StatusOK, status)
	items := data(t, env)["features"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "bins", first["slug"])
	assert.Equal(t, "#00FF00", first["colour"])
	assert.Equal(t, campus.lat+0.001, first["lat"])
}

func TestValidateQR(t *testing.T) {
	ts := newTestServer(t)
	ts.feature(t, "solar", campus.lat, campus.lon, "")

	for _, code := range []string{"solar", "https://ecopet.example/features/solar/", " /features/solar "} {
		status, env := ts.do(t, http.MethodPost, "/api/v1/qr/validate", "", obj{"qr_code": code})
		require.Equal(t, http.StatusOK, status, code)
		assert.Equal(t, "solar", data(t, env)["slug"])
	}

	status, env := ts.do(t, http.MethodPost, "/api/v1/qr/validate", "", obj{"qr_code": "https://ecopet.example/features/nope"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "nope", data(t, env)["attempted_slug"])

	status, _ = ts.do(t, http.MethodPost, "/api/v1/qr/validate", "", obj{"qr_code": "  "})
	assert.Equal(t, http.StatusBadRequest, status)
}
