package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopet/ecopet/models"
)

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", obj{"username": "eve", "password": "secret1"})
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, data(t, env)["token"])

	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", obj{"username": "eve", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, status)
	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", obj{"username": "e!", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", obj{"username": "frank", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", obj{"username": "eve", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", obj{"username": "eve", "password": "secret1"})
	require.Equal(t, http.StatusOK, status)
	token := data(t, env)["token"].(string)

	status, env = ts.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	me := data(t, env)
	assert.Equal(t, "eve", me["username"])
	assert.Equal(t, false, me["is_admin"])
	assert.NotContains(t, string(env.Data), "password")

	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGetUserPublic(t *testing.T) {
	ts := newTestServer(t)
	u, _ := ts.user(t, "pub", campus.lat, campus.lon)
	require.NoError(t, ts.db.Create(&models.Streak{UserID: u.ID, RawCount: 2, LastWindow: &testNow}).Error)

	status, env := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", u.ID), "", nil)
	require.Equal(t, http.StatusOK, status)
	body := data(t, env)
	assert.Equal(t, "pub", body["username"])
	assert.NotContains(t, body, "email")
	assert.NotContains(t, body, "latitude")

	status, _ = ts.do(t, http.MethodGet, "/api/v1/users/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/users/999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}
