package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/middleware"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/utils"
)

var testNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

// campus is where most test players and features stand.
var campus = struct{ lat, lon float64 }{50.7365, -3.5344}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type testServer struct {
	db     *gorm.DB
	cfg    config.AppConfig
	issuer *utils.TokenIssuer
	engine *gin.Engine
}

func testConfig() config.AppConfig {
	return config.AppConfig{
		TokenTTL:       time.Hour,
		AdminUsernames: []string{"admin"},
		Challenges: config.ChallengeConfig{
			Interval:              24 * time.Hour,
			QuestionFeaturePoints: 2,
			ReachedFeaturePoints:  1,
			CheckUserRange:        true,
			RangeMeters:           100,
			NearbyLimit:           10,
			Location:              time.UTC,
		},
		Pets:        config.PetConfig{DecayInterval: 24 * time.Hour, DecayPercent: 5, QuizHealBonus: 20},
		Leaderboard: config.LeaderboardConfig{Size: 10, CacheTTL: 30 * time.Second},
		Map: config.MapConfig{
			MinLat: 50.7300, MaxLat: 50.7420,
			MinLon: -3.5450, MaxLon: -3.5250,
			DefaultLat: 50.7350, DefaultLon: -3.5300,
			BgColour: "#87CEEB", RenderDist: 1000,
		},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := &testServer{db: newTestDB(t), cfg: testConfig(), issuer: utils.NewTokenIssuer("test-secret", time.Hour)}
	blacklist := utils.NewTokenBlacklist(nil)
	cache := utils.NewCache(nil)
	auth := middleware.NewAuthenticator(ts.issuer, blacklist)
	clock := func() time.Time { return testNow }

	authC := NewAuthController(ts.db, ts.cfg, ts.issuer, blacklist, cache)
	streakC := NewStreakController(ts.db, ts.cfg.Challenges, cache)
	streakC.now = clock
	challengeC := NewChallengeController(ts.db, ts.cfg.Challenges, cache)
	challengeC.now = clock
	locationC := NewLocationController(ts.db, ts.cfg.Map)
	quizC := NewQuizController(ts.db, ts.cfg.Pets, cache)
	statsC := NewStatsController(ts.db, ts.cfg, cache)
	groupC := NewGroupController(ts.db, cache)
	petC := NewPetController(ts.db, cache)
	adminC := NewAdminController(ts.db)
	badgeC := NewBadgeController(ts.db)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/register", authC.Register)
	api.POST("/auth/login", authC.Login)
	api.POST("/auth/logout", auth.AuthRequired(), authC.Logout)
	api.GET("/auth/me", auth.AuthRequired(), authC.Me)
	api.GET("/users/:id", authC.GetUserPublic)
	api.GET("/stats", statsC.GetStats)
	api.GET("/users/:id/badges", badgeC.ForUser)
	api.GET("/badges", badgeC.List)
	api.GET("/features", challengeC.ListFeatures)
	api.GET("/features/:slug", challengeC.GetFeature)
	api.POST("/qr/validate", challengeC.ValidateQR)
	api.GET("/map/settings", locationC.MapSettings)
	api.GET("/tiles/nearby", locationC.NearbyTiles)
	api.GET("/tiles/features", locationC.TileFeatures)
	api.GET("/quizzes", quizC.List)
	api.GET("/quizzes/:id", quizC.Get)

	opt := api.Group("", auth.OptionalAuth())
	opt.POST("/answer/submit", challengeC.SubmitAnswer)
	opt.GET("/challenges/nearby", challengeC.Nearby)
	opt.GET("/leaderboard", statsC.Leaderboard)
	opt.GET("/location/current", locationC.Current)

	p := api.Group("", auth.AuthRequired())
	p.POST("/streak/checkin", streakC.Checkin)
	p.GET("/streak/status", streakC.Status)
	p.POST("/features/:slug/reach", challengeC.ReachFeature)
	p.POST("/profile/location", locationC.UpdateLocation)
	p.POST("/quizzes/:id/score", quizC.Score)
	p.GET("/groups", groupC.ListMine)
	p.POST("/groups", groupC.Create)
	p.POST("/groups/join", groupC.Join)
	p.POST("/groups/:code/leave", groupC.Leave)
	p.GET("/pets", petC.List)
	p.POST("/pets", petC.Adopt)

	admin := api.Group("/admin", auth.AuthRequired(), middleware.AdminRequired(ts.cfg.AdminUsernames))
	admin.POST("/features", adminC.ImportFeatures)
	admin.POST("/tiles", adminC.ImportTiles)
	admin.POST("/quizzes", adminC.ImportQuizzes)
	admin.POST("/badges", adminC.ImportBadges)
	admin.POST("/badges/award", adminC.AwardBadge)
	admin.POST("/badges/revoke", adminC.RevokeBadge)

	ts.engine = r
	return ts
}

// obj is a JSON request body.
type obj = map[string]interface{}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

// serve runs a body-less request without touching t, so it is safe to call
// from any goroutine.
func (ts *testServer) serve(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func data(t *testing.T, env envelope) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &m))
	return m
}

// user creates a player at the given position and returns a bearer token.
func (ts *testServer) user(t *testing.T, name string, lat, lon float64) (models.User, string) {
	t.Helper()
	hash, err := utils.HashPassword("password1")
	require.NoError(t, err)
	u := models.User{Username: name, PasswordHash: hash, Latitude: lat, Longitude: lon}
	require.NoError(t, ts.db.Create(&u).Error)
	token, _, err := ts.issuer.GenerateToken(u.ID, u.Username)
	require.NoError(t, err)
	return u, token
}

func (ts *testServer) points(t *testing.T, userID uint) int {
	t.Helper()
	var u models.User
	require.NoError(t, ts.db.First(&u, userID).Error)
	return u.Points
}

// feature places a feature with one question whose only answer is answer.
func (ts *testServer) feature(t *testing.T, slug string, lat, lon float64, answer string) models.QuestionFeature {
	t.Helper()
	ft := models.FeatureType{Name: "type-" + slug, Description: "about " + slug, Colour: "#00FF00"}
	require.NoError(t, ts.db.Create(&ft).Error)
	f := models.FeatureInstance{Slug: slug, Name: "Feature " + slug, FeatureTypeID: ft.ID, Latitude: lat, Longitude: lon}
	require.NoError(t, ts.db.Create(&f).Error)
	if answer == "" {
		return models.QuestionFeature{}
	}
	q := models.QuestionFeature{
		FeatureSlug:  slug,
		QuestionText: "What is it?",
		Answers:      []models.QuestionAnswer{{AnswerText: answer}},
	}
	require.NoError(t, ts.db.Create(&q).Error)
	return q
}
