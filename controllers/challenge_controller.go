package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/geo"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/streaks"
	"github.com/ecopet/ecopet/utils"
)

// ChallengeController serves features, their questions and the reach rewards.
type ChallengeController struct {
	db     *gorm.DB
	cfg    config.ChallengeConfig
	reward rewarder
	now    func() time.Time
}

func NewChallengeController(db *gorm.DB, cfg config.ChallengeConfig, cache *utils.Cache) *ChallengeController {
	return &ChallengeController{db: db, cfg: cfg, reward: rewarder{cache: cache}, now: cfg.Now}
}

var (
	errOutOfRange     = errors.New("You are not in range of the feature")
	errAlreadyReached = errors.New("You have already reached this feature in this window")
)

// ListFeatures returns every feature as a map marker.
func (c *ChallengeController) ListFeatures(ctx *gin.Context) {
	var features []models.FeatureInstance
	if err := c.db.WithContext(ctx.Request.Context()).Preload("FeatureType").Order("slug").Find(&features).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50018, "failed to load features")
		return
	}
	out := make([]gin.H, 0, len(features))
	for _, f := range features {
		out = append(out, gin.H{
			"slug":   f.Slug,
			"name":   f.Name,
			"lat":    f.Latitude,
			"lon":    f.Longitude,
			"colour": f.FeatureType.Colour,
		})
	}
	utils.Success(ctx, gin.H{"features": out})
}

// qrSlug takes the last non-empty path segment of a scanned link.
func qrSlug(code string) string {
	code = strings.TrimSpace(code)
	parts := strings.FieldsFunc(code, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return code
	}
	return parts[len(parts)-1]
}

// ValidateQR resolves a scanned feature link to its slug.
func (c *ChallengeController) ValidateQR(ctx *gin.Context) {
	var req struct {
		QRCode string `json:"qr_code"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40026, "Invalid JSON")
		return
	}
	slug := qrSlug(req.QRCode)
	if slug == "" {
		utils.Error(ctx, http.StatusBadRequest, 40027, "Empty QR code")
		return
	}
	var feature models.FeatureInstance
	err := c.db.WithContext(ctx.Request.Context()).Select("slug").First(&feature, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Sugar.Infow("qr code did not match a feature", "slug", slug)
			utils.Respond(ctx, http.StatusNotFound, 40422, "No matching location found", gin.H{"attempted_slug": slug})
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50019, "failed to load feature")
		return
	}
	utils.Success(ctx, gin.H{"slug": feature.Slug, "path": "/api/v1/features/" + feature.Slug})
}

// GetFeature returns one feature with its questions. Answers are never sent.
func (c *ChallengeController) GetFeature(ctx *gin.Context) {
	var feature models.FeatureInstance
	err := c.db.WithContext(ctx.Request.Context()).
		Preload("FeatureType").Preload("Questions").
		First(&feature, "slug = ?", ctx.Param("slug")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "feature not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load feature")
		return
	}
	questions := make([]gin.H, 0, len(feature.Questions))
	for _, q := range feature.Questions {
		questions = append(questions, gin.H{"id": q.ID, "question_text": q.QuestionText})
	}
	utils.Success(ctx, gin.H{
		"slug":        feature.Slug,
		"name":        feature.Name,
		"type":        feature.FeatureType.Name,
		"description": feature.FeatureType.Description,
		"colour":      feature.FeatureType.Colour,
		"latitude":    feature.Latitude,
		"longitude":   feature.Longitude,
		"questions":   questions,
	})
}

// ReachFeature rewards a user for visiting a feature once per window. An
// optional {latitude, longitude} body refreshes the stored position first.
func (c *ChallengeController) ReachFeature(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return
		}
	}

	db := c.db.WithContext(ctx.Request.Context())
	var feature models.FeatureInstance
	if err := db.First(&feature, "slug = ?", ctx.Param("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "feature not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load feature")
		return
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	if req.Latitude != nil && req.Longitude != nil {
		p, err := geo.NewGeoPoint(*req.Latitude, *req.Longitude)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40021, err.Error())
			return
		}
		if err := db.Model(&user).Updates(map[string]interface{}{"latitude": p.Latitude, "longitude": p.Longitude}).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to update location")
			return
		}
		user.Latitude, user.Longitude = p.Latitude, p.Longitude
	}

	points := c.cfg.ReachedFeaturePoints
	err := c.claim(ctx, user, feature, reachVisit, points)
	switch {
	case errors.Is(err, errOutOfRange), errors.Is(err, errAlreadyReached):
		utils.Success(ctx, gin.H{"message": err.Error(), "points_awarded": 0})
		return
	case err != nil:
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to record reach")
		return
	}
	c.reward.done(ctx.Request.Context(), userID, "reach", points)
	utils.Success(ctx, gin.H{
		"message":        fmt.Sprintf("You reached %s", feature.Name),
		"points_awarded": points,
	})
}

// claim checks the range, records the reach of this window and awards points
// in one transaction.
func (c *ChallengeController) claim(ctx *gin.Context, user models.User, feature models.FeatureInstance, extra string, points int) error {
	if !inRange(c.cfg, user, feature) {
		return errOutOfRange
	}
	win, err := streaks.CurrentWindow(c.now(), c.cfg.Interval)
	if err != nil {
		return err
	}
	return c.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		created, err := recordReach(tx, user.ID, feature.Slug, extra, win)
		if err != nil {
			return err
		}
		if !created {
			return errAlreadyReached
		}
		return c.reward.add(tx, user.ID, points)
	})
}

// SubmitAnswer grades an answer to a feature question. Anonymous users get the
// verdict only. A signed-in user's attempt is recorded for the window whether
// or not the answer is correct.
func (c *ChallengeController) SubmitAnswer(ctx *gin.Context) {
	var req struct {
		QuestionID uint   `json:"question_id" binding:"required"`
		Answer     string `json:"answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	db := c.db.WithContext(ctx.Request.Context())
	var question models.QuestionFeature
	if err := db.Preload("Answers").First(&question, req.QuestionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40421, "Question not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load question")
		return
	}

	valid := question.IsValidAnswer(req.Answer)
	verdict := "incorrect"
	if valid {
		verdict = "correct"
	}

	userID, signedIn := getUserID(ctx)
	if !signedIn {
		utils.Success(ctx, gin.H{
			"message":        fmt.Sprintf("The answer is %s but you are not signed in", verdict),
			"correct":        valid,
			"points_awarded": 0,
		})
		return
	}

	var feature models.FeatureInstance
	if err := db.First(&feature, "slug = ?", question.FeatureSlug).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load feature")
		return
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	points := 0
	if valid {
		points = c.cfg.QuestionFeaturePoints
	}
	err := c.claim(ctx, user, feature, reachQuestion, points)
	switch {
	case errors.Is(err, errOutOfRange), errors.Is(err, errAlreadyReached):
		utils.Success(ctx, gin.H{"message": err.Error(), "correct": valid, "points_awarded": 0})
		return
	case err != nil:
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to record answer")
		return
	}
	c.reward.done(ctx.Request.Context(), userID, "question", points)
	utils.Success(ctx, gin.H{
		"message":        fmt.Sprintf("The answer is %s", verdict),
		"correct":        valid,
		"points_awarded": points,
	})
}

// Nearby lists the closest features the user has not reached in this window.
func (c *ChallengeController) Nearby(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Success(ctx, gin.H{"challenges": []gin.H{}})
		return
	}
	db := c.db.WithContext(ctx.Request.Context())

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	var features []models.FeatureInstance
	if err := db.Preload("FeatureType").Find(&features).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to load features")
		return
	}

	win, err := streaks.CurrentWindow(c.now(), c.cfg.Interval)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, err.Error())
		return
	}
	var reached []string
	if err := db.Model(&models.UserFeatureReach{}).
		Where("user_id = ? AND window_start = ? AND extra = ?", userID, win.Start.UTC(), reachVisit).
		Pluck("feature_slug", &reached).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to load reaches")
		return
	}
	exclude := make(map[string]struct{}, len(reached))
	for _, slug := range reached {
		exclude[slug] = struct{}{}
	}

	var withQuestion []string
	if err := db.Model(&models.QuestionFeature{}).Distinct("feature_slug").Pluck("feature_slug", &withQuestion).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to load questions")
		return
	}
	hasQuestion := make(map[string]bool, len(withQuestion))
	for _, slug := range withQuestion {
		hasQuestion[slug] = true
	}

	bySlug := make(map[string]models.FeatureInstance, len(features))
	candidates := make([]geo.Candidate, 0, len(features))
	for _, f := range features {
		bySlug[f.Slug] = f
		candidates = append(candidates, geo.Candidate{ID: f.Slug, Point: featurePoint(f)})
	}

	here := userPoint(user)
	out := make([]gin.H, 0, c.cfg.NearbyLimit)
	for _, r := range geo.Nearest(here, candidates, c.cfg.NearbyLimit, exclude) {
		f := bySlug[r.ID]
		out = append(out, gin.H{
			"slug":         f.Slug,
			"name":         f.Name,
			"description":  f.FeatureType.Description,
			"colour":       f.FeatureType.Colour,
			"distance_m":   r.Distance,
			"directions":   directions(here, r),
			"has_question": hasQuestion[f.Slug],
		})
	}
	utils.Success(ctx, gin.H{"challenges": out})
}

func directions(from geo.GeoPoint, r geo.Ranked) string {
	if r.Distance < 1 {
		return "You are here"
	}
	return fmt.Sprintf("%d m %s", int(r.Distance+0.5), geo.Compass(geo.Bearing(from, r.Point)))
}
