package controllers

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/geo"
	"github.com/ecopet/ecopet/middleware"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/streaks"
	"github.com/ecopet/ecopet/utils"
)

const (
	leaderboardCachePrefix = "cache:leaderboard:"
	userCachePrefix        = "cache:user:public:"

	// reach kinds
	reachVisit    = ""
	reachQuestion = "question"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// rewarder adds points inside a transaction and drops the caches they feed.
type rewarder struct {
	cache *utils.Cache
}

// add increments the user's points in tx. Call done after commit.
func (r rewarder) add(tx *gorm.DB, userID uint, points int) error {
	if points <= 0 {
		return nil
	}
	return tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", points)).Error
}

func (r rewarder) done(ctx context.Context, userID uint, source string, points int) {
	if points <= 0 {
		return
	}
	utils.RewardsTotal.WithLabelValues(source).Add(float64(points))
	r.cache.InvalidateByPrefix(ctx, leaderboardCachePrefix)
	r.cache.InvalidateByPrefix(ctx, userCachePrefix+strconv.FormatUint(uint64(userID), 10))
}

// recordReach inserts the reach of the current window. It reports false when
// the user already reached the feature with the same kind in this window; the
// unique key makes the check and the insert one atomic statement.
func recordReach(tx *gorm.DB, userID uint, slug, extra string, w streaks.TimeWindow) (bool, error) {
	reach := models.UserFeatureReach{
		UserID:      userID,
		FeatureSlug: slug,
		WindowStart: w.Start.UTC(),
		WindowEnd:   w.End.UTC(),
		Extra:       extra,
		ReachedAt:   time.Now().UTC(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reach)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func userPoint(u models.User) geo.GeoPoint {
	return geo.GeoPoint{Latitude: u.Latitude, Longitude: u.Longitude}
}

func featurePoint(f models.FeatureInstance) geo.GeoPoint {
	return geo.GeoPoint{Latitude: f.Latitude, Longitude: f.Longitude}
}

// inRange reports whether the user's stored position is close enough to the feature.
func inRange(cfg config.ChallengeConfig, u models.User, f models.FeatureInstance) bool {
	if !cfg.CheckUserRange {
		return true
	}
	return geo.Haversine(userPoint(u), featurePoint(f)) <= cfg.RangeMeters
}
