package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/streaks"
	"github.com/ecopet/ecopet/utils"
)

// StatsController provides leaderboards and game-wide counts.
type StatsController struct {
	db    *gorm.DB
	cfg   config.AppConfig
	cache *utils.Cache
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, cfg config.AppConfig, cache *utils.Cache) *StatsController {
	return &StatsController{db: db, cfg: cfg, cache: cache}
}

type userRank struct {
	Rank     int    `json:"rank"`
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

type petRank struct {
	Rank    int    `json:"rank"`
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	OwnerID uint   `json:"owner_id"`
	Health  int    `json:"health"`
}

type globalBoard struct {
	Users []userRank `json:"users"`
	Pets  []petRank  `json:"pets"`
}

func rankUsers(users []models.User) []userRank {
	out := make([]userRank, 0, len(users))
	for i, u := range users {
		out = append(out, userRank{Rank: i + 1, ID: u.ID, Username: u.Username, Points: u.Points})
	}
	return out
}

func (s *StatsController) global(ctx *gin.Context) (globalBoard, error) {
	key := leaderboardCachePrefix + "global"
	var board globalBoard
	if s.cache.GetJSON(ctx.Request.Context(), key, &board) {
		return board, nil
	}

	db := s.db.WithContext(ctx.Request.Context())
	size := s.cfg.Leaderboard.Size

	var users []models.User
	if err := db.Order("points DESC, id ASC").Limit(size).Find(&users).Error; err != nil {
		return board, err
	}
	var pets []models.Pet
	if err := db.Order("health DESC, id ASC").Limit(size).Find(&pets).Error; err != nil {
		return board, err
	}

	board.Users = rankUsers(users)
	board.Pets = make([]petRank, 0, len(pets))
	for i, p := range pets {
		board.Pets = append(board.Pets, petRank{Rank: i + 1, ID: p.ID, Name: p.Name, OwnerID: p.OwnerID, Health: p.Health})
	}
	s.cache.SetJSON(ctx.Request.Context(), key, board, s.cfg.Leaderboard.CacheTTL)
	return board, nil
}

// Leaderboard returns the top players and pets. With ?group=CODE and a caller
// who belongs to that group, the group's members are ranked as well.
func (s *StatsController) Leaderboard(ctx *gin.Context) {
	board, err := s.global(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load leaderboard")
		return
	}
	resp := gin.H{"users": board.Users, "pets": board.Pets}

	code := strings.ToUpper(strings.TrimSpace(ctx.Query("group")))
	userID, signedIn := getUserID(ctx)
	if code == "" || !signedIn {
		utils.Success(ctx, resp)
		return
	}

	db := s.db.WithContext(ctx.Request.Context())
	var group models.UserGroup
	if err := db.Where("code = ?", code).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "group not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load group")
		return
	}
	member, err := isMember(db, group.ID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load group")
		return
	}
	if member {
		var members []models.User
		err := db.Joins("JOIN user_group_members ON user_group_members.user_id = users.id").
			Where("user_group_members.user_group_id = ?", group.ID).
			Order("users.points DESC, users.id ASC").Find(&members).Error
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load group leaderboard")
			return
		}
		resp["group"] = gin.H{"code": group.Code, "name": group.Name, "users": rankUsers(members)}
	}
	utils.Success(ctx, resp)
}

// GetStats returns aggregate counts for the game.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	var userCount, featureCount, petCount, windowReaches int64

	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}
	if err := db.Model(&models.FeatureInstance{}).Count(&featureCount).Error; err != nil {
		featureCount = 0
	}
	if err := db.Model(&models.Pet{}).Count(&petCount).Error; err != nil {
		petCount = 0
	}
	if win, err := streaks.CurrentWindow(s.cfg.Challenges.Now(), s.cfg.Challenges.Interval); err == nil {
		if err := db.Model(&models.UserFeatureReach{}).
			Where("window_start = ? AND extra = ?", win.Start.UTC(), reachVisit).
			Count(&windowReaches).Error; err != nil {
			windowReaches = 0
		}
	}

	utils.Success(ctx, gin.H{
		"user_count":     userCount,
		"feature_count":  featureCount,
		"pet_count":      petCount,
		"window_reaches": windowReaches,
	})
}
