package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/streaks"
	"github.com/ecopet/ecopet/utils"
)

// StreakController handles streak check-in endpoints.
type StreakController struct {
	db     *gorm.DB
	cfg    config.ChallengeConfig
	reward rewarder
	now    func() time.Time
}

// NewStreakController creates a new controller instance.
func NewStreakController(db *gorm.DB, cfg config.ChallengeConfig, cache *utils.Cache) *StreakController {
	return &StreakController{db: db, cfg: cfg, reward: rewarder{cache: cache}, now: cfg.Now}
}

// lockStreak returns the user's streak row locked for update, creating it on
// first use.
func lockStreak(tx *gorm.DB, userID uint) (models.Streak, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Streak{UserID: userID}).Error; err != nil {
		return models.Streak{}, err
	}
	var streak models.Streak
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&streak).Error
	return streak, err
}

// Checkin records a check-in for the current window and awards streak points.
func (s *StreakController) Checkin(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "Authentication required.")
		return
	}

	now := s.now()
	var (
		outcome streaks.Outcome
		points  int
		state   streaks.State
	)
	err := s.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		row, err := lockStreak(tx, userID)
		if err != nil {
			return err
		}
		state, outcome, points, err = streaks.RecordCheckin(row.State(), now, s.cfg.Interval)
		if err != nil || outcome == streaks.AlreadyCollected {
			return err
		}
		last := state.LastWindow.UTC()
		state.LastWindow = &last
		row.Apply(state)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		return s.reward.add(tx, userID, points)
	})
	if err != nil {
		utils.Sugar.Errorw("checkin failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to record check-in")
		return
	}
	utils.CheckinsTotal.WithLabelValues(outcome.String()).Inc()

	message := "Streak updated!"
	if outcome == streaks.AlreadyCollected {
		message = "You have already collected your streak for this window."
	} else {
		s.reward.done(ctx.Request.Context(), userID, "streak", points)
	}
	utils.Success(ctx, gin.H{
		"message":        message,
		"outcome":        outcome.String(),
		"streak":         streaks.EffectiveStreak(state, now, s.cfg.Interval),
		"points_awarded": points,
	})
}

// Status returns the effective streak and whether it is about to run out.
func (s *StreakController) Status(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var row models.Streak
	err := s.db.WithContext(ctx.Request.Context()).Where("user_id = ?", userID).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load streak")
		return
	}

	now := s.now()
	win, err := streaks.CurrentWindow(now, s.cfg.Interval)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, err.Error())
		return
	}
	state := row.State()
	utils.Success(ctx, gin.H{
		"streak":         streaks.EffectiveStreak(state, now, s.cfg.Interval),
		"raw_count":      state.RawCount,
		"running_out":    streaks.IsRunningOut(state, now, s.cfg.Interval),
		"last_window":    state.LastWindow,
		"current_window": win,
	})
}
