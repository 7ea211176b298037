package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/streaks"
	"github.com/ecopet/ecopet/utils"
)

const (
	TaskResetStreaks = "reset_missed_streaks"
	TaskPurgeReaches = "purge_stale_reaches"
	TaskDecayPets    = "decay_pet_health"
)

// Sweeper holds the batch maintenance operations. All of them are idempotent
// within a window and safe to run next to request traffic.
type Sweeper struct {
	db   *gorm.DB
	ch   config.ChallengeConfig
	pets config.PetConfig
	log  *zap.Logger
	now  func() time.Time
}

func NewSweeper(db *gorm.DB, cfg config.AppConfig, log *zap.Logger) *Sweeper {
	return &Sweeper{db: db, ch: cfg.Challenges, pets: cfg.Pets, log: log, now: cfg.Challenges.Now}
}

// Register adds every sweep to the scheduler.
func (s *Sweeper) Register(sched *Scheduler) error {
	discard := func(f func(context.Context) (int64, error)) Func {
		return func(ctx context.Context) error {
			_, err := f(ctx)
			return err
		}
	}
	if err := sched.Register(TaskResetStreaks, s.ch.SweepInterval, discard(s.ResetMissedStreaks)); err != nil {
		return err
	}
	if err := sched.Register(TaskPurgeReaches, s.ch.SweepInterval, discard(s.PurgeStaleReaches)); err != nil {
		return err
	}
	return sched.Register(TaskDecayPets, s.pets.DecayInterval, discard(s.DecayPetHealth))
}

// ResetMissedStreaks zeroes raw_count of every streak whose last window is
// neither the current nor the previous one. last_window is kept.
func (s *Sweeper) ResetMissedStreaks(ctx context.Context) (int64, error) {
	win, err := streaks.CurrentWindow(s.now(), s.ch.Interval)
	if err != nil {
		return 0, err
	}
	current := win.Start.UTC()
	previous := streaks.PreviousWindowStart(win.Start, s.ch.Interval).UTC()

	res := s.db.WithContext(ctx).Model(&models.Streak{}).
		Where("raw_count <> 0 AND (last_window IS NULL OR last_window NOT IN ?)", []time.Time{current, previous}).
		Update("raw_count", 0)
	if res.Error != nil {
		return 0, fmt.Errorf("reset missed streaks: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		utils.SweptRowsTotal.WithLabelValues(TaskResetStreaks).Add(float64(res.RowsAffected))
		s.log.Info("reset missed streaks", zap.Int64("rows", res.RowsAffected), zap.Time("window_start", current))
	}
	return res.RowsAffected, nil
}

// PurgeStaleReaches deletes reach records whose window has fully elapsed.
func (s *Sweeper) PurgeStaleReaches(ctx context.Context) (int64, error) {
	win, err := streaks.CurrentWindow(s.now(), s.ch.Interval)
	if err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).
		Where("window_end <= ?", win.Start.UTC()).
		Delete(&models.UserFeatureReach{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge stale reaches: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		utils.SweptRowsTotal.WithLabelValues(TaskPurgeReaches).Add(float64(res.RowsAffected))
		s.log.Info("purged stale reaches", zap.Int64("rows", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// DecayPetHealth takes DecayPercent off every living pet, rounding down.
func (s *Sweeper) DecayPetHealth(ctx context.Context) (int64, error) {
	db := s.db.WithContext(ctx)
	keep := 100 - s.pets.DecayPercent
	var changed int64
	var batch []models.Pet
	res := db.Where("health > 0").FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
		for _, p := range batch {
			health := p.Health * keep / 100
			if health < 0 {
				health = 0
			}
			if health == p.Health {
				continue
			}
			if err := db.Model(&models.Pet{}).Where("id = ?", p.ID).Update("health", health).Error; err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if res.Error != nil {
		return changed, fmt.Errorf("decay pet health: %w", res.Error)
	}
	if changed > 0 {
		utils.SweptRowsTotal.WithLabelValues(TaskDecayPets).Add(float64(changed))
		s.log.Info("decayed pet health", zap.Int64("pets", changed))
	}
	return changed, nil
}
