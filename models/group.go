package models

import "time"

// UserGroup lets players compare progress on a shared leaderboard.
type UserGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Code      string    `gorm:"size:16;not null;uniqueIndex" json:"code"`
	OwnerID   uint      `gorm:"index" json:"owner_id"`
	Members   []User    `gorm:"many2many:user_group_members;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// All returns every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{}, &Streak{}, &FeatureType{}, &FeatureInstance{}, &QuestionFeature{},
		&QuestionAnswer{}, &UserFeatureReach{}, &MapTile{}, &FeatureTileMap{},
		&Quiz{}, &QuizQuestion{}, &QuizChoice{}, &QuizAttempt{}, &Pet{}, &UserGroup{},
		&Badge{}, &BadgeInstance{},
	}
}
