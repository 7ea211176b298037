package models

import (
	"time"

	"github.com/ecopet/ecopet/challenges"
)

// FeatureType is a kind of sustainability feature, e.g. a recycling bin.
type FeatureType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Colour      string    `gorm:"size:7;default:'#000000'" json:"colour"`
	CreatedAt   time.Time `json:"created_at"`
}

// FeatureInstance is a feature type placed at a location on campus.
type FeatureInstance struct {
	Slug          string            `gorm:"primaryKey;size:200" json:"slug"`
	Name          string            `gorm:"size:200;not null" json:"name"`
	FeatureTypeID uint              `gorm:"index;not null" json:"feature_type_id"`
	FeatureType   FeatureType       `json:"feature_type"`
	Latitude      float64           `gorm:"index" json:"latitude"`
	Longitude     float64           `gorm:"index" json:"longitude"`
	Questions     []QuestionFeature `gorm:"foreignKey:FeatureSlug" json:"-"`
	CreatedAt     time.Time         `json:"created_at"`
}

// QuestionFeature is a free-text question attached to a feature instance.
type QuestionFeature struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	FeatureSlug    string           `gorm:"size:200;index;not null" json:"feature_slug"`
	QuestionText   string           `gorm:"type:text;not null" json:"question_text"`
	CaseSensitive  bool             `gorm:"default:false" json:"case_sensitive"`
	UseFuzzy       bool             `gorm:"default:false" json:"use_fuzzy_comparison"`
	FuzzyThreshold int              `gorm:"default:65" json:"fuzzy_threshold"`
	Answers        []QuestionAnswer `gorm:"foreignKey:QuestionID" json:"-"`
}

// QuestionAnswer is one accepted answer of a question.
type QuestionAnswer struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	AnswerText string `gorm:"size:200;not null" json:"answer_text"`
}

// IsValidAnswer checks input against the preloaded answers.
func (q QuestionFeature) IsValidAnswer(input string) bool {
	accepted := make([]string, 0, len(q.Answers))
	for _, a := range q.Answers {
		accepted = append(accepted, a.AnswerText)
	}
	return challenges.MatchAnswer(input, accepted, challenges.MatchOptions{
		CaseSensitive: q.CaseSensitive,
		Fuzzy:         q.UseFuzzy,
		Threshold:     q.FuzzyThreshold,
	})
}

// UserFeatureReach records that a user reached a feature inside one window.
// Extra separates reward kinds, "question" for answered questions.
type UserFeatureReach struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_reach_window,priority:1" json:"user_id"`
	FeatureSlug string    `gorm:"size:200;not null;uniqueIndex:idx_reach_window,priority:2" json:"feature_slug"`
	WindowStart time.Time `gorm:"not null;uniqueIndex:idx_reach_window,priority:3;index" json:"window_start"`
	Extra       string    `gorm:"size:20;not null;default:'';uniqueIndex:idx_reach_window,priority:4" json:"extra"`
	WindowEnd   time.Time `gorm:"not null" json:"window_end"`
	ReachedAt   time.Time `gorm:"autoCreateTime" json:"reached_at"`
}
