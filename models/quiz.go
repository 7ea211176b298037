package models

import "time"

// Quiz is a multiple-choice quiz worth TotalPoints when fully correct.
type Quiz struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	TotalPoints int            `gorm:"default:10" json:"total_points"`
	Questions   []QuizQuestion `json:"questions,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type QuizQuestion struct {
	ID      uint         `gorm:"primaryKey" json:"id"`
	QuizID  uint         `gorm:"index;not null" json:"-"`
	Text    string       `gorm:"size:500;not null" json:"text"`
	Choices []QuizChoice `gorm:"foreignKey:QuestionID" json:"choices"`
}

type QuizChoice struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"-"`
	Text       string `gorm:"size:200;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"-"`
}

// QuizAttempt is the first graded attempt of a user on a quiz.
type QuizAttempt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_attempt_user_quiz" json:"user_id"`
	QuizID    uint      `gorm:"not null;uniqueIndex:idx_attempt_user_quiz" json:"quiz_id"`
	Answers   string    `gorm:"size:255" json:"answers"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
