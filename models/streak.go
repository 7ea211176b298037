package models

import (
	"time"

	"github.com/ecopet/ecopet/streaks"
)

// Streak stores the check-in streak of a user. LastWindow is the start of the
// window the user last checked in.
type Streak struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	RawCount   int        `gorm:"default:0;not null" json:"raw_count"`
	LastWindow *time.Time `gorm:"index" json:"last_window"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// State projects the row onto the streak engine's value type.
func (s Streak) State() streaks.State {
	return streaks.State{RawCount: s.RawCount, LastWindow: s.LastWindow}
}

// Apply copies an engine state back onto the row.
func (s *Streak) Apply(st streaks.State) {
	s.RawCount = st.RawCount
	s.LastWindow = st.LastWindow
}
