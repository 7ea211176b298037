package models

import "time"

// Badge is an award an admin can hand out. Rarity runs from 0 to 10.
type Badge struct {
	Title     string    `gorm:"primaryKey;size:50" json:"title"`
	HoverText string    `gorm:"size:100" json:"hover_text"`
	Colour    string    `gorm:"size:7;not null;default:'#FF0000'" json:"colour"`
	Rarity    int       `gorm:"not null;default:1" json:"rarity"`
	CreatedAt time.Time `json:"created_at"`
}

// BadgeInstance records that a user holds a badge. A user holds each badge at
// most once.
type BadgeInstance struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeTitle string    `gorm:"size:50;not null;uniqueIndex:idx_user_badge" json:"badge_title"`
	Badge      Badge     `gorm:"foreignKey:BadgeTitle;references:Title" json:"badge"`
	CreatedAt  time.Time `json:"awarded_at"`
}
