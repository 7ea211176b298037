package models

import "time"

const MaxPetHealth = 100

// Pet is a virtual pet owned by a user.
type Pet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"index;not null" json:"owner_id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Health    int       `gorm:"default:100;not null" json:"health"`
	CreatedAt time.Time `json:"created_at"`
}
