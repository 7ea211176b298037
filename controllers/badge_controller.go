package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/utils"
)

const maxBadgeRarity = 10

type BadgeController struct {
	db *gorm.DB
}

func NewBadgeController(db *gorm.DB) *BadgeController {
	return &BadgeController{db: db}
}

// List returns every badge, rarest first.
func (b *BadgeController) List(ctx *gin.Context) {
	var badges []models.Badge
	if err := b.db.WithContext(ctx.Request.Context()).Order("rarity DESC, title").Find(&badges).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50100, "failed to load badges")
		return
	}
	utils.Success(ctx, gin.H{"badges": badges})
}

type heldBadge struct {
	Title     string    `json:"title"`
	HoverText string    `json:"hover_text"`
	Colour    string    `json:"colour"`
	Rarity    int       `json:"rarity"`
	AwardedAt time.Time `json:"awarded_at"`
}

// ForUser lists the badges a user holds, rarest first.
func (b *BadgeController) ForUser(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40100, "invalid user id")
		return
	}
	var held []heldBadge
	err = b.db.WithContext(ctx.Request.Context()).
		Table("badge_instances").
		Select("badges.title, badges.hover_text, badges.colour, badges.rarity, badge_instances.created_at AS awarded_at").
		Joins("JOIN badges ON badges.title = badge_instances.badge_title").
		Where("badge_instances.user_id = ?", id).
		Order("badges.rarity DESC, badges.title").
		Scan(&held).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50101, "failed to load badges")
		return
	}
	utils.Success(ctx, gin.H{"badges": held})
}
