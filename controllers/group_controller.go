package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/utils"
)

const groupCodeLength = 8

// GroupController manages the groups used for shared leaderboards.
type GroupController struct {
	db    *gorm.DB
	cache *utils.Cache
}

func NewGroupController(db *gorm.DB, cache *utils.Cache) *GroupController {
	return &GroupController{db: db, cache: cache}
}

func newGroupCode() string {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(code[:groupCodeLength])
}

func isMember(db *gorm.DB, groupID, userID uint) (bool, error) {
	var n int64
	err := db.Table("user_group_members").
		Where("user_group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	return n > 0, err
}

func addMember(db *gorm.DB, groupID, userID uint) error {
	return db.Table("user_group_members").Create(map[string]interface{}{
		"user_group_id": groupID,
		"user_id":       userID,
	}).Error
}

// Create makes a new group owned by the caller, who joins it.
func (g *GroupController) Create(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "group name is required")
		return
	}
	name := utils.SanitizeText(req.Name)
	if name == "" || len(name) > 100 {
		utils.Error(ctx, http.StatusBadRequest, 40071, "group name must be 1-100 characters")
		return
	}

	group := models.UserGroup{Name: name, Code: newGroupCode(), OwnerID: userID}
	err := g.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return addMember(tx, group.ID, userID)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to create group")
		return
	}
	utils.Created(ctx, group)
}

// Join adds the caller to the group with the given code.
func (g *GroupController) Join(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40072, "group code is required")
		return
	}
	group, ok := g.find(ctx, req.Code)
	if !ok {
		return
	}
	db := g.db.WithContext(ctx.Request.Context())
	member, err := isMember(db, group.ID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to join group")
		return
	}
	if !member {
		if err := addMember(db, group.ID, userID); err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to join group")
			return
		}
		g.cache.InvalidateByPrefix(ctx.Request.Context(), leaderboardCachePrefix)
	}
	utils.Success(ctx, group)
}

// Leave removes the caller from the group.
func (g *GroupController) Leave(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	group, ok := g.find(ctx, ctx.Param("code"))
	if !ok {
		return
	}
	err := g.db.WithContext(ctx.Request.Context()).
		Exec("DELETE FROM user_group_members WHERE user_group_id = ? AND user_id = ?", group.ID, userID).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to leave group")
		return
	}
	utils.Success(ctx, gin.H{"left": group.Code})
}

// ListMine returns the groups the caller belongs to.
func (g *GroupController) ListMine(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var groups []models.UserGroup
	err := g.db.WithContext(ctx.Request.Context()).
		Joins("JOIN user_group_members ON user_group_members.user_group_id = user_groups.id").
		Where("user_group_members.user_id = ?", userID).
		Order("user_groups.id ASC").Find(&groups).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to list groups")
		return
	}
	utils.Success(ctx, gin.H{"items": groups})
}

func (g *GroupController) find(ctx *gin.Context, code string) (models.UserGroup, bool) {
	var group models.UserGroup
	code = strings.ToUpper(strings.TrimSpace(code))
	err := g.db.WithContext(ctx.Request.Context()).Where("code = ?", code).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "group not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50074, "failed to load group")
		}
		return group, false
	}
	return group, true
}
