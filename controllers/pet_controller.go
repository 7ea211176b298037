package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/utils"
)

// PetController lets players adopt and look after pets.
type PetController struct {
	db    *gorm.DB
	cache *utils.Cache
}

func NewPetController(db *gorm.DB, cache *utils.Cache) *PetController {
	return &PetController{db: db, cache: cache}
}

// Adopt creates a pet at full health for the caller.
func (p *PetController) Adopt(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "pet name is required")
		return
	}
	name := utils.SanitizeText(req.Name)
	if name == "" || len(name) > 200 {
		utils.Error(ctx, http.StatusBadRequest, 40081, "pet name must be 1-200 characters")
		return
	}
	pet := models.Pet{OwnerID: userID, Name: name, Health: models.MaxPetHealth}
	if err := p.db.WithContext(ctx.Request.Context()).Create(&pet).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to adopt pet")
		return
	}
	p.cache.InvalidateByPrefix(ctx.Request.Context(), leaderboardCachePrefix)
	utils.Created(ctx, pet)
}

// List returns the caller's pets, oldest first.
func (p *PetController) List(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var pets []models.Pet
	if err := p.db.WithContext(ctx.Request.Context()).Where("owner_id = ?", userID).Order("id ASC").Find(&pets).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to list pets")
		return
	}
	utils.Success(ctx, gin.H{"items": pets})
}
