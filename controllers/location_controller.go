package controllers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/geo"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/utils"
)

const defaultTileDistance = 100.0

// LocationController handles the player's position and the map tiles around it.
type LocationController struct {
	db     *gorm.DB
	mapCfg config.MapConfig
}

func NewLocationController(db *gorm.DB, mapCfg config.MapConfig) *LocationController {
	return &LocationController{db: db, mapCfg: mapCfg}
}

func (c *LocationController) bounds() geo.Box {
	return geo.Box{MinLat: c.mapCfg.MinLat, MaxLat: c.mapCfg.MaxLat, MinLon: c.mapCfg.MinLon, MaxLon: c.mapCfg.MaxLon}
}

// MapSettings returns the playable area and the 3D map rendering settings.
func (c *LocationController) MapSettings(ctx *gin.Context) {
	m := c.mapCfg
	utils.Success(ctx, gin.H{
		"min_lat":        m.MinLat,
		"max_lat":        m.MaxLat,
		"min_lon":        m.MinLon,
		"max_lon":        m.MaxLon,
		"min_x":          m.MinWorldX,
		"max_x":          m.MaxWorldX,
		"min_y":          m.MinWorldY,
		"max_y":          m.MaxWorldY,
		"min_z":          m.MinWorldZ,
		"max_z":          m.MaxWorldZ,
		"camera_map_url": m.CameraMapURL,
		"bg_colour":      m.BgColour,
		"render_dist":    m.RenderDist,
	})
}

// Current returns where the map should centre: the caller's stored
// coordinate when it lies strictly inside the map, else the default location.
func (c *LocationController) Current(ctx *gin.Context) {
	here := geo.GeoPoint{Latitude: c.mapCfg.DefaultLat, Longitude: c.mapCfg.DefaultLon}
	inBounds := false
	if userID, ok := getUserID(ctx); ok {
		var user models.User
		err := c.db.WithContext(ctx.Request.Context()).Select("id", "latitude", "longitude").First(&user, userID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load location")
			return
		}
		p := geo.GeoPoint{Latitude: user.Latitude, Longitude: user.Longitude}
		if err == nil && c.bounds().ContainsStrict(p) {
			here, inBounds = p, true
		}
	}
	utils.Success(ctx, gin.H{"lat": here.Latitude, "lon": here.Longitude, "in_bounds": inBounds})
}

// UpdateLocation stores the caller's current coordinate.
func (c *LocationController) UpdateLocation(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "latitude and longitude are required")
		return
	}
	p, err := geo.NewGeoPoint(*req.Latitude, *req.Longitude)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, err.Error())
		return
	}
	res := c.db.WithContext(ctx.Request.Context()).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"latitude": p.Latitude, "longitude": p.Longitude})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to update location")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	utils.Success(ctx, p)
}

// NearbyTiles returns tiles whose centre lies within distance meters.
func (c *LocationController) NearbyTiles(ctx *gin.Context) {
	lat, errLat := strconv.ParseFloat(ctx.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(ctx.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "Invalid parameters")
		return
	}
	center, err := geo.NewGeoPoint(lat, lon)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "Invalid parameters")
		return
	}
	distance := defaultTileDistance
	if raw := ctx.Query("distance"); raw != "" {
		distance, err = strconv.ParseFloat(raw, 64)
		if err != nil || distance <= 0 {
			utils.Error(ctx, http.StatusBadRequest, 40032, "Invalid parameters")
			return
		}
	}

	box := geo.BoundingBox(center, distance)
	var tiles []models.MapTile
	if err := c.db.WithContext(ctx.Request.Context()).
		Where("center_lat BETWEEN ? AND ? AND center_lon BETWEEN ? AND ?", box.MinLat, box.MaxLat, box.MinLon, box.MaxLon).
		Find(&tiles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load tiles")
		return
	}

	byID := make(map[string]models.MapTile, len(tiles))
	candidates := make([]geo.Candidate, 0, len(tiles))
	for _, t := range tiles {
		id := strconv.FormatUint(uint64(t.ID), 10)
		byID[id] = t
		candidates = append(candidates, geo.Candidate{ID: id, Point: geo.GeoPoint{Latitude: t.CenterLat, Longitude: t.CenterLon}})
	}
	ranked := geo.Within(center, candidates, distance)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Distance < ranked[j].Distance })

	out := make([]gin.H, 0, len(ranked))
	for _, r := range ranked {
		t := byID[r.ID]
		out = append(out, gin.H{
			"id":          t.ID,
			"file_name":   t.FileName,
			"center":      r.Point,
			"bottom_left": geo.GeoPoint{Latitude: t.BottomLeftLat, Longitude: t.BottomLeftLon},
			"top_right":   geo.GeoPoint{Latitude: t.TopRightLat, Longitude: t.TopRightLon},
			"distance_m":  r.Distance,
		})
	}
	utils.Success(ctx, gin.H{"tiles": out})
}

// TileFeatures lists the features drawn on each requested tile.
func (c *LocationController) TileFeatures(ctx *gin.Context) {
	ids, err := utils.ParseUintList(ctx.Query("tiles"))
	if err != nil || len(ids) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40033, "Invalid parameters")
		return
	}
	db := c.db.WithContext(ctx.Request.Context())

	var links []models.FeatureTileMap
	if err := db.Where("tile_id IN ?", ids).Find(&links).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load tile features")
		return
	}
	slugs := make([]string, 0, len(links))
	for _, l := range links {
		slugs = append(slugs, l.FeatureSlug)
	}
	var features []models.FeatureInstance
	if len(slugs) > 0 {
		if err := db.Preload("FeatureType").Where("slug IN ?", slugs).Find(&features).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load tile features")
			return
		}
	}
	bySlug := make(map[string]models.FeatureInstance, len(features))
	for _, f := range features {
		bySlug[f.Slug] = f
	}

	result := make(map[string][]gin.H, len(ids))
	for _, id := range ids {
		result[strconv.FormatUint(uint64(id), 10)] = []gin.H{}
	}
	for _, l := range links {
		f, ok := bySlug[l.FeatureSlug]
		if !ok {
			continue
		}
		key := strconv.FormatUint(uint64(l.TileID), 10)
		result[key] = append(result[key], gin.H{
			"slug":      f.Slug,
			"name":      f.Name,
			"colour":    f.FeatureType.Colour,
			"latitude":  f.Latitude,
			"longitude": f.Longitude,
		})
	}
	utils.Success(ctx, gin.H{"tiles": result})
}
