package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/controllers"
	"github.com/ecopet/ecopet/middleware"
	"github.com/ecopet/ecopet/utils"
)

// Deps carries what the handlers need. Cache and Blacklist work without Redis.
type Deps struct {
	DB        *gorm.DB
	Config    config.AppConfig
	Cache     *utils.Cache
	Issuer    *utils.TokenIssuer
	Blacklist *utils.TokenBlacklist
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Monitor())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.NewAuthenticator(deps.Issuer, deps.Blacklist)
	authController := controllers.NewAuthController(deps.DB, cfg, deps.Issuer, deps.Blacklist, deps.Cache)
	streakController := controllers.NewStreakController(deps.DB, cfg.Challenges, deps.Cache)
	challengeController := controllers.NewChallengeController(deps.DB, cfg.Challenges, deps.Cache)
	locationController := controllers.NewLocationController(deps.DB, cfg.Map)
	quizController := controllers.NewQuizController(deps.DB, cfg.Pets, deps.Cache)
	statsController := controllers.NewStatsController(deps.DB, cfg, deps.Cache)
	groupController := controllers.NewGroupController(deps.DB, deps.Cache)
	petController := controllers.NewPetController(deps.DB, deps.Cache)
	adminController := controllers.NewAdminController(deps.DB)
	badgeController := controllers.NewBadgeController(deps.DB)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", auth.AuthRequired(), authController.Logout)
	authGroup.GET("/me", auth.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", auth.AuthRequired(), authController.UpdateProfile)

	// Public
	api.GET("/stats", statsController.GetStats)
	api.GET("/users/:id", authController.GetUserPublic)
	api.GET("/users/:id/badges", badgeController.ForUser)
	api.GET("/badges", badgeController.List)
	api.GET("/features", challengeController.ListFeatures)
	api.GET("/features/:slug", challengeController.GetFeature)
	api.POST("/qr/validate", challengeController.ValidateQR)
	api.GET("/map/settings", locationController.MapSettings)
	api.GET("/tiles/nearby", locationController.NearbyTiles)
	api.GET("/tiles/features", locationController.TileFeatures)
	api.GET("/quizzes", quizController.List)
	api.GET("/quizzes/:id", quizController.Get)

	optional := api.Group("")
	optional.Use(auth.OptionalAuth())
	optional.POST("/answer/submit", challengeController.SubmitAnswer)
	optional.GET("/challenges/nearby", challengeController.Nearby)
	optional.GET("/leaderboard", statsController.Leaderboard)
	optional.GET("/location/current", locationController.Current)

	protected := api.Group("")
	protected.Use(auth.AuthRequired(), middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	protected.POST("/streak/checkin", streakController.Checkin)
	protected.GET("/streak/status", streakController.Status)
	protected.POST("/features/:slug/reach", challengeController.ReachFeature)
	protected.POST("/profile/location", locationController.UpdateLocation)
	protected.POST("/quizzes/:id/score", quizController.Score)
	protected.GET("/groups", groupController.ListMine)
	protected.POST("/groups", groupController.Create)
	protected.POST("/groups/join", groupController.Join)
	protected.POST("/groups/:code/leave", groupController.Leave)
	protected.GET("/pets", petController.List)
	protected.POST("/pets", petController.Adopt)

	admin := api.Group("/admin")
	admin.Use(auth.AuthRequired(), middleware.AdminRequired(cfg.AdminUsernames))
	admin.GET("/users", authController.ListUsers)
	admin.POST("/features", adminController.ImportFeatures)
	admin.POST("/tiles", adminController.ImportTiles)
	admin.POST("/quizzes", adminController.ImportQuizzes)
	admin.POST("/badges", adminController.ImportBadges)
	admin.POST("/badges/award", adminController.AwardBadge)
	admin.POST("/badges/revoke", adminController.RevokeBadge)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
