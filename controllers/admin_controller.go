package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecopet/ecopet/geo"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/utils"
)

// AdminController imports game content. Every route is behind AdminRequired.
type AdminController struct {
	db *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

type featureTypeInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Colour      string `json:"colour"`
}

type questionInput struct {
	QuestionText   string   `json:"question_text" binding:"required"`
	CaseSensitive  bool     `json:"case_sensitive"`
	UseFuzzy       bool     `json:"use_fuzzy_comparison"`
	FuzzyThreshold int      `json:"fuzzy_threshold"`
	Answers        []string `json:"answers" binding:"required,min=1"`
}

type featureInput struct {
	Slug      string          `json:"slug" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	Type      string          `json:"type" binding:"required"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Questions []questionInput `json:"questions" binding:"dive"`
}

// ImportFeatures upserts feature types by name and features by slug. The
// questions of an imported feature replace its existing ones.
func (a *AdminController) ImportFeatures(ctx *gin.Context) {
	var req struct {
		FeatureTypes []featureTypeInput `json:"feature_types" binding:"dive"`
		Features     []featureInput     `json:"features" binding:"dive"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid request payload")
		return
	}
	for _, f := range req.Features {
		if _, err := geo.NewGeoPoint(f.Latitude, f.Longitude); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40091, fmt.Sprintf("feature %s: %v", f.Slug, err))
			return
		}
	}

	var types, features, questions int
	err := a.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, in := range req.FeatureTypes {
			ft := models.FeatureType{
				Name:        utils.SanitizeText(in.Name),
				Description: utils.Sanitize(in.Description),
				Colour:      normaliseColour(in.Colour),
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"description", "colour"}),
			}).Create(&ft).Error
			if err != nil {
				return err
			}
			types++
		}

		for _, in := range req.Features {
			var ft models.FeatureType
			if err := tx.Where("name = ?", utils.SanitizeText(in.Type)).First(&ft).Error; err != nil {
				return fmt.Errorf("feature %s: unknown type %q: %w", in.Slug, in.Type, err)
			}
			fi := models.FeatureInstance{
				Slug:          strings.TrimSpace(in.Slug),
				Name:          utils.SanitizeText(in.Name),
				FeatureTypeID: ft.ID,
				Latitude:      in.Latitude,
				Longitude:     in.Longitude,
			}
			err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "feature_type_id", "latitude", "longitude"}),
			}).Create(&fi).Error
			if err != nil {
				return err
			}
			features++

			if len(in.Questions) == 0 {
				continue
			}
			if err := deleteQuestions(tx, fi.Slug); err != nil {
				return err
			}
			for _, q := range in.Questions {
				question := models.QuestionFeature{
					FeatureSlug:    fi.Slug,
					QuestionText:   utils.Sanitize(q.QuestionText),
					CaseSensitive:  q.CaseSensitive,
					UseFuzzy:       q.UseFuzzy,
					FuzzyThreshold: q.FuzzyThreshold,
				}
				for _, ans := range q.Answers {
					question.Answers = append(question.Answers, models.QuestionAnswer{AnswerText: strings.TrimSpace(ans)})
				}
				if err := tx.Create(&question).Error; err != nil {
					return err
				}
				questions++
			}
		}
		return nil
	})
	if err != nil {
		utils.Sugar.Warnw("feature import failed", "error", err)
		utils.Error(ctx, http.StatusBadRequest, 40092, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"feature_types": types, "features": features, "questions": questions})
}

func deleteQuestions(tx *gorm.DB, slug string) error {
	var ids []uint
	if err := tx.Model(&models.QuestionFeature{}).Where("feature_slug = ?", slug).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("question_id IN ?", ids).Delete(&models.QuestionAnswer{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.QuestionFeature{}).Error
}

func normaliseColour(c string) string {
	c = strings.TrimSpace(c)
	if len(c) != 7 || c[0] != '#' {
		return "#000000"
	}
	return strings.ToUpper(c)
}

// ImportTiles upserts map tiles by file name and links them to features.
func (a *AdminController) ImportTiles(ctx *gin.Context) {
	var req struct {
		Tiles []struct {
			FileName   string       `json:"file_name" binding:"required"`
			Center     geo.GeoPoint `json:"center"`
			BottomLeft geo.GeoPoint `json:"bottom_left"`
			TopRight   geo.GeoPoint `json:"top_right"`
			Features   []string     `json:"features"`
		} `json:"tiles" binding:"required,dive"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40093, "invalid request payload")
		return
	}

	var tiles, links int
	err := a.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, in := range req.Tiles {
			for _, p := range []geo.GeoPoint{in.Center, in.BottomLeft, in.TopRight} {
				if _, err := geo.NewGeoPoint(p.Latitude, p.Longitude); err != nil {
					return fmt.Errorf("tile %s: %w", in.FileName, err)
				}
			}
			var tile models.MapTile
			err := tx.Where(models.MapTile{FileName: in.FileName}).
				Assign(models.MapTile{
					CenterLat:     in.Center.Latitude,
					CenterLon:     in.Center.Longitude,
					BottomLeftLat: in.BottomLeft.Latitude,
					BottomLeftLon: in.BottomLeft.Longitude,
					TopRightLat:   in.TopRight.Latitude,
					TopRightLon:   in.TopRight.Longitude,
				}).FirstOrCreate(&tile).Error
			if err != nil {
				return err
			}
			tiles++
			for _, slug := range in.Features {
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&models.FeatureTileMap{TileID: tile.ID, FeatureSlug: strings.TrimSpace(slug)})
				if res.Error != nil {
					return res.Error
				}
				links += int(res.RowsAffected)
			}
		}
		return nil
	})
	if err != nil {
		utils.Sugar.Warnw("tile import failed", "error", err)
		utils.Error(ctx, http.StatusBadRequest, 40094, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"tiles": tiles, "links": links})
}

// ImportQuizzes creates quizzes. Each question must have exactly one
// correct choice.
func (a *AdminController) ImportQuizzes(ctx *gin.Context) {
	var req struct {
		Quizzes []struct {
			Title       string `json:"title" binding:"required"`
			TotalPoints int    `json:"total_points"`
			Questions   []struct {
				Text    string `json:"text" binding:"required"`
				Choices []struct {
					Text      string `json:"text" binding:"required"`
					IsCorrect bool   `json:"is_correct"`
				} `json:"choices" binding:"required,min=2,dive"`
			} `json:"questions" binding:"required,min=1,dive"`
		} `json:"quizzes" binding:"required,dive"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40095, "invalid request payload")
		return
	}

	quizzes := make([]models.Quiz, 0, len(req.Quizzes))
	for _, in := range req.Quizzes {
		quiz := models.Quiz{Title: utils.SanitizeText(in.Title), TotalPoints: in.TotalPoints}
		for _, q := range in.Questions {
			question := models.QuizQuestion{Text: utils.SanitizeText(q.Text)}
			correct := 0
			for _, c := range q.Choices {
				if c.IsCorrect {
					correct++
				}
				question.Choices = append(question.Choices, models.QuizChoice{Text: utils.SanitizeText(c.Text), IsCorrect: c.IsCorrect})
			}
			if correct != 1 {
				utils.Error(ctx, http.StatusBadRequest, 40096, fmt.Sprintf("question %q must have exactly one correct choice", q.Text))
				return
			}
			quiz.Questions = append(quiz.Questions, question)
		}
		quizzes = append(quizzes, quiz)
	}

	if err := a.db.WithContext(ctx.Request.Context()).Create(&quizzes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to import quizzes")
		return
	}
	ids := make([]uint, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	utils.Created(ctx, gin.H{"ids": ids})
}

// ImportBadges upserts badges by title.
func (a *AdminController) ImportBadges(ctx *gin.Context) {
	var req struct {
		Badges []struct {
			Title     string `json:"title" binding:"required,max=50"`
			HoverText string `json:"hover_text" binding:"max=100"`
			Colour    string `json:"colour"`
			Rarity    *int   `json:"rarity"`
		} `json:"badges" binding:"required,dive"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40097, "invalid request payload")
		return
	}
	badges := make([]models.Badge, 0, len(req.Badges))
	for _, in := range req.Badges {
		rarity := 1
		if in.Rarity != nil {
			rarity = *in.Rarity
		}
		if rarity < 0 || rarity > maxBadgeRarity {
			utils.Error(ctx, http.StatusBadRequest, 40098, fmt.Sprintf("badge %q: rarity must be between 0 and %d", in.Title, maxBadgeRarity))
			return
		}
		colour := "#FF0000"
		if strings.TrimSpace(in.Colour) != "" {
			colour = normaliseColour(in.Colour)
		}
		title := utils.SanitizeText(in.Title)
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40098, "badge title is empty")
			return
		}
		badges = append(badges, models.Badge{
			Title:     title,
			HoverText: utils.SanitizeText(in.HoverText),
			Colour:    colour,
			Rarity:    rarity,
		})
	}
	err := a.db.WithContext(ctx.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "title"}},
		DoUpdates: clause.AssignmentColumns([]string{"hover_text", "colour", "rarity"}),
	}).Create(&badges).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to import badges")
		return
	}
	utils.Success(ctx, gin.H{"badges": len(badges)})
}

type badgeGrant struct {
	UserID uint   `json:"user_id" binding:"required"`
	Title  string `json:"title" binding:"required"`
}

// AwardBadge gives a badge to a user. Awarding a held badge is a no-op.
func (a *AdminController) AwardBadge(ctx *gin.Context) {
	var req badgeGrant
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40099, "user_id and title are required")
		return
	}
	db := a.db.WithContext(ctx.Request.Context())

	var users, badges int64
	if err := db.Model(&models.User{}).Where("id = ?", req.UserID).Count(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to award badge")
		return
	}
	if err := db.Model(&models.Badge{}).Where("title = ?", req.Title).Count(&badges).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to award badge")
		return
	}
	if users == 0 || badges == 0 {
		utils.Error(ctx, http.StatusNotFound, 40490, "user or badge not found")
		return
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.BadgeInstance{UserID: req.UserID, BadgeTitle: req.Title})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to award badge")
		return
	}
	utils.Success(ctx, gin.H{"awarded": res.RowsAffected == 1})
}

// RevokeBadge takes a badge away from a user.
func (a *AdminController) RevokeBadge(ctx *gin.Context) {
	var req badgeGrant
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40099, "user_id and title are required")
		return
	}
	res := a.db.WithContext(ctx.Request.Context()).
		Where("user_id = ? AND badge_title = ?", req.UserID, req.Title).
		Delete(&models.BadgeInstance{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to revoke badge")
		return
	}
	utils.Success(ctx, gin.H{"revoked": res.RowsAffected == 1})
}
