package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecopet/ecopet/challenges"
	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/utils"
)

// healThreshold is the percentage a quiz score must exceed to heal a pet.
const healThreshold = 80

// QuizController serves quizzes and grades answer sheets.
type QuizController struct {
	db     *gorm.DB
	pets   config.PetConfig
	reward rewarder
}

func NewQuizController(db *gorm.DB, pets config.PetConfig, cache *utils.Cache) *QuizController {
	return &QuizController{db: db, pets: pets, reward: rewarder{cache: cache}}
}

func byID(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

// List returns quizzes without their questions.
func (q *QuizController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	var quizzes []models.Quiz
	var total int64

	query := q.db.WithContext(ctx.Request.Context()).Model(&models.Quiz{})
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to count quizzes")
		return
	}
	if err := query.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&quizzes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list quizzes")
		return
	}
	utils.Success(ctx, gin.H{
		"items": quizzes,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

func (q *QuizController) load(ctx *gin.Context) (models.Quiz, bool) {
	var quiz models.Quiz
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid quiz id")
		return quiz, false
	}
	err = q.db.WithContext(ctx.Request.Context()).
		Preload("Questions", byID).Preload("Questions.Choices", byID).
		First(&quiz, uint(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "Quiz not found.")
			return quiz, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load quiz")
		return quiz, false
	}
	return quiz, true
}

// Get returns a quiz with its questions and choices. Correctness is hidden.
func (q *QuizController) Get(ctx *gin.Context) {
	quiz, ok := q.load(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, quiz)
}

// Score grades an answer sheet. Only the first attempt per user is recorded
// and rewarded; a high score also heals the user's first pet.
func (q *QuizController) Score(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "Authentication required.")
		return
	}
	var req struct {
		Answers string `json:"answers" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid request payload")
		return
	}
	quiz, ok := q.load(ctx)
	if !ok {
		return
	}

	correct := make([]string, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		flags := make([]bool, len(question.Choices))
		for i, choice := range question.Choices {
			flags[i] = choice.IsCorrect
		}
		correct = append(correct, challenges.CorrectLetter(flags))
	}
	result, err := challenges.GradeQuiz(req.Answers, correct, quiz.TotalPoints)
	if errors.Is(err, challenges.ErrAnswerCount) {
		utils.Error(ctx, http.StatusBadRequest, 40052, "The number of answers provided does not match the number of questions.")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to grade quiz")
		return
	}

	var recorded, healed bool
	err = q.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		attempt := models.QuizAttempt{
			UserID:  userID,
			QuizID:  quiz.ID,
			Answers: req.Answers,
			Score:   float64(result.Percentage),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&attempt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		recorded = true
		if err := q.reward.add(tx, userID, result.Points); err != nil {
			return err
		}
		if result.Percentage <= healThreshold {
			return nil
		}
		var pet models.Pet
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ?", userID).Order("id ASC").First(&pet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		health := min(pet.Health+q.pets.QuizHealBonus, models.MaxPetHealth)
		if err := tx.Model(&pet).UpdateColumn("health", health).Error; err != nil {
			return err
		}
		healed = true
		return nil
	})
	if err != nil {
		utils.Sugar.Errorw("quiz scoring failed", "user_id", userID, "quiz_id", quiz.ID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to record quiz attempt")
		return
	}

	points := 0
	if recorded {
		points = result.Points
		q.reward.done(ctx.Request.Context(), userID, "quiz", points)
	}
	utils.Success(ctx, gin.H{
		"result":         result,
		"recorded":       recorded,
		"points_awarded": points,
		"pet_healed":     healed,
	})
}
