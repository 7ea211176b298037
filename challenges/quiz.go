package challenges

import (
	"errors"
	"strings"
)

const choiceLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrAnswerCount is returned when the answer sheet length differs from the
// number of questions.
var ErrAnswerCount = errors.New("the number of answers provided does not match the number of questions")

// QuizResult is the outcome of grading an answer sheet.
type QuizResult struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
	Points     int `json:"points"`
}

// CorrectLetter returns the letter of the first correct choice, or "" when
// the question has none. flags must be in display order.
func CorrectLetter(flags []bool) string {
	for i, ok := range flags {
		if ok && i < len(choiceLetters) {
			return choiceLetters[i : i+1]
		}
	}
	return ""
}

// GradeQuiz compares answers ("ABD", one letter per question) with the
// correct letters and scales the score to totalPoints.
func GradeQuiz(answers string, correct []string, totalPoints int) (QuizResult, error) {
	answers = strings.ToUpper(strings.TrimSpace(answers))
	if len(correct) == 0 || len(answers) != len(correct) {
		return QuizResult{}, ErrAnswerCount
	}
	res := QuizResult{Total: len(correct)}
	for i, letter := range correct {
		if letter != "" && answers[i:i+1] == letter {
			res.Correct++
		}
	}
	res.Percentage = res.Correct * 100 / res.Total
	res.Points = res.Correct * totalPoints / res.Total
	return res, nil
}
