package challenges

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchAnswer_Exact(t *testing.T) {
	accepted := []string{"Compost", "food waste"}
	assert.True(t, MatchAnswer("compost", accepted, MatchOptions{}))
	assert.True(t, MatchAnswer("FOOD WASTE", accepted, MatchOptions{}))
	assert.False(t, MatchAnswer("compst", accepted, MatchOptions{}))
	assert.False(t, MatchAnswer("compost", accepted, MatchOptions{CaseSensitive: true}))
	assert.True(t, MatchAnswer("Compost", accepted, MatchOptions{CaseSensitive: true}))
}

func TestMatchAnswer_Fuzzy(t *testing.T) {
	accepted := []string{"photovoltaic"}
	opts := MatchOptions{Fuzzy: true, Threshold: DefaultFuzzyThreshold}
	assert.True(t, MatchAnswer("photovoltiac", accepted, opts))
	assert.True(t, MatchAnswer("PhotoVoltaic", accepted, opts))
	assert.False(t, MatchAnswer("wind turbine", accepted, opts))
}

func TestMatchAnswer_NoAcceptedAnswers(t *testing.T) {
	assert.False(t, MatchAnswer("anything", nil, MatchOptions{}))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, Similarity("", ""))
	assert.Equal(t, 100, Similarity("bin", "bin"))
	assert.Equal(t, 0, Similarity("abc", "xyz"))
	assert.Equal(t, 86, Similarity("bins", "bin"))
	assert.Equal(t, 71, Similarity("glass", "glassware"))
	assert.Equal(t, 92, Similarity("photovoltiac", "photovoltaic"))
	assert.Equal(t, 0, Similarity("", "bin"))
}

func TestMatchAnswer_FuzzyPrefix(t *testing.T) {
	opts := MatchOptions{Fuzzy: true, Threshold: DefaultFuzzyThreshold}
	assert.True(t, MatchAnswer("glass", []string{"glassware"}, opts))
	// 71 is not strictly above a threshold of 71.
	assert.False(t, MatchAnswer("glass", []string{"glassware"}, MatchOptions{Fuzzy: true, Threshold: 71}))
}

func TestCorrectLetter(t *testing.T) {
	assert.Equal(t, "C", CorrectLetter([]bool{false, false, true, true}))
	assert.Equal(t, "", CorrectLetter([]bool{false, false}))
}

func TestGradeQuiz(t *testing.T) {
	res, err := GradeQuiz("abd", []string{"A", "B", "C"}, 10)
	require.NoError(t, err)
	assert.Equal(t, QuizResult{Correct: 2, Total: 3, Percentage: 66, Points: 6}, res)

	res, err = GradeQuiz("ABC", []string{"A", "B", "C"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Percentage)
	assert.Equal(t, 10, res.Points)

	_, err = GradeQuiz("AB", []string{"A", "B", "C"}, 10)
	assert.ErrorIs(t, err, ErrAnswerCount)
}
