// Package challenges grades free-text answers and multiple-choice quizzes.
package challenges

import (
	"math"
	"strings"
)

// DefaultFuzzyThreshold is the similarity a fuzzy answer has to beat.
const DefaultFuzzyThreshold = 65

// MatchOptions mirrors the per-question comparison flags.
type MatchOptions struct {
	CaseSensitive bool
	Fuzzy         bool
	Threshold     int // 0..100, only used when Fuzzy is set
}

// Similarity returns a 0..100 score, 100 meaning identical strings. It is the
// indel ratio: the share of runes left once the minimum insertions and
// deletions turning a into b are removed, rounded half to even.
func Similarity(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	indel := total - 2*longestCommonSubsequence(ra, rb)
	return int(math.RoundToEven(100 * (1 - float64(indel)/float64(total))))
}

func longestCommonSubsequence(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// MatchAnswer reports whether input matches any of the accepted answers.
func MatchAnswer(input string, accepted []string, opts MatchOptions) bool {
	if !opts.CaseSensitive {
		input = strings.ToLower(input)
	}
	for _, want := range accepted {
		if !opts.CaseSensitive {
			want = strings.ToLower(want)
		}
		if opts.Fuzzy {
			if Similarity(input, want) > opts.Threshold {
				return true
			}
			continue
		}
		if input == want {
			return true
		}
	}
	return false
}
