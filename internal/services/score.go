package services

import (
	"strings"

	"github.com/soaringjerry/pregate/internal/models"
)

// normalizeTokens trims every token. Blank tokens are kept so they count against the key.
// Free-text answers are folded to lower case.
func normalizeTokens(kind models.ControlKind, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if kind == models.ControlText {
			tok = strings.ToLower(tok)
		}
		out = append(out, tok)
	}
	return out
}

// AnswerCorrect reports whether a submitted answer matches the question's key. The submitted
// list must have as many tokens as the key and contain every key token; order is irrelevant.
func AnswerCorrect(q *models.Question, ans models.AnswerValue) bool {
	if q == nil || len(q.CorrectAnswers) == 0 {
		return false
	}
	given := normalizeTokens(q.ControlType, ans.Tokens())
	want := normalizeTokens(q.ControlType, q.CorrectAnswers)
	if len(given) != len(want) {
		return false
	}
	present := make(map[string]struct{}, len(given))
	for _, tok := range given {
		present[tok] = struct{}{}
	}
	for _, tok := range want {
		if _, ok := present[tok]; !ok {
			return false
		}
	}
	return true
}

// Score grades answers against questions. Missing answers count as incorrect and answers
// keyed by ids outside questions are ignored. percent is Percent(correct, len(questions)).
func Score(questions []*models.Question, answers map[string]models.AnswerValue) (correct int, percent float64) {
	if len(questions) == 0 {
		return 0, 0
	}
	for _, q := range questions {
		ans, ok := answers[q.ID]
		if ok && AnswerCorrect(q, ans) {
			correct++
		}
	}
	return correct, Percent(correct, len(questions))
}

// Percent is correct/total*100, unrounded. Whole percentages come out exact.
func Percent(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct*100) / float64(total)
}

// PassesMark compares correct/total against a whole-number pass mark without floating point.
func PassesMark(correct, total, markPercent int) bool {
	if total <= 0 {
		return false
	}
	return correct*100 >= markPercent*total
}
