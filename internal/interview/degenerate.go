package interview

import (
	"strings"
	"unicode/utf8"
)

// Rules are the local heuristics Reduce applies to answers
type Rules struct {
	MinAnswerLength    int
	PlaceholderAnswers []string
}

// DefaultRules rejects answers under five characters and common
// no-speech placeholders
func DefaultRules() Rules {
	return Rules{
		MinAnswerLength: 5,
		PlaceholderAnswers: []string{
			"[no speech detected]",
			"no speech detected",
			"[inaudible]",
			"[silence]",
			"transcription not available",
		},
	}
}

// IsDegenerate reports whether a transcription is too short or matches a
// placeholder the model echoes when it hears nothing
func (r Rules) IsDegenerate(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || utf8.RuneCountInString(t) < r.MinAnswerLength {
		return true
	}
	lower := strings.ToLower(t)
	for _, p := range r.PlaceholderAnswers {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
