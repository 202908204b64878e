package model

import "strings"

// Claim is a single self-contained factual statement under verification
type Claim struct {
	Text  string `json:"claim"`           // The claim text itself
	Label string `json:"label,omitempty"` // Expected answer in labeled datasets (optional)
	Line  int    `json:"-"`               // Line number in the source dataset (1-based)
}

// Answer is the verdict token rendered by the reasoning model
type Answer string

const (
	AnswerTrue  Answer = "TRUE"
	AnswerFalse Answer = "FALSE"
)

// ParseAnswer maps a verdict token to an Answer, case-insensitively.
// Anything other than TRUE or FALSE is rejected.
func ParseAnswer(token string) (Answer, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case string(AnswerTrue):
		return AnswerTrue, true
	case string(AnswerFalse):
		return AnswerFalse, true
	default:
		return "", false
	}
}

// Verdict is the terminal judgment of one verification run
type Verdict struct {
	Answer   Answer `json:"answer"`
	Response string `json:"response"` // Full model reply that carried the verdict
}

// Matches reports whether the verdict agrees with a dataset label
func (v *Verdict) Matches(label string) bool {
	if v == nil {
		return false
	}
	return strings.EqualFold(string(v.Answer), strings.TrimSpace(label))
}
