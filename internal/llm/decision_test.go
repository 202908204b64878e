package llm

import (
	"strings"
	"testing"

	"github.com/ppiankov/firecheck/internal/model"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		kind   DecisionKind
		answer model.Answer
		query  string
		reason string
	}{
		{name: "answer true", text: "ANSWER: TRUE", kind: DecisionFinalize, answer: model.AnswerTrue},
		{name: "answer false lowercase", text: "answer: false", kind: DecisionFinalize, answer: model.AnswerFalse},
		{name: "markdown emphasis", text: "Reasoning.\n**ANSWER:** True", kind: DecisionFinalize, answer: model.AnswerTrue},
		{name: "trailing punctuation", text: "ANSWER: FALSE.", kind: DecisionFinalize, answer: model.AnswerFalse},
		{name: "search", text: "I need the height.\nSEARCH: Eiffel Tower height", kind: DecisionSearch, query: "Eiffel Tower height"},
		{name: "search lowercase quoted", text: `search:  "Eiffel Tower height"  `, kind: DecisionSearch, query: "Eiffel Tower height"},
		{name: "search stops at end of line", text: "SEARCH: first query\nsome trailing prose", kind: DecisionSearch, query: "first query"},
		{name: "last search wins", text: "SEARCH: one\nSEARCH: two", kind: DecisionSearch, query: "two"},
		{name: "answer takes precedence over search", text: "SEARCH: more info\nANSWER: TRUE", kind: DecisionFinalize, answer: model.AnswerTrue},
		{name: "last answer wins", text: "ANSWER: TRUE\nOn reflection...\nANSWER: FALSE", kind: DecisionFinalize, answer: model.AnswerFalse},
		{name: "invalid verdict is not coerced", text: "ANSWER: UNKNOWN", kind: DecisionUnparseable, reason: `"UNKNOWN"`},
		{name: "prose answer after verdict", text: "ANSWER: TRUE\n\nIn short, the answer: the tower is in Paris.", kind: DecisionFinalize, answer: model.AnswerTrue},
		{name: "prose answer before search", text: "I need more data before my answer: searching.\nSEARCH: Eiffel Tower location", kind: DecisionSearch, query: "Eiffel Tower location"},
		{name: "verdict word prefix is not a verdict", text: "ANSWER: TRUEISH", kind: DecisionUnparseable, reason: `"TRUEISH"`},
		{name: "answer without verdict", text: "ANSWER:\nTRUE", kind: DecisionUnparseable, reason: "without a verdict"},
		{name: "empty search", text: "SEARCH:   ", kind: DecisionUnparseable, reason: "without a query"},
		{name: "no marker", text: "The claim seems plausible.", kind: DecisionUnparseable, reason: "neither"},
		{name: "empty reply", text: "  ", kind: DecisionUnparseable, reason: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDecision(tt.text)
			if d.Kind != tt.kind {
				t.Fatalf("Expected kind %s, got %s (reason %q)", tt.kind, d.Kind, d.Reason)
			}
			if d.Answer != tt.answer {
				t.Errorf("Expected answer %q, got %q", tt.answer, d.Answer)
			}
			if d.Query != tt.query {
				t.Errorf("Expected query %q, got %q", tt.query, d.Query)
			}
			if tt.reason != "" && !strings.Contains(d.Reason, tt.reason) {
				t.Errorf("Expected reason containing %q, got %q", tt.reason, d.Reason)
			}
			if d.Text != tt.text {
				t.Error("Expected full reply to be kept")
			}
		})
	}
}

func TestMalformedResponseError(t *testing.T) {
	err := &MalformedResponseError{Mode: ModeForced, Reason: "empty reply"}
	if !strings.Contains(err.Error(), "forced") || !strings.Contains(err.Error(), "grammar v"+GrammarVersion) {
		t.Errorf("Unexpected message: %s", err)
	}
}
