package llm

import (
	"strings"
	"testing"

	"github.com/ppiankov/firecheck/internal/model"
)

func TestBuildPrompt_NoSearches(t *testing.T) {
	prompt := BuildPrompt("The Eiffel Tower is in Paris.", nil, ModeNormal)

	if !strings.HasPrefix(prompt, "CLAIM:\nThe Eiffel Tower is in Paris.\n") {
		t.Errorf("Expected claim first, got %q", prompt)
	}
	if !strings.Contains(prompt, "(no searches yet)") {
		t.Error("Expected empty search section marker")
	}
	if !strings.Contains(prompt, normalInstruction) {
		t.Error("Expected normal instruction")
	}
}

func TestBuildPrompt_BatchesInOrder(t *testing.T) {
	batches := []model.SearchBatch{
		{Query: "Eiffel Tower location", Text: "Paris [Source: https://x]"},
		{Query: "Eiffel Tower height", Text: "330 m [Source: https://y]"},
	}

	prompt := BuildPrompt("claim", batches, ModeNormal)

	first := strings.Index(prompt, "[1] Query: Eiffel Tower location\nResult: Paris [Source: https://x]")
	second := strings.Index(prompt, "[2] Query: Eiffel Tower height\nResult: 330 m [Source: https://y]")
	if first < 0 || second < 0 || first > second {
		t.Errorf("Expected both batches in order, got %q", prompt)
	}
	if strings.Contains(prompt, "(no searches yet)") {
		t.Error("Did not expect empty marker with batches present")
	}
}

func TestBuildPrompt_Modes(t *testing.T) {
	tests := []struct {
		mode        Mode
		instruction string
	}{
		{ModeNormal, normalInstruction},
		{ModeCorrective, correctiveInstruction},
		{ModeForced, forcedInstruction},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			prompt := BuildPrompt("claim", nil, tt.mode)
			if !strings.HasSuffix(prompt, tt.instruction+"\n") {
				t.Errorf("Expected %s instruction at the end, got %q", tt.mode, prompt)
			}
		})
	}

	if !strings.Contains(forcedInstruction, "no more searches") {
		t.Error("Forced instruction must forbid further searches")
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	batches := []model.SearchBatch{{Query: "q", Text: "t"}}
	first := BuildPrompt("claim", batches, ModeForced)
	for i := 0; i < 10; i++ {
		if BuildPrompt("claim", batches, ModeForced) != first {
			t.Fatal("Prompt differs between calls")
		}
	}
}
