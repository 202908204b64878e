package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// GrammarVersion identifies the reply grammar the prompts ask for and
// ParseDecision accepts. Bump it when either side changes.
const GrammarVersion = "2"

// Mode selects the instruction appended to the prompt
type Mode int

const (
	// ModeNormal lets the model search or answer
	ModeNormal Mode = iota
	// ModeCorrective follows a reply that matched neither marker
	ModeCorrective
	// ModeForced forbids further searches
	ModeForced
)

func (m Mode) String() string {
	switch m {
	case ModeCorrective:
		return "corrective"
	case ModeForced:
		return "forced"
	default:
		return "normal"
	}
}

// SystemPrompt is sent as the system instruction on every call
const SystemPrompt = `You are a careful fact-checker. You decide whether a single factual claim is true, using Google Search results as evidence.

On every turn you either request one more search or give your final answer.
Think step by step first, then end your reply with exactly one of these lines:

SEARCH: <a single Google Search query>
ANSWER: TRUE
ANSWER: FALSE

Only search for information that is missing from the results you already have.
Answer TRUE only if the evidence supports the claim; otherwise answer FALSE.`

const (
	normalInstruction = `If the results above are enough to judge the claim, end with "ANSWER: TRUE" or "ANSWER: FALSE". Otherwise end with "SEARCH: <query>" to look for the missing information.`

	correctiveInstruction = `Your previous reply did not follow the required format. Respond using the required grammar: end your reply with either "SEARCH: <query>" on its own line, or "ANSWER: TRUE" or "ANSWER: FALSE".`

	forcedInstruction = `You have used all available searches. Answer now, no more searches. Based only on the results above, end your reply with "ANSWER: TRUE" or "ANSWER: FALSE".`
)

// BuildPrompt renders the user prompt for one decision. The output depends
// only on its arguments: the claim, then the serialized result of every
// prior search in order, then the mode's instruction.
func BuildPrompt(claim string, batches []model.SearchBatch, mode Mode) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CLAIM:\n%s\n\n", claim)

	b.WriteString("SEARCH RESULTS:\n")
	if len(batches) == 0 {
		b.WriteString("(no searches yet)\n")
	}
	for i, batch := range batches {
		fmt.Fprintf(&b, "[%d] Query: %s\nResult: %s\n\n", i+1, batch.Query, batch.Text)
	}

	b.WriteString("\n")
	switch mode {
	case ModeCorrective:
		b.WriteString(correctiveInstruction)
	case ModeForced:
		b.WriteString(forcedInstruction)
	default:
		b.WriteString(normalInstruction)
	}
	b.WriteString("\n")

	return b.String()
}
