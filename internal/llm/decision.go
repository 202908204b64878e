package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// DecisionKind is the outcome of parsing one model reply
type DecisionKind int

const (
	DecisionUnparseable DecisionKind = iota
	DecisionSearch
	DecisionFinalize
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionSearch:
		return "search"
	case DecisionFinalize:
		return "finalize"
	default:
		return "unparseable"
	}
}

// Decision is the parsed intent of a model reply
type Decision struct {
	Kind DecisionKind

	// Query is set for DecisionSearch
	Query string

	// Answer is set for DecisionFinalize
	Answer model.Answer

	// Text is the full reply
	Text string

	// Reason explains a DecisionUnparseable
	Reason string
}

// Markers may be wrapped in markdown emphasis, e.g. "**ANSWER:** TRUE".
var (
	answerPattern      = regexp.MustCompile(`(?i)\banswer[*_]*[ \t]*:[*_ \t]*(true|false)\b`)
	looseAnswerPattern = regexp.MustCompile(`(?i)\banswer[*_]*[ \t]*:[*_ \t]*([A-Za-z]*)`)
	searchPattern      = regexp.MustCompile(`(?im)\bsearch[*_]*[ \t]*:[*_ \t]*(.*)$`)
)

const queryTrimSet = " \t\r\"'`*_"

// ParseDecision extracts the decision from a model reply.
//
// An answer marker carrying TRUE or FALSE takes precedence over a search
// marker. When several markers of the same kind appear, the last one wins.
// "answer:" followed by anything else is treated as prose, unless the reply
// has no valid marker at all, in which case it is reported as an invalid
// verdict and never coerced.
func ParseDecision(text string) Decision {
	d := Decision{Text: text}

	if matches := answerPattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		answer, _ := model.ParseAnswer(matches[len(matches)-1][1])
		d.Kind = DecisionFinalize
		d.Answer = answer
		return d
	}

	if matches := searchPattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		query := strings.Trim(matches[len(matches)-1][1], queryTrimSet)
		if query != "" {
			d.Kind = DecisionSearch
			d.Query = query
			return d
		}
		d.Kind = DecisionUnparseable
		d.Reason = "search marker without a query"
		return d
	}

	d.Kind = DecisionUnparseable
	if matches := looseAnswerPattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		token := matches[len(matches)-1][1]
		if token == "" {
			d.Reason = "answer marker without a verdict"
		} else {
			d.Reason = fmt.Sprintf("answer marker with invalid verdict %q", token)
		}
		return d
	}
	if strings.TrimSpace(text) == "" {
		d.Reason = "empty reply"
	} else {
		d.Reason = "reply contains neither an answer nor a search marker"
	}
	return d
}

// MalformedResponseError reports a reply that stayed unparseable after the
// corrective or forced prompt
type MalformedResponseError struct {
	Mode   Mode
	Reason string
	Text   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model reply (%s prompt, grammar v%s): %s", e.Mode, GrammarVersion, e.Reason)
}
