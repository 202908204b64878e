// Package score summarizes batch verification runs: completion, accuracy
// against dataset labels, token spend and cited-source authority.
package score

import (
	"fmt"
	"time"

	"github.com/ppiankov/firecheck/internal/model"
)

// SignalType identifies a diagnostic signal
type SignalType string

const (
	SignalCompletion            SignalType = "completion"
	SignalAccuracy              SignalType = "accuracy"
	SignalAuthorityDistribution SignalType = "authority_distribution"
	SignalSearchEffort          SignalType = "search_effort"
)

// Severity grades a signal
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Signal is one diagnostic finding about a batch
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    Severity               `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// AuthorityCounts counts cited sources per tier
type AuthorityCounts struct {
	Primary   int `json:"primary"`
	Secondary int `json:"secondary"`
	Tertiary  int `json:"tertiary"`
}

// Total returns the number of classified sources
func (a AuthorityCounts) Total() int {
	return a.Primary + a.Secondary + a.Tertiary
}

// Summary aggregates the reports of one batch
type Summary struct {
	Total         int             `json:"total"`
	Completed     int             `json:"completed"`
	Failed        int             `json:"failed"`
	SuccessRate   float64         `json:"success_rate"`
	TrueVerdicts  int             `json:"true_verdicts"`
	FalseVerdicts int             `json:"false_verdicts"`
	Labeled       int             `json:"labeled"`
	Correct       int             `json:"correct"`
	Accuracy      float64         `json:"accuracy"` // Correct over labeled claims; unverified claims count as wrong
	Usage         model.Usage     `json:"usage"`
	Searches      int             `json:"searches"`
	AvgSearches   float64         `json:"avg_searches"`
	Authority     AuthorityCounts `json:"authority"`
	Duration      time.Duration   `json:"duration_ns"`
	Signals       []Signal        `json:"signals"`
}

// Scorer summarizes verification reports
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate aggregates reports into a summary with diagnostic signals
func (s *Scorer) Calculate(reports []*model.Report) Summary {
	var summary Summary

	for _, r := range reports {
		if r == nil {
			continue
		}
		summary.Total++
		summary.Usage = summary.Usage.Add(r.Usage)
		summary.Searches += len(r.Searches.GoogleSearches)
		summary.Duration += r.Duration

		if r.Result == nil {
			summary.Failed++
		} else {
			summary.Completed++
			switch r.Result.Answer {
			case model.AnswerTrue:
				summary.TrueVerdicts++
			case model.AnswerFalse:
				summary.FalseVerdicts++
			}
		}

		if correct, labeled := r.Correct(); labeled {
			summary.Labeled++
			if correct {
				summary.Correct++
			}
		}

		for _, src := range r.Sources {
			switch src.Authority {
			case model.TierPrimary:
				summary.Authority.Primary++
			case model.TierSecondary:
				summary.Authority.Secondary++
			case model.TierTertiary:
				summary.Authority.Tertiary++
			}
		}
	}

	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Completed) / float64(summary.Total)
		summary.AvgSearches = float64(summary.Searches) / float64(summary.Total)
	}
	if summary.Labeled > 0 {
		summary.Accuracy = float64(summary.Correct) / float64(summary.Labeled)
	}

	summary.Signals = append(summary.Signals, s.completionSignal(summary))
	if summary.Labeled > 0 {
		summary.Signals = append(summary.Signals, s.accuracySignal(summary))
	}
	summary.Signals = append(summary.Signals, s.authoritySignal(summary.Authority))
	if summary.Total > 0 {
		summary.Signals = append(summary.Signals, s.searchEffortSignal(summary))
	}

	return summary
}

// completionSignal grades the share of claims that reached a verdict
func (s *Scorer) completionSignal(summary Summary) Signal {
	if summary.Total == 0 {
		return Signal{
			Type:        SignalCompletion,
			Severity:    SeverityWarning,
			Description: "No claims processed",
			Data:        map[string]interface{}{"total": 0},
		}
	}

	severity := SeverityInfo
	if summary.SuccessRate < 0.5 {
		severity = SeverityCritical
	} else if summary.SuccessRate < 0.9 {
		severity = SeverityWarning
	}

	return Signal{
		Type:        SignalCompletion,
		Severity:    severity,
		Description: fmt.Sprintf("Verified %d/%d claims (%.0f%%)", summary.Completed, summary.Total, summary.SuccessRate*100),
		Data: map[string]interface{}{
			"completed": summary.Completed,
			"failed":    summary.Failed,
			"total":     summary.Total,
			"ratio":     summary.SuccessRate,
		},
	}
}

// accuracySignal grades agreement with dataset labels
func (s *Scorer) accuracySignal(summary Summary) Signal {
	severity := SeverityInfo
	if summary.Accuracy < 0.5 {
		severity = SeverityCritical
	} else if summary.Accuracy < 0.7 {
		severity = SeverityWarning
	}

	return Signal{
		Type:        SignalAccuracy,
		Severity:    severity,
		Description: fmt.Sprintf("Accuracy: %d/%d labeled claims (%.1f%%)", summary.Correct, summary.Labeled, summary.Accuracy*100),
		Data: map[string]interface{}{
			"correct":  summary.Correct,
			"labeled":  summary.Labeled,
			"accuracy": summary.Accuracy,
			"formula":  "correct / labeled",
		},
	}
}

// authoritySignal describes the tier mix of cited sources
func (s *Scorer) authoritySignal(counts AuthorityCounts) Signal {
	total := counts.Total()
	if total == 0 {
		return Signal{
			Type:        SignalAuthorityDistribution,
			Severity:    SeverityWarning,
			Description: "No cited sources",
			Data:        map[string]interface{}{"total": 0},
		}
	}

	weightedSum := float64(counts.Primary*3 + counts.Secondary*2 + counts.Tertiary*1)
	weight := weightedSum / float64(total*3)

	severity := SeverityInfo
	if counts.Primary == 0 {
		severity = SeverityWarning
	}

	return Signal{
		Type:        SignalAuthorityDistribution,
		Severity:    severity,
		Description: fmt.Sprintf("Authority distribution: %d primary, %d secondary, %d tertiary", counts.Primary, counts.Secondary, counts.Tertiary),
		Data: map[string]interface{}{
			"primary":   counts.Primary,
			"secondary": counts.Secondary,
			"tertiary":  counts.Tertiary,
			"total":     total,
			"weight":    weight,
			"formula":   "(primary*3 + secondary*2 + tertiary*1) / (total*3)",
		},
	}
}

// searchEffortSignal reports how many searches claims needed on average
func (s *Scorer) searchEffortSignal(summary Summary) Signal {
	severity := SeverityInfo
	if summary.Searches == 0 {
		severity = SeverityWarning
	}

	return Signal{
		Type:        SignalSearchEffort,
		Severity:    severity,
		Description: fmt.Sprintf("Searches: %d total, %.2f per claim", summary.Searches, summary.AvgSearches),
		Data: map[string]interface{}{
			"searches":      summary.Searches,
			"avg_searches":  summary.AvgSearches,
			"input_tokens":  summary.Usage.InputTokens,
			"output_tokens": summary.Usage.OutputTokens,
		},
	}
}
