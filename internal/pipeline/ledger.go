package pipeline

import (
	"github.com/ppiankov/firecheck/internal/extract"
	"github.com/ppiankov/firecheck/internal/model"
)

// Ledger accumulates the evidence and token usage of one run. It is
// append-only and owned by a single run, so it is not synchronized.
type Ledger struct {
	batches []model.SearchBatch
	usage   model.Usage
	calls   int
}

// AddBatch appends a search batch
func (l *Ledger) AddBatch(batch model.SearchBatch) {
	l.batches = append(l.batches, batch)
}

// AddCall records one LLM call and its usage
func (l *Ledger) AddCall(usage model.Usage) {
	l.calls++
	l.usage = l.usage.Add(usage)
}

// Len returns the number of search batches
func (l *Ledger) Len() int {
	return len(l.batches)
}

// Batches returns a copy of the batches in order
func (l *Ledger) Batches() []model.SearchBatch {
	out := make([]model.SearchBatch, len(l.batches))
	copy(out, l.batches)
	return out
}

// Sources returns the distinct cited URLs across all batches in first-seen order
func (l *Ledger) Sources() []string {
	return extract.BatchSources(l.batches)
}

// Calls returns the number of LLM calls made
func (l *Ledger) Calls() int {
	return l.calls
}

// Usage returns the cumulative token usage
func (l *Ledger) Usage() model.Usage {
	return l.usage
}
