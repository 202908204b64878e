package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/pipeline"
)

// errNotProcessed marks claims that never reached a worker
var errNotProcessed = errors.New("claim was not processed")

// Verifier verifies a single claim
type Verifier interface {
	Verify(ctx context.Context, claim string) pipeline.Result
}

// ClaimJob represents one claim verification job
type ClaimJob struct {
	Index    int
	Claim    model.Claim
	Verifier Verifier
}

// Execute executes the verification job
func (j *ClaimJob) Execute(ctx context.Context) Result {
	return &ClaimResult{
		Index:  j.Index,
		Claim:  j.Claim,
		Result: j.Verifier.Verify(ctx, j.Claim.Text),
	}
}

// ClaimResult represents the result of a claim job
type ClaimResult struct {
	Index  int
	Claim  model.Claim
	Result pipeline.Result
}

// GetError returns the error from the verification run
func (r *ClaimResult) GetError() error {
	return r.Result.Err
}

// BatchOption customizes a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithProgress registers a callback invoked as each claim finishes. Calls
// are made from a single goroutine in completion order.
func WithProgress(fn func(*ClaimResult)) BatchOption {
	return func(b *BatchProcessor) { b.progress = fn }
}

// BatchProcessor verifies multiple claims concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
	progress    func(*ClaimResult)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(verifier Verifier, concurrency int, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessClaims verifies claims concurrently. Results are returned in input
// order; claims left unprocessed after cancellation carry the context error.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []model.Claim) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	defer pool.Shutdown()

	go func() {
		defer pool.Close()
		for i, claim := range claims {
			job := &ClaimJob{Index: i, Claim: claim, Verifier: b.verifier}
			if !pool.Submit(job) {
				return
			}
		}
	}()

	results := make([]*ClaimResult, len(claims))
	for r := range pool.Results() {
		cr := r.(*ClaimResult)
		results[cr.Index] = cr
		if b.progress != nil {
			b.progress(cr)
		}
	}

	for i, r := range results {
		if r != nil {
			continue
		}
		cause := errNotProcessed
		if err := ctx.Err(); err != nil {
			cause = fmt.Errorf("%w: %w", errNotProcessed, err)
		}
		results[i] = &ClaimResult{
			Index: i,
			Claim: claims[i],
			Result: pipeline.Result{
				Claim:  claims[i].Text,
				Status: model.StatusFailed,
				Err:    cause,
			},
		}
	}

	return results
}
