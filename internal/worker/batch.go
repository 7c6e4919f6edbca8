package worker

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/truthcheck/truthcheck/internal/model"
)

// Verifier is the claim verification entry point batch runs fan out to
type Verifier interface {
	Verify(ctx context.Context, claimText string) (*model.Verdict, error)
}

// VerifyJob represents a single claim verification job
type VerifyJob struct {
	Claim    string
	Verifier Verifier
}

// Execute runs the verification job
func (j *VerifyJob) Execute(ctx context.Context) Result {
	verdict, err := j.Verifier.Verify(ctx, j.Claim)
	if err != nil {
		return &VerifyResult{
			Claim:   j.Claim,
			Verdict: nil,
			Error:   err,
		}
	}
	return &VerifyResult{
		Claim:   j.Claim,
		Verdict: verdict,
		Error:   nil,
	}
}

// VerifyResult represents the result of a claim verification job
type VerifyResult struct {
	Claim   string
	Verdict *model.Verdict
	Error   error
}

// GetError returns the error from the verification result
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies multiple claims concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(verifier Verifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// ProcessClaims verifies multiple claims concurrently. Results arrive in
// completion order, not input order.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*VerifyResult {
	if len(claims) == 0 {
		return []*VerifyResult{}
	}

	// Create worker pool
	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Submit jobs
	for _, claim := range claims {
		job := &VerifyJob{
			Claim:    claim,
			Verifier: b.verifier,
		}
		pool.Submit(job)
	}

	// Wait for all jobs to complete
	results := pool.Wait()

	// Convert to VerifyResults
	verifyResults := make([]*VerifyResult, len(results))
	for i, result := range results {
		verifyResults[i] = result.(*VerifyResult)
	}

	return verifyResults
}

// ProcessFile reads claims from a file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*VerifyResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "read claims")
	}

	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file (one per line)
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "open file")
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate claims
		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "scan file")
	}

	return claims, nil
}
