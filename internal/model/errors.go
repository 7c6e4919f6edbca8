package model

import "github.com/rotisserie/eris"

// Pipeline failure conditions. Only ErrInvalidClaim is surfaced to callers;
// the rest are absorbed into the Verdict's label, confidence, and explanation.
var (
	// ErrInvalidClaim rejects empty or over-long claim text before any work starts
	ErrInvalidClaim = eris.New("invalid claim")

	// ErrEvidenceUnavailable means every configured source failed or returned
	// nothing that passed the relevance gate
	ErrEvidenceUnavailable = eris.New("evidence unavailable")

	// ErrModelUnavailable means a model capability failed to respond;
	// callers down-weight that model's contribution instead of aborting
	ErrModelUnavailable = eris.New("model unavailable")
)
