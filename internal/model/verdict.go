package model

import "time"

// VerdictLabel is the final disposition of a verified claim
type VerdictLabel string

const (
	VerdictTrue          VerdictLabel = "true"           // Entailment-dominant consensus
	VerdictFalse         VerdictLabel = "false"          // Contradiction-dominant consensus
	VerdictNeutral       VerdictLabel = "neutral"        // Neutral-dominant or no usable evidence
	VerdictLowConfidence VerdictLabel = "low_confidence" // Confidence below threshold, or a True/False tie
	VerdictError         VerdictLabel = "error"          // Zero-evidence outcome when configured as an error
)

// EvidenceJudgment pairs an evidence item with the model judgments that scored it.
// Every judgment in a Verdict carries at least one InferenceResult.
type EvidenceJudgment struct {
	Evidence     EvidenceItem      `json:"evidence"`
	Results      []InferenceResult `json:"results"`      // One per configured model
	Label        NLILabel          `json:"label"`        // Per-item consensus label
	Score        float64           `json:"score"`        // Averaged winning-label probability
	Contribution float64           `json:"contribution"` // Weighted share of the final vote
}

// Verdict is the terminal output of one pipeline invocation, never mutated
// after construction.
type Verdict struct {
	Claim        string             `json:"claim"`
	Label        VerdictLabel       `json:"label"`
	Confidence   float64            `json:"confidence"`         // Normalized winning-label share in [0,1]
	Evidence     []EvidenceJudgment `json:"evidence,omitempty"` // Descending contribution order
	Explanation  string             `json:"explanation"`
	InvocationID string             `json:"invocation_id,omitempty"`
	ElapsedMS    int64              `json:"elapsed_ms,omitempty"`
	Cached       bool               `json:"cached,omitempty"` // Served from the verdict cache
	CreatedAt    time.Time          `json:"created_at"`
}
