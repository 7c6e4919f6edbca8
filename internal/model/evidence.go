package model

// NLILabel is the outcome class of one premise/hypothesis inference
type NLILabel string

const (
	LabelEntailment    NLILabel = "entailment"    // Evidence supports the claim
	LabelContradiction NLILabel = "contradiction" // Evidence refutes the claim
	LabelNeutral       NLILabel = "neutral"       // Evidence neither supports nor refutes
)

// Labels lists the three NLI classes in canonical order
func Labels() []NLILabel {
	return []NLILabel{LabelEntailment, LabelContradiction, LabelNeutral}
}

// EvidenceItem is one retrieved passage with its trust and relevance weights.
// Items are immutable and owned by the invocation that created them.
type EvidenceItem struct {
	SourceURL         string  `json:"source_url"`            // Full URL of the passage
	SourceDomain      string  `json:"source_domain"`         // Host the passage came from
	SourceName        string  `json:"source_name,omitempty"` // Which source found it (wikipedia, duckduckgo, ...)
	Title             string  `json:"title,omitempty"`       // Result title, when the source provides one
	Snippet           string  `json:"snippet"`               // The passage text scored against the claim
	CredibilityWeight float64 `json:"credibility_weight"`    // Domain trust in [0,1]
	SemanticScore     float64 `json:"semantic_score"`        // Claim/snippet similarity in [0,1]
}

// CompositeScore blends credibility and semantic relevance for ranking
func (e EvidenceItem) CompositeScore(credibilityShare, similarityShare float64) float64 {
	return e.CredibilityWeight*credibilityShare + e.SemanticScore*similarityShare
}

// Distribution maps NLI labels to probabilities. A well-formed distribution
// sums to 1 within floating tolerance.
type Distribution map[NLILabel]float64

// ArgMax returns the dominant label. A tie that neutral is part of reads as
// neutral, so a no-signal distribution never asserts a direction; an empty
// distribution is neutral.
func (d Distribution) ArgMax() NLILabel {
	best := LabelNeutral
	bestP := -1.0
	for _, label := range Labels() {
		if p := d[label]; p > bestP {
			best = label
			bestP = p
		}
	}
	if bestP <= 0 || d[LabelNeutral] >= bestP {
		return LabelNeutral
	}
	return best
}

// Normalized rescales the distribution to sum to 1, filling missing labels
// with zero. A distribution with no positive mass normalizes to uniform.
func (d Distribution) Normalized() Distribution {
	sum := 0.0
	for _, label := range Labels() {
		if p := d[label]; p > 0 {
			sum += p
		}
	}
	if sum <= 0 {
		return UniformDistribution()
	}

	out := make(Distribution, 3)
	for _, label := range Labels() {
		p := d[label]
		if p < 0 {
			p = 0
		}
		out[label] = p / sum
	}
	return out
}

// UniformDistribution spreads probability evenly across the three labels
func UniformDistribution() Distribution {
	third := 1.0 / 3.0
	return Distribution{
		LabelEntailment:    third,
		LabelContradiction: third,
		LabelNeutral:       third,
	}
}

// InferenceResult is one model's judgment of a single (claim, evidence) pair
type InferenceResult struct {
	ModelID       string       `json:"model_id"`         // provider/model ref that produced this
	Label         NLILabel     `json:"label"`            // Arg-max of Probabilities
	Probabilities Distribution `json:"probabilities"`    // Full label distribution
	Failed        bool         `json:"failed,omitempty"` // True when the model degraded to the neutral fallback
}

// NeutralFallback is the uniform low-confidence result recorded when a model
// invocation fails, bounding the blast radius of a single model's outage.
func NeutralFallback(modelID string) InferenceResult {
	return InferenceResult{
		ModelID:       modelID,
		Label:         LabelNeutral,
		Probabilities: UniformDistribution(),
		Failed:        true,
	}
}
