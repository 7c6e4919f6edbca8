package consensus

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
)

// failedResultWeight discounts the neutral fallback a failed model leaves
// behind, so an outage dilutes the ensemble instead of steering it.
const failedResultWeight = 0.5

const excerptRunes = 140

// Engine turns per-evidence model judgments into a single verdict by
// weighted voting.
type Engine struct {
	cfg config.ConsensusConfig
}

// NewEngine applies defaults for any unset thresholds.
func NewEngine(cfg config.ConsensusConfig) *Engine {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.55
	}
	if cfg.TieEpsilon <= 0 {
		cfg.TieEpsilon = 1e-9
	}
	if cfg.MaxExplanationItems <= 0 {
		cfg.MaxExplanationItems = 3
	}
	return &Engine{cfg: cfg}
}

// Aggregate computes the verdict for a claim from its evidence judgments.
// Each item first gets a consensus label from its model ensemble, then items
// vote on the verdict with credibility × relevance weight. The winning
// label's normalized share is the confidence; weak or tied outcomes become
// Low-Confidence rather than asserting a truth value.
func (e *Engine) Aggregate(claim model.Claim, judgments []model.EvidenceJudgment) *model.Verdict {
	if len(judgments) == 0 {
		return e.zeroEvidenceVerdict(claim)
	}

	js := make([]model.EvidenceJudgment, len(judgments))
	copy(js, judgments)

	for i := range js {
		dist := itemDistribution(js[i].Results, e.cfg.TrustWeights)
		js[i].Label = dist.ArgMax()
		js[i].Score = dist[js[i].Label]
	}

	totals := make(model.Distribution, 3)
	totalWeight := 0.0
	for i := range js {
		w := voteWeight(js[i].Evidence)
		totals[js[i].Label] += w
		totalWeight += w
	}
	if totalWeight <= 0 {
		// Degenerate weights; fall back to one vote per item.
		totals = make(model.Distribution, 3)
		for i := range js {
			totals[js[i].Label]++
		}
		totalWeight = float64(len(js))
		for i := range js {
			js[i].Contribution = 1 / totalWeight
		}
	} else {
		for i := range js {
			js[i].Contribution = voteWeight(js[i].Evidence) / totalWeight
		}
	}

	shares := make(model.Distribution, 3)
	for _, label := range model.Labels() {
		shares[label] = totals[label] / totalWeight
	}

	winner := shares.ArgMax()
	confidence := shares[winner]

	label := verdictFor(winner)
	if label == model.VerdictTrue || label == model.VerdictFalse {
		if math.Abs(shares[model.LabelEntailment]-shares[model.LabelContradiction]) <= e.cfg.TieEpsilon {
			label = model.VerdictLowConfidence
		}
	}
	if confidence < e.cfg.MinConfidence {
		label = model.VerdictLowConfidence
	}

	sort.SliceStable(js, func(i, j int) bool {
		return js[i].Contribution > js[j].Contribution
	})

	zap.L().Debug("consensus computed",
		zap.String("label", string(label)),
		zap.Float64("confidence", confidence),
		zap.Int("items", len(js)))

	return &model.Verdict{
		Claim:       claim.Text,
		Label:       label,
		Confidence:  confidence,
		Evidence:    js,
		Explanation: e.explanation(js),
		CreatedAt:   time.Now(),
	}
}

// itemDistribution averages the ensemble's probabilities for one evidence
// item. Per-model trust weights apply when configured; results from failed
// models count at reduced weight. No usable results yields uniform.
func itemDistribution(results []model.InferenceResult, trust map[string]float64) model.Distribution {
	acc := make(model.Distribution, 3)
	total := 0.0

	for _, res := range results {
		w := 1.0
		if tw, ok := trust[res.ModelID]; ok {
			w = tw
		}
		if res.Failed {
			w *= failedResultWeight
		}
		if w <= 0 {
			continue
		}
		total += w
		for _, label := range model.Labels() {
			acc[label] += res.Probabilities[label] * w
		}
	}

	if total <= 0 {
		return model.UniformDistribution()
	}
	for _, label := range model.Labels() {
		acc[label] /= total
	}
	return acc
}

// voteWeight is how loudly one evidence item speaks in the verdict vote
func voteWeight(item model.EvidenceItem) float64 {
	return item.CredibilityWeight * item.SemanticScore
}

func verdictFor(label model.NLILabel) model.VerdictLabel {
	switch label {
	case model.LabelEntailment:
		return model.VerdictTrue
	case model.LabelContradiction:
		return model.VerdictFalse
	default:
		return model.VerdictNeutral
	}
}

// explanation summarizes the top contributing items, highest weight first.
// judgments must already be sorted by contribution.
func (e *Engine) explanation(judgments []model.EvidenceJudgment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyzed %d sources.", len(judgments))

	n := e.cfg.MaxExplanationItems
	if n > len(judgments) {
		n = len(judgments)
	}
	for i := 0; i < n; i++ {
		j := judgments[i]
		domain := j.Evidence.SourceDomain
		if domain == "" {
			domain = "unknown source"
		}
		fmt.Fprintf(&b, "\n%d. %s judged %s (credibility %.2f, relevance %.2f): %q",
			i+1, domain, j.Label, j.Evidence.CredibilityWeight, j.Evidence.SemanticScore,
			excerpt(j.Evidence.Snippet))
	}

	return b.String()
}

// excerpt trims a snippet to a readable length on a rune boundary
func excerpt(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= excerptRunes {
		return string(runes)
	}
	return string(runes[:excerptRunes]) + "..."
}

func (e *Engine) zeroEvidenceVerdict(claim model.Claim) *model.Verdict {
	label := model.VerdictNeutral
	if strings.EqualFold(e.cfg.ZeroEvidenceLabel, "error") {
		label = model.VerdictError
	}

	return &model.Verdict{
		Claim:       claim.Text,
		Label:       label,
		Confidence:  0.0,
		Explanation: "No usable evidence could be retrieved for this claim.",
		CreatedAt:   time.Now(),
	}
}
