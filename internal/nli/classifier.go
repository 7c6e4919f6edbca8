package nli

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/metrics"
	"github.com/truthcheck/truthcheck/internal/model"
	"github.com/truthcheck/truthcheck/internal/provider"
)

const defaultWorkers = 4

// Classifier runs the configured inference ensemble over evidence items.
// Each claim/evidence pair is judged by every model independently; a model
// that fails contributes a neutral fallback instead of sinking the pair.
type Classifier struct {
	registry *provider.Registry
	refs     []config.ModelRef
	workers  int
}

// NewClassifier wires the ensemble. refs come from config's models.nli list;
// workers bounds how many evidence items are judged at once.
func NewClassifier(registry *provider.Registry, refs []config.ModelRef, workers int) *Classifier {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Classifier{
		registry: registry,
		refs:     refs,
		workers:  workers,
	}
}

// Classify judges one claim/evidence pair with every configured model. The
// snippet is the premise, the claim the hypothesis. Results come back in
// configuration order.
func (c *Classifier) Classify(ctx context.Context, claim model.Claim, item model.EvidenceItem) []model.InferenceResult {
	if len(c.refs) == 0 {
		return []model.InferenceResult{model.NeutralFallback("unconfigured")}
	}

	results := make([]model.InferenceResult, len(c.refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range c.refs {
		i, ref := i, ref
		g.Go(func() error {
			results[i] = c.classifyOne(gctx, ref, claim, item)
			return nil
		})
	}
	// Model failures degrade in classifyOne; Wait only joins.
	_ = g.Wait()

	return results
}

// ClassifyAll judges every evidence item, at most workers items in flight,
// and pairs each with its ensemble results in input order.
func (c *Classifier) ClassifyAll(ctx context.Context, claim model.Claim, items []model.EvidenceItem) []model.EvidenceJudgment {
	judgments := make([]model.EvidenceJudgment, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			judgments[i] = model.EvidenceJudgment{
				Evidence: item,
				Results:  c.Classify(gctx, claim, item),
			}
			return nil
		})
	}
	_ = g.Wait()

	return judgments
}

func (c *Classifier) classifyOne(ctx context.Context, ref config.ModelRef, claim model.Claim, item model.EvidenceItem) model.InferenceResult {
	p, err := c.registry.Get(ref.Provider)
	if err != nil {
		metrics.ModelFailures.WithLabelValues(ref.ID()).Inc()
		zap.L().Warn("nli provider missing, degrading to neutral",
			zap.String("model", ref.ID()), zap.Error(err))
		return model.NeutralFallback(ref.ID())
	}

	dist, err := p.ClassifyNLI(ctx, provider.NLIRequest{
		Model:      ref.Model,
		Premise:    item.Snippet,
		Hypothesis: claim.Text,
	})
	if err != nil {
		metrics.ModelFailures.WithLabelValues(ref.ID()).Inc()
		zap.L().Warn("nli model failed, degrading to neutral",
			zap.String("model", ref.ID()),
			zap.String("url", item.SourceURL),
			zap.Error(err))
		return model.NeutralFallback(ref.ID())
	}

	dist = dist.Normalized()
	return model.InferenceResult{
		ModelID:       ref.ID(),
		Label:         dist.ArgMax(),
		Probabilities: dist,
	}
}
