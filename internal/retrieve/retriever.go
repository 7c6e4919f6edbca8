package retrieve

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/credibility"
	"github.com/truthcheck/truthcheck/internal/metrics"
	"github.com/truthcheck/truthcheck/internal/model"
	"github.com/truthcheck/truthcheck/internal/provider"
	"github.com/truthcheck/truthcheck/internal/source"
)

const defaultTriggerBelow = 3

// Retriever turns a keyword query into scored, filtered evidence. Sources
// run concurrently and individually failing sources are tolerated; the
// retriever only errors when nothing usable survives.
type Retriever struct {
	primary    []source.Source
	fallback   source.Source
	classifier *credibility.Classifier
	registry   *provider.Registry
	embedRef   config.ModelRef
	cfg        config.RetrievalConfig
}

// NewRetriever wires the retrieval stage. fallback may be nil; registry may
// be nil to force lexical similarity scoring.
func NewRetriever(primary []source.Source, fallback source.Source, classifier *credibility.Classifier, registry *provider.Registry, embedRef config.ModelRef, cfg config.RetrievalConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.CredibilityShare <= 0 && cfg.SimilarityShare <= 0 {
		cfg.CredibilityShare = 0.6
		cfg.SimilarityShare = 0.4
	}
	if classifier == nil {
		classifier = credibility.NewClassifier(nil)
	}

	return &Retriever{
		primary:    primary,
		fallback:   fallback,
		classifier: classifier,
		registry:   registry,
		embedRef:   embedRef,
		cfg:        cfg,
	}
}

// Retrieve searches all enabled sources for the query, weights the results
// by domain credibility and semantic closeness to the claim, and returns the
// top items. It returns ErrEvidenceUnavailable when every source failed or
// nothing passed the relevance gate.
func (r *Retriever) Retrieve(ctx context.Context, claim model.Claim, query model.Query) ([]model.EvidenceItem, error) {
	candidates := r.searchAll(ctx, query)
	if len(candidates) == 0 {
		return nil, eris.Wrap(model.ErrEvidenceUnavailable, "retrieve: all sources failed or returned nothing")
	}

	items := dedupeByURL(candidates)
	r.scoreSimilarity(ctx, claim.Text, items)

	kept := items[:0]
	for _, item := range items {
		if item.SemanticScore >= r.cfg.MinSimilarity {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return nil, eris.Wrapf(model.ErrEvidenceUnavailable,
			"retrieve: no evidence passed the relevance gate (%d candidates below %.2f)",
			len(items), r.cfg.MinSimilarity)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		si := kept[i].CompositeScore(r.cfg.CredibilityShare, r.cfg.SimilarityShare)
		sj := kept[j].CompositeScore(r.cfg.CredibilityShare, r.cfg.SimilarityShare)
		if si != sj {
			return si > sj
		}
		if kept[i].CredibilityWeight != kept[j].CredibilityWeight {
			return kept[i].CredibilityWeight > kept[j].CredibilityWeight
		}
		return kept[i].SourceURL < kept[j].SourceURL
	})

	if len(kept) > r.cfg.TopK {
		kept = kept[:r.cfg.TopK]
	}

	zap.L().Debug("evidence retrieved",
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(kept)))

	return kept, nil
}

// searchAll fans out to the primary sources concurrently and flattens the
// hits in source priority order. The fallback source only runs when the
// primaries together came up short.
func (r *Retriever) searchAll(ctx context.Context, query model.Query) []model.EvidenceItem {
	perSource := make([][]source.Result, len(r.primary))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range r.primary {
		i, src := i, src
		g.Go(func() error {
			results, err := src.Search(gctx, query)
			if err != nil {
				metrics.SourceFailures.WithLabelValues(src.Name()).Inc()
				zap.L().Warn("source search failed",
					zap.String("source", src.Name()), zap.Error(err))
				return nil
			}
			perSource[i] = results
			return nil
		})
	}
	// Goroutines never return errors; Wait only joins them.
	_ = g.Wait()

	var items []model.EvidenceItem
	for i, src := range r.primary {
		items = append(items, r.toEvidence(src.Name(), perSource[i])...)
	}

	if r.fallback != nil && len(items) < r.fallbackTrigger() {
		results, err := r.fallback.Search(ctx, query)
		if err != nil {
			metrics.SourceFailures.WithLabelValues(r.fallback.Name()).Inc()
			zap.L().Warn("fallback source search failed",
				zap.String("source", r.fallback.Name()), zap.Error(err))
		} else {
			items = append(items, r.toEvidence(r.fallback.Name(), results)...)
		}
	}

	return items
}

// fallbackTrigger reads the fallback source's own threshold when it exposes one
func (r *Retriever) fallbackTrigger() int {
	if t, ok := r.fallback.(interface{ TriggerBelow() int }); ok && t.TriggerBelow() > 0 {
		return t.TriggerBelow()
	}
	return defaultTriggerBelow
}

// toEvidence converts raw hits into evidence items with credibility assigned.
// Hits missing a URL or snippet carry nothing to score and are dropped.
func (r *Retriever) toEvidence(sourceName string, results []source.Result) []model.EvidenceItem {
	items := make([]model.EvidenceItem, 0, len(results))
	for _, res := range results {
		if res.URL == "" || strings.TrimSpace(res.Snippet) == "" {
			continue
		}
		items = append(items, model.EvidenceItem{
			SourceURL:         res.URL,
			SourceDomain:      domainOf(res.URL),
			SourceName:        sourceName,
			Title:             res.Title,
			Snippet:           res.Snippet,
			CredibilityWeight: r.classifier.Weight(res.URL),
		})
	}
	return items
}

// scoreSimilarity fills each item's SemanticScore from embeddings, degrading
// to lexical containment when the embedding capability is unavailable. The
// relevance gate applies either way.
func (r *Retriever) scoreSimilarity(ctx context.Context, claimText string, items []model.EvidenceItem) {
	err := r.embedScores(ctx, claimText, items)
	if err == nil {
		return
	}
	zap.L().Warn("embedding unavailable, scoring similarity lexically", zap.Error(err))

	for i := range items {
		items[i].SemanticScore = LexicalSimilarity(claimText, items[i].Snippet)
	}
}

// embedScores embeds the claim and every snippet in one batch and assigns
// cosine similarities.
func (r *Retriever) embedScores(ctx context.Context, claimText string, items []model.EvidenceItem) error {
	if r.registry == nil || r.embedRef.Provider == "" {
		return eris.Wrap(model.ErrModelUnavailable, "retrieve: no embedding model configured")
	}
	p, err := r.registry.Get(r.embedRef.Provider)
	if err != nil {
		return err
	}

	texts := make([]string, 0, len(items)+1)
	texts = append(texts, claimText)
	for _, item := range items {
		texts = append(texts, item.Snippet)
	}

	vectors, err := p.Embed(ctx, provider.EmbedRequest{Model: r.embedRef.Model, Texts: texts})
	if err != nil {
		return eris.Wrap(err, "retrieve: embed claim and snippets")
	}
	if len(vectors) != len(texts) {
		return eris.Errorf("retrieve: got %d embeddings for %d texts", len(vectors), len(texts))
	}

	claimVec := vectors[0]
	for i := range items {
		items[i].SemanticScore = CosineSimilarity(claimVec, vectors[i+1])
	}
	return nil
}

// dedupeByURL keeps the first occurrence of each URL. Input arrives in
// source priority order, so higher-priority sources win duplicates.
func dedupeByURL(items []model.EvidenceItem) []model.EvidenceItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if seen[item.SourceURL] {
			continue
		}
		seen[item.SourceURL] = true
		out = append(out, item)
	}
	return out
}

// domainOf extracts the lowercased host from a URL, "" when unparseable
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
