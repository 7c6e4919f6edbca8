package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/cache"
	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/consensus"
	"github.com/truthcheck/truthcheck/internal/credibility"
	"github.com/truthcheck/truthcheck/internal/enrich"
	"github.com/truthcheck/truthcheck/internal/keywords"
	"github.com/truthcheck/truthcheck/internal/metrics"
	"github.com/truthcheck/truthcheck/internal/model"
	"github.com/truthcheck/truthcheck/internal/nli"
	"github.com/truthcheck/truthcheck/internal/provider"
	"github.com/truthcheck/truthcheck/internal/retrieve"
	"github.com/truthcheck/truthcheck/internal/source"
	"github.com/truthcheck/truthcheck/internal/util"
	"github.com/truthcheck/truthcheck/internal/worker"
)

// Pipeline orchestrates the complete verification flow for one claim, from
// keyword extraction through the consensus verdict. It is constructed once
// and safe for concurrent use.
type Pipeline struct {
	extractor  *keywords.Extractor
	retriever  *retrieve.Retriever
	enricher   *enrich.Enricher
	classifier *nli.Classifier
	engine     *consensus.Engine
	cache      *cache.VerdictCache
	config     *config.Config
}

// NewPipeline creates a pipeline with the given configuration. Providers
// are constructed here, once, and shared by every invocation.
func NewPipeline(cfg *config.Config) *Pipeline {
	registry := buildRegistry(cfg)

	primary, fallback := source.Build(cfg.Sources, cfg.HTTP.UserAgent)
	classifier := credibility.NewClassifier(&cfg.Credibility)

	fetcher := enrich.NewFetcher(cfg.HTTP, cfg.Enrich.MaxBodyBytes)
	robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	return &Pipeline{
		extractor:  keywords.NewExtractor(registry, cfg.Models.Keywords, cfg.Retrieval.MaxKeywords),
		retriever:  retrieve.NewRetriever(primary, fallback, classifier, registry, cfg.Models.Embedding, cfg.Retrieval),
		enricher:   enrich.NewEnricher(fetcher, robots, limiter, cfg.Enrich, cfg.Concurrency.EnrichWorkers),
		classifier: nli.NewClassifier(registry, cfg.Models.NLI, cfg.Concurrency.Workers),
		engine:     consensus.NewEngine(cfg.Consensus),
		cache:      cache.NewVerdictCache(cfg.Cache),
		config:     cfg,
	}
}

// buildRegistry constructs every configured provider. One that fails to
// construct is skipped with a warning; capabilities bound to it degrade at
// call time instead.
func buildRegistry(cfg *config.Config) *provider.Registry {
	registry := provider.NewRegistry()
	for name, pc := range cfg.Models.Providers {
		p, err := provider.New(name, provider.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			Timeout:    pc.Timeout,
			HTTPProxy:  cfg.HTTP.HTTPProxy,
			HTTPSProxy: cfg.HTTP.HTTPSProxy,
			NoProxy:    cfg.HTTP.NoProxy,
		})
		if err != nil {
			zap.L().Warn("skipping provider", zap.String("provider", name), zap.Error(err))
			continue
		}
		registry.Register(p)
	}
	return registry
}

// Verify runs one claim through the full flow and returns its verdict. The
// only error it ever returns is ErrInvalidClaim; every downstream failure
// is absorbed into the verdict's label, confidence, and explanation.
func (p *Pipeline) Verify(ctx context.Context, claimText string) (*model.Verdict, error) {
	claim, err := model.NewClaim(claimText, p.config.Claims.MaxLength)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	invocationID := uuid.NewString()
	log := zap.L().With(zap.String("invocation_id", invocationID))

	// 1. A cached verdict short-circuits the whole flow
	if cached, ok := p.cache.Get(claim.Text); ok {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		metrics.VerificationsTotal.WithLabelValues(string(cached.Label)).Inc()
		cached.Cached = true
		cached.InvocationID = invocationID
		log.Debug("verdict served from cache", zap.String("label", string(cached.Label)))
		return cached, nil
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()

	// 2. Derive the search query
	stage := time.Now()
	query := p.extractor.Extract(ctx, claim)
	observeStage("keywords", stage)
	log.Debug("query derived", zap.Strings("terms", query.Terms))

	// 3. Retrieve and rank evidence; coming up dry is a verdict, not an error
	stage = time.Now()
	items, err := p.retriever.Retrieve(ctx, claim, query)
	observeStage("retrieve", stage)
	if err != nil {
		log.Warn("no usable evidence", zap.Error(err))
		items = nil
	}

	// 4. Enrich thin snippets from their source pages (no-op when disabled)
	stage = time.Now()
	items = p.enricher.Enrich(ctx, query, items)
	observeStage("enrich", stage)
	metrics.EvidenceRetrieved.Observe(float64(len(items)))

	// 5. Judge every claim/evidence pair with the model ensemble
	stage = time.Now()
	judgments := p.classifier.ClassifyAll(ctx, claim, items)
	observeStage("nli", stage)

	// 6. Aggregate the weighted votes into the verdict
	stage = time.Now()
	verdict := p.engine.Aggregate(claim, judgments)
	observeStage("consensus", stage)

	verdict.InvocationID = invocationID
	verdict.ElapsedMS = time.Since(start).Milliseconds()
	metrics.VerificationsTotal.WithLabelValues(string(verdict.Label)).Inc()

	if err := p.cache.Set(claim.Text, verdict); err != nil {
		log.Debug("verdict not cached", zap.Error(err))
	}

	log.Info("verification complete",
		zap.String("label", string(verdict.Label)),
		zap.Float64("confidence", verdict.Confidence),
		zap.Int("evidence", len(verdict.Evidence)),
		zap.Int64("elapsed_ms", verdict.ElapsedMS))

	return verdict, nil
}

func observeStage(stage string, started time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}
