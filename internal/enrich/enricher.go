package enrich

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
	"github.com/truthcheck/truthcheck/internal/util"
	"github.com/truthcheck/truthcheck/internal/worker"
)

// Enricher replaces thin snippets on top-ranked evidence with a passage
// pulled from the source page. It is polite about it: robots.txt is honored,
// fetches are rate-limited per domain, and any failure leaves the original
// snippet in place.
type Enricher struct {
	fetcher    *Fetcher
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cfg        config.EnrichConfig
	maxWorkers int
}

// NewEnricher wires the enrichment stage. robots and limiter may be nil to
// disable those checks (tests mostly).
func NewEnricher(fetcher *Fetcher, robots *util.RobotsChecker, limiter *worker.Limiter, cfg config.EnrichConfig, maxWorkers int) *Enricher {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if cfg.MinSnippetChars <= 0 {
		cfg.MinSnippetChars = 160
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 3
	}

	return &Enricher{
		fetcher:    fetcher,
		robots:     robots,
		limiter:    limiter,
		cfg:        cfg,
		maxWorkers: maxWorkers,
	}
}

// Enrich returns a copy of items where short snippets on the highest-ranked
// entries have been replaced with a sentence window from the source page.
// Items keep their order, scores and weights; only snippets change, so an
// item's SemanticScore still describes the original snippet that ranking saw,
// not the expanded text.
func (e *Enricher) Enrich(ctx context.Context, query model.Query, items []model.EvidenceItem) []model.EvidenceItem {
	if !e.cfg.Enabled || len(items) == 0 {
		return items
	}

	out := make([]model.EvidenceItem, len(items))
	copy(out, items)

	var targets []int
	for i := range out {
		if len(targets) >= e.cfg.MaxItems {
			break
		}
		if utf8.RuneCountInString(out[i].Snippet) < e.cfg.MinSnippetChars {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return out
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, e.maxWorkers)

	for _, idx := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			if snippet, ok := e.enrichOne(ctx, query, out[i]); ok {
				out[i].Snippet = snippet
			}
		}(idx)
	}
	wg.Wait()

	return out
}

// enrichOne fetches one evidence page and picks a better snippet from it.
// ok is false whenever the original snippet should be kept.
func (e *Enricher) enrichOne(ctx context.Context, query model.Query, item model.EvidenceItem) (string, bool) {
	crawlDelay, allowed := e.robotsClearance(ctx, item.SourceURL)
	if !allowed {
		zap.L().Debug("enrich skipped by robots.txt", zap.String("url", item.SourceURL))
		return "", false
	}

	if e.limiter != nil {
		if err := e.limiter.WaitWithDelay(ctx, item.SourceURL, crawlDelay); err != nil {
			return "", false
		}
	}

	page, err := e.fetcher.FetchWithRetry(ctx, item.SourceURL)
	if err != nil {
		zap.L().Debug("enrich fetch failed",
			zap.String("url", item.SourceURL), zap.Error(err))
		return "", false
	}

	text, err := VisibleText(page.HTML)
	if err != nil {
		return "", false
	}

	window := BestWindow(SplitSentences(text), query.Terms, e.cfg.MinSnippetChars)
	if window == "" || utf8.RuneCountInString(window) <= utf8.RuneCountInString(item.Snippet) {
		return "", false
	}

	zap.L().Debug("snippet enriched",
		zap.String("url", item.SourceURL),
		zap.Int("chars", utf8.RuneCountInString(window)))

	return window, true
}

// robotsClearance asks robots.txt for permission and crawl delay. A nil
// checker or an unreadable robots.txt allows the fetch.
func (e *Enricher) robotsClearance(ctx context.Context, rawURL string) (crawlDelay time.Duration, allowed bool) {
	if e.robots == nil {
		return 0, true
	}
	allowed, crawlDelay, err := e.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return 0, false
	}
	return crawlDelay, allowed
}
