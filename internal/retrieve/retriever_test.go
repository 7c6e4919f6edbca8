package retrieve

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/credibility"
	"github.com/truthcheck/truthcheck/internal/model"
	"github.com/truthcheck/truthcheck/internal/provider"
	"github.com/truthcheck/truthcheck/internal/source"
)

type stubSource struct {
	name     string
	priority int
	results  []source.Result
	err      error
	calls    int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Priority() int { return s.priority }

func (s *stubSource) Search(ctx context.Context, query model.Query) ([]source.Result, error) {
	s.calls++
	return s.results, s.err
}

type stubFallback struct {
	stubSource
	trigger int
}

func (s *stubFallback) TriggerBelow() int { return s.trigger }

// stubEmbedder serves canned vectors keyed by input text. Unknown texts get
// a zero vector, which cosine-scores 0.
type stubEmbedder struct {
	vectors   map[string][]float32
	err       error
	lastTexts []string
}

func (s *stubEmbedder) Name() string { return "stub" }

func (s *stubEmbedder) IsAvailable(ctx context.Context) bool { return true }

func (s *stubEmbedder) Embed(ctx context.Context, req provider.EmbedRequest) ([][]float32, error) {
	s.lastTexts = req.Texts
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(req.Texts))
	for i, text := range req.Texts {
		v, ok := s.vectors[text]
		if !ok {
			v = []float32{0, 0}
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) ClassifyNLI(ctx context.Context, req provider.NLIRequest) (model.Distribution, error) {
	return nil, provider.ErrUnsupported
}

func (s *stubEmbedder) ExtractKeywords(ctx context.Context, req provider.KeywordsRequest) ([]string, error) {
	return nil, provider.ErrUnsupported
}

func registryWith(p provider.Provider) *provider.Registry {
	reg := provider.NewRegistry()
	reg.Register(p)
	return reg
}

func testCfg() config.RetrievalConfig {
	return config.RetrievalConfig{
		MinSimilarity:    0.30,
		TopK:             5,
		CredibilityShare: 0.6,
		SimilarityShare:  0.4,
	}
}

func TestRetrieveRanksByCompositeScore(t *testing.T) {
	claim := model.Claim{Text: "Water boils at 100 degrees Celsius at sea level."}

	wiki := &stubSource{name: "wikipedia", priority: 1, results: []source.Result{
		{URL: "https://en.wikipedia.org/wiki/Boiling_point", Title: "Boiling point", Snippet: "boiling snippet"},
	}}
	web := &stubSource{name: "duckduckgo", priority: 2, results: []source.Result{
		{URL: "https://example.com/water", Title: "Water facts", Snippet: "water snippet"},
		{URL: "https://example.com/fox", Title: "Foxes", Snippet: "fox snippet"},
	}}

	// Cosines against the claim vector: boiling 1.0, water 0.6, fox 0.0 (gated).
	embedder := &stubEmbedder{vectors: map[string][]float32{
		claim.Text:        {1, 0},
		"boiling snippet": {1, 0},
		"water snippet":   {0.6, 0.8},
		"fox snippet":     {0, 1},
	}}

	r := NewRetriever([]source.Source{wiki, web}, nil, credibility.NewClassifier(nil),
		registryWith(embedder), config.ModelRef{Provider: "stub", Model: "mini"}, testCfg())

	items, err := r.Retrieve(context.Background(), claim, model.Query{Terms: []string{"water", "boils"}})
	require.NoError(t, err)
	require.Len(t, items, 2)

	// wikipedia.org: 0.6*0.95 + 0.4*1.0 = 0.97 beats example.com: 0.6*0.60 + 0.4*0.6 = 0.60
	assert.Equal(t, "https://en.wikipedia.org/wiki/Boiling_point", items[0].SourceURL)
	assert.Equal(t, "en.wikipedia.org", items[0].SourceDomain)
	assert.Equal(t, "wikipedia", items[0].SourceName)
	assert.InDelta(t, 0.95, items[0].CredibilityWeight, 1e-9)
	assert.InDelta(t, 1.0, items[0].SemanticScore, 1e-6)

	assert.Equal(t, "https://example.com/water", items[1].SourceURL)
	assert.InDelta(t, 0.6, items[1].SemanticScore, 1e-6)

	// One batched embed call: claim first, snippets after.
	require.Len(t, embedder.lastTexts, 4)
	assert.Equal(t, claim.Text, embedder.lastTexts[0])
}

func TestRetrieveDedupesByURL(t *testing.T) {
	dup := source.Result{URL: "https://example.com/shared", Title: "Shared", Snippet: "shared snippet"}
	first := &stubSource{name: "wikipedia", priority: 1, results: []source.Result{dup}}
	second := &stubSource{name: "duckduckgo", priority: 2, results: []source.Result{dup}}

	r := NewRetriever([]source.Source{first, second}, nil, nil, nil, config.ModelRef{}, testCfg())

	claim := model.Claim{Text: "shared snippet"}
	items, err := r.Retrieve(context.Background(), claim, model.Query{Terms: []string{"shared"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "wikipedia", items[0].SourceName, "higher-priority source wins duplicates")
}

func TestRetrieveCapsAtTopK(t *testing.T) {
	claimText := "water boils hot"
	var results []source.Result
	for _, letter := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		results = append(results, source.Result{
			URL:     fmt.Sprintf("https://example.com/%s", letter),
			Snippet: claimText,
		})
	}
	src := &stubSource{name: "duckduckgo", priority: 1, results: results}

	cfg := testCfg()
	cfg.TopK = 0 // exercises the default
	r := NewRetriever([]source.Source{src}, nil, nil, nil, config.ModelRef{}, cfg)

	items, err := r.Retrieve(context.Background(), model.Claim{Text: claimText}, model.Query{Terms: []string{"water"}})
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "https://example.com/a", items[0].SourceURL)
	assert.Equal(t, "https://example.com/e", items[4].SourceURL)
}

func TestRetrieveToleratesSourceFailure(t *testing.T) {
	broken := &stubSource{name: "wikipedia", priority: 1, err: eris.New("search timeout")}
	working := &stubSource{name: "duckduckgo", priority: 2, results: []source.Result{
		{URL: "https://example.com/water", Snippet: "water boils hot"},
	}}

	r := NewRetriever([]source.Source{broken, working}, nil, nil, nil, config.ModelRef{}, testCfg())

	items, err := r.Retrieve(context.Background(), model.Claim{Text: "water boils hot"}, model.Query{Terms: []string{"water"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "duckduckgo", items[0].SourceName)
}

func TestRetrieveAllSourcesFailed(t *testing.T) {
	a := &stubSource{name: "wikipedia", priority: 1, err: eris.New("down")}
	b := &stubSource{name: "duckduckgo", priority: 2, err: eris.New("down")}

	r := NewRetriever([]source.Source{a, b}, nil, nil, nil, config.ModelRef{}, testCfg())

	_, err := r.Retrieve(context.Background(), model.Claim{Text: "anything"}, model.Query{Terms: []string{"anything"}})
	assert.ErrorIs(t, err, model.ErrEvidenceUnavailable)
}

func TestRetrieveNothingPassesGate(t *testing.T) {
	src := &stubSource{name: "duckduckgo", priority: 1, results: []source.Result{
		{URL: "https://example.com/fox", Snippet: "the quick brown fox"},
	}}

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"water boils hot":     {1, 0},
		"the quick brown fox": {0, 1},
	}}

	r := NewRetriever([]source.Source{src}, nil, nil,
		registryWith(embedder), config.ModelRef{Provider: "stub", Model: "mini"}, testCfg())

	_, err := r.Retrieve(context.Background(), model.Claim{Text: "water boils hot"}, model.Query{Terms: []string{"water"}})
	assert.ErrorIs(t, err, model.ErrEvidenceUnavailable)
}

func TestRetrieveLexicalFallbackWhenEmbeddingFails(t *testing.T) {
	src := &stubSource{name: "duckduckgo", priority: 1, results: []source.Result{
		{URL: "https://example.com/water", Snippet: "Pure water boils when heated enough."},
		{URL: "https://example.com/fox", Snippet: "The quick brown fox jumps over the dog."},
	}}

	embedder := &stubEmbedder{err: eris.New("model loading")}

	r := NewRetriever([]source.Source{src}, nil, nil,
		registryWith(embedder), config.ModelRef{Provider: "stub", Model: "mini"}, testCfg())

	claim := model.Claim{Text: "Water boils at 100 degrees Celsius"}
	items, err := r.Retrieve(context.Background(), claim, model.Query{Terms: []string{"water", "boils"}})
	require.NoError(t, err)

	// Containment keeps the water snippet (2 of 5 claim terms) and gates the fox one (0 of 5).
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/water", items[0].SourceURL)
	assert.InDelta(t, 0.4, items[0].SemanticScore, 1e-9)
}

func TestRetrieveFallbackSourceTriggers(t *testing.T) {
	primary := &stubSource{name: "wikipedia", priority: 1, results: []source.Result{
		{URL: "https://en.wikipedia.org/wiki/Water", Snippet: "water boils hot"},
	}}
	fallback := &stubFallback{
		stubSource: stubSource{name: "google", priority: 3, results: []source.Result{
			{URL: "https://example.com/water", Snippet: "water boils hot"},
		}},
		trigger: 3,
	}

	r := NewRetriever([]source.Source{primary}, fallback, nil, nil, config.ModelRef{}, testCfg())

	items, err := r.Retrieve(context.Background(), model.Claim{Text: "water boils hot"}, model.Query{Terms: []string{"water"}})
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
	require.Len(t, items, 2)
}

func TestRetrieveFallbackSourceSkippedWhenEnough(t *testing.T) {
	var results []source.Result
	for _, letter := range []string{"a", "b", "c"} {
		results = append(results, source.Result{
			URL:     fmt.Sprintf("https://example.com/%s", letter),
			Snippet: "water boils hot",
		})
	}
	primary := &stubSource{name: "wikipedia", priority: 1, results: results}
	fallback := &stubFallback{
		stubSource: stubSource{name: "google", priority: 3},
		trigger:    3,
	}

	r := NewRetriever([]source.Source{primary}, fallback, nil, nil, config.ModelRef{}, testCfg())

	_, err := r.Retrieve(context.Background(), model.Claim{Text: "water boils hot"}, model.Query{Terms: []string{"water"}})
	require.NoError(t, err)
	assert.Equal(t, 0, fallback.calls)
}

func TestRetrieveSkipsSnippetlessHits(t *testing.T) {
	src := &stubSource{name: "duckduckgo", priority: 1, results: []source.Result{
		{URL: "https://example.com/empty", Snippet: "   "},
		{URL: "", Snippet: "orphaned text"},
		{URL: "https://example.com/water", Snippet: "water boils hot"},
	}}

	r := NewRetriever([]source.Source{src}, nil, nil, nil, config.ModelRef{}, testCfg())

	items, err := r.Retrieve(context.Background(), model.Claim{Text: "water boils hot"}, model.Query{Terms: []string{"water"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/water", items[0].SourceURL)
}
