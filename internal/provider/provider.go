package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/truthcheck/truthcheck/internal/model"
)

// ErrUnsupported is returned when a provider cannot serve a capability,
// e.g. asking a chat-only backend for embeddings. Callers treat it like any
// other model failure and fall back.
var ErrUnsupported = eris.New("capability not supported by provider")

// Provider defines the interface for model backends. Implementations are
// constructed once at startup and must be safe for concurrent use.
type Provider interface {
	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured and reachable
	IsAvailable(ctx context.Context) bool

	// Embed returns one embedding vector per input text
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, error)

	// ClassifyNLI scores the hypothesis against the premise and returns a
	// probability distribution over the three NLI labels
	ClassifyNLI(ctx context.Context, req NLIRequest) (model.Distribution, error)

	// ExtractKeywords pulls search terms from a claim, most salient first
	ExtractKeywords(ctx context.Context, req KeywordsRequest) ([]string, error)
}

// EmbedRequest asks for embedding vectors
type EmbedRequest struct {
	// Model is the embedding model name (provider-specific)
	Model string

	// Texts are the inputs to embed, one vector returned per entry
	Texts []string
}

// NLIRequest asks for a premise/hypothesis entailment judgment
type NLIRequest struct {
	// Model is the NLI-capable model name (provider-specific)
	Model string

	// Premise is the evidence passage
	Premise string

	// Hypothesis is the claim under test
	Hypothesis string
}

// KeywordsRequest asks for search terms extracted from a claim
type KeywordsRequest struct {
	// Model is the model name (provider-specific)
	Model string

	// Claim is the text to extract terms from
	Claim string

	// MaxKeywords caps the returned list
	MaxKeywords int
}

// Config holds provider connection settings
type Config struct {
	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g. Ollama, mock servers)
	BaseURL string

	// Timeout for API requests
	Timeout time.Duration

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// Registry holds the constructed providers keyed by name. Built once at
// startup, read-only afterwards.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.providers[p.Name()] = p
}

// Get looks up a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, eris.Wrapf(model.ErrModelUnavailable, "no provider registered as %q", name)
	}
	return p, nil
}

// Names lists the registered provider names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// buildNLIPrompt constructs the prompt used when a chat model stands in for
// a dedicated NLI classifier.
func buildNLIPrompt(premise, hypothesis string) string {
	return fmt.Sprintf(`You are a natural language inference classifier.

Premise:
%s

Hypothesis:
%s

Decide whether the premise entails, contradicts, or is neutral toward the hypothesis.
Respond with ONLY a JSON object of probabilities that sum to 1, e.g.:
{"entailment": 0.7, "contradiction": 0.1, "neutral": 0.2}`, premise, hypothesis)
}

// buildKeywordsPrompt constructs the prompt for chat-based keyword extraction
func buildKeywordsPrompt(claim string, maxKeywords int) string {
	return fmt.Sprintf(`Extract up to %d search keywords or short phrases from the claim below.
Keep named entities and numbers intact. Order by importance.
Respond with ONLY a JSON array of strings.

Claim: %s`, maxKeywords, claim)
}

// parseNLIJSON parses a chat model's JSON answer into a normalized
// distribution. Code fences and surrounding prose are tolerated.
func parseNLIJSON(text string) (model.Distribution, error) {
	raw := extractJSON(text, '{', '}')
	if raw == "" {
		return nil, eris.Errorf("no JSON object in model output: %q", clip(text, 120))
	}

	var parsed map[string]float64
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, eris.Wrap(err, "parse NLI output")
	}

	dist := make(model.Distribution, 3)
	for key, p := range parsed {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "entailment", "entail", "supports":
			dist[model.LabelEntailment] = p
		case "contradiction", "contradict", "refutes":
			dist[model.LabelContradiction] = p
		case "neutral":
			dist[model.LabelNeutral] = p
		}
	}
	if len(dist) == 0 {
		return nil, eris.Errorf("no NLI labels in model output: %q", clip(text, 120))
	}

	return dist.Normalized(), nil
}

// parseKeywordsJSON parses a chat model's JSON answer into a keyword list.
// Accepts a bare array or an object with a "keywords" field.
func parseKeywordsJSON(text string, maxKeywords int) ([]string, error) {
	raw := extractJSON(text, '[', ']')
	if raw == "" {
		if obj := extractJSON(text, '{', '}'); obj != "" {
			var wrapped struct {
				Keywords []string `json:"keywords"`
			}
			if err := json.Unmarshal([]byte(obj), &wrapped); err == nil && len(wrapped.Keywords) > 0 {
				return capKeywords(wrapped.Keywords, maxKeywords), nil
			}
		}
		return nil, eris.Errorf("no JSON array in model output: %q", clip(text, 120))
	}

	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return nil, eris.Wrap(err, "parse keywords output")
	}

	return capKeywords(keywords, maxKeywords), nil
}

func capKeywords(keywords []string, maxKeywords int) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lower := strings.ToLower(kw)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, kw)
		if maxKeywords > 0 && len(out) >= maxKeywords {
			break
		}
	}
	return out
}

// extractJSON returns the first balanced opener..closer span in text,
// tolerating markdown code fences and prose around the payload.
func extractJSON(text string, opener, closer byte) string {
	start := strings.IndexByte(text, opener)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
