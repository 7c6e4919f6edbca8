package keywords

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
	"github.com/truthcheck/truthcheck/internal/provider"
)

// Extractor turns a claim into a search query. When a keyword model is
// configured it runs first; any model failure degrades silently to the
// heuristic so retrieval never blocks on a model outage.
type Extractor struct {
	registry    *provider.Registry
	ref         config.ModelRef
	maxKeywords int
}

// NewExtractor creates an extractor. A zero-valued ref disables the model
// path and the heuristic serves every claim.
func NewExtractor(registry *provider.Registry, ref config.ModelRef, maxKeywords int) *Extractor {
	if maxKeywords <= 0 {
		maxKeywords = 8
	}
	return &Extractor{
		registry:    registry,
		ref:         ref,
		maxKeywords: maxKeywords,
	}
}

// Extract returns the search query for a claim. The result always has at
// least one term; a claim with no extractable keywords queries as itself.
func (e *Extractor) Extract(ctx context.Context, claim model.Claim) model.Query {
	if e.ref.Provider != "" && e.registry != nil {
		if terms := e.fromModel(ctx, claim); len(terms) > 0 {
			return model.Query{Terms: terms}
		}
	}

	return model.Query{Terms: Heuristic(claim.Text, e.maxKeywords)}
}

func (e *Extractor) fromModel(ctx context.Context, claim model.Claim) []string {
	p, err := e.registry.Get(e.ref.Provider)
	if err != nil {
		zap.L().Debug("keyword model unavailable, using heuristic", zap.Error(err))
		return nil
	}

	terms, err := p.ExtractKeywords(ctx, provider.KeywordsRequest{
		Model:       e.ref.Model,
		Claim:       claim.Text,
		MaxKeywords: e.maxKeywords,
	})
	if err != nil {
		zap.L().Debug("keyword model failed, using heuristic",
			zap.String("model", e.ref.ID()), zap.Error(err))
		return nil
	}

	return terms
}

// Heuristic extracts search terms without a model. Capitalized phrases and
// numbers come first (stand-ins for named entities and dates), then the
// remaining salient words in order of appearance. An unextractable claim
// falls back to the full text as a single term.
func Heuristic(text string, maxKeywords int) []string {
	tokens := tokenize(text)

	var terms []string

	// Pass 1: capitalized runs and numeric tokens
	for i := 0; i < len(tokens); {
		tok := tokens[i]

		if isCapitalized(tok) {
			j := i
			for j < len(tokens) && isCapitalized(tokens[j]) {
				j++
			}
			run := tokens[i:j]
			// Capitalized determiners open many runs ("The Eiffel Tower")
			for len(run) > 0 && isStopword(strings.ToLower(run[0])) {
				run = run[1:]
			}
			if len(run) > 0 {
				terms = append(terms, strings.Join(run, " "))
			}
			i = j
			continue
		}

		if hasDigit(tok) {
			terms = append(terms, tok)
		}
		i++
	}

	// Pass 2: remaining salient words
	for _, tok := range tokens {
		if isCapitalized(tok) || hasDigit(tok) {
			continue
		}
		if len(tok) >= 4 && !isStopword(strings.ToLower(tok)) {
			terms = append(terms, tok)
		}
	}

	terms = dedupe(terms, maxKeywords)
	if len(terms) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	return terms
}

// tokenize splits on whitespace and strips surrounding punctuation, keeping
// interior punctuation so numbers like 8,849 and hyphenated words survive.
func tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))

	for _, field := range fields {
		tok := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}

	return tokens
}

func isCapitalized(tok string) bool {
	for _, r := range tok {
		return unicode.IsUpper(r)
	}
	return false
}

func hasDigit(tok string) bool {
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func dedupe(terms []string, maxKeywords int) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))

	for _, term := range terms {
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, term)
		if maxKeywords > 0 && len(out) >= maxKeywords {
			break
		}
	}

	return out
}

// stopwords is a compact English function-word list. It filters glue words
// from queries, not full stopword coverage.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "am": true,
	"do": true, "does": true, "did": true, "have": true, "has": true,
	"had": true, "will": true, "would": true, "shall": true, "should": true,
	"can": true, "could": true, "may": true, "might": true, "must": true,
	"and": true, "or": true, "but": true, "nor": true, "not": true, "no": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"from": true, "by": true, "with": true, "about": true, "into": true,
	"over": true, "under": true, "above": true, "below": true, "between": true,
	"through": true, "during": true, "before": true, "after": true,
	"it": true, "its": true, "this": true, "that": true, "these": true,
	"those": true, "they": true, "them": true, "their": true, "there": true,
	"he": true, "she": true, "his": true, "her": true, "we": true, "our": true,
	"you": true, "your": true, "i": true, "my": true, "me": true, "us": true,
	"what": true, "which": true, "who": true, "whom": true, "whose": true,
	"when": true, "where": true, "why": true, "how": true, "all": true,
	"any": true, "both": true, "each": true, "few": true, "more": true,
	"most": true, "other": true, "some": true, "such": true, "only": true,
	"own": true, "same": true, "so": true, "than": true, "too": true,
	"very": true, "just": true, "also": true, "as": true, "if": true,
	"then": true, "else": true, "out": true, "up": true, "down": true,
}

func isStopword(lower string) bool {
	return stopwords[lower]
}
