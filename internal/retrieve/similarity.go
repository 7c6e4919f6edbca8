package retrieve

import (
	"math"
	"strings"
	"unicode"
)

// CosineSimilarity computes the cosine of two embedding vectors, clamped to
// [0,1]. Mismatched or zero-norm vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

// LexicalSimilarity measures how much of the claim's content appears in the
// snippet: the containment of claim terms in the snippet's term set. It is
// the degraded stand-in for embedding similarity, comparable against the
// same relevance threshold.
func LexicalSimilarity(claim, snippet string) float64 {
	claimTerms := contentTerms(claim)
	if len(claimTerms) == 0 {
		return 0
	}

	snippetTerms := make(map[string]bool)
	for _, term := range contentTerms(snippet) {
		snippetTerms[term] = true
	}

	matched := 0
	for _, term := range claimTerms {
		if snippetTerms[term] {
			matched++
		}
	}

	return float64(matched) / float64(len(claimTerms))
}

// contentTerms lowercases and strips punctuation, dropping words too short
// to carry meaning. Duplicates are removed so repeated words don't inflate
// containment.
func contentTerms(text string) []string {
	seen := make(map[string]bool)
	var terms []string

	for _, field := range strings.Fields(strings.ToLower(text)) {
		term := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(term) < 3 || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}

	return terms
}
