package model

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// DefaultMaxClaimLength bounds accepted claim text in runes
const DefaultMaxClaimLength = 500

// Claim represents a factual assertion submitted for verification
type Claim struct {
	Text string `json:"text"` // The claim text itself, trimmed
}

// NewClaim validates and constructs a Claim. maxLength <= 0 applies the default.
func NewClaim(text string, maxLength int) (Claim, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxClaimLength
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Claim{}, eris.Wrap(ErrInvalidClaim, "claim text is empty")
	}
	if utf8.RuneCountInString(trimmed) > maxLength {
		return Claim{}, eris.Wrapf(ErrInvalidClaim, "claim exceeds %d characters", maxLength)
	}

	return Claim{Text: trimmed}, nil
}

// Query is the ordered keyword sequence derived from a claim.
// It exists only as retrieval input and is discarded after retrieval.
type Query struct {
	Terms []string `json:"terms"`
}

// String joins the query terms into a single search string
func (q Query) String() string {
	return strings.Join(q.Terms, " ")
}

// Empty reports whether the query carries no terms
func (q Query) Empty() bool {
	return len(q.Terms) == 0
}
