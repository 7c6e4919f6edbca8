package enrich

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/rotisserie/eris"
)

const (
	minSentenceChars = 30
	maxSentenceChars = 500
)

// VisibleText parses HTML and returns its rendered text, skipping script,
// style, noscript and iframe subtrees.
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", eris.Wrap(err, "parse html")
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return buf.String(), nil
}

// SplitSentences splits text on sentence terminators, keeping only
// sentence-sized pieces. Boilerplate fragments and run-on walls of text fall
// outside the length bounds and are dropped.
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	keep := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= minSentenceChars && len(sentence) <= maxSentenceChars {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Terminator must be followed by whitespace, so "3.14" stays whole.
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				keep()
			}
		}
	}
	if current.Len() > 0 {
		keep()
	}

	return sentences
}

// BestWindow selects the contiguous run of sentences that best covers the
// query terms, grown to at least minChars. Returns "" when there is nothing
// to select from.
func BestWindow(sentences []string, terms []string, minChars int) string {
	if len(sentences) == 0 {
		return ""
	}

	best := 0
	bestScore := -1
	for i, sentence := range sentences {
		score := termHits(sentence, terms)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	lo, hi := best, best
	window := sentences[best]
	for utf8.RuneCountInString(window) < minChars {
		switch {
		case hi+1 < len(sentences):
			hi++
		case lo > 0:
			lo--
		default:
			return window
		}
		window = strings.Join(sentences[lo:hi+1], " ")
	}

	return window
}

// termHits counts how many distinct query terms the sentence contains
func termHits(sentence string, terms []string) int {
	lower := strings.ToLower(sentence)
	hits := 0
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			hits++
		}
	}
	return hits
}
