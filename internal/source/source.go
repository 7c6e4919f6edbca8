package source

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
)

// Browser-style agent for the scrape sources. Wikipedia gets the descriptive
// agent from config instead, per their API etiquette.
const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Result is one search hit from an evidence source, before credibility and
// semantic scoring.
type Result struct {
	URL     string
	Title   string
	Snippet string
}

// Source finds candidate evidence for a query. Implementations own their
// HTTP client and timeout and are safe for concurrent use.
type Source interface {
	// Name identifies the source in results and logs
	Name() string

	// Priority orders sources in output (lower runs first in listings)
	Priority() int

	// Search returns candidate results for the query
	Search(ctx context.Context, query model.Query) ([]Result, error)
}

// Build constructs the enabled primary sources in priority order, plus the
// optional fallback source that only runs when the primaries come up short.
func Build(cfg config.SourcesConfig, userAgent string) (primary []Source, fallback Source) {
	if cfg.Wikipedia.Enabled {
		primary = append(primary, NewWikipedia(cfg.Wikipedia, userAgent))
	}
	if cfg.DuckDuckGo.Enabled {
		primary = append(primary, NewDuckDuckGo(cfg.DuckDuckGo))
	}

	sort.SliceStable(primary, func(i, j int) bool {
		return primary[i].Priority() < primary[j].Priority()
	})

	if cfg.Google.Enabled {
		fallback = NewGoogle(cfg.Google)
	}

	return primary, fallback
}

// attrVal returns the value of the named attribute, or ""
func attrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

// hasClass reports whether the node's class attribute contains the class
func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent gathers the node's visible text with whitespace collapsed
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// isElement reports whether the node is the named element
func isElement(n *html.Node, name string) bool {
	return n.Type == html.ElementNode && n.Data == name
}
