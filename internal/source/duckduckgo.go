package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
)

// DuckDuckGo searches the Lite HTML endpoint, which is a plain form POST
// with table-formatted results and no JavaScript.
type DuckDuckGo struct {
	baseURL    string
	maxResults int
	priority   int
	httpClient *http.Client
}

// NewDuckDuckGo creates the DuckDuckGo Lite source
func NewDuckDuckGo(cfg config.DuckDuckGoConfig) *DuckDuckGo {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	return &DuckDuckGo{
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		priority:   cfg.Priority,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the source name
func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

// Priority returns the configured ordering
func (d *DuckDuckGo) Priority() int {
	return d.priority
}

// Search posts the query to the Lite endpoint and parses the result table
func (d *DuckDuckGo) Search(ctx context.Context, query model.Query) ([]Result, error) {
	form := url.Values{}
	form.Set("q", query.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: search")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("duckduckgo: unexpected status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: parse html")
	}

	return d.parseResults(doc), nil
}

// parseResults pairs each result-link anchor with the result-snippet cell
// that follows it. The Lite layout puts them in sibling table rows, so the
// walk collects both in document order.
func (d *DuckDuckGo) parseResults(doc *html.Node) []Result {
	var results []Result
	pendingSnippet := -1 // index into results awaiting a snippet

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= d.maxResults && pendingSnippet < 0 {
			return
		}

		switch {
		case isElement(n, "a") && hasClass(n, "result-link"):
			href := unwrapRedirect(attrVal(n, "href"))
			if href != "" && len(results) < d.maxResults {
				results = append(results, Result{
					URL:   href,
					Title: textContent(n),
				})
				pendingSnippet = len(results) - 1
			}

		case isElement(n, "td") && hasClass(n, "result-snippet"):
			if pendingSnippet >= 0 {
				results[pendingSnippet].Snippet = textContent(n)
				pendingSnippet = -1
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	// Results without snippets carry no scorable text
	kept := results[:0]
	for _, r := range results {
		if r.Snippet != "" {
			kept = append(kept, r)
		}
	}

	return kept
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg= redirect links to the
// destination URL and normalizes scheme-relative hrefs.
func unwrapRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if strings.HasSuffix(parsed.Host, "duckduckgo.com") && strings.HasPrefix(parsed.Path, "/l/") {
		if dest := parsed.Query().Get("uddg"); dest != "" {
			href = dest
			parsed, err = url.Parse(dest)
			if err != nil {
				return ""
			}
		}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return href
}
