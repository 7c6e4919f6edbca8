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

// Google scrapes the plain search results page. It is a fallback only: the
// retriever runs it when the primary sources return fewer than TriggerBelow
// candidates. Result markup shifts over time, so parsing is best-effort.
type Google struct {
	baseURL      string
	maxResults   int
	priority     int
	triggerBelow int
	httpClient   *http.Client
}

// NewGoogle creates the Google scrape fallback source
func NewGoogle(cfg config.GoogleConfig) *Google {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	return &Google{
		baseURL:      cfg.BaseURL,
		maxResults:   cfg.MaxResults,
		priority:     cfg.Priority,
		triggerBelow: cfg.TriggerBelow,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Name returns the source name
func (g *Google) Name() string {
	return "google"
}

// Priority returns the configured ordering
func (g *Google) Priority() int {
	return g.priority
}

// TriggerBelow is the primary-result count under which this fallback runs
func (g *Google) TriggerBelow() int {
	return g.triggerBelow
}

// Search fetches the results page and parses the organic result blocks
func (g *Google) Search(ctx context.Context, query model.Query) ([]Result, error) {
	reqURL := g.baseURL + "?q=" + url.QueryEscape(query.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: search")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("google: unexpected status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: parse html")
	}

	return g.parseResults(doc), nil
}

// parseResults walks the organic result containers (div class "g"), taking
// the first absolute link, the h3 heading, and the snippet div.
func (g *Google) parseResults(doc *html.Node) []Result {
	var results []Result

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= g.maxResults {
			return
		}

		if isElement(n, "div") && hasClass(n, "g") {
			if r, ok := parseResultBlock(n); ok {
				results = append(results, r)
			}
			return // blocks do not nest
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return results
}

// parseResultBlock extracts one result from a div.g subtree
func parseResultBlock(block *html.Node) (Result, bool) {
	var href, title, snippet string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case isElement(n, "a") && href == "":
			if v := attrVal(n, "href"); strings.HasPrefix(v, "http") {
				href = v
			}
		case isElement(n, "h3") && title == "":
			title = textContent(n)
		case isElement(n, "div") && snippet == "" && (hasClass(n, "VwiC3b") || hasClass(n, "lEBKkf")):
			snippet = textContent(n)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(block)

	if href == "" || snippet == "" {
		return Result{}, false
	}
	if title == "" {
		title = "Unknown"
	}

	return Result{URL: href, Title: title, Snippet: snippet}, true
}
