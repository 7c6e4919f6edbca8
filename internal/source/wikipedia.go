package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
)

// Wikipedia searches articles through the MediaWiki API and returns intro
// extracts as evidence snippets. One request covers search and extraction
// via generator=search.
type Wikipedia struct {
	baseURL    string
	maxResults int
	priority   int
	userAgent  string
	httpClient *http.Client
}

type wikiQueryResponse struct {
	Query struct {
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
}

type wikiPage struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Index   int    `json:"index"` // search rank from the generator
	Extract string `json:"extract"`
}

// NewWikipedia creates the Wikipedia source
func NewWikipedia(cfg config.WikipediaConfig, userAgent string) *Wikipedia {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Wikipedia{
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		priority:   cfg.Priority,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the source name
func (w *Wikipedia) Name() string {
	return "wikipedia"
}

// Priority returns the configured ordering
func (w *Wikipedia) Priority() int {
	return w.priority
}

// Search queries the MediaWiki API and returns up to maxResults article
// intros. Disambiguation pages and empty extracts are skipped.
func (w *Wikipedia) Search(ctx context.Context, query model.Query) ([]Result, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", query.String())
	params.Set("gsrlimit", strconv.Itoa(w.maxResults+2))
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("exsentences", "7")
	params.Set("exlimit", "max")
	params.Set("redirects", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: create request")
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: search")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("wikipedia: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: read response")
	}

	var parsed wikiQueryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "wikipedia: unmarshal response")
	}

	pages := make([]wikiPage, 0, len(parsed.Query.Pages))
	for _, page := range parsed.Query.Pages {
		pages = append(pages, page)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	results := make([]Result, 0, w.maxResults)
	for _, page := range pages {
		extract := strings.TrimSpace(page.Extract)
		if extract == "" || strings.Contains(extract, "may refer to") {
			continue
		}

		results = append(results, Result{
			URL:     w.articleURL(page.Title),
			Title:   page.Title,
			Snippet: extract,
		})
		if len(results) >= w.maxResults {
			break
		}
	}

	return results, nil
}

// articleURL builds the canonical article URL on the API's host
func (w *Wikipedia) articleURL(title string) string {
	slug := url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	parsed, err := url.Parse(w.baseURL)
	if err != nil || parsed.Host == "" {
		return "https://en.wikipedia.org/wiki/" + slug
	}
	return parsed.Scheme + "://" + parsed.Host + "/wiki/" + slug
}
