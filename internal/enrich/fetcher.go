package enrich

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/util"
)

const fetchMaxRetries = 3

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Fetcher downloads evidence pages for snippet enrichment
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher builds a fetcher from the shared HTTP settings. maxBytes bounds
// how much of a page body is read; <= 0 falls back to the HTTP default.
func NewFetcher(cfg config.HTTPConfig, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = cfg.MaxBodyBytes
	}
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return eris.New("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
}

// Page is one fetched document
type Page struct {
	HTML     string
	FinalURL string
}

// Fetch retrieves the page at rawURL, reading at most maxBytes of the body
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	return &Page{
		HTML:     string(body),
		FinalURL: resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries transient failures with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Page, error) {
	var page *Page
	var err error

	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		page, err = f.Fetch(ctx, rawURL)
		if err == nil || !isRetryableFetchError(err) {
			return page, err
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "fetch cancelled")
		}
		if attempt < fetchMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			fetchSleepFunc(backoff)
		}
	}

	return page, err
}

// isRetryableFetchError returns true for transient failures: 5xx and 429
// statuses, plus timeout and connection-level network errors.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if code, ok := statusFromError(msg); ok {
		return code == 429 || (code >= 500 && code < 600)
	}

	lower := strings.ToLower(msg)
	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset")
}

// statusFromError pulls the HTTP status code out of an "unexpected status"
// error message.
func statusFromError(msg string) (int, bool) {
	const marker = "unexpected status: "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return 0, false
	}

	rest := msg[idx+len(marker):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	code, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return code, true
}
