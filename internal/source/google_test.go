package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
)

const googleResultsPage = `<!DOCTYPE html>
<html><body>
<div id="search">
  <div class="g Ww4FFb">
    <a href="https://www.nature.com/articles/water"><h3>Boiling point of water - Nature</h3></a>
    <div class="VwiC3b">Pure water boils at 100 degrees Celsius under standard pressure.</div>
  </div>
  <div class="g">
    <a href="/relative/link"><h3>Relative link skipped</h3></a>
    <div class="VwiC3b">Snippet present but link is relative.</div>
  </div>
  <div class="g">
    <a href="https://noaa.gov/water"><h3>NOAA on water</h3></a>
    <div class="lEBKkf">Atmospheric pressure changes the boiling point.</div>
  </div>
  <div class="g">
    <a href="https://nosnippet.example/x"><h3>No snippet block</h3></a>
  </div>
</div>
</body></html>`

func TestGoogleSearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "water boiling point", r.URL.Query().Get("q"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(googleResultsPage))
	}))
	defer srv.Close()

	google := NewGoogle(config.GoogleConfig{BaseURL: srv.URL, MaxResults: 5, TriggerBelow: 3})

	results, err := google.Search(context.Background(), model.Query{Terms: []string{"water", "boiling", "point"}})
	require.NoError(t, err)

	// Relative-link and snippetless blocks drop out
	require.Len(t, results, 2)
	assert.Equal(t, "https://www.nature.com/articles/water", results[0].URL)
	assert.Equal(t, "Boiling point of water - Nature", results[0].Title)
	assert.Contains(t, results[0].Snippet, "100 degrees Celsius")
	assert.Equal(t, "https://noaa.gov/water", results[1].URL)
	assert.Contains(t, results[1].Snippet, "Atmospheric pressure")
}

func TestGoogleSearch_MaxResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(googleResultsPage))
	}))
	defer srv.Close()

	google := NewGoogle(config.GoogleConfig{BaseURL: srv.URL, MaxResults: 1})

	results, err := google.Search(context.Background(), model.Query{Terms: []string{"water"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestGoogleSearch_BlockedStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	google := NewGoogle(config.GoogleConfig{BaseURL: srv.URL, MaxResults: 5})

	_, err := google.Search(context.Background(), model.Query{Terms: []string{"water"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGoogleTriggerBelow(t *testing.T) {
	t.Parallel()

	google := NewGoogle(config.GoogleConfig{TriggerBelow: 3})
	assert.Equal(t, 3, google.TriggerBelow())
}

func TestBuild(t *testing.T) {
	t.Parallel()

	cfg := config.SourcesConfig{
		Wikipedia:  config.WikipediaConfig{Enabled: true, Priority: 2},
		DuckDuckGo: config.DuckDuckGoConfig{Enabled: true, Priority: 1},
		Google:     config.GoogleConfig{Enabled: true, Priority: 3, TriggerBelow: 3},
	}

	primary, fallback := Build(cfg, "TruthCheck/test")
	require.Len(t, primary, 2)
	assert.Equal(t, "duckduckgo", primary[0].Name())
	assert.Equal(t, "wikipedia", primary[1].Name())
	require.NotNil(t, fallback)
	assert.Equal(t, "google", fallback.Name())

	cfg.Google.Enabled = false
	cfg.DuckDuckGo.Enabled = false
	primary, fallback = Build(cfg, "TruthCheck/test")
	require.Len(t, primary, 1)
	assert.Equal(t, "wikipedia", primary[0].Name())
	assert.Nil(t, fallback)
}
