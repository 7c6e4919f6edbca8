package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Claims.MaxLength != 500 {
		t.Errorf("expected max claim length 500, got %d", cfg.Claims.MaxLength)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected top-k 5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MinSimilarity != 0.30 {
		t.Errorf("expected min similarity 0.30, got %f", cfg.Retrieval.MinSimilarity)
	}
	if cfg.Consensus.MinConfidence != 0.55 {
		t.Errorf("expected min confidence 0.55, got %f", cfg.Consensus.MinConfidence)
	}
	if len(cfg.Models.NLI) < 2 {
		t.Errorf("expected at least 2 NLI models in the default ensemble, got %d", len(cfg.Models.NLI))
	}
	if !cfg.Sources.Wikipedia.Enabled {
		t.Error("expected wikipedia source enabled by default")
	}
	if cfg.Sources.Google.Enabled {
		t.Error("expected google scrape fallback disabled by default")
	}
	if w := cfg.Credibility.DomainWeights["wikipedia.org"]; w != 0.95 {
		t.Errorf("expected wikipedia.org weight 0.95, got %f", w)
	}
	if w := cfg.Credibility.SuffixWeights[".gov"]; w != 0.92 {
		t.Errorf("expected .gov weight 0.92, got %f", w)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retrieval.MaxKeywords != 8 {
		t.Errorf("expected default max keywords 8, got %d", cfg.Retrieval.MaxKeywords)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
retrieval:
  top_k: 7
  min_similarity: 0.45
consensus:
  min_confidence: 0.7
http:
  timeout: 3s
sources:
  duckduckgo:
    enabled: false
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieval.TopK != 7 {
		t.Errorf("expected top-k 7, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MinSimilarity != 0.45 {
		t.Errorf("expected min similarity 0.45, got %f", cfg.Retrieval.MinSimilarity)
	}
	if cfg.Consensus.MinConfidence != 0.7 {
		t.Errorf("expected min confidence 0.7, got %f", cfg.Consensus.MinConfidence)
	}
	if cfg.HTTP.Timeout != 3*time.Second {
		t.Errorf("expected http timeout 3s, got %v", cfg.HTTP.Timeout)
	}
	if cfg.Sources.DuckDuckGo.Enabled {
		t.Error("expected duckduckgo disabled by file override")
	}

	// Untouched keys keep their defaults
	if cfg.Retrieval.MaxKeywords != 8 {
		t.Errorf("expected default max keywords preserved, got %d", cfg.Retrieval.MaxKeywords)
	}
	if cfg.Claims.MaxLength != 500 {
		t.Errorf("expected default claim length preserved, got %d", cfg.Claims.MaxLength)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error for explicitly named missing config file")
	}
}

func TestModelRef_ID(t *testing.T) {
	ref := ModelRef{Provider: "huggingface", Model: "roberta-large-mnli"}
	if got := ref.ID(); got != "huggingface/roberta-large-mnli" {
		t.Errorf("unexpected model id: %s", got)
	}
}
