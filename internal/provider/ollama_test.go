package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/truthcheck/truthcheck/internal/model"
)

func TestOllamaClassifyNLI_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected stream=false")
		}
		if req.Model != "llama3.1:8b" {
			t.Errorf("Expected model llama3.1:8b, got %s", req.Model)
		}

		resp := ollamaGenerateResponse{
			Model:    req.Model,
			Response: `{"entailment": 0.2, "contradiction": 0.2, "neutral": 0.6}`,
			Done:     true,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	dist, err := provider.ClassifyNLI(context.Background(), NLIRequest{
		Model:      "llama3.1:8b",
		Premise:    "The premise text.",
		Hypothesis: "The hypothesis text.",
	})
	if err != nil {
		t.Fatalf("ClassifyNLI failed: %v", err)
	}

	if dist.ArgMax() != model.LabelNeutral {
		t.Errorf("Expected neutral, got %s", dist.ArgMax())
	}
}

func TestOllamaClassifyNLI_RequiresModel(t *testing.T) {
	provider, err := NewOllamaProvider(Config{})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.ClassifyNLI(context.Background(), NLIRequest{Premise: "p", Hypothesis: "h"})
	if err == nil {
		t.Fatal("Expected error for missing model")
	}
	if !strings.Contains(err.Error(), "model must be specified") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestOllamaClassifyNLI_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'missing' not found"}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.ClassifyNLI(context.Background(), NLIRequest{Model: "missing", Premise: "p", Hypothesis: "h"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected error message to contain 'not found', got %v", err)
	}
}

func TestOllamaEmbed_Success(t *testing.T) {
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("Expected path /api/embeddings, got %s", r.URL.Path)
		}

		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		prompts = append(prompts, req.Prompt)

		resp := ollamaEmbedResponse{Embedding: []float64{0.25, 0.5, float64(len(prompts))}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	vectors, err := provider.Embed(context.Background(), EmbedRequest{
		Model: "nomic-embed-text",
		Texts: []string{"first", "second"},
	})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(vectors) != 2 {
		t.Fatalf("Expected 2 vectors, got %d", len(vectors))
	}
	if len(prompts) != 2 || prompts[0] != "first" || prompts[1] != "second" {
		t.Errorf("Unexpected prompts sent: %v", prompts)
	}
	if vectors[0][2] != 1.0 || vectors[1][2] != 2.0 {
		t.Errorf("Vectors not in input order: %v", vectors)
	}
}

func TestOllamaEmbed_EmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Embed(context.Background(), EmbedRequest{Model: "m", Texts: []string{"x"}})
	if err == nil {
		t.Fatal("Expected error for empty embedding")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Expected path /api/tags, got %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestOllamaProvider_DefaultBaseURL(t *testing.T) {
	provider, err := NewOllamaProvider(Config{})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	if provider.baseURL != "http://localhost:11434" {
		t.Errorf("Unexpected default base URL: %s", provider.baseURL)
	}
}
