package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/model"
)

func newOllamaProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// OllamaProvider implements the Provider interface for Ollama local models
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Ollama API structures
type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaGenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second // Local models can be slow
	}

	proxyFunc := newOllamaProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: proxyFunc,
			},
		},
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks if Ollama is running by listing models
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	url := fmt.Sprintf("%s/api/tags", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		zap.L().Warn("ollama availability check failed", zap.Error(err))
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		zap.L().Warn("ollama availability check failed",
			zap.String("base_url", p.baseURL), zap.Error(err))
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("ollama availability check failed",
			zap.String("base_url", p.baseURL), zap.Int("status", resp.StatusCode))
		return false
	}

	return true
}

// Embed returns one embedding vector per input text. Ollama embeds one
// prompt per call, so inputs are sent sequentially.
func (p *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, error) {
	if req.Model == "" {
		return nil, eris.New("ollama: embedding model must be specified")
	}

	vectors := make([][]float32, 0, len(req.Texts))
	for _, text := range req.Texts {
		body, err := p.post(ctx, "/api/embeddings", ollamaEmbedRequest{
			Model:  req.Model,
			Prompt: text,
		})
		if err != nil {
			return nil, eris.Wrap(err, "ollama: embeddings")
		}

		var resp ollamaEmbedResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, eris.Wrap(err, "ollama: unmarshal embedding")
		}
		if len(resp.Embedding) == 0 {
			return nil, eris.New("ollama: empty embedding in response")
		}

		vector := make([]float32, len(resp.Embedding))
		for i, v := range resp.Embedding {
			vector[i] = float32(v)
		}
		vectors = append(vectors, vector)
	}

	return vectors, nil
}

// ClassifyNLI prompts the model to judge the premise/hypothesis pair
func (p *OllamaProvider) ClassifyNLI(ctx context.Context, req NLIRequest) (model.Distribution, error) {
	content, err := p.generate(ctx, req.Model,
		"You classify natural language inference pairs. Answer with JSON only.",
		buildNLIPrompt(req.Premise, req.Hypothesis))
	if err != nil {
		return nil, err
	}

	return parseNLIJSON(content)
}

// ExtractKeywords prompts the model to pull search terms from the claim
func (p *OllamaProvider) ExtractKeywords(ctx context.Context, req KeywordsRequest) ([]string, error) {
	content, err := p.generate(ctx, req.Model,
		"You extract search keywords from claims. Answer with JSON only.",
		buildKeywordsPrompt(req.Claim, req.MaxKeywords))
	if err != nil {
		return nil, err
	}

	return parseKeywordsJSON(content, req.MaxKeywords)
}

// generate runs one non-streaming completion and returns the trimmed text
func (p *OllamaProvider) generate(ctx context.Context, genModel, system, prompt string) (string, error) {
	if genModel == "" {
		return "", eris.New("ollama: model must be specified (e.g. llama3.1:8b, mistral)")
	}

	body, err := p.post(ctx, "/api/generate", ollamaGenerateRequest{
		Model:  genModel,
		Prompt: prompt,
		Stream: false,
		System: system,
		Options: ollamaOptions{
			Temperature: 0.1,
			NumPredict:  300,
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "ollama: generate")
	}

	var resp ollamaGenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", eris.Wrap(err, "ollama: unmarshal response")
	}

	return strings.TrimSpace(resp.Response), nil
}

// post makes an HTTP request to the Ollama API and returns the raw body
func (p *OllamaProvider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, eris.Errorf("API error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, eris.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	return respBody, nil
}
