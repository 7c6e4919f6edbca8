package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/model"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicProvider implements the Provider interface for Anthropic models.
// NLI and keyword extraction run as prompted completions; Anthropic has no
// embeddings endpoint, so Embed reports ErrUnsupported.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, eris.New("anthropic: API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &AnthropicProvider{
		apiKey:  config.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config: config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable checks if the provider is properly configured
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	req := anthropicRequest{
		Model:     defaultAnthropicModel,
		MaxTokens: 10,
		Messages: []anthropicMessage{
			{Role: "user", Content: "Hi"},
		},
	}

	if _, err := p.makeRequest(ctx, req); err != nil {
		zap.L().Warn("anthropic availability check failed", zap.Error(err))
		return false
	}
	return true
}

// Embed is not supported by the Anthropic API
func (p *AnthropicProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, error) {
	return nil, eris.Wrap(ErrUnsupported, "anthropic: embeddings")
}

// ClassifyNLI prompts the model to judge the premise/hypothesis pair
func (p *AnthropicProvider) ClassifyNLI(ctx context.Context, req NLIRequest) (model.Distribution, error) {
	content, err := p.complete(ctx, req.Model,
		"You classify natural language inference pairs. Answer with JSON only.",
		buildNLIPrompt(req.Premise, req.Hypothesis))
	if err != nil {
		return nil, err
	}

	return parseNLIJSON(content)
}

// ExtractKeywords prompts the model to pull search terms from the claim
func (p *AnthropicProvider) ExtractKeywords(ctx context.Context, req KeywordsRequest) ([]string, error) {
	content, err := p.complete(ctx, req.Model,
		"You extract search keywords from claims. Answer with JSON only.",
		buildKeywordsPrompt(req.Claim, req.MaxKeywords))
	if err != nil {
		return nil, err
	}

	return parseKeywordsJSON(content, req.MaxKeywords)
}

// complete runs one messages call and returns the trimmed text block
func (p *AnthropicProvider) complete(ctx context.Context, chatModel, system, prompt string) (string, error) {
	if chatModel == "" {
		chatModel = defaultAnthropicModel
	}

	apiReq := anthropicRequest{
		Model:     chatModel,
		MaxTokens: 300,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
	}

	resp, err := p.makeRequest(ctx, apiReq)
	if err != nil {
		return "", eris.Wrap(err, "anthropic: messages")
	}
	if len(resp.Content) == 0 {
		return "", eris.New("anthropic: no content in response")
	}

	return strings.TrimSpace(resp.Content[0].Text), nil
}

// makeRequest makes an HTTP request to the Anthropic API
func (p *AnthropicProvider) makeRequest(ctx context.Context, apiReq anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, eris.Wrap(err, "marshal request")
	}

	url := fmt.Sprintf("%s/v1/messages", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

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
		var apiErr anthropicError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, eris.Errorf("API error (%d): %s - %s", httpResp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, eris.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, eris.Wrap(err, "unmarshal response")
	}

	return &resp, nil
}
