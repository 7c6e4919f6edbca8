package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/model"
)

const defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co"

// HuggingFaceProvider implements the Provider interface on the Hugging Face
// Inference API. It serves dedicated NLI classifiers (text-classification
// task) and sentence-transformer embeddings (feature-extraction task).
// Keyword extraction is not a hosted task, so ExtractKeywords reports
// ErrUnsupported and callers fall back to the heuristic extractor.
type HuggingFaceProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

// hfClassifyRequest is the text-classification payload. Premise and
// hypothesis travel as a sentence pair.
type hfClassifyRequest struct {
	Inputs  hfSentencePair `json:"inputs"`
	Options hfOptions      `json:"options"`
}

type hfSentencePair struct {
	Text     string `json:"text"`
	TextPair string `json:"text_pair"`
}

type hfEmbedRequest struct {
	Inputs  []string  `json:"inputs"`
	Options hfOptions `json:"options"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfLabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type hfError struct {
	Error string `json:"error"`
}

// NewHuggingFaceProvider creates a new Hugging Face Inference API provider.
// An empty API key is allowed; anonymous access is rate-limited but works.
func NewHuggingFaceProvider(config Config) (*HuggingFaceProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultHuggingFaceBaseURL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HuggingFaceProvider{
		apiKey:  config.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: config,
	}, nil
}

// Name returns the provider name
func (p *HuggingFaceProvider) Name() string {
	return "huggingface"
}

// IsAvailable checks that the inference endpoint answers with a non-error
// status
func (p *HuggingFaceProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return false
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		zap.L().Warn("huggingface availability check failed",
			zap.String("base_url", p.baseURL), zap.Error(err))
		return false
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		zap.L().Warn("huggingface availability check rejected",
			zap.String("base_url", p.baseURL), zap.Int("status", resp.StatusCode))
		return false
	}

	return true
}

// Embed returns one sentence embedding per input text
func (p *HuggingFaceProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, error) {
	if req.Model == "" {
		return nil, eris.New("huggingface: embedding model must be specified")
	}
	if len(req.Texts) == 0 {
		return nil, nil
	}

	body, err := p.post(ctx, "/pipeline/feature-extraction/"+req.Model, hfEmbedRequest{
		Inputs:  req.Texts,
		Options: hfOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, eris.Wrap(err, "huggingface: feature extraction")
	}

	var vectors [][]float32
	if err := json.Unmarshal(body, &vectors); err != nil {
		return nil, eris.Wrap(err, "huggingface: unmarshal embeddings")
	}
	if len(vectors) != len(req.Texts) {
		return nil, eris.Errorf("huggingface: got %d embeddings for %d inputs", len(vectors), len(req.Texts))
	}

	return vectors, nil
}

// ClassifyNLI runs the premise/hypothesis pair through a hosted NLI
// classifier and returns the full label distribution.
func (p *HuggingFaceProvider) ClassifyNLI(ctx context.Context, req NLIRequest) (model.Distribution, error) {
	if req.Model == "" {
		return nil, eris.New("huggingface: NLI model must be specified")
	}

	body, err := p.post(ctx, "/models/"+req.Model, hfClassifyRequest{
		Inputs:  hfSentencePair{Text: req.Premise, TextPair: req.Hypothesis},
		Options: hfOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, eris.Wrap(err, "huggingface: classify")
	}

	scores, err := parseLabelScores(body)
	if err != nil {
		return nil, eris.Wrap(err, "huggingface: classify")
	}

	dist := make(model.Distribution, 3)
	for _, ls := range scores {
		label, ok := normalizeNLILabel(ls.Label)
		if !ok {
			continue
		}
		dist[label] = ls.Score
	}
	if len(dist) == 0 {
		return nil, eris.Errorf("huggingface: no NLI labels in response: %s", clip(string(body), 120))
	}

	return dist.Normalized(), nil
}

// ExtractKeywords is not a hosted inference task
func (p *HuggingFaceProvider) ExtractKeywords(ctx context.Context, req KeywordsRequest) ([]string, error) {
	return nil, eris.Wrap(ErrUnsupported, "huggingface: keyword extraction")
}

// parseLabelScores accepts both the nested ([[{label,score}]]) and flat
// ([{label,score}]) shapes the API emits for text classification.
func parseLabelScores(body []byte) ([]hfLabelScore, error) {
	var nested [][]hfLabelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		return nested[0], nil
	}

	var flat []hfLabelScore
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	return nil, eris.Errorf("unexpected classification response: %s", clip(string(body), 120))
}

// normalizeNLILabel maps model-specific label names onto the canonical three.
// MNLI checkpoints emit ENTAILMENT/NEUTRAL/CONTRADICTION or LABEL_0..2 in
// the contradiction, neutral, entailment order.
func normalizeNLILabel(raw string) (model.NLILabel, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "entailment", "label_2":
		return model.LabelEntailment, true
	case "contradiction", "label_0":
		return model.LabelContradiction, true
	case "neutral", "label_1":
		return model.LabelNeutral, true
	default:
		return "", false
	}
}

// post sends one JSON request with retry on transient failures and returns
// the raw response body.
func (p *HuggingFaceProvider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	body, statusCode, err := p.retryDo(ctx, req, reqBody)
	if err != nil {
		return nil, err
	}

	if statusCode != http.StatusOK {
		var apiErr hfError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return nil, eris.Errorf("API error (%d): %s", statusCode, apiErr.Error)
		}
		return nil, eris.Errorf("API error (%d): %s", statusCode, clip(string(body), 200))
	}

	return body, nil
}

// retryableStatusCode returns true if the HTTP status should trigger a retry.
// 503 also covers the API's cold-start model loading response.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes the request with exponential backoff on transient
// failures. Returns the response body and status code on success, or the
// last error after exhausting retries.
func (p *HuggingFaceProvider) retryDo(ctx context.Context, req *http.Request, reqBody []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)
		retryReq.Body = io.NopCloser(bytes.NewReader(reqBody))

		resp, err := p.httpClient.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, eris.Wrap(lastErr, "execute request")
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("status %d: %s", resp.StatusCode, clip(string(body), 120))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}
