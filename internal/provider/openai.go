package provider

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/model"
)

const (
	defaultOpenAIChatModel  = openai.GPT4oMini
	defaultOpenAIEmbedModel = "text-embedding-3-small"
)

// OpenAIProvider implements the Provider interface on the OpenAI API.
// Chat completions stand in for NLI and keyword extraction; embeddings use
// the native endpoint.
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, eris.New("openai: API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		zap.L().Warn("openai availability check failed", zap.Error(err))
		return false
	}
	return true
}

// Embed returns one embedding vector per input text
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, error) {
	if len(req.Texts) == 0 {
		return nil, nil
	}

	embedModel := req.Model
	if embedModel == "" {
		embedModel = defaultOpenAIEmbedModel
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: req.Texts,
		Model: openai.EmbeddingModel(embedModel),
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: create embeddings")
	}
	if len(resp.Data) != len(req.Texts) {
		return nil, eris.Errorf("openai: got %d embeddings for %d inputs", len(resp.Data), len(req.Texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, eris.Errorf("openai: embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}

	return vectors, nil
}

// ClassifyNLI prompts a chat model to judge the premise/hypothesis pair
func (p *OpenAIProvider) ClassifyNLI(ctx context.Context, req NLIRequest) (model.Distribution, error) {
	content, err := p.complete(ctx, req.Model,
		"You classify natural language inference pairs. Answer with JSON only.",
		buildNLIPrompt(req.Premise, req.Hypothesis))
	if err != nil {
		return nil, err
	}

	return parseNLIJSON(content)
}

// ExtractKeywords prompts a chat model to pull search terms from the claim
func (p *OpenAIProvider) ExtractKeywords(ctx context.Context, req KeywordsRequest) ([]string, error) {
	content, err := p.complete(ctx, req.Model,
		"You extract search keywords from claims. Answer with JSON only.",
		buildKeywordsPrompt(req.Claim, req.MaxKeywords))
	if err != nil {
		return nil, err
	}

	return parseKeywordsJSON(content, req.MaxKeywords)
}

// complete runs one chat completion and returns the trimmed message text
func (p *OpenAIProvider) complete(ctx context.Context, chatModel, system, prompt string) (string, error) {
	if chatModel == "" {
		chatModel = defaultOpenAIChatModel
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   300,
		Temperature: 0.1,
	})
	if err != nil {
		return "", eris.Wrap(err, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("openai: no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
