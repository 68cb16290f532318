package similarity

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/worker"
)

const openAIDefaultURL = "https://api.openai.com/v1"

// OpenAIProvider compares texts by the cosine of their OpenAI embeddings
type OpenAIProvider struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	baseURL string
	limiter *worker.Limiter
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", model.ErrConfiguration)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	client, err := newHTTPClient(config.Timeout, config.Proxy)
	if err != nil {
		return nil, err
	}
	clientConfig.HTTPClient = client

	embeddingModel := openai.SmallEmbedding3
	if config.Model != "" {
		embeddingModel = openai.EmbeddingModel(config.Model)
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   embeddingModel,
		baseURL: clientConfig.BaseURL,
		limiter: config.Limiter,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) CacheID() string {
	return "openai|" + p.baseURL + "|" + string(p.model)
}

// Similarity embeds both texts in one request
func (p *OpenAIProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := throttle(ctx, p.limiter, p.baseURL); err != nil {
		return 0, err
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{a, b},
		Model: p.model,
	})
	if err != nil {
		return 0, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Data) != 2 {
		return 0, fmt.Errorf("%w: expected 2 embeddings, got %d", ErrBadResponse, len(resp.Data))
	}

	// the API may return embeddings out of input order
	first, second := resp.Data[0], resp.Data[1]
	if first.Index > second.Index {
		first, second = second, first
	}
	return cosine(first.Embedding, second.Embedding)
}
