package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/corroborate/internal/worker"
)

// OllamaProvider compares texts by the cosine of embeddings from a local Ollama server
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *worker.Limiter
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
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
		timeout = 60 * time.Second // local models can be slow to load
	}

	embeddingModel := config.Model
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text"
	}

	client, err := newHTTPClient(timeout, config.Proxy)
	if err != nil {
		return nil, err
	}

	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      embeddingModel,
		httpClient: client,
		limiter:    config.Limiter,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) CacheID() string {
	return "ollama|" + p.baseURL + "|" + p.model
}

func (p *OllamaProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	ea, err := p.embed(ctx, a)
	if err != nil {
		return 0, err
	}
	eb, err := p.embed(ctx, b)
	if err != nil {
		return 0, err
	}
	return cosine(ea, eb)
}

func (p *OllamaProvider) embed(ctx context.Context, text string) ([]float64, error) {
	if err := throttle(ctx, p.limiter, p.baseURL); err != nil {
		return nil, err
	}

	body, err := json.Marshal(ollamaEmbeddingRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama request to %s: %w", p.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("Ollama API error (HTTP %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("Ollama API error (HTTP %d)", resp.StatusCode)
	}

	var out ollamaEmbeddingResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return out.Embedding, nil
}
