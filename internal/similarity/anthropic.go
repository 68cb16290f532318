package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/worker"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider asks a Claude model to rate semantic similarity on a 0 to 1 scale
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *worker.Limiter
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const judgeSystemPrompt = `You rate the semantic similarity of two statements.
Answer with a single number between 0 and 1 and nothing else.
1 means the second statement asserts the same fact as the first; 0 means it is unrelated.`

var scorePattern = regexp.MustCompile(`[01](?:\.\d+)?|\.\d+`)

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: Anthropic API key is required", model.ErrConfiguration)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	judge := config.Model
	if judge == "" {
		judge = "claude-3-5-haiku-20241022"
	}

	client, err := newHTTPClient(config.Timeout, config.Proxy)
	if err != nil {
		return nil, err
	}

	return &AnthropicProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      judge,
		httpClient: client,
		limiter:    config.Limiter,
	}, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) CacheID() string {
	return "anthropic|" + p.baseURL + "|" + p.model
}

func (p *AnthropicProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := throttle(ctx, p.limiter, p.baseURL); err != nil {
		return 0, err
	}

	resp, err := p.makeRequest(ctx, anthropicRequest{
		Model:     p.model,
		MaxTokens: 8,
		System:    judgeSystemPrompt,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: fmt.Sprintf("Statement 1: %s\nStatement 2: %s", a, b),
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("Anthropic API error: %w", err)
	}
	if len(resp.Content) == 0 {
		return 0, fmt.Errorf("%w: no content in Anthropic response", ErrBadResponse)
	}

	return parseScore(resp.Content[0].Text)
}

// parseScore extracts the first number in [0, 1] from a model answer
func parseScore(text string) (float64, error) {
	m := scorePattern.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("%w: no score in %q", ErrBadResponse, text)
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return model.Clamp01(v), nil
}

func (p *AnthropicProvider) makeRequest(ctx context.Context, apiReq anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr anthropicError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var out anthropicResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &out, nil
}
