// Package similarity scores how close two short texts are in meaning
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/worker"
)

// ErrBadResponse marks a remote answer that could not be turned into a score
var ErrBadResponse = errors.New("bad similarity response")

// Provider scores the similarity of two texts in [0, 1]
type Provider interface {
	Name() string
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Config holds provider configuration
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Proxy    string
	Timeout  time.Duration
	Limiter  *worker.Limiter
}

// ConfigFromModel converts the run configuration, attaching a per-host limiter
func ConfigFromModel(c model.SimilarityConfig) Config {
	limiter := worker.NewLimiter(c.RequestsPerSecond, c.Burst)
	for _, hr := range c.HostRates {
		limiter.SetHostRate(hr.Host, hr.RequestsPerSecond, c.Burst)
	}
	return Config{
		Provider: c.Provider,
		Model:    c.Model,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Proxy:    c.Proxy,
		Timeout:  c.Timeout,
		Limiter:  limiter,
	}
}

// NewProvider creates the configured provider. An empty name selects lexical overlap.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "", "lexical":
		return NewLexicalProvider(), nil
	case "openai":
		return NewOpenAIProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "anthropic", "claude":
		return NewAnthropicProvider(config)
	case "sts", "swoogle":
		return NewSTSProvider(config)
	default:
		return nil, fmt.Errorf("%w: unknown similarity provider %q (supported: lexical, openai, ollama, anthropic, sts)",
			model.ErrConfiguration, config.Provider)
	}
}

// newHTTPClient builds the client remote providers share. An empty proxy
// defers to HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
func newHTTPClient(timeout time.Duration, proxy string) (*http.Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	proxyFunc, err := proxyFunc(proxy)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: proxyFunc,
		},
	}, nil
}

func proxyFunc(proxy string) (func(*http.Request) (*url.URL, error), error) {
	if proxy == "" {
		return http.ProxyFromEnvironment, nil
	}
	u, err := url.Parse(proxy)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid similarity proxy %q", model.ErrConfiguration, proxy)
	}
	return http.ProxyURL(u), nil
}

// throttle waits on the limiter for the host of rawURL, if there is a limiter
func throttle(ctx context.Context, l *worker.Limiter, rawURL string) error {
	if l == nil {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return l.WaitHost(ctx, rawURL)
	}
	return l.WaitHost(ctx, u.Host)
}

// cosine maps the cosine of two vectors into [0, 1]; opposite directions score 0
func cosine[F float32 | float64](a, b []F) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("%w: embedding sizes %d and %d", ErrBadResponse, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return model.Clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb))), nil
}
