package similarity

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/worker"
)

// DefaultSTSURL is the UMBC semantic textual similarity service
const DefaultSTSURL = "http://swoogle.umbc.edu/StsService/GetStsSim?operation=api"

// STSProvider queries a semantic textual similarity web service that answers
// GET <base>&phrase1=..&phrase2=.. with a bare number
type STSProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *worker.Limiter
}

// NewSTSProvider creates a new STS provider
func NewSTSProvider(config Config) (*STSProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultSTSURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: sts base url: %v", model.ErrConfiguration, err)
	}

	client, err := newHTTPClient(config.Timeout, config.Proxy)
	if err != nil {
		return nil, err
	}

	return &STSProvider{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    config.Limiter,
	}, nil
}

func (p *STSProvider) Name() string {
	return "sts"
}

func (p *STSProvider) CacheID() string {
	return "sts|" + p.baseURL
}

func (p *STSProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := throttle(ctx, p.limiter, p.baseURL); err != nil {
		return 0, err
	}

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return 0, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("phrase1", a)
	q.Set("phrase2", b)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept-Charset", "utf-8")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("STS request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("STS service returned HTTP %d", resp.StatusCode)
	}

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil && line == "" {
		return 0, fmt.Errorf("%w: empty STS response", ErrBadResponse)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadResponse, strings.TrimSpace(line))
	}
	return model.Clamp01(v), nil
}
