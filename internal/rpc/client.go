package rpc

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

	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/ratelimiter"
)

type NetworkClient interface {
	Do(ctx context.Context, method, endpoint string, body any, params map[string]string) ([]byte, error)
	DoRaw(ctx context.Context, method, endpoint string, body io.Reader, contentType string) ([]byte, error)
	IsHealthy(ctx context.Context) bool
	GetNetworkType() string
	GetClientType() string
	GetURL() string
	Close() error
}

// BaseClient is the shared REST transport for upstream services: auth,
// per-host rate limiting and status handling.
type BaseClient struct {
	httpClient  *http.Client
	baseURL     string
	host        string
	auth        *AuthConfig
	network     string
	clientType  string
	accept      string
	rateLimiter *ratelimiter.HostLimiter
}

func NewBaseClient(
	baseURL, network, clientType string,
	auth *AuthConfig,
	timeout time.Duration,
	rl *ratelimiter.HostLimiter,
) *BaseClient {
	baseURL = strings.TrimSuffix(baseURL, "/")
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &BaseClient{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		host:        host,
		auth:        auth,
		network:     network,
		clientType:  clientType,
		accept:      "application/json",
		rateLimiter: rl,
	}
}

// WithAccept sets the Accept header sent with every request.
func (c *BaseClient) WithAccept(accept string) *BaseClient {
	c.accept = accept
	return c
}

// Do sends body as JSON and returns the raw response body.
func (c *BaseClient) Do(ctx context.Context, method, endpoint string, body any, params map[string]string) ([]byte, error) {
	var reqBody io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(b)
		contentType = "application/json"
	}

	endpoint = withQuery(endpoint, params)
	return c.DoRaw(ctx, method, endpoint, reqBody, contentType)
}

// DoRaw sends body unchanged with the given content type.
func (c *BaseClient) DoRaw(ctx context.Context, method, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx, c.host); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	fullURL := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.accept != "" {
		req.Header.Set("Accept", c.accept)
	}
	c.auth.apply(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	logger.Debug("HTTP request completed",
		"network", c.network,
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return data, &HTTPError{StatusCode: resp.StatusCode, URL: c.baseURL + endpoint, Body: data}
	}
	return data, nil
}

func withQuery(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + q.Encode()
}

// IsHealthy probes GET /health.
func (c *BaseClient) IsHealthy(ctx context.Context) bool {
	_, err := c.Do(ctx, http.MethodGet, "/health", nil, nil)
	return err == nil
}

func (c *BaseClient) GetNetworkType() string { return c.network }
func (c *BaseClient) GetClientType() string  { return c.clientType }
func (c *BaseClient) GetURL() string         { return c.baseURL }
func (c *BaseClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
