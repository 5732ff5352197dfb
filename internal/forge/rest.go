package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps how much of a forge response is read.
const maxResponseBytes = 4 << 20

// ClientConfig configures a forge REST client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://api.github.com".
	BaseURL string
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond int
}

type restClient struct {
	host       Host
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	headers    map[string]string
}

func newRESTClient(host Host, cfg ClientConfig, headers map[string]string) *restClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond*2)
	}
	return &restClient{
		host:       host,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		headers:    headers,
	}
}

// clientFor wraps the base transport so every request carries the token.
func (c *restClient) clientFor(token string) *http.Client {
	if token == "" {
		return c.httpClient
	}
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		},
	}
}

// getJSON issues a GET against path (relative to the base URL) and decodes
// the body into out. Non-2xx responses become *APIError.
func (c *restClient) getJSON(ctx context.Context, token, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%s: throttled: %w", c.host, ctxErr)
			}
			// Wait refuses up front when the next token lands after the deadline.
			if _, ok := ctx.Deadline(); ok {
				return fmt.Errorf("%s: throttled: %w", c.host, context.DeadlineExceeded)
			}
			return fmt.Errorf("%s: throttled: %w", c.host, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.host, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.clientFor(token).Do(req)
	if err != nil {
		return fmt.Errorf("%s: request %s: %w", c.host, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.host, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		msg := payload.Message
		if msg == "" {
			msg = payload.Error
		}
		return newAPIError(c.host, resp, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", c.host, path, err)
	}
	return nil
}
