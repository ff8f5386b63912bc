package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/healthsync-ai/cli/internal/errs"
	"github.com/healthsync-ai/cli/internal/metrics"
)

// TokenSource supplies the bearer token for outgoing requests. An empty token
// means the request goes out unauthenticated.
type TokenSource interface {
	BearerToken() string
}

// Options configures a Client
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Logger            zerolog.Logger
	HTTPClient        *http.Client
}

// Client wraps HealthSync backend interactions
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger

	mu     sync.RWMutex
	tokens TokenSource
}

// NewClient creates a new backend client
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:5001"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		log:        opts.Logger.With().Str("component", "api").Logger(),
	}
}

// BaseURL returns the backend root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetSession swaps the token source. Pass nil on sign-out.
func (c *Client) SetSession(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.BearerToken()
}

// Call sends a JSON request and decodes the JSON response into out (if non-nil)
func (c *Client) Call(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, endpoint, req, out)
}

// Upload posts r as a multipart form file under field
func (c *Client) Upload(ctx context.Context, endpoint, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(ctx, endpoint, req, out)
}

func (c *Client) do(ctx context.Context, endpoint string, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &errs.NetworkError{Endpoint: endpoint, Err: err}
	}

	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	done := metrics.RequestStarted(endpoint)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		done(0)
		c.log.Debug().Err(err).Str("method", req.Method).Str("endpoint", endpoint).Msg("request failed")
		return &errs.NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	done(resp.StatusCode)

	c.log.Debug().
		Str("method", req.Method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return errs.HTTP(resp.StatusCode, errorMessage(body))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errs.NetworkError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// errorMessage pulls the human-readable message out of an error body, if any
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
