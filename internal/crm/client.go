package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/AngelCh415/touchpoints/internal/instrument"
	"github.com/AngelCh415/touchpoints/internal/utils"
)

var (
	ErrNotFound    = errors.New("crm: record not found")
	ErrRateLimited = errors.New("crm: rate limited")
	ErrUnavailable = errors.New("crm: api unavailable")
)

const DefaultBaseURL = "https://api.hubapi.com"

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

type Config struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	RatePerSec   float64
	RetryBackoff time.Duration
}

// Client talks to a HubSpot v3 style CRM API. Calls are paced by a token
// bucket and a failed call is retried once after a fixed delay.
type Client struct {
	baseURL string
	token   string
	http    HTTPClient
	limiter *rate.Limiter
	backoff utils.Backoff
	log     *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    NewHTTPClient(cfg.Timeout),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		backoff: utils.NewFixedBackoff(cfg.RetryBackoff, 1).Only(isTransient),
		log:     log,
	}
}

// SetHTTPClient swaps the transport, mainly for tests.
func (c *Client) SetHTTPClient(h HTTPClient) { c.http = h }

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("non-2xx: %d body=%s", e.code, e.body)
}

func (e *statusError) Unwrap() error {
	switch {
	case e.code == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.code == http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

func isTransient(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// call runs one API request, decoding a 2xx JSON body into dst.
func (c *Client) call(ctx context.Context, endpoint, method, path string, body, dst any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", endpoint, err)
		}
		payload = b
	}
	return c.backoff.Do(ctx, func(i int) error {
		if i > 0 {
			instrument.CRMRetry(endpoint)
			c.log.Warn("crm retry", slog.String("endpoint", endpoint), slog.Int("attempt", i))
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		start := time.Now()
		err := c.do(ctx, method, path, payload, dst)
		instrument.CRMRequest(endpoint, outcome(err), time.Since(start))
		return err
	})
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, dst any) error {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return &statusError{code: resp.StatusCode, body: string(b)}
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "error"
}

// Ping checks that the API answers with the configured token. It is run
// once before a batch.
func (c *Client) Ping(ctx context.Context) error {
	if c.token == "" {
		return fmt.Errorf("%w: no api token configured", ErrUnavailable)
	}
	if err := c.call(ctx, "ping", http.MethodGet, "/crm/v3/objects/contacts?limit=1", nil, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
