// Package flow talks to the Flow Access REST API and to the submission gateway.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/metrics"
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 512

// Client is a JSON-over-HTTP client for access nodes.
type Client struct {
	httpClient *http.Client
	retry      RetryConfig
	breakers   *breakers
	log        *slog.Logger
}

// NewClient creates a client with the given per-request timeout.
func NewClient(timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: DefaultRetryConfig,
		log:   log.With("component", "flow"),
	}
	c.breakers = newBreakers(DefaultBreakerConfig, func(name string, from, to gobreaker.State) {
		c.log.Warn("Access node circuit changed", "host", name, "from", from.String(), "to", to.String())
	})
	return c
}

// WithBreaker returns a copy of c with fresh breakers using cfg.
func (c *Client) WithBreaker(cfg BreakerConfig) *Client {
	cp := *c
	cp.breakers = newBreakers(cfg, c.breakers.on)
	return &cp
}

// WithRetry returns a copy of c using the given retry policy.
func (c *Client) WithRetry(cfg RetryConfig) *Client {
	cp := *c
	cp.retry = cfg
	return &cp
}

// Close cleans up idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// call performs a request with retries and decodes the JSON answer into out.
// op names the call in metrics and logs.
func (c *Client) call(
	ctx context.Context,
	network domain.NetworkID,
	op, method, url string,
	body, out any,
) error {
	start := time.Now()
	_, err := c.breakers.get(url).Execute(func() (any, error) {
		return nil, callWithRetry(ctx, c.retry, func(ctx context.Context) error {
			return c.do(ctx, method, url, body, out)
		})
	})

	status := "ok"
	switch {
	case isBreakerError(err):
		status = "circuit_open"
		err = fmt.Errorf("access node %s unavailable: %w", url, err)
	case err != nil:
		status = "error"
		c.log.Debug("Access call failed", "network", network, "op", op, "url", url, "error", err)
	}
	metrics.AccessCallsTotal.WithLabelValues(string(network), op, status).Inc()
	metrics.AccessLatency.WithLabelValues(string(network), op).Observe(time.Since(start).Seconds())
	return err
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:       resp.StatusCode,
			Body:       errorMessage(data),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{What: "response", Err: err}
	}
	return nil
}

// errorMessage extracts {"message": ...} from Access API errors, falling back
// to the raw body.
func errorMessage(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

func endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
