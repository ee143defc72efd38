package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Options configures a Client. Sampling parameters are fixed per client so
// that runs are reproducible.
type Options struct {
	Model       string
	Seed        int
	Temperature float64
	TopP        float64

	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
}

// DefaultOptions match the parameters the dataset runs were tuned with.
var DefaultOptions = Options{
	Model:       "gpt-oss:20b",
	Seed:        123,
	Temperature: 1.0,
	TopP:        1.0,
	Timeout:     180 * time.Second,
	MaxRetries:  4,
	BackoffBase: time.Second,
}

// retryable HTTP status classes; everything else fails the call immediately.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client issues single-turn, non-streaming chat requests against an Ollama
// /api/chat endpoint. It keeps no per-call state and is safe for concurrent
// use.
type Client struct {
	opts    Options
	client  *http.Client
	metrics *Metrics
}

// NewClient ...
func NewClient(opts Options) *Client {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	return &Client{
		opts: opts,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		metrics: &Metrics{},
	}
}

// Metrics returns the client's request counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Seed        int           `json:"seed"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Message *chatMessage `json:"message"`
}

// Call sends prompt under the given role to endpoint and returns the content
// text of the reply. Transport errors and retryable HTTP statuses are retried
// with exponential backoff; once the retry budget is exhausted the call fails
// with *UnavailableError and the caller is expected to abandon the entry.
//
// If the response body does not look like an Ollama chat envelope the raw
// body is returned as-is so that older or misbehaving servers do not stall
// the pipeline.
func (c *Client) Call(ctx context.Context, prompt, role, endpoint string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Seed:        c.opts.Seed,
		Temperature: c.opts.Temperature,
		TopP:        c.opts.TopP,
		Messages:    []chatMessage{{Role: role, Content: prompt}},
		Stream:      false,
	})
	if err != nil {
		return "", errors.Wrapf(err, "marshaling chat request for %s", endpoint)
	}

	var lastErr error
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		c.metrics.request()
		if attempt > 0 {
			c.metrics.retry()
		}

		text, retryable, err := c.doOnce(ctx, payload, endpoint)
		if err == nil {
			c.metrics.success()
			return text, nil
		}
		lastErr = err

		if !retryable {
			return "", err
		}
		if attempt == c.opts.MaxRetries-1 {
			break
		}
		if err := sleep(ctx, c.opts.BackoffBase*(1<<uint(attempt))); err != nil {
			return "", err
		}
	}

	return "", &UnavailableError{
		Endpoint: endpoint,
		Attempts: c.opts.MaxRetries,
		Last:     lastErr,
	}
}

// doOnce performs a single request. The second return value reports whether
// the failure class is worth retrying.
func (c *Client) doOnce(ctx context.Context, payload []byte, endpoint string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", false, errors.Wrapf(err, "building request for %s", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.transportErr(err)
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, errors.Wrapf(err, "network error to %s", endpoint)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		c.metrics.transportErr(err)
		return "", true, errors.Wrapf(err, "reading response from %s", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.httpErr()
		return "", retryableStatus[resp.StatusCode],
			errors.Errorf("HTTP %d from %s: %s", resp.StatusCode, endpoint, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != nil {
		return parsed.Message.Content, false, nil
	}

	// Unknown response shape: fall back to the raw body.
	c.metrics.fallback()
	return string(body), false, nil
}

// sleep waits for the given duration or until ctx is cancelled.
func sleep(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// UnavailableError reports a call whose retry budget is exhausted. It is
// fatal to the entry being generated, not to the run.
type UnavailableError struct {
	Endpoint string
	Attempts int
	Last     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("endpoint %s unavailable after %d attempts: %v", e.Endpoint, e.Attempts, e.Last)
}

// IsUnavailable reports whether err is an exhausted-retries failure.
func IsUnavailable(err error) bool {
	_, ok := errors.Cause(err).(*UnavailableError)
	return ok
}
