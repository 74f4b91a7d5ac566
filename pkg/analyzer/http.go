package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody caps how much of an error response is read for the message.
const maxErrorBody = 4 << 10

// Compile-time interface assertion.
var _ Analyzer = (*Client)(nil)

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithTimeout sets the per-request timeout. By default there is none: the
// caller waits until the service answers or the request context ends.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to add a custom
// transport in tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// Client is an [Analyzer] backed by a remote analysis service. The service
// receives the raw WAV body via POST and answers with a JSON document:
//
//	{"analysis": "ok" | "high" | "low" | "error", "segment": {"start": s, "end": e}}
//
// where segment is optional.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a Client for the analysis endpoint at url.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("analyzer: url must not be empty")
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// response is the JSON document returned by the analysis service.
type response struct {
	Analysis Verdict `json:"analysis"`
	Segment  *Region `json:"segment"`
}

// Analyze implements [Analyzer].
func (c *Client) Analyze(ctx context.Context, wav []byte) (Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(wav))
	if err != nil {
		return Report{}, fmt.Errorf("analyzer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("analyzer: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Report{}, fmt.Errorf("analyzer: service returned %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("analyzer: decode response: %w", err)
	}
	if !r.Analysis.IsValid() {
		return Report{}, fmt.Errorf("analyzer: unknown verdict %q", r.Analysis)
	}
	return Report{Verdict: r.Analysis, Segment: r.Segment}, nil
}
