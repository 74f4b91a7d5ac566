package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// maxErrorBody caps how much of an error response is kept for the message.
const maxErrorBody = 8 << 10

// RejectedError is returned by [Client.Send] when the server answers with a
// non-200 status. The session remains fully intact; the operator may retry
// after addressing whatever Body reports.
type RejectedError struct {
	// Status is the HTTP status code the server returned.
	Status int

	// Body is the human-readable error body.
	Body string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submit: server returned %d: %s", e.Status, e.Body)
}

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The default client has
// no timeout: a submission is waited out until the server answers or the
// context is cancelled.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// Client sends submission batches to the collection server.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a Client posting to url.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("submit: url must not be empty")
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

// Send posts the payload as one atomic multipart request and returns the
// redirect location from the response body on success.
//
// On a non-200 response it returns a [*RejectedError]; nothing is partially
// applied and no retry is attempted.
func (c *Client) Send(ctx context.Context, p Payload) (redirect string, err error) {
	body, contentType, err := encode(p)
	if err != nil {
		return "", fmt.Errorf("submit: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("submit: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit: request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode != http.StatusOK {
		return "", &RejectedError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return strings.TrimSpace(string(raw)), nil
}

// encode renders the payload as a multipart/form-data body.
func encode(p Payload) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	// The server expects duration as a bare JSON number in string form.
	if err := w.WriteField("duration", strconv.FormatFloat(p.Duration, 'f', -1, 64)); err != nil {
		return nil, "", err
	}
	for field, value := range map[string]string{
		"user_id":       p.UserID,
		"manager_id":    p.ManagerID,
		"collection_id": p.CollectionID,
	} {
		if err := w.WriteField(field, value); err != nil {
			return nil, "", err
		}
	}

	recordings := p.Recordings
	if recordings == nil {
		recordings = map[string]Entry{}
	}
	recJSON, err := json.Marshal(recordings)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("recordings", string(recJSON)); err != nil {
		return nil, "", err
	}

	skipped := p.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	skipJSON, err := json.Marshal(skipped)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("skipped", string(skipJSON)); err != nil {
		return nil, "", err
	}

	for _, f := range p.Files {
		part, err := w.CreateFormFile("file_"+f.TokenID, f.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Payload); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
