package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
	governor   *Governor
}

func NewHttpClient(baseURL string) *HttpClient {
	return &HttpClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithGovernor routes every request through a request governor:
// identical in-flight calls are deduplicated and throttled calls are
// queued and replayed after the server-specified cooldown.
func (c *HttpClient) WithGovernor(g *Governor) *HttpClient {
	c.governor = g
	return c
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

func (r *Response) ToString() string {
	return fmt.Sprintf("status=%d body=%s", r.StatusCode, string(r.Body))
}

func (c *HttpClient) GET(path string) (*Response, error) {
	return c.request(http.MethodGet, path, nil, nil, "")
}

func (c *HttpClient) POST(path string, body any) (*Response, error) {
	return c.request(http.MethodPost, path, body, nil, "")
}

// POSTIdempotent sends a POST carrying an explicit idempotency key. The
// key both deduplicates concurrent identical calls locally and lets the
// server replay an already-committed outcome.
func (c *HttpClient) POSTIdempotent(path string, body any, idempotencyKey string) (*Response, error) {
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	return c.request(http.MethodPost, path, body, headers, idempotencyKey)
}

func (c *HttpClient) PATCH(path string, body any) (*Response, error) {
	return c.request(http.MethodPatch, path, body, nil, "")
}

func (c *HttpClient) DELETE(path string) (*Response, error) {
	return c.request(http.MethodDelete, path, nil, nil, "")
}

func (c *HttpClient) request(method, path string, body any, headers map[string]string, idempotencyKey string) (*Response, error) {
	var rawBody []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rawBody = data
	}

	attempt := func() (*Response, error) {
		return c.do(method, path, rawBody, headers)
	}

	if c.governor == nil {
		return attempt()
	}

	// Without an explicit key, dedup falls back to the request shape.
	key := idempotencyKey
	if key == "" {
		key = method + " " + c.BaseURL + path
	}
	return c.governor.Do(key, method+" "+path, attempt)
}

func (c *HttpClient) do(method, path string, rawBody []byte, headers map[string]string) (*Response, error) {
	url := c.BaseURL + path

	var reqBody io.Reader
	if rawBody != nil {
		reqBody = bytes.NewReader(rawBody)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if rawBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

func (c *HttpClient) WaitForHealthy(maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		resp, err := c.HTTPClient.Get(c.BaseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		<-ticker.C
	}

	return fmt.Errorf("service did not become healthy within %v", maxWait)
}
