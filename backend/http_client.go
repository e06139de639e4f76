package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPClient is the Client implementation that talks to a real index
// backend over HTTP/JSON, retrying transient failures via
// hashicorp/go-retryablehttp.
type HTTPClient struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewHTTPClient builds an HTTPClient against baseURL. maxRetries and
// timeout bound every individual RPC; logger receives retryablehttp's own
// retry/backoff diagnostics.
func NewHTTPClient(baseURL string, maxRetries int, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.HTTPClient.Timeout = timeout
	rc.Logger = newSlogAdapter(logger)

	return &HTTPClient{baseURL: baseURL, http: rc}
}

func (c *HTTPClient) Topology(ctx context.Context) (Topology, error) {
	var envelope struct {
		Error  string   `json:"error"`
		Result Topology `json:"result"`
	}
	if err := c.post(ctx, "/topology", nil, &envelope); err != nil {
		return Topology{}, err
	}
	if envelope.Error != "" {
		return Topology{}, &Error{Message: envelope.Error}
	}
	return envelope.Result, nil
}

func (c *HTTPClient) Query(ctx context.Context, query, taint, dataset string) (QueryResult, error) {
	req := struct {
		Query   string `json:"query"`
		Taint   string `json:"taint,omitempty"`
		Dataset string `json:"dataset"`
	}{Query: query, Taint: taint, Dataset: dataset}

	var envelope struct {
		Error     string `json:"error"`
		FileCount int64  `json:"file_count"`
		Iterator  string `json:"iterator"`
	}
	if err := c.post(ctx, "/query", req, &envelope); err != nil {
		return QueryResult{}, err
	}
	if envelope.Error != "" {
		return QueryResult{}, &Error{Message: envelope.Error}
	}
	return QueryResult{FileCount: envelope.FileCount, Iterator: envelope.Iterator}, nil
}

func (c *HTTPClient) Pop(ctx context.Context, iterator string, count int) (PopResult, error) {
	req := struct {
		Iterator string `json:"iterator"`
		Count    int    `json:"count"`
	}{Iterator: iterator, Count: count}

	var envelope struct {
		Error         string   `json:"error"`
		Files         []string `json:"files"`
		IteratorEmpty bool     `json:"iterator_empty"`
	}
	if err := c.post(ctx, "/pop", req, &envelope); err != nil {
		return PopResult{}, err
	}
	if envelope.Error != "" {
		return PopResult{}, &Error{Message: envelope.Error}
	}
	return PopResult{Files: envelope.Files, IteratorEmpty: envelope.IteratorEmpty}, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("backend: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decoding response from %s: %w", path, err)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
