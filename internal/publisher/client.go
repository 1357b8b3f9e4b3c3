// Package publisher pushes parsed catalog records to the downstream
// catalog API.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/candleworks/catalogsync/internal/config"
	"github.com/candleworks/catalogsync/internal/logger"
	"github.com/candleworks/catalogsync/internal/parser"
)

const (
	batchPath      = "/products/batch"
	requestTimeout = 30 * time.Second
	maxAttempts    = 4
)

// HTTPError represents a non-2xx response from the catalog API.
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// Client publishes records to the catalog API in fixed-size pages.
type Client struct {
	endpoint   string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates a publisher for the configured catalog endpoint.
func NewClient(cfg *config.PublisherConfig) *Client {
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		pageSize:   cfg.GetPageSize(),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// batchRequest is the wire format of one page upload.
type batchRequest struct {
	Products []parser.Record `json:"products"`
}

// Publish uploads all records in pages. Each page is retried with
// exponential backoff on transient failures; client errors (4xx) abort
// immediately since a retry cannot succeed. The first page that exhausts
// its retries fails the whole publication.
func (c *Client) Publish(ctx context.Context, records []parser.Record) error {
	if len(records) == 0 {
		return nil
	}

	pages := (len(records) + c.pageSize - 1) / c.pageSize
	for page := 0; page < pages; page++ {
		start := page * c.pageSize
		end := min(start+c.pageSize, len(records))

		if err := c.publishPage(ctx, records[start:end]); err != nil {
			return fmt.Errorf("failed to publish page %d of %d: %w", page+1, pages, err)
		}
		logger.Debugf("Published page %d/%d (%d records)", page+1, pages, end-start)
	}

	logger.Infof("Published %d records to %s in %d pages", len(records), c.endpoint, pages)
	return nil
}

// publishPage posts one page, retrying transient failures.
func (c *Client) publishPage(ctx context.Context, records []parser.Record) error {
	body, err := json.Marshal(batchRequest{Products: records})
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	operation := func() (struct{}, error) {
		return struct{}{}, c.post(ctx, body)
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
	)
	return err
}

// post performs a single batch upload attempt.
func (c *Client) post(ctx context.Context, body []byte) error {
	url := c.endpoint + batchPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Cap the detail we keep from an error body.
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(detail)),
		URL:        url,
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// The payload is wrong, not the network; retrying cannot help.
		return backoff.Permanent(httpErr)
	}
	return httpErr
}
