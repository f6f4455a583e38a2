// Package filings talks to the service that retrieves periodic company reports.
package filings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"MomentumScanner/internal/config"
	"MomentumScanner/internal/ports"
)

// ErrFilingUnavailable is returned when no filing service is configured.
var ErrFilingUnavailable = errors.New("filing service unavailable")

// Client fetches the latest periodic report of a company over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.FilingSource = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.FilingsConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// LatestReport returns the report name and its business section text. A
// service-side error message is returned as an error together with whatever
// report name the service knew.
func (c *Client) LatestReport(ctx context.Context, company string) (string, string, error) {
	if c == nil || c.endpoint == "" {
		return "", "", ErrFilingUnavailable
	}

	var resp struct {
		Report string `json:"report"`
		Text   string `json:"text"`
		Error  string `json:"error"`
	}
	if err := c.post(ctx, "/filings", map[string]any{"entity": company}, &resp); err != nil {
		return "", "", err
	}
	if resp.Error != "" {
		return resp.Report, "", errors.New(resp.Error)
	}
	return resp.Report, resp.Text, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
