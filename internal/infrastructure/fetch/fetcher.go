// Package fetch downloads publisher pages with retries and charset recovery.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"

	"MomentumScanner/internal/config"
	"MomentumScanner/internal/ports"
	"MomentumScanner/internal/retry"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxPageBytes     = 8 << 20
)

// ErrNoContent means the page could not be retrieved; the article is dropped.
var ErrNoContent = errors.New("no content")

// Fetcher is safe for concurrent use; all calls share one http.Client.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	policy  retry.Policy
	logger  *slog.Logger
}

var _ ports.PageFetcher = (*Fetcher)(nil)

// NewFetcher builds a fetcher from pipeline settings; a nil client gets the
// configured request timeout.
func NewFetcher(cfg config.PipelineConfig, client *http.Client, log *slog.Logger) *Fetcher {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Fetcher{
		client:  client,
		timeout: timeout,
		policy: retry.Policy{
			Attempts: cfg.RetryCount,
			Backoff:  retry.Linear(cfg.RetryBackoff),
		},
		logger: log,
	}
}

// Fetch returns the decoded page at url. Network failures are retried with
// linear backoff; a non-200 answer is not. Every failure wraps ErrNoContent.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	raw, err := retry.Do(ctx, f.policy, func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, url)
	})
	if err != nil {
		f.debug("fetch failed", "url", url, "error", err)
		return "", fmt.Errorf("fetch %s: %w: %w", url, ErrNoContent, err)
	}
	return Decode(raw), nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, retry.Permanent(fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return body, nil
}

// Decode interprets raw as UTF-8, then strict EUC-KR, and finally as CP949
// with undecodable bytes dropped.
func Decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	if text, ok := decodeStrictKorean(raw); ok {
		return text
	}
	return decodeLossyKorean(raw)
}

func decodeStrictKorean(raw []byte) (string, bool) {
	out, err := korean.EUCKR.NewDecoder().Bytes(raw)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

func decodeLossyKorean(raw []byte) string {
	out, err := korean.EUCKR.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "")
	}
	return strings.Map(func(r rune) rune {
		if r == utf8.RuneError {
			return -1
		}
		return r
	}, string(out))
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
