package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"MomentumScanner/internal/config"
	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/entity"
	"MomentumScanner/internal/scanner"
)

const (
	naverDefaultEndpoint = "https://openapi.naver.com/v1/search/news.json"
	naverDateLayout      = time.RFC1123Z
)

// NaverScanner pages through the Naver news search API once per seed keyword.
type NaverScanner struct {
	client       *http.Client
	endpoint     string
	clientID     string
	clientSecret string
	display      int
	maxStart     int
	denylist     []string
	matcher      *entity.Matcher
	limiter      *rate.Limiter
	logger       *slog.Logger
}

var _ scanner.Scanner = (*NaverScanner)(nil)

// NewNaverScanner wires credentials, title denylist and the entity matcher used
// for title-level disambiguation. A nil client gets a 20s timeout.
func NewNaverScanner(cfg config.NaverConfig, titleDenylist []string, matcher *entity.Matcher, client *http.Client, log *slog.Logger) *NaverScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = naverDefaultEndpoint
	}
	display := cfg.Display
	if display <= 0 || display > 100 {
		display = 100
	}
	maxStart := cfg.MaxStart
	if maxStart <= 0 || maxStart > 1000 {
		maxStart = 1000
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &NaverScanner{
		client:       client,
		endpoint:     endpoint,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		display:      display,
		maxStart:     maxStart,
		denylist:     titleDenylist,
		matcher:      matcher,
		limiter:      rate.NewLimiter(limit, 1),
		logger:       log,
	}
}

// Name identifies the strategy inside the registry.
func (n *NaverScanner) Name() string {
	return "naver"
}

type naverResponse struct {
	Items []naverItem `json:"items"`
}

type naverItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	PubDate      string `json:"pubDate"`
}

// Scan queries `"<entity>" "<keyword>"` for each keyword, newest first, and
// returns link-unique stubs. A failing keyword is logged and skipped; only
// context cancellation is reported as an error.
func (n *NaverScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.ArticleStub, error) {
	if strings.TrimSpace(req.Entity) == "" {
		return nil, fmt.Errorf("naver scan: empty entity")
	}
	if len(req.Keywords) == 0 {
		return nil, fmt.Errorf("naver scan %s: no keywords provided", req.Entity)
	}

	seen := map[string]struct{}{}
	var results []domain.ArticleStub

	for _, keyword := range req.Keywords {
		stubs, err := n.scanKeyword(ctx, req, keyword, seen)
		results = append(results, stubs...)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return results, ctxErr
		}
		n.warn("keyword search aborted", "entity", req.Entity, "keyword", keyword, "error", err)
	}

	n.debug("naver scan done", "entity", req.Entity, "stubs", len(results))
	return results, nil
}

func (n *NaverScanner) scanKeyword(ctx context.Context, req scanner.Request, keyword string, seen map[string]struct{}) ([]domain.ArticleStub, error) {
	query := `"` + req.Entity + `" "` + keyword + `"`
	var collected []domain.ArticleStub

	for start := 1; start <= n.maxStart; start += n.display {
		pageURL, err := buildSearchURL(n.endpoint, query, start, n.display)
		if err != nil {
			return collected, err
		}

		items, err := n.fetchPage(ctx, pageURL)
		if err != nil {
			return collected, err
		}
		if len(items) == 0 {
			n.debug("empty page", "keyword", keyword, "start", start)
			return collected, nil
		}

		for _, item := range items {
			stub, verdict := n.evaluate(item, req, seen)
			switch verdict {
			case verdictStop:
				n.debug("reached cutoff", "keyword", keyword, "start", start)
				return collected, nil
			case verdictKeep:
				seen[stub.Link] = struct{}{}
				collected = append(collected, stub)
			}
		}
	}

	return collected, nil
}

type verdict int

const (
	verdictSkip verdict = iota
	verdictKeep
	verdictStop
)

func (n *NaverScanner) evaluate(item naverItem, req scanner.Request, seen map[string]struct{}) (domain.ArticleStub, verdict) {
	publishedAt, err := time.Parse(naverDateLayout, strings.TrimSpace(item.PubDate))
	if err != nil {
		return domain.ArticleStub{}, verdictSkip
	}
	if publishedAt.Before(req.Cutoff) {
		return domain.ArticleStub{}, verdictStop
	}

	link := strings.TrimSpace(item.OriginalLink)
	if link == "" {
		link = strings.TrimSpace(item.Link)
	}
	if link == "" {
		return domain.ArticleStub{}, verdictSkip
	}
	if _, ok := seen[link]; ok {
		return domain.ArticleStub{}, verdictSkip
	}

	title := CleanTitle(item.Title)
	if containsAny(title, n.denylist) {
		return domain.ArticleStub{}, verdictSkip
	}
	if !strings.Contains(title, req.Entity) && n.matcher.AnyOtherMention(title, req.Entity) {
		return domain.ArticleStub{}, verdictSkip
	}

	return domain.ArticleStub{
		Title:          title,
		Link:           link,
		RawPublishedAt: item.PubDate,
		PublishedAt:    publishedAt,
	}, verdictKeep
}

func (n *NaverScanner) fetchPage(ctx context.Context, pageURL string) ([]naverItem, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", n.clientID)
	req.Header.Set("X-Naver-Client-Secret", n.clientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request search page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.debug("search rejected", "status", resp.Status)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, nil
	}

	var page naverResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode search page: %w", err)
	}
	return page.Items, nil
}

// CleanTitle strips markup such as <b> highlights and decodes HTML entities.
func CleanTitle(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return strings.TrimSpace(raw)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(doc.Text())
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func buildSearchURL(base, query string, start, display int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid search endpoint %s: %w", base, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("search endpoint must be absolute")
	}

	q := parsed.Query()
	q.Set("query", query)
	q.Set("display", strconv.Itoa(display))
	q.Set("start", strconv.Itoa(start))
	q.Set("sort", "date")
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func (n *NaverScanner) debug(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Debug(msg, args...)
	}
}

func (n *NaverScanner) warn(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}
