package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"MomentumScanner/internal/config"
	"MomentumScanner/internal/dedup"
	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/entity"
	"MomentumScanner/internal/filter"
	"MomentumScanner/internal/ports"
	"MomentumScanner/internal/scanner"
)

// PipelineDeps wires the driven adapters of one news curation run.
type PipelineDeps struct {
	Source  ports.StubSource
	Fetcher ports.PageFetcher
	// Extract turns a fetched page into article text. Nil uses the page as is.
	Extract func(page string) string
	Matcher *entity.Matcher
	Cache   ports.BodyCache
	Config  config.PipelineConfig
	Logger  *slog.Logger
	Now     func() time.Time
}

// RunStats counts what happened to the candidates of one run.
type RunStats struct {
	Searched      int                   `json:"searched"`
	Unique        int                   `json:"unique"`
	Stale         int                   `json:"stale"`
	CacheHits     int                   `json:"cacheHits"`
	FetchFailures int                   `json:"fetchFailures"`
	Rejected      map[filter.Reason]int `json:"rejected"`
	Admitted      int                   `json:"admitted"`
	Elapsed       time.Duration         `json:"elapsed"`
}

// Result is the curated article list of one run, newest first.
type Result struct {
	Articles []domain.Article `json:"articles"`
	Count    int              `json:"count"`
	Stats    RunStats         `json:"stats"`
}

// NewsPipeline searches, deduplicates, fetches and filters news for an entity.
type NewsPipeline struct {
	source  ports.StubSource
	fetcher ports.PageFetcher
	extract func(string) string
	cache   ports.BodyCache
	filter  filter.Filter
	cfg     config.PipelineConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewNewsPipeline constructs the orchestration component.
func NewNewsPipeline(deps PipelineDeps) *NewsPipeline {
	extract := deps.Extract
	if extract == nil {
		extract = func(page string) string { return page }
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &NewsPipeline{
		source:  deps.Source,
		fetcher: deps.Fetcher,
		extract: extract,
		cache:   deps.Cache,
		filter:  filter.New(deps.Config, deps.Matcher),
		cfg:     deps.Config,
		logger:  deps.Logger,
		now:     now,
	}
}

type outcome struct {
	article     domain.Article
	admitted    bool
	reason      filter.Reason
	cacheHit    bool
	fetchFailed bool
}

// Run returns the admitted articles for target. Only an invalid configuration
// is reported as an error; search and fetch failures shrink the result.
func (p *NewsPipeline) Run(ctx context.Context, target string) (Result, error) {
	if err := p.cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("pipeline config: %w", err)
	}

	started := p.now()
	stats := RunStats{Rejected: map[filter.Reason]int{}}
	cutoff := p.cfg.Cutoff(started)

	var stubs []domain.ArticleStub
	if p.source != nil {
		found, err := p.source.Collect(ctx, scanner.Request{
			Entity:   target,
			Keywords: p.cfg.Keywords,
			Cutoff:   cutoff,
		})
		if err != nil {
			p.warn("search failed", "entity", target, "error", err)
		}
		stubs = found
	}
	stats.Searched = len(stubs)

	if len(stubs) == 0 {
		p.info("no candidates found", "entity", target)
		return Result{Articles: []domain.Article{}, Stats: stats}, nil
	}

	stubs = dedup.Deduplicate(stubs, p.cfg.SimilarityThreshold)
	stats.Unique = len(stubs)

	fresh := stubs[:0]
	for _, stub := range stubs {
		if stub.PublishedAt.Before(cutoff) {
			stats.Stale++
			continue
		}
		fresh = append(fresh, stub)
	}

	var (
		mu       sync.Mutex
		articles = make([]domain.Article, 0, len(fresh))
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.MaxConcurrent)
	for _, stub := range fresh {
		stub := stub
		group.Go(func() error {
			out := p.process(gctx, target, stub)

			mu.Lock()
			defer mu.Unlock()
			if out.cacheHit {
				stats.CacheHits++
			}
			if out.fetchFailed {
				stats.FetchFailures++
			}
			if !out.admitted {
				stats.Rejected[out.reason]++
				return nil
			}
			articles = append(articles, out.article)
			return nil
		})
	}
	_ = group.Wait()

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})

	stats.Admitted = len(articles)
	stats.Elapsed = p.now().Sub(started)
	p.info("news pipeline finished",
		"entity", target,
		"searched", stats.Searched,
		"unique", stats.Unique,
		"stale", stats.Stale,
		"cache_hits", stats.CacheHits,
		"fetch_failures", stats.FetchFailures,
		"rejected", stats.Rejected,
		"admitted", stats.Admitted,
		"elapsed", stats.Elapsed,
	)

	return Result{Articles: articles, Count: len(articles), Stats: stats}, nil
}

func (p *NewsPipeline) process(ctx context.Context, target string, stub domain.ArticleStub) outcome {
	out := outcome{article: domain.Article{ArticleStub: stub}}

	body, hit := p.cachedBody(ctx, stub.Link)
	out.cacheHit = hit
	if !hit {
		body = p.fetchBody(ctx, stub.Link)
		if body == "" {
			out.fetchFailed = true
		} else {
			p.storeBody(ctx, stub.Link, body)
		}
	}

	out.admitted, out.reason = p.filter.Admit(target, body)
	if !out.admitted {
		p.debug("article rejected", "link", stub.Link, "reason", out.reason)
		return out
	}
	out.article.Body = body
	return out
}

func (p *NewsPipeline) fetchBody(ctx context.Context, link string) string {
	if p.fetcher == nil {
		return ""
	}
	page, err := p.fetcher.Fetch(ctx, link)
	if err != nil {
		p.debug("article dropped", "link", link, "error", err)
		return ""
	}
	return p.extract(page)
}

func (p *NewsPipeline) cachedBody(ctx context.Context, link string) (string, bool) {
	if p.cache == nil {
		return "", false
	}
	body, ok, err := p.cache.Get(ctx, link)
	if err != nil {
		p.debug("body cache read failed", "link", link, "error", err)
		return "", false
	}
	return body, ok && body != ""
}

func (p *NewsPipeline) storeBody(ctx context.Context, link, body string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, link, body); err != nil {
		p.debug("body cache write failed", "link", link, "error", err)
	}
}

func (p *NewsPipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *NewsPipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *NewsPipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
