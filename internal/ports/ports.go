package ports

import (
	"context"
	"time"

	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/scanner"
)

// StubSource searches news providers for candidate articles about an entity.
type StubSource interface {
	Collect(ctx context.Context, req scanner.Request) ([]domain.ArticleStub, error)
}

// PageFetcher downloads an article page and returns it as decoded text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// BodyCache remembers extracted bodies by article link.
type BodyCache interface {
	Get(ctx context.Context, link string) (string, bool, error)
	Set(ctx context.Context, link, body string) error
}

// AnalysisRepository persists finished analyses for the dashboard.
type AnalysisRepository interface {
	Add(ctx context.Context, record domain.AnalysisRecord) (int64, error)
	List(ctx context.Context, limit, offset int) ([]domain.AnalysisRecord, error)
	ListBookmarked(ctx context.Context) ([]domain.AnalysisRecord, error)
	Search(ctx context.Context, keyword string) ([]domain.AnalysisRecord, error)
	ToggleBookmark(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	AnalyzedCompanies(ctx context.Context) ([]string, error)
}

// Summarizer turns curated articles or filing text into prose.
type Summarizer interface {
	SummarizeNews(ctx context.Context, company string, articles []domain.Article) (string, error)
	SummarizeFiling(ctx context.Context, company, report, text string) (string, error)
}

// FilingSource supplies the latest periodic report for a company.
type FilingSource interface {
	LatestReport(ctx context.Context, company string) (report, text string, err error)
}

// Notifier streams finished analyses to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
