package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/entity"
	"MomentumScanner/internal/ports"
)

// ErrUnknownEntity is returned for names missing from the loaded company list.
var ErrUnknownEntity = errors.New("unknown entity")

const (
	noFilingReport = "없음"
	digestPreview  = 600
)

// AnalysisDeps wires the collaborators of a full company analysis.
type AnalysisDeps struct {
	News       *NewsPipeline
	Filings    ports.FilingSource
	Summarizer ports.Summarizer
	Repository ports.AnalysisRepository
	Notifier   ports.Notifier
	Matcher    *entity.Matcher
	Logger     *slog.Logger
	Now        func() time.Time
}

// AnalysisService runs filing and news analysis for one company and stores the result.
type AnalysisService struct {
	news       *NewsPipeline
	filings    ports.FilingSource
	summarizer ports.Summarizer
	repository ports.AnalysisRepository
	notifier   ports.Notifier
	matcher    *entity.Matcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewAnalysisService constructs the use case.
func NewAnalysisService(deps AnalysisDeps) *AnalysisService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AnalysisService{
		news:       deps.News,
		filings:    deps.Filings,
		summarizer: deps.Summarizer,
		repository: deps.Repository,
		notifier:   deps.Notifier,
		matcher:    deps.Matcher,
		logger:     deps.Logger,
		now:        now,
	}
}

// BatchResult pairs every requested name with its record or failure.
type BatchResult struct {
	Records []domain.AnalysisRecord `json:"records"`
	Errors  map[string]string       `json:"errors,omitempty"`
}

// Analyze validates name, summarizes its latest filing and news, then persists
// and announces the record. Filing and summarization failures are stored in
// the record; only validation, pipeline configuration and persistence errors
// are returned.
func (s *AnalysisService) Analyze(ctx context.Context, name string) (domain.AnalysisRecord, error) {
	company, err := s.resolve(name)
	if err != nil {
		return domain.AnalysisRecord{}, err
	}

	rec := domain.AnalysisRecord{
		CompanyName:  company,
		FilingReport: noFilingReport,
		Status:       domain.StatusCompleted,
		CreatedAt:    s.now(),
	}

	s.analyzeFiling(ctx, &rec)

	if s.news != nil {
		res, err := s.news.Run(ctx, company)
		if err != nil {
			return domain.AnalysisRecord{}, fmt.Errorf("news pipeline for %s: %w", company, err)
		}
		rec.NewsCount = res.Count
		if s.summarizer != nil {
			summary, err := s.summarizer.SummarizeNews(ctx, company, res.Articles)
			if err != nil {
				s.warn("news summary failed", "entity", company, "error", err)
				summary = "요약 오류: " + err.Error()
				rec.Status = domain.StatusFailed
			}
			rec.NewsResult = summary
		}
	}

	if s.repository != nil {
		id, err := s.repository.Add(ctx, rec)
		if err != nil {
			return rec, fmt.Errorf("persist analysis for %s: %w", company, err)
		}
		rec.ID = id
	}

	if s.notifier != nil {
		if err := s.notifier.PublishDigest(ctx, FormatDigest(rec)); err != nil {
			s.warn("publish digest failed", "entity", company, "error", err)
		}
	}

	s.info("analysis finished", "entity", company, "news_count", rec.NewsCount, "status", rec.Status)
	return rec, nil
}

// AnalyzeBatch analyzes names one after another; a failing name does not stop the batch.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, names []string) BatchResult {
	out := BatchResult{Records: []domain.AnalysisRecord{}}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if ctx.Err() != nil {
			out.addError(name, ctx.Err())
			continue
		}
		rec, err := s.Analyze(ctx, name)
		if err != nil {
			s.warn("analysis failed", "entity", name, "error", err)
			out.addError(name, err)
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

func (b *BatchResult) addError(name string, err error) {
	if b.Errors == nil {
		b.Errors = map[string]string{}
	}
	b.Errors[name] = err.Error()
}

func (s *AnalysisService) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnknownEntity)
	}
	if s.matcher.Len() == 0 {
		return name, nil
	}
	known, ok := s.matcher.Canonical(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return known, nil
}

func (s *AnalysisService) analyzeFiling(ctx context.Context, rec *domain.AnalysisRecord) {
	if s.filings == nil {
		return
	}

	report, text, err := s.filings.LatestReport(ctx, rec.CompanyName)
	if report != "" {
		rec.FilingReport = report
	}
	if err != nil {
		s.debug("filing unavailable", "entity", rec.CompanyName, "error", err)
		rec.FilingError = err.Error()
	}

	if s.summarizer == nil {
		return
	}
	summary, err := s.summarizer.SummarizeFiling(ctx, rec.CompanyName, report, text)
	if err != nil {
		s.warn("filing summary failed", "entity", rec.CompanyName, "error", err)
		summary = "요약 오류: " + err.Error()
	}
	rec.FilingResult = summary
}

// FormatDigest renders a short notification for a finished analysis.
func FormatDigest(rec domain.AnalysisRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s 분석 완료 (%s)\n", rec.CompanyName, rec.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "공시: %s\n", rec.FilingReport)
	fmt.Fprintf(&b, "수집 기사: %d건\n", rec.NewsCount)
	if rec.NewsResult != "" {
		b.WriteString("\n")
		b.WriteString(preview(rec.NewsResult, digestPreview))
	}
	return b.String()
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func (s *AnalysisService) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *AnalysisService) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *AnalysisService) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
