// Package httpapi exposes stored analyses and on-demand runs over JSON.
package httpapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/infrastructure/storage"
	"MomentumScanner/internal/ports"
	"MomentumScanner/internal/usecase"
	"MomentumScanner/pkg/logger"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
	utf8BOM         = "\ufeff"
)

// BatchAnalyzer runs analyses for a list of company names.
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, names []string) usecase.BatchResult
}

// Server routes the results API.
type Server struct {
	router   *mux.Router
	repo     ports.AnalysisRepository
	analyzer BatchAnalyzer
	logger   *slog.Logger
	http     *http.Server
}

// NewServer registers every route on a fresh router.
func NewServer(addr string, repo ports.AnalysisRepository, analyzer BatchAnalyzer, log *slog.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		repo:     repo,
		analyzer: analyzer,
		logger:   log,
	}
	s.routes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.Std(log, "httpapi"),
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyses", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/analyses", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/analyses/count", s.handleCount).Methods(http.MethodGet)
	api.HandleFunc("/analyses/export.csv", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/analyses/{id:[0-9]+}/bookmark", s.handleBookmark).Methods(http.MethodPost)
	api.HandleFunc("/analyses/{id:[0-9]+}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/companies", s.handleCompanies).Methods(http.MethodGet)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	if s.logger != nil {
		s.logger.Info("http api listening", "addr", s.http.Addr)
	}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("analysis is not enabled"))
		return
	}

	var req struct {
		Entities []string `json:"entities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	names := make([]string, 0, len(req.Entities))
	for _, name := range req.Entities {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("at least one entity is required"))
		return
	}

	writeJSON(w, http.StatusOK, s.analyzer.AnalyzeBatch(r.Context(), names))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		records []domain.AnalysisRecord
		err     error
	)
	switch {
	case strings.TrimSpace(q.Get("q")) != "":
		records, err = s.repo.Search(r.Context(), strings.TrimSpace(q.Get("q")))
	case q.Get("bookmarked") == "true" || q.Get("bookmarked") == "1":
		records, err = s.repo.ListBookmarked(r.Context())
	default:
		limit, lerr := intParam(q.Get("limit"), defaultPageSize)
		offset, oerr := intParam(q.Get("offset"), 0)
		if lerr != nil || oerr != nil {
			writeError(w, http.StatusBadRequest, errors.Join(lerr, oerr))
			return
		}
		if limit < 1 || limit > maxPageSize {
			limit = defaultPageSize
		}
		records, err = s.repo.List(r.Context(), limit, offset)
	}
	if err != nil {
		s.internalError(w, "list analyses", err)
		return
	}
	if records == nil {
		records = []domain.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.Count(r.Context())
	if err != nil {
		s.internalError(w, "count analyses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.List(r.Context(), 0, 0)
	if err != nil {
		s.internalError(w, "export analyses", err)
		return
	}

	name := fmt.Sprintf("analysis_results_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte(utf8BOM))
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"id", "company_name", "filing_report", "filing_result", "filing_error",
		"news_count", "news_result", "status", "is_bookmarked", "created_at",
	})
	for _, rec := range records {
		_ = cw.Write([]string{
			strconv.FormatInt(rec.ID, 10),
			rec.CompanyName,
			rec.FilingReport,
			rec.FilingResult,
			rec.FilingError,
			strconv.Itoa(rec.NewsCount),
			rec.NewsResult,
			string(rec.Status),
			strconv.FormatBool(rec.Bookmarked),
			rec.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil && s.logger != nil {
		s.logger.Warn("csv export interrupted", "error", err)
	}
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.repo.ToggleBookmark)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.repo.Delete)
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return
	}

	if err := op(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.internalError(w, "update analysis", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	names, err := s.repo.AnalyzedCompanies(r.Context())
	if err != nil {
		s.internalError(w, "list companies", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	if s.logger != nil {
		s.logger.Error(op+" failed", "error", err)
	}
	writeError(w, http.StatusInternalServerError, errors.New(op+" failed"))
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
