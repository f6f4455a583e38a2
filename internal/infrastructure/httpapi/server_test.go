package httpapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/infrastructure/storage"
	"MomentumScanner/internal/usecase"
)

type fakeRepository struct {
	mu        sync.Mutex
	records   []domain.AnalysisRecord
	lastLimit int
	lastOff   int
}

func newFakeRepository() *fakeRepository {
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return &fakeRepository{records: []domain.AnalysisRecord{
		{ID: 2, CompanyName: "케어젠", NewsCount: 3, NewsResult: "1️⃣ 공급 계약, \"미국\"", Status: domain.StatusCompleted, CreatedAt: at.Add(time.Hour)},
		{ID: 1, CompanyName: "삼성전자", NewsCount: 0, Status: domain.StatusCompleted, Bookmarked: true, CreatedAt: at},
	}}
}

func (r *fakeRepository) Add(context.Context, domain.AnalysisRecord) (int64, error) { return 0, nil }

func (r *fakeRepository) List(_ context.Context, limit, offset int) ([]domain.AnalysisRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit, r.lastOff = limit, offset
	return append([]domain.AnalysisRecord(nil), r.records...), nil
}

func (r *fakeRepository) ListBookmarked(context.Context) ([]domain.AnalysisRecord, error) {
	var out []domain.AnalysisRecord
	for _, rec := range r.records {
		if rec.Bookmarked {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRepository) Search(_ context.Context, keyword string) ([]domain.AnalysisRecord, error) {
	var out []domain.AnalysisRecord
	for _, rec := range r.records {
		if strings.Contains(rec.CompanyName, keyword) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRepository) ToggleBookmark(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id {
			r.records[i].Bookmarked = !r.records[i].Bookmarked
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *fakeRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *fakeRepository) Count(context.Context) (int, error) { return len(r.records), nil }

func (r *fakeRepository) AnalyzedCompanies(context.Context) ([]string, error) {
	return []string{"삼성전자", "케어젠"}, nil
}

type fakeAnalyzer struct {
	names []string
}

func (a *fakeAnalyzer) AnalyzeBatch(_ context.Context, names []string) usecase.BatchResult {
	a.names = names
	return usecase.BatchResult{
		Records: []domain.AnalysisRecord{{ID: 3, CompanyName: names[0]}},
		Errors:  map[string]string{"없는회사": "unknown entity"},
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListAnalyses(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	h := NewServer(":0", repo, nil, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/analyses?limit=20&offset=40", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var got []domain.AnalysisRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || repo.lastLimit != 20 || repo.lastOff != 40 {
		t.Fatalf("unexpected listing %d (limit=%d offset=%d)", len(got), repo.lastLimit, repo.lastOff)
	}

	rec = do(t, h, http.MethodGet, "/api/analyses?q="+url.QueryEscape("케어"), "")
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || len(got) != 1 || got[0].CompanyName != "케어젠" {
		t.Fatalf("unexpected search result: %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/analyses?bookmarked=true", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected bookmarked result: %s", rec.Body.String())
	}

	if rec := do(t, h, http.MethodGet, "/api/analyses?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid limit, got %d", rec.Code)
	}
}

func TestCountAndCompanies(t *testing.T) {
	t.Parallel()

	h := NewServer(":0", newFakeRepository(), nil, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/analyses/count", "")
	if strings.TrimSpace(rec.Body.String()) != `{"count":2}` {
		t.Fatalf("unexpected count body: %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/companies", "")
	var names []string
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil || len(names) != 2 {
		t.Fatalf("unexpected companies: %s", rec.Body.String())
	}

	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("health check failed: %d", rec.Code)
	}
}

func TestBookmarkAndDelete(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	h := NewServer(":0", repo, nil, nil).Handler()

	if rec := do(t, h, http.MethodPost, "/api/analyses/2/bookmark", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("bookmark status %d", rec.Code)
	}
	if !repo.records[0].Bookmarked {
		t.Fatalf("bookmark not toggled")
	}
	if rec := do(t, h, http.MethodPost, "/api/analyses/99/bookmark", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing id, got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodDelete, "/api/analyses/1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}
	if len(repo.records) != 1 {
		t.Fatalf("record not deleted")
	}
	if rec := do(t, h, http.MethodDelete, "/api/analyses/1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for second delete, got %d", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	h := NewServer(":0", repo, nil, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/analyses/export.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), `attachment; filename="analysis_results_`) {
		t.Fatalf("missing attachment header: %v", rec.Header())
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, utf8BOM) {
		t.Fatalf("csv should start with a BOM")
	}
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(body, utf8BOM))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 || rows[0][1] != "company_name" || rows[1][6] != "1️⃣ 공급 계약, \"미국\"" {
		t.Fatalf("unexpected rows: %q", rows)
	}
	if repo.lastLimit != 0 {
		t.Fatalf("export should request every row")
	}
}

func TestCreateAnalyses(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{}
	h := NewServer(":0", newFakeRepository(), analyzer, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/analyses", `{"entities":[" 케어젠 ","","없는회사"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if len(analyzer.names) != 2 || analyzer.names[0] != "케어젠" {
		t.Fatalf("names not normalized: %q", analyzer.names)
	}
	var res usecase.BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Records) != 1 || res.Errors["없는회사"] == "" {
		t.Fatalf("unexpected batch result: %+v", res)
	}

	if rec := do(t, h, http.MethodPost, "/api/analyses", `{"entities":[]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty entity list, got %d", rec.Code)
	}
	if rec := do(t, NewServer(":0", newFakeRepository(), nil, nil).Handler(), http.MethodPost, "/api/analyses", `{"entities":["케어젠"]}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without analyzer, got %d", rec.Code)
	}
}
