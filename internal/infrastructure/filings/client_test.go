package filings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"MomentumScanner/internal/config"
)

func TestLatestReport(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/filings" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Entity string `json:"entity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Entity {
		case "케어젠":
			_ = json.NewEncoder(w).Encode(map[string]string{"report": "사업보고서 (2024.12)", "text": "II. 사업의 내용"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "상장사 아님"})
		}
	}))
	defer server.Close()

	client := NewClient(config.FilingsConfig{Endpoint: server.URL + "/"})

	report, text, err := client.LatestReport(context.Background(), "케어젠")
	if err != nil {
		t.Fatalf("LatestReport error: %v", err)
	}
	if report != "사업보고서 (2024.12)" || text != "II. 사업의 내용" {
		t.Fatalf("unexpected filing %q / %q", report, text)
	}

	if _, _, err := client.LatestReport(context.Background(), "없는회사"); err == nil || err.Error() != "상장사 아님" {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestLatestReportStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if _, _, err := NewClient(config.FilingsConfig{Endpoint: server.URL}).LatestReport(context.Background(), "케어젠"); err == nil {
		t.Fatalf("expected error for bad gateway")
	}
}

func TestLatestReportWithoutEndpoint(t *testing.T) {
	t.Parallel()

	_, _, err := NewClient(config.FilingsConfig{}).LatestReport(context.Background(), "케어젠")
	if !errors.Is(err, ErrFilingUnavailable) {
		t.Fatalf("expected ErrFilingUnavailable, got %v", err)
	}
}
