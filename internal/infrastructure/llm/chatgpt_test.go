package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"MomentumScanner/internal/config"
	"MomentumScanner/internal/domain"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, calls *atomic.Int32, seen *chatRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"gpt-4o-mini",
"choices":[{"index":0,"message":{"role":"assistant","content":"  1️⃣ 미국 공급 계약  "},"finish_reason":"stop"}],
"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) config.ChatGPTConfig {
	return config.ChatGPTConfig{
		BaseURL:            baseURL,
		APIKey:             "test-key",
		Model:              "gpt-4o-mini",
		NewsPrompt:         "Only write about {company}.",
		FilingPrompt:       "Summarize the filing of {company}.",
		NewsContextChars:   10,
		FilingContextChars: 150,
	}
}

func TestSummarizeNewsSendsContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var seen chatRequest
	server := newChatServer(t, &calls, &seen)
	client := NewChatGPTClient(testConfig(server.URL+"/v1"), nil)

	older := domain.Article{ArticleStub: domain.ArticleStub{Title: "예전 기사", PublishedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}, Body: "오래된 본문"}
	newer := domain.Article{ArticleStub: domain.ArticleStub{Title: "새 기사", PublishedAt: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)}, Body: strings.Repeat("새", 30)}

	got, err := client.SummarizeNews(context.Background(), "케어젠", []domain.Article{older, newer})
	if err != nil {
		t.Fatalf("SummarizeNews error: %v", err)
	}
	if got != "1️⃣ 미국 공급 계약" {
		t.Fatalf("unexpected summary %q", got)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Content != "Only write about 케어젠." {
		t.Fatalf("system prompt not rendered: %+v", seen.Messages)
	}
	user := seen.Messages[1].Content
	if !strings.HasPrefix(user, "[기사 목록]\n[[기사 1]] 2025-03-04 / 새 기사\n"+strings.Repeat("새", 10)+"...") {
		t.Fatalf("unexpected user message: %q", user)
	}
	if !strings.Contains(user, "[[기사 2]] 2025-01-02 / 예전 기사") {
		t.Fatalf("older article missing: %q", user)
	}
}

func TestSummarizeNewsWithoutArticlesSkipsAPI(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var seen chatRequest
	server := newChatServer(t, &calls, &seen)
	client := NewChatGPTClient(testConfig(server.URL+"/v1"), nil)

	got, err := client.SummarizeNews(context.Background(), "케어젠", nil)
	if err != nil || got != NoArticlesMessage {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
	if calls.Load() != 0 {
		t.Fatalf("API must not be called for empty article list")
	}
}

func TestSummarizeFiling(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var seen chatRequest
	server := newChatServer(t, &calls, &seen)
	client := NewChatGPTClient(testConfig(server.URL+"/v1"), nil)

	got, err := client.SummarizeFiling(context.Background(), "케어젠", "사업보고서", "짧음")
	if err != nil || got != NoFilingMessage {
		t.Fatalf("short filing should not be summarized: %q, %v", got, err)
	}
	if calls.Load() != 0 {
		t.Fatalf("API must not be called for short filings")
	}

	text := strings.Repeat("가", 200)
	if _, err := client.SummarizeFiling(context.Background(), "케어젠", "사업보고서 (2024.12)", text); err != nil {
		t.Fatalf("SummarizeFiling error: %v", err)
	}
	user := seen.Messages[1].Content
	if !strings.HasPrefix(user, "기업명: 케어젠\n보고서: 사업보고서 (2024.12)\n") {
		t.Fatalf("unexpected header: %q", user)
	}
	if strings.Count(user, "가") != 150 {
		t.Fatalf("filing text should be truncated to 150 characters, got %d", strings.Count(user, "가"))
	}
}

func TestSummarizeWithoutAPIKey(t *testing.T) {
	t.Parallel()

	client := NewChatGPTClient(config.ChatGPTConfig{}, nil)
	article := domain.Article{ArticleStub: domain.ArticleStub{Title: "t", PublishedAt: time.Now()}, Body: "b"}
	if _, err := client.SummarizeNews(context.Background(), "케어젠", []domain.Article{article}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
