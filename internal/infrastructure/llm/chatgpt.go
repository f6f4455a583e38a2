package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"MomentumScanner/internal/config"
	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/ports"
)

const (
	// NoArticlesMessage is returned instead of calling the model for an empty article list.
	NoArticlesMessage = "분석할 뉴스 기사가 없습니다."
	// NoFilingMessage is returned when the filing text is missing or too short to summarize.
	NoFilingMessage = "공시 보고서를 찾을 수 없거나 내용이 부족합니다."

	minFilingChars     = 100
	companyPlaceholder = "{company}"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("chatgpt client misconfigured")

// ChatGPTClient implements ports.Summarizer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	client       *openai.Client
	model        string
	temperature  float32
	newsPrompt   string
	filingPrompt string
	newsChars    int
	filingChars  int
	logger       *slog.Logger
}

var _ ports.Summarizer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig, log *slog.Logger) *ChatGPTClient {
	c := &ChatGPTClient{
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		newsPrompt:   cfg.NewsPrompt,
		filingPrompt: cfg.FilingPrompt,
		newsChars:    cfg.NewsContextChars,
		filingChars:  cfg.FilingContextChars,
		logger:       log,
	}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		c.client = openai.NewClientWithConfig(clientCfg)
	}
	if c.model == "" {
		c.model = "gpt-4o-mini"
	}
	return c
}

// SummarizeNews condenses the curated articles into momentum bullet points.
func (c *ChatGPTClient) SummarizeNews(ctx context.Context, company string, articles []domain.Article) (string, error) {
	if len(articles) == 0 {
		return NoArticlesMessage, nil
	}

	user := "[기사 목록]\n" + BuildNewsContext(articles, c.newsChars)
	return c.complete(ctx, renderPrompt(c.newsPrompt, company), user)
}

// SummarizeFiling condenses the business section of a periodic report.
func (c *ChatGPTClient) SummarizeFiling(ctx context.Context, company, report, text string) (string, error) {
	if utf8.RuneCountInString(text) < minFilingChars {
		return NoFilingMessage, nil
	}

	user := fmt.Sprintf("기업명: %s\n보고서: %s\n\n[사업보고서 내용]\n%s",
		company, report, truncate(text, c.filingChars))
	return c.complete(ctx, renderPrompt(c.filingPrompt, company), user)
}

func (c *ChatGPTClient) complete(ctx context.Context, system, user string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrNotConfigured
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	if c.logger != nil {
		c.logger.Debug("chat completion finished",
			"model", c.model,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildNewsContext renders articles newest first, each body cut to bodyChars characters.
func BuildNewsContext(articles []domain.Article, bodyChars int) string {
	sorted := append([]domain.Article(nil), articles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})

	var b strings.Builder
	for i, art := range sorted {
		fmt.Fprintf(&b, "[[기사 %d]] %s / %s\n%s...\n\n", i+1, art.Day(), art.Title, truncate(art.Body, bodyChars))
	}
	return b.String()
}

func renderPrompt(prompt, company string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = "You summarize business momentum for {company}."
	}
	return strings.ReplaceAll(prompt, companyPlaceholder, company)
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
