package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/scanner"
)

type cannedScanner struct {
	name  string
	stubs []domain.ArticleStub
	err   error
}

func (c cannedScanner) Name() string { return c.name }

func (c cannedScanner) Scan(context.Context, scanner.Request) ([]domain.ArticleStub, error) {
	return c.stubs, c.err
}

func TestStrategySourceMergesProvidersByLink(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	reg := scanner.NewRegistry()
	reg.Register(cannedScanner{name: "naver", stubs: []domain.ArticleStub{
		{Title: "a", Link: "https://x/1", PublishedAt: at},
		{Title: "b", Link: "https://x/2", PublishedAt: at},
	}})
	reg.Register(cannedScanner{name: "mirror", stubs: []domain.ArticleStub{
		{Title: "b again", Link: "https://x/2", PublishedAt: at},
		{Title: "c", Link: "https://x/3", PublishedAt: at},
	}, err: errors.New("partial outage")})

	src := NewStrategySource(reg, []string{"naver", "mirror"}, nil)
	stubs, err := src.Collect(context.Background(), scanner.Request{Entity: "케어젠", Keywords: []string{"수주"}})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if len(stubs) != 3 {
		t.Fatalf("expected 3 unique stubs, got %d", len(stubs))
	}
	if stubs[1].Title != "b" {
		t.Fatalf("first stub for a link should win, got %q", stubs[1].Title)
	}
}

func TestStrategySourceUnknownProvider(t *testing.T) {
	t.Parallel()

	src := NewStrategySource(scanner.NewRegistry(), []string{"naver"}, nil)
	if _, err := src.Collect(context.Background(), scanner.Request{Entity: "케어젠"}); err == nil {
		t.Fatalf("expected error for unregistered provider")
	}
}
