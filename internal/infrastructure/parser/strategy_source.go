package parser

import (
	"context"
	"fmt"
	"log/slog"

	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/ports"
	"MomentumScanner/internal/scanner"
)

// StrategySource implements ports.StubSource via registered search strategies.
type StrategySource struct {
	registry  *scanner.Registry
	providers []string
	logger    *slog.Logger
}

var _ ports.StubSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-selected providers.
func NewStrategySource(reg *scanner.Registry, providers []string, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:  reg,
		providers: providers,
		logger:    log,
	}
}

// Collect runs every configured provider and merges their stubs, keeping the
// first stub seen for each link.
func (s *StrategySource) Collect(ctx context.Context, req scanner.Request) ([]domain.ArticleStub, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("no search providers configured")
	}

	s.debug("collect", "entity", req.Entity, "providers", len(s.providers), "keywords", len(req.Keywords))

	seen := map[string]struct{}{}
	var aggregated []domain.ArticleStub
	for _, name := range s.providers {
		strategy, err := s.registry.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return aggregated, fmt.Errorf("scan %s: %w", name, err)
			}
			s.warn("provider failed", "provider", name, "error", err)
		}

		added := 0
		for _, stub := range results {
			if _, ok := seen[stub.Link]; ok {
				continue
			}
			seen[stub.Link] = struct{}{}
			aggregated = append(aggregated, stub)
			added++
		}
		s.debug("provider produced stubs", "provider", name, "count", len(results), "added", added)
	}

	s.debug("strategy source done", "total_stubs", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
