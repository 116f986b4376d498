package resolver

import (
	"context"
	"strings"

	"github.com/DevDizzle/profit-scout/internal/domain/security"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/logger"
)

// Service resolves free-text company references to canonical S&P 500 tickers
// by exact lookup in the reference table. No fuzzy matching.
type Service struct {
	repo        security.Repository
	maxQueryLen int
	log         *logger.Logger
}

// NewService creates a new resolver service
func NewService(repo security.Repository, maxQueryLen int) *Service {
	return &Service{
		repo:        repo,
		maxQueryLen: maxQueryLen,
		log:         logger.Get().With("service", "resolver"),
	}
}

// Resolve trims and case-folds query, then looks it up by exact ticker or
// company-name match. A miss returns errors.ErrTickerNotFound, an expected
// outcome rather than a failure. Overlong queries are rejected before any
// lookup.
func (s *Service) Resolve(ctx context.Context, query string) (security.Resolved, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return security.Resolved{}, errors.Wrap(errors.ErrInvalidInput, "empty query")
	}
	if s.maxQueryLen > 0 && len(query) > s.maxQueryLen {
		return security.Resolved{}, errors.Wrapf(errors.ErrInvalidInput,
			"query longer than %d characters", s.maxQueryLen)
	}

	resolved, err := s.repo.FindByTickerOrName(ctx, strings.ToLower(query))
	if errors.Is(err, errors.ErrNotFound) {
		s.log.Debugw("Ticker not recognized", "query", query)
		return security.Resolved{}, errors.ErrTickerNotFound
	}
	if err != nil {
		return security.Resolved{}, errors.Wrap(err, "resolve ticker")
	}

	s.log.Debugw("Ticker resolved", "query", query, "ticker", resolved.Ticker)
	return resolved, nil
}
