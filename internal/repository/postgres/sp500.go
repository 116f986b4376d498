package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/DevDizzle/profit-scout/internal/domain/security"
	"github.com/DevDizzle/profit-scout/pkg/errors"
)

// SP500Repository implements security.Repository against the sp500_metadata
// reference table
type SP500Repository struct {
	db DBTX
}

// NewSP500Repository creates a new S&P 500 reference repository
func NewSP500Repository(db DBTX) *SP500Repository {
	return &SP500Repository{db: db}
}

// FindByTickerOrName returns the single row matching query exactly on ticker
// or company name, case-insensitively. A miss is errors.ErrNotFound, never a
// database error.
func (r *SP500Repository) FindByTickerOrName(ctx context.Context, query string) (security.Resolved, error) {
	q := `
		SELECT ticker, company_name
		FROM sp500_metadata
		WHERE LOWER(ticker) = $1 OR LOWER(company_name) = $1
		LIMIT 1
	`

	var resolved security.Resolved
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(query)).Scan(
		&resolved.Ticker, &resolved.Name,
	)
	if err == sql.ErrNoRows {
		return security.Resolved{}, errors.ErrNotFound
	}
	if err != nil {
		return security.Resolved{}, errors.Wrap(err, "find sp500 row")
	}

	resolved.Ticker = strings.ToUpper(resolved.Ticker)
	return resolved, nil
}

// SuggestByPrefix returns up to limit rows whose ticker or company name
// starts with prefix, tickers first
func (r *SP500Repository) SuggestByPrefix(ctx context.Context, prefix string, limit int) ([]security.Resolved, error) {
	q := `
		SELECT ticker, company_name
		FROM sp500_metadata
		WHERE LOWER(ticker) LIKE $1 OR LOWER(company_name) LIKE $1
		ORDER BY (LOWER(ticker) LIKE $1) DESC, ticker
		LIMIT $2
	`

	pattern := strings.ToLower(prefix) + "%"

	var rows []struct {
		Ticker string `db:"ticker"`
		Name   string `db:"company_name"`
	}
	if err := r.db.SelectContext(ctx, &rows, q, pattern, limit); err != nil {
		return nil, errors.Wrap(err, "suggest sp500 rows")
	}

	suggestions := make([]security.Resolved, 0, len(rows))
	for _, row := range rows {
		suggestions = append(suggestions, security.Resolved{
			Ticker: strings.ToUpper(row.Ticker),
			Name:   row.Name,
		})
	}
	return suggestions, nil
}
