package security

import "context"

// Resolved is a canonical S&P 500 security reference.
// Ticker is always uppercase; the struct is never mutated after creation.
type Resolved struct {
	Ticker string `json:"ticker"`
	Name   string `json:"company_name"`
}

// Repository defines read access to the S&P 500 reference table
type Repository interface {
	// FindByTickerOrName returns the single row whose ticker or company name
	// matches query exactly (case-insensitive), or errors.ErrNotFound.
	FindByTickerOrName(ctx context.Context, query string) (Resolved, error)

	// SuggestByPrefix returns up to limit securities whose ticker or company
	// name starts with prefix (case-insensitive). An empty result is not an
	// error.
	SuggestByPrefix(ctx context.Context, prefix string, limit int) ([]Resolved, error)
}
