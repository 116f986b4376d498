package analysis

import (
	"context"

	"github.com/DevDizzle/profit-scout/internal/adapters/filings"
	"github.com/DevDizzle/profit-scout/internal/adapters/fundamentals"
)

// FundamentalsSource is the quantitative stage's one external dependency
type FundamentalsSource interface {
	Fetch(ctx context.Context, ticker string) (*fundamentals.Snapshot, error)
}

// FilingsSource is the qualitative stage's one external dependency
type FilingsSource interface {
	Fetch(ctx context.Context, ticker string) (*filings.Summary, error)
}
