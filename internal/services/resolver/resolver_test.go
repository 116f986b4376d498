package resolver

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevDizzle/profit-scout/internal/domain/security"
	"github.com/DevDizzle/profit-scout/pkg/errors"
)

type fakeRepo struct {
	rows map[string]security.Resolved
}

func (f *fakeRepo) FindByTickerOrName(_ context.Context, query string) (security.Resolved, error) {
	if r, ok := f.rows[query]; ok {
		return r, nil
	}
	return security.Resolved{}, errors.ErrNotFound
}

func (f *fakeRepo) SuggestByPrefix(_ context.Context, prefix string, limit int) ([]security.Resolved, error) {
	var out []security.Resolved
	for key, r := range f.rows {
		if strings.HasPrefix(key, prefix) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func newFakeRepo() *fakeRepo {
	apple := security.Resolved{Ticker: "AAPL", Name: "Apple Inc."}
	return &fakeRepo{rows: map[string]security.Resolved{
		"aapl":       apple,
		"apple inc.": apple,
	}}
}

func TestResolve_ByTicker(t *testing.T) {
	svc := NewService(newFakeRepo(), 80)

	resolved, err := svc.Resolve(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", resolved.Ticker)
	assert.Equal(t, "Apple Inc.", resolved.Name)
}

func TestResolve_ByCompanyNameCaseInsensitive(t *testing.T) {
	svc := NewService(newFakeRepo(), 80)

	resolved, err := svc.Resolve(context.Background(), "  Apple Inc.  ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", resolved.Ticker)
}

func TestResolve_UnknownTicker(t *testing.T) {
	svc := NewService(newFakeRepo(), 80)

	_, err := svc.Resolve(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, errors.ErrTickerNotFound)
}

func TestResolve_EmptyQuery(t *testing.T) {
	svc := NewService(newFakeRepo(), 80)

	_, err := svc.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestResolve_OverlongQueryRejectedBeforeLookup(t *testing.T) {
	svc := NewService(newFakeRepo(), 10)

	_, err := svc.Resolve(context.Background(), strings.Repeat("a", 11))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.NotErrorIs(t, err, errors.ErrTickerNotFound)
}
