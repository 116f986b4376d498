package analysis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevDizzle/profit-scout/internal/adapters/filings"
	"github.com/DevDizzle/profit-scout/internal/adapters/fundamentals"
	"github.com/DevDizzle/profit-scout/internal/domain/task"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2,
	}
}

type fakeFundamentals struct {
	calls int
	errs  []error
	snap  *fundamentals.Snapshot
}

func (f *fakeFundamentals) Fetch(_ context.Context, _ string) (*fundamentals.Snapshot, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.snap, nil
}

type fakeFilings struct {
	calls   int
	errs    []error
	summary *filings.Summary
}

func (f *fakeFilings) Fetch(_ context.Context, _ string) (*filings.Summary, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.summary, nil
}

func sampleSnapshot() *fundamentals.Snapshot {
	return &fundamentals.Snapshot{
		Ticker:       "AAPL",
		ROE:          decimal.NewFromFloat(0.31),
		DebtToEquity: decimal.NewFromFloat(1.52),
		CurrentRatio: decimal.NewFromFloat(1.07),
		GrossMargin:  decimal.NewFromFloat(0.44),
		PERatio:      decimal.NewFromFloat(28.3),
		FCFYield:     decimal.NewFromFloat(0.035),
	}
}

func TestQuantitativeAdapter_Success(t *testing.T) {
	source := &fakeFundamentals{snap: sampleSnapshot()}
	adapter := NewQuantitativeAdapter(source, fastRetry())

	result := adapter.Run(context.Background(), "AAPL")
	require.True(t, result.OK())
	assert.Equal(t, task.StageQuantitative, result.Stage)

	var snap fundamentals.Snapshot
	require.NoError(t, json.Unmarshal(result.Payload, &snap))
	assert.Equal(t, "AAPL", snap.Ticker)
	assert.True(t, snap.ROE.Equal(decimal.NewFromFloat(0.31)))
}

func TestQuantitativeAdapter_RetriesTransientFailures(t *testing.T) {
	source := &fakeFundamentals{
		snap: sampleSnapshot(),
		errs: []error{errors.ErrUnavailable, errors.ErrUnavailable, nil},
	}
	adapter := NewQuantitativeAdapter(source, fastRetry())

	result := adapter.Run(context.Background(), "AAPL")
	assert.True(t, result.OK())
	assert.Equal(t, 3, source.calls)
}

func TestQuantitativeAdapter_NoDataIsNotRetried(t *testing.T) {
	source := &fakeFundamentals{errs: []error{errors.ErrNoData}}
	adapter := NewQuantitativeAdapter(source, fastRetry())

	result := adapter.Run(context.Background(), "XYZ")
	assert.False(t, result.OK())
	assert.Equal(t, 1, source.calls)
}

func TestQuantitativeAdapter_ExhaustsRetryBudget(t *testing.T) {
	source := &fakeFundamentals{
		errs: []error{errors.ErrUnavailable, errors.ErrUnavailable, errors.ErrUnavailable},
	}
	adapter := NewQuantitativeAdapter(source, fastRetry())

	result := adapter.Run(context.Background(), "AAPL")
	assert.False(t, result.OK())
	assert.Equal(t, 3, source.calls)
	assert.NotEmpty(t, result.Err)
}

func TestQualitativeAdapter_Success(t *testing.T) {
	source := &fakeFilings{summary: &filings.Summary{
		Ticker:  "AAPL",
		Summary: "Management reports strong services growth.",
	}}
	adapter := NewQualitativeAdapter(source, fastRetry())

	result := adapter.Run(context.Background(), "AAPL")
	require.True(t, result.OK())
	assert.Equal(t, task.StageQualitative, result.Stage)
	assert.Equal(t, "Management reports strong services growth.", result.Text)
}

func TestQualitativeAdapter_FailureCarriesError(t *testing.T) {
	source := &fakeFilings{errs: []error{errors.ErrExternal}}
	adapter := NewQualitativeAdapter(source, fastRetry())

	result := adapter.Run(context.Background(), "AAPL")
	assert.False(t, result.OK())
	assert.Equal(t, 1, source.calls)
}
