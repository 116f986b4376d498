package fundamentals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DevDizzle/profit-scout/pkg/errors"
)

// Snapshot is the normalized numeric ratio set for one ticker, mirroring the
// reference financial_ratios table
type Snapshot struct {
	Ticker       string          `json:"ticker"`
	AsOf         time.Time       `json:"as_of"`
	ROE          decimal.Decimal `json:"roe"`
	DebtToEquity decimal.Decimal `json:"debt_to_equity"`
	CurrentRatio decimal.Decimal `json:"current_ratio"`
	GrossMargin  decimal.Decimal `json:"gross_margin"`
	PERatio      decimal.Decimal `json:"pe_ratio"`
	FCFYield     decimal.Decimal `json:"fcf_yield"`
}

// Client fetches ratio snapshots from the financial-metrics source.
// The source is stateless: one ticker in, one snapshot out.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new fundamentals client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch returns the latest ratio snapshot for ticker.
// Classifies failures so callers can retry only what is transient:
// errors.ErrNoData for a missing ticker, errors.ErrUnavailable for transport
// faults and 5xx, errors.ErrExternal for anything malformed.
func (c *Client) Fetch(ctx context.Context, ticker string) (*Snapshot, error) {
	url := fmt.Sprintf("%s/fundamentals/%s", c.baseURL, ticker)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create fundamentals request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "fundamentals source unreachable: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "read fundamentals response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(errors.ErrNoData, "no fundamentals for %s", ticker)
	case resp.StatusCode >= 500:
		return nil, errors.Wrapf(errors.ErrUnavailable, "fundamentals source error (%d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Wrapf(errors.ErrExternal, "fundamentals source status %d: %s",
			resp.StatusCode, string(body))
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, errors.Wrapf(errors.ErrExternal, "malformed fundamentals payload: %v", err)
	}
	if snap.Ticker == "" {
		snap.Ticker = ticker
	}

	return &snap, nil
}
