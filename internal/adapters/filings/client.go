package filings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DevDizzle/profit-scout/pkg/errors"
)

// Summary is the qualitative narrative distilled from a company's latest
// 10-K/10-Q filing by the offline filings pipeline
type Summary struct {
	Ticker  string `json:"ticker"`
	Filing  string `json:"filing,omitempty"`
	Summary string `json:"qualitative_analysis"`
}

// Client fetches filing summaries from the filings/narrative source
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new filings client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch returns the qualitative summary for ticker. Error classification
// matches the fundamentals client: ErrNoData, ErrUnavailable, ErrExternal.
func (c *Client) Fetch(ctx context.Context, ticker string) (*Summary, error) {
	url := fmt.Sprintf("%s/filings/%s/summary", c.baseURL, ticker)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create filings request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "filings source unreachable: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "read filings response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(errors.ErrNoData, "no filing summary for %s", ticker)
	case resp.StatusCode >= 500:
		return nil, errors.Wrapf(errors.ErrUnavailable, "filings source error (%d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Wrapf(errors.ErrExternal, "filings source status %d: %s",
			resp.StatusCode, string(body))
	}

	var summary Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, errors.Wrapf(errors.ErrExternal, "malformed filings payload: %v", err)
	}
	if strings.TrimSpace(summary.Summary) == "" {
		return nil, errors.Wrapf(errors.ErrNoData, "empty filing summary for %s", ticker)
	}
	if summary.Ticker == "" {
		summary.Ticker = ticker
	}

	return &summary, nil
}
