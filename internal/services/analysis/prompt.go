package analysis

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/DevDizzle/profit-scout/internal/adapters/fundamentals"
)

var hundred = decimal.NewFromInt(100)

// renderQuantSection formats the ratio snapshot into prompt-friendly lines.
// Values are rendered at fixed precision so the model sees stable text for
// identical inputs.
func renderQuantSection(snap *fundamentals.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Financial ratios (as of %s):\n", humanize.Time(snap.AsOf))
	fmt.Fprintf(&b, "- Return on Equity: %s%%\n", snap.ROE.Mul(hundred).StringFixed(2))
	fmt.Fprintf(&b, "- Debt to Equity: %s\n", snap.DebtToEquity.StringFixed(2))
	fmt.Fprintf(&b, "- Current Ratio: %s\n", snap.CurrentRatio.StringFixed(2))
	fmt.Fprintf(&b, "- Gross Margin: %s%%\n", snap.GrossMargin.Mul(hundred).StringFixed(2))
	fmt.Fprintf(&b, "- P/E Ratio: %s\n", snap.PERatio.StringFixed(2))
	fmt.Fprintf(&b, "- Free Cash Flow Yield: %s%%\n", snap.FCFYield.Mul(hundred).StringFixed(2))
	return b.String()
}

// buildSynthesisPrompt assembles the final recommendation prompt. Either
// section may be empty when its stage failed; the caller passes a note naming
// the missing dimension so the model hedges instead of inventing data.
func buildSynthesisPrompt(ticker, companyName, quantSection, qualSection, missingNote string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a senior equity analyst. Produce a concise Buy, Hold, or Sell recommendation for %s (%s).\n\n",
		companyName, ticker)

	if quantSection != "" {
		b.WriteString(quantSection)
		b.WriteString("\n")
	}
	if qualSection != "" {
		b.WriteString("Qualitative summary from recent SEC filings:\n")
		b.WriteString(qualSection)
		b.WriteString("\n\n")
	}
	if missingNote != "" {
		b.WriteString(missingNote)
		b.WriteString("\n\n")
	}

	b.WriteString("Respond with:\n")
	b.WriteString("1. The recommendation (Buy, Hold, or Sell) on the first line.\n")
	b.WriteString("2. A short rationale grounded only in the data above.\n")
	b.WriteString("3. The single biggest risk to the thesis.\n")
	b.WriteString("Do not fabricate figures that are not provided.")

	return b.String()
}
