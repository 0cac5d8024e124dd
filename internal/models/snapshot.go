package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot bundles the raw metrics collected before analysis.
// IndexPrice and SentimentIndex are required; everything else is optional
// and nil when no source could supply it. Notes records any fallback path
// a field took so the provenance survives into the logs and the prompt.
type MarketSnapshot struct {
	IndexPrice          decimal.Decimal  `json:"index_price"`
	SecondaryIndexPrice *decimal.Decimal `json:"secondary_index_price,omitempty"`
	SentimentIndex      float64          `json:"sentiment_index"`
	Volatility          *decimal.Decimal `json:"volatility,omitempty"`
	TreasuryYield       *decimal.Decimal `json:"treasury_yield,omitempty"`
	PutCallRatio        *float64         `json:"put_call_ratio,omitempty"`
	CollectedAt         time.Time        `json:"collected_at"`
	Notes               []string         `json:"notes,omitempty"`
}

// PromptSummary renders the snapshot in the fixed field order the prompt
// builder relies on for reproducibility.
func (s *MarketSnapshot) PromptSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Index price: %s\n", s.IndexPrice.StringFixed(2))
	if s.SecondaryIndexPrice != nil {
		fmt.Fprintf(&b, "Secondary index price: %s\n", s.SecondaryIndexPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "Sentiment index (0-100): %.0f\n", s.SentimentIndex)
	if s.Volatility != nil {
		fmt.Fprintf(&b, "Volatility index: %s\n", s.Volatility.StringFixed(2))
	}
	if s.TreasuryYield != nil {
		fmt.Fprintf(&b, "10Y treasury yield: %s%%\n", s.TreasuryYield.StringFixed(2))
	}
	if s.PutCallRatio != nil {
		fmt.Fprintf(&b, "Put/call ratio: %.2f\n", *s.PutCallRatio)
	}
	if len(s.Notes) > 0 {
		fmt.Fprintf(&b, "Data notes: %s\n", strings.Join(s.Notes, "; "))
	}
	return b.String()
}
