package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/hmkim/marketbrief/internal/models"
	"github.com/hmkim/marketbrief/internal/resilience"
)

// fakeChatModel returns scripted responses in order.
type fakeChatModel struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	idx := f.calls
	f.calls++
	for _, m := range input {
		if m.Role == schema.User {
			f.prompts = append(f.prompts, m.Content)
		}
	}
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.responses) {
		return nil, errors.New("no scripted response")
	}
	return schema.AssistantMessage(f.responses[idx], nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

const validResponse = `{
  "languages": {
    "en": {
      "summary": {"evaluation": "Sell", "score": 3, "headline": "Risk-off tone builds", "text": "Breadth deteriorated across sectors. Defensive positioning is warranted."},
      "dashboard": {
        "breadth": {"advancers": 120, "decliners": 380, "summary": "weak"},
        "sentimentIndex": {"value": 58, "summary": "greed cooling"},
        "priceLevels": {"resistance": {"value": 5200, "description": "prior high"}, "support": {"value": 5000, "description": "round level"}},
        "putCallRatio": {"dailyValue": 0.95, "movingAverage": 0.9, "status": "elevated", "summary": "hedging demand"}
      },
      "details": {
        "internals": {"headline": "Breadth", "text": "Decliners dominated the session by a wide margin.", "chart": {"labels": ["Mon", "Tue"], "series": [[120, 380]]}},
        "technicals": {"headline": "Levels", "text": "The index closed below its 20-day average.", "chart": {"labels": ["Mon", "Tue"], "series": [[5150, 5100]]}},
        "fundamentals": {"headline": "Macro", "text": "Yields pressured valuations.", "vix": {"value": 15.5, "change": 1.2, "summary": "rising"}, "survey": {"bullish": 30, "bearish": 45, "neutral": 25, "summary": "bearish tilt"}, "points": ["Yields up"]},
        "strategy": {"headline": "Plan", "text": "Trim risk into strength."}
      },
      "marketOverview": [{"name": "S&P 500", "value": "5100", "change": "-1.2%", "isDown": true}],
      "hotStocks": [{"name": "ACME", "price": "101.2", "description": "earnings beat", "isDown": false}]
    }
  }
}`

func testSnapshot() *models.MarketSnapshot {
	return &models.MarketSnapshot{
		IndexPrice:     decimal.NewFromInt(5100),
		SentimentIndex: 58,
		CollectedAt:    time.Now(),
	}
}

func testGenerator(cm model.BaseChatModel) *Generator {
	return &Generator{
		model:   cm,
		breaker: resilience.NewCircuitBreaker("model", 5, time.Minute),
		limiter: rate.NewLimiter(rate.Inf, 1),
		retry: &resilience.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   time.Millisecond,
			Multiplier: 2.0,
			RetryIf:    resilience.IsRetryable,
		},
		timeout:  time.Second,
		baseLang: "en",
	}
}

func TestGenerateParsesValidResponse(t *testing.T) {
	cm := &fakeChatModel{responses: []string{"```json\n" + validResponse + "\n```"}}
	g := testGenerator(cm)

	date := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	artifact, err := g.Generate(context.Background(), testSnapshot(), "Query: market\n1. Example: summary", date, models.SessionMorning)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if artifact.Date != "2026-08-31" || artifact.Session != models.SessionMorning {
		t.Fatalf("date/session not stamped: %s %s", artifact.Date, artifact.Session)
	}
	report := artifact.Languages["en"]
	if report == nil || report.Summary.Score != 3 || report.Summary.Evaluation != "Sell" {
		t.Fatalf("unexpected summary: %+v", report)
	}
	if cm.calls != 1 {
		t.Fatalf("expected a single model call, got %d", cm.calls)
	}
}

func TestGeneratePromptIsDeterministic(t *testing.T) {
	cm := &fakeChatModel{responses: []string{validResponse, validResponse}}
	g := testGenerator(cm)

	date := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	snap := testSnapshot()
	if _, err := g.Generate(context.Background(), snap, "evidence", date, models.SessionMorning); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if _, err := g.Generate(context.Background(), snap, "evidence", date, models.SessionMorning); err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	if len(cm.prompts) != 2 || cm.prompts[0] != cm.prompts[1] {
		t.Fatalf("identical inputs must produce identical prompts")
	}
	if !strings.Contains(cm.prompts[0], "Index price: 5100.00") {
		t.Fatalf("prompt missing snapshot data:\n%s", cm.prompts[0])
	}
	if !strings.Contains(cm.prompts[0], "evidence") {
		t.Fatalf("prompt missing evidence text")
	}
}

func TestGenerateOneReattemptOnModelQualityFailure(t *testing.T) {
	cm := &fakeChatModel{responses: []string{"I cannot produce JSON today.", validResponse}}
	g := testGenerator(cm)

	artifact, err := g.Generate(context.Background(), testSnapshot(), "", time.Now(), models.SessionMorning)
	if err != nil {
		t.Fatalf("Generate should recover on the reattempt: %v", err)
	}
	if artifact.Languages["en"].Summary.Score != 3 {
		t.Fatalf("unexpected score after reattempt")
	}
	if cm.calls != 2 {
		t.Fatalf("expected exactly 2 model calls, got %d", cm.calls)
	}
}

func TestGenerateTwoBadResponsesIsFatal(t *testing.T) {
	cm := &fakeChatModel{responses: []string{"not json", "still not json"}}
	g := testGenerator(cm)

	_, err := g.Generate(context.Background(), testSnapshot(), "", time.Now(), models.SessionMorning)
	if err == nil {
		t.Fatalf("expected failure after two unusable responses")
	}
	if !IsModelQuality(err) {
		t.Fatalf("expected a model-quality error, got %v", err)
	}
	if cm.calls != 2 {
		t.Fatalf("model-quality failures must not trigger exponential retries, got %d calls", cm.calls)
	}
}

func TestGenerateMissingDetailsSection(t *testing.T) {
	noDetails := `{"languages": {"en": {"summary": {"evaluation": "Buy", "score": 7, "headline": "Up", "text": "Markets rallied."}}}}`
	cm := &fakeChatModel{responses: []string{noDetails, noDetails}}
	g := testGenerator(cm)

	_, err := g.Generate(context.Background(), testSnapshot(), "", time.Now(), models.SessionMorning)
	var missing *MissingSectionError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSectionError, got %v", err)
	}
	if !strings.Contains(missing.Section, "details") {
		t.Fatalf("unexpected section: %s", missing.Section)
	}
}

func TestGenerateRetriesTransportErrors(t *testing.T) {
	cm := &fakeChatModel{
		errs:      []error{errors.New("status 503: upstream overloaded"), nil},
		responses: []string{"", validResponse},
	}
	g := testGenerator(cm)

	_, err := g.Generate(context.Background(), testSnapshot(), "", time.Now(), models.SessionMorning)
	if err != nil {
		t.Fatalf("Generate should recover from a transient transport error: %v", err)
	}
	if cm.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", cm.calls)
	}
}
