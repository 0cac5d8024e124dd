package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	"github.com/hmkim/marketbrief/config"
	"github.com/hmkim/marketbrief/internal/archive"
	"github.com/hmkim/marketbrief/internal/generate"
	"github.com/hmkim/marketbrief/internal/models"
	"github.com/hmkim/marketbrief/internal/resilience"
	"github.com/hmkim/marketbrief/internal/translate"
	"github.com/hmkim/marketbrief/internal/validate"
)

const modelResponse = `{
  "languages": {
    "en": {
      "summary": {"evaluation": "Sell", "score": 3, "headline": "Risk-off tone builds into the close", "text": "Breadth deteriorated across every major sector and defensive positioning looks warranted into tomorrow."},
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
      "marketOverview": [{"name": "S&P 500", "value": "5,100.00", "change": "-1.2%", "isDown": true}],
      "hotStocks": [{"name": "ACME", "price": "101.2", "description": "earnings beat", "isDown": false}]
    }
  }
}`

type fakeCollector struct {
	snapshot *models.MarketSnapshot
	err      error
}

func (f *fakeCollector) Collect(ctx context.Context) (*models.MarketSnapshot, error) {
	return f.snapshot, f.err
}

type fakeGatherer struct {
	evidence string
	queries  []string
}

func (f *fakeGatherer) Gather(ctx context.Context, queries []string) string {
	f.queries = queries
	return f.evidence
}

type fakeChatModel struct {
	responses []string
	calls     int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		return nil, errors.New("no scripted response")
	}
	return schema.AssistantMessage(f.responses[idx], nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		SiteDataDir:  filepath.Join(root, "site", "data"),
		ArchiveDir:   filepath.Join(root, "site", "data", "archive"),
		StagingDir:   filepath.Join(root, "staging"),
		BaseLanguage: "en",
		TargetLanguages: []string{
			"ko",
		},
		Session:             models.SessionMorning,
		EvidenceQueries:     []string{"market outlook"},
		ModelTimeoutSeconds: 5,
	}
}

func testPipeline(t *testing.T, cfg *config.Config, cm model.BaseChatModel, collector MarketCollector) *Pipeline {
	t.Helper()
	thresholds, err := config.NewManager(config.WithThresholdsPath(filepath.Join(t.TempDir(), "thresholds.json")))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	breaker := resilience.NewCircuitBreaker("model", 5, time.Minute)
	p := New(cfg, thresholds, Deps{
		Collector:  collector,
		Gatherer:   &fakeGatherer{evidence: "Query: market outlook\n1. Example: summary"},
		Generator:  generate.NewGenerator(cm, breaker, cfg),
		Validator:  validate.NewValidator("en"),
		Translator: translate.NewDictionaryTranslator(),
		Archive:    archive.NewManager(cfg.SiteDataDir, cfg.ArchiveDir, "en", 50),
		Breakers:   []*resilience.CircuitBreaker{breaker},
	})
	return p
}

func goodCollector() *fakeCollector {
	return &fakeCollector{snapshot: &models.MarketSnapshot{
		IndexPrice:     decimal.NewFromInt(5100),
		SentimentIndex: 58,
		CollectedAt:    time.Now(),
	}}
}

func TestRunPublishesEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	cm := &fakeChatModel{responses: []string{"```json\n" + modelResponse + "\n```"}}
	p := testPipeline(t, cfg, cm, goodCollector())

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Validation.Overall != validate.OverallValid {
		t.Fatalf("expected valid verdict, got %s (%v)", result.Validation.Overall, result.Validation.Warnings)
	}

	latest, err := os.ReadFile(filepath.Join(cfg.SiteDataDir, "latest.json"))
	if err != nil {
		t.Fatalf("latest.json not published: %v", err)
	}
	var published models.AnalysisArtifact
	if err := json.Unmarshal(latest, &published); err != nil {
		t.Fatalf("parse latest: %v", err)
	}
	en := published.Languages["en"]
	if en == nil || en.Summary.Score != 3 {
		t.Fatalf("published base report wrong: %+v", en)
	}
	ko := published.Languages["ko"]
	if ko == nil || ko.Summary == nil {
		t.Fatalf("derived language missing from published artifact")
	}
	if ko.MarketOverview[0].Name != "S&P 500 지수" {
		t.Fatalf("derived language not localized: %q", ko.MarketOverview[0].Name)
	}

	m := archive.NewManager(cfg.SiteDataDir, cfg.ArchiveDir, "en", 50)
	entries, err := m.LoadManifest()
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(entries) != 1 || entries[0].Evaluation != "Sell" {
		t.Fatalf("unexpected manifest: %+v", entries)
	}
}

func TestRunAbortsWhenCollectorFails(t *testing.T) {
	cfg := testConfig(t)
	cm := &fakeChatModel{responses: []string{modelResponse}}
	collector := &fakeCollector{err: errors.New("finnhub unreachable")}
	p := testPipeline(t, cfg, cm, collector)

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatalf("collector failure must abort the run")
	}
	if cm.calls != 0 {
		t.Fatalf("model must not be called after collection failure")
	}
	if _, err := os.Stat(filepath.Join(cfg.SiteDataDir, "latest.json")); !os.IsNotExist(err) {
		t.Fatalf("nothing may be published on an aborted run")
	}
}

func TestRunAbortsOnInvalidArtifact(t *testing.T) {
	cfg := testConfig(t)
	// Score 0 fails schema validation on both attempts.
	bad := `{"languages": {"en": {"summary": {"evaluation": "Sell", "score": 0, "headline": "h", "text": "t"}}}}`
	cm := &fakeChatModel{responses: []string{bad, bad}}
	p := testPipeline(t, cfg, cm, goodCollector())

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatalf("invalid artifact must abort the run")
	}
	if _, err := os.Stat(filepath.Join(cfg.SiteDataDir, "latest.json")); !os.IsNotExist(err) {
		t.Fatalf("invalid artifact must not be published")
	}
}

func TestRunKeepsPreviousLatestWhenRotationFails(t *testing.T) {
	cfg := testConfig(t)
	cm := &fakeChatModel{responses: []string{modelResponse, modelResponse}}
	p := testPipeline(t, cfg, cm, goodCollector())
	ctx := context.Background()

	if _, err := p.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(cfg.SiteDataDir, "latest.json"))
	if err != nil {
		t.Fatalf("read latest: %v", err)
	}

	// Second run: make the archive directory path unusable so rotation
	// cannot archive the previous latest.
	if err := os.RemoveAll(cfg.ArchiveDir); err != nil {
		t.Fatalf("remove archive dir: %v", err)
	}
	if err := os.WriteFile(cfg.ArchiveDir, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("block archive dir: %v", err)
	}

	if _, err := p.Run(ctx); err == nil {
		t.Fatalf("rotation failure must abort the run")
	}
	after, err := os.ReadFile(filepath.Join(cfg.SiteDataDir, "latest.json"))
	if err != nil {
		t.Fatalf("latest missing after failed rotation: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("failed rotation must leave the served latest untouched")
	}
}

func TestRunDropsFailedTranslation(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetLanguages = []string{"fr"} // no phrase table
	cm := &fakeChatModel{responses: []string{modelResponse}}
	p := testPipeline(t, cfg, cm, goodCollector())

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Dropped) != 1 || result.Dropped[0] != "fr" {
		t.Fatalf("expected fr dropped, got %v", result.Dropped)
	}
	if result.Artifact.Languages["fr"] != nil {
		t.Fatalf("failed language must not ship")
	}
	if result.Artifact.Languages["en"] == nil {
		t.Fatalf("base language must always ship")
	}
}
