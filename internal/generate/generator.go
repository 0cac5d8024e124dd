package generate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/hmkim/marketbrief/config"
	"github.com/hmkim/marketbrief/internal/logging"
	"github.com/hmkim/marketbrief/internal/models"
	"github.com/hmkim/marketbrief/internal/resilience"
)

const systemPrompt = "You are a JSON generator. Output only the JSON object, nothing else."

// Generator turns a market snapshot plus web evidence into a parsed,
// structurally checked analysis artifact.
type Generator struct {
	model    model.BaseChatModel
	breaker  *resilience.CircuitBreaker
	limiter  *rate.Limiter
	retry    *resilience.RetryConfig
	timeout  time.Duration
	baseLang string
}

func NewGenerator(cm model.BaseChatModel, breaker *resilience.CircuitBreaker, cfg *config.Config) *Generator {
	return &Generator{
		model:   cm,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		retry: &resilience.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  5 * time.Second,
			MaxDelay:   60 * time.Second,
			Multiplier: 2.0,
			// transport-tier conditions only; model-quality failures are
			// handled separately with a single same-prompt reattempt
			RetryIf: resilience.IsRetryable,
			OnRetry: func(err error, attempt int) {
				logging.Log.WithField("attempt", attempt).Warnf("model call retrying: %v", err)
			},
		},
		timeout:  time.Duration(cfg.ModelTimeoutSeconds) * time.Second,
		baseLang: cfg.BaseLanguage,
	}
}

// Generate builds the prompt, invokes the model through the resilience
// stack and parses the response. A model-quality failure gets exactly one
// extra attempt with the same prompt; a second bad response is fatal to
// the run.
func (g *Generator) Generate(ctx context.Context, snapshot *models.MarketSnapshot, evidence string, date time.Time, session string) (*models.AnalysisArtifact, error) {
	prompt := BuildPrompt(snapshot, evidence, date, session, g.baseLang)

	raw, err := g.invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}

	artifact, err := g.parse(raw)
	if err != nil && IsModelQuality(err) {
		logging.Log.Warnf("model produced unusable output, one reattempt with the same prompt: %v", err)
		retryRaw, retryErr := g.invoke(ctx, prompt)
		if retryErr != nil {
			return nil, retryErr
		}
		artifact, err = g.parse(retryRaw)
	}
	if err != nil {
		return nil, err
	}

	artifact.Date = date.Format("2006-01-02")
	artifact.Session = session
	return artifact, nil
}

// invoke runs one model call through retry -> breaker -> timeout.
func (g *Generator) invoke(ctx context.Context, prompt string) (string, error) {
	var content string
	err := resilience.WithRetry(ctx, g.retry, func(ctx context.Context) error {
		return g.breaker.Execute(ctx, func(ctx context.Context) error {
			return resilience.WithTimeout(ctx, g.timeout, "model", func(ctx context.Context) error {
				if err := g.limiter.Wait(ctx); err != nil {
					return err
				}
				messages := []*schema.Message{
					schema.SystemMessage(systemPrompt),
					schema.UserMessage(prompt),
				}
				resp, err := g.model.Generate(ctx, messages)
				if err != nil {
					return err
				}
				content = resp.Content
				return nil
			})
		})
	})
	return content, err
}

// parse cleans and unmarshals the raw response and gates the result on the
// base-language report being structurally present.
func (g *Generator) parse(raw string) (*models.AnalysisArtifact, error) {
	cleaned, err := CleanModelJSON(raw)
	if err != nil {
		return nil, err
	}

	var artifact models.AnalysisArtifact
	if err := json.Unmarshal([]byte(cleaned), &artifact); err != nil {
		return nil, &JSONParseError{Err: err}
	}

	report, ok := artifact.Languages[g.baseLang]
	if !ok || report == nil {
		return nil, &MissingSectionError{Section: "languages." + g.baseLang}
	}
	if report.Details == nil {
		return nil, &MissingSectionError{Section: "languages." + g.baseLang + ".details"}
	}
	return &artifact, nil
}
