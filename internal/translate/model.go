package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/hmkim/marketbrief/internal/generate"
	"github.com/hmkim/marketbrief/internal/logging"
	"github.com/hmkim/marketbrief/internal/models"
	"github.com/hmkim/marketbrief/internal/resilience"
)

const translateSystemPrompt = "You are a professional financial translator. " +
	"You translate market commentary precisely, keeping figures, tickers and terminology intact."

var languageNames = map[string]string{
	"en": "English",
	"ko": "Korean",
	"ja": "Japanese",
	"zh": "Chinese",
}

// ModelTranslator translates through a chat model. Only the text values
// travel to the model, as a flat JSON array; the report shape never
// leaves the process, so the derived report mirrors the base one by
// construction.
type ModelTranslator struct {
	model   model.BaseChatModel
	retry   resilience.RetryConfig
	timeout time.Duration
}

func NewModelTranslator(chatModel model.BaseChatModel, timeout time.Duration) *ModelTranslator {
	return &ModelTranslator{
		model: chatModel,
		retry: resilience.RetryConfig{
			MaxRetries: 1,
			BaseDelay:  3 * time.Second,
			MaxDelay:   30 * time.Second,
			Multiplier: 2,
			RetryIf:    resilience.IsRetryable,
			OnRetry: func(err error, attempt int) {
				logging.Log.WithError(err).WithField("attempt", attempt).Warn("translation call retrying")
			},
		},
		timeout: timeout,
	}
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

func (m *ModelTranslator) Translate(ctx context.Context, report *models.LocalizedReport, fromLang, toLang string) (*models.LocalizedReport, error) {
	out, err := cloneReport(report)
	if err != nil {
		return nil, err
	}
	fields := textFields(out)
	if len(fields) == 0 {
		return out, nil
	}

	texts := make([]string, len(fields))
	for i, f := range fields {
		texts[i] = *f
	}

	translated, err := m.translateTexts(ctx, texts, fromLang, toLang)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(texts) {
		return nil, fmt.Errorf("translation returned %d texts for %d inputs", len(translated), len(texts))
	}
	for i, f := range fields {
		*f = translated[i]
	}
	return out, nil
}

func (m *ModelTranslator) translateTexts(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error) {
	payload, err := json.Marshal(map[string][]string{"texts": texts})
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Translate every string in the \"texts\" array below from %s to %s.\n",
		languageName(fromLang), languageName(toLang))
	b.WriteString("Keep numbers, percentages, ticker symbols and proper nouns unchanged where customary.\n")
	b.WriteString("Respond with ONLY a JSON object of the form {\"texts\": [...]} containing the same number of strings in the same order.\n\n")
	b.Write(payload)
	prompt := b.String()

	var raw string
	err = resilience.WithRetry(ctx, &m.retry, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, m.timeout, "translation model call", func(ctx context.Context) error {
			resp, genErr := m.model.Generate(ctx, []*schema.Message{
				schema.SystemMessage(translateSystemPrompt),
				schema.UserMessage(prompt),
			})
			if genErr != nil {
				return genErr
			}
			raw = resp.Content
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	cleaned, err := generate.CleanModelJSON(raw)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Texts []string `json:"texts"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, &generate.JSONParseError{Err: err}
	}
	return parsed.Texts, nil
}
