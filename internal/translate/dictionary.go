package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/hmkim/marketbrief/internal/models"
)

// DictionaryTranslator handles the fixed vocabulary of labels and status
// words from a static phrase table. Free-form commentary passes through
// untranslated, which keeps it useful as a deterministic fallback when no
// model backend is configured.
type DictionaryTranslator struct {
	phrases map[string]map[string]string
}

func NewDictionaryTranslator() *DictionaryTranslator {
	return &DictionaryTranslator{phrases: map[string]map[string]string{
		"ko": {
			"s&p 500":       "S&P 500 지수",
			"nasdaq":        "나스닥",
			"dow jones":     "다우존스",
			"10y treasury":  "미국 10년물 국채",
			"vix":           "VIX 변동성 지수",
			"elevated":      "높음",
			"neutral":       "중립",
			"low":           "낮음",
			"high":          "높음",
			"fear":          "공포",
			"greed":         "탐욕",
			"extreme fear":  "극단적 공포",
			"extreme greed": "극단적 탐욕",
			"mon":           "월",
			"tue":           "화",
			"wed":           "수",
			"thu":           "목",
			"fri":           "금",
		},
	}}
}

func (d *DictionaryTranslator) Translate(ctx context.Context, report *models.LocalizedReport, fromLang, toLang string) (*models.LocalizedReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, ok := d.phrases[toLang]
	if !ok {
		return nil, fmt.Errorf("no phrase table for language %q", toLang)
	}

	out, err := cloneReport(report)
	if err != nil {
		return nil, err
	}
	for _, field := range textFields(out) {
		if repl, ok := table[strings.ToLower(strings.TrimSpace(*field))]; ok {
			*field = repl
		}
	}
	return out, nil
}
