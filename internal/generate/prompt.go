package generate

import (
	"strings"
	"text/template"
	"time"

	"github.com/hmkim/marketbrief/internal/models"
)

// promptTemplate instructs the model to emit a bare JSON object matching
// the artifact schema. The wording is fixed: for identical snapshot and
// evidence inputs the assembled prompt is byte-identical.
const promptTemplate = `You are a senior market strategist writing the daily market commentary for {{.DisplayDate}} ({{.Session}} session).

MARKET DATA:
{{.Snapshot}}
WEB EVIDENCE:
{{.Evidence}}

Write the analysis in {{.Language}}. Respond with ONLY a single JSON object, no prose, no markdown fencing, matching exactly this schema:

{
  "languages": {
    "{{.LangCode}}": {
      "summary": {"evaluation": "Buy|Sell|Neutral", "score": 1-10 integer, "headline": "...", "text": "..."},
      "dashboard": {
        "breadth": {"advancers": int >= 0, "decliners": int >= 0, "summary": "..."},
        "sentimentIndex": {"value": 0-100, "summary": "..."},
        "priceLevels": {
          "resistance": {"value": number, "description": "..."},
          "support": {"value": number, "description": "..."}
        },
        "putCallRatio": {"dailyValue": number, "movingAverage": number, "status": "...", "summary": "..."}
      },
      "details": {
        "internals": {"headline": "...", "text": "...", "chart": {"labels": ["..."], "series": [[number]]}},
        "technicals": {"headline": "...", "text": "...", "chart": {"labels": ["..."], "series": [[number]]}},
        "fundamentals": {"headline": "...", "text": "...", "vix": {"value": number, "change": number, "summary": "..."}, "survey": {"bullish": number, "bearish": number, "neutral": number, "summary": "..."}, "points": ["..."]},
        "strategy": {"headline": "...", "text": "..."}
      },
      "marketOverview": [{"name": "...", "value": "...", "change": "...", "isDown": bool}],
      "hotStocks": [{"name": "...", "price": "...", "description": "...", "isDown": bool}]
    }
  }
}

Rules: score reflects your conviction (1 = strong sell, 10 = strong buy). Use the provided index price when citing levels. Every chart series must have one value per label. Keep headlines under 120 characters and body texts at least two sentences.`

var promptTmpl = template.Must(template.New("analysis").Parse(promptTemplate))

type promptData struct {
	DisplayDate string
	Session     string
	Snapshot    string
	Evidence    string
	Language    string
	LangCode    string
}

var languageNames = map[string]string{
	"en": "English",
	"ko": "Korean",
	"ja": "Japanese",
	"zh": "Chinese",
}

// BuildPrompt assembles the single deterministic prompt for one run.
func BuildPrompt(snapshot *models.MarketSnapshot, evidence string, date time.Time, session, langCode string) string {
	language := languageNames[langCode]
	if language == "" {
		language = langCode
	}

	sessionLabel := "morning"
	if session == models.SessionAfternoon {
		sessionLabel = "afternoon"
	}

	var b strings.Builder
	_ = promptTmpl.Execute(&b, promptData{
		DisplayDate: date.Format("2006-01-02"),
		Session:     sessionLabel,
		Snapshot:    snapshot.PromptSummary(),
		Evidence:    evidence,
		Language:    language,
		LangCode:    langCode,
	})
	return b.String()
}
