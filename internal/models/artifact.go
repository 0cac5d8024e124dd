package models

import (
	"fmt"
	"time"
)

// Evaluation tags the overall market call of one analysis.
const (
	EvaluationBuy     = "Buy"
	EvaluationSell    = "Sell"
	EvaluationNeutral = "Neutral"
)

// AnalysisArtifact is the unit of publication: one dated analysis rendered
// in one or more languages. The base language is always present; derived
// languages are produced by translation and mirror the base structure.
type AnalysisArtifact struct {
	Date      string                      `json:"date" validate:"required"`
	Session   string                      `json:"session" validate:"required"`
	Languages map[string]*LocalizedReport `json:"languages" validate:"required,dive,required"`
}

// LocalizedReport is one language's rendering of the analysis.
type LocalizedReport struct {
	Summary        *Summary       `json:"summary" validate:"required"`
	Dashboard      *Dashboard     `json:"dashboard" validate:"required"`
	Details        *Details       `json:"details" validate:"required"`
	MarketOverview []MarketItem   `json:"marketOverview" validate:"dive"`
	HotStocks      []HotStock     `json:"hotStocks" validate:"dive"`
}

type Summary struct {
	Evaluation string `json:"evaluation" validate:"required,oneof=Buy Sell Neutral"`
	Score      int    `json:"score" validate:"min=1,max=10"`
	Headline   string `json:"headline" validate:"required"`
	Text       string `json:"text" validate:"required"`
}

type Dashboard struct {
	Breadth        *Breadth        `json:"breadth" validate:"required"`
	SentimentIndex *SentimentGauge `json:"sentimentIndex" validate:"required"`
	PriceLevels    *PriceLevels    `json:"priceLevels" validate:"required"`
	PutCallRatio   *PutCallRatio   `json:"putCallRatio" validate:"required"`
}

type Breadth struct {
	Advancers int    `json:"advancers" validate:"min=0"`
	Decliners int    `json:"decliners" validate:"min=0"`
	Summary   string `json:"summary"`
}

type SentimentGauge struct {
	Value   float64 `json:"value" validate:"min=0,max=100"`
	Summary string  `json:"summary"`
}

type PriceLevels struct {
	Resistance *PriceLevel `json:"resistance" validate:"required"`
	Support    *PriceLevel `json:"support" validate:"required"`
}

type PriceLevel struct {
	Value       float64 `json:"value" validate:"required"`
	Description string  `json:"description"`
}

type PutCallRatio struct {
	DailyValue    float64 `json:"dailyValue"`
	MovingAverage float64 `json:"movingAverage"`
	Status        string  `json:"status"`
	Summary       string  `json:"summary"`
}

type Details struct {
	Internals    *DetailSection     `json:"internals" validate:"required"`
	Technicals   *DetailSection     `json:"technicals" validate:"required"`
	Fundamentals *FundamentalsBlock `json:"fundamentals" validate:"required"`
	Strategy     *TextBlock         `json:"strategy" validate:"required"`
}

// DetailSection carries commentary plus chart data rendered client-side.
type DetailSection struct {
	Headline string       `json:"headline" validate:"required"`
	Text     string       `json:"text" validate:"required"`
	Chart    *ChartSeries `json:"chart" validate:"required"`
}

type TextBlock struct {
	Headline string `json:"headline" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

type FundamentalsBlock struct {
	Headline string     `json:"headline" validate:"required"`
	Text     string     `json:"text" validate:"required"`
	VIX      *VIXBlock  `json:"vix" validate:"required"`
	Survey   *SurveyRef `json:"survey" validate:"required"`
	Points   []string   `json:"points"`
}

type VIXBlock struct {
	Value   float64 `json:"value"`
	Change  float64 `json:"change"`
	Summary string  `json:"summary"`
}

type SurveyRef struct {
	Bullish float64 `json:"bullish"`
	Bearish float64 `json:"bearish"`
	Neutral float64 `json:"neutral"`
	Summary string  `json:"summary"`
}

// ChartSeries holds parallel label/series arrays. Every numeric series must
// have exactly one value per label; EqualLength enforces that because the
// validator tag language cannot.
type ChartSeries struct {
	Labels []string    `json:"labels" validate:"required,min=1"`
	Series [][]float64 `json:"series" validate:"required,min=1"`
}

func (cs *ChartSeries) EqualLength() error {
	for i, s := range cs.Series {
		if len(s) != len(cs.Labels) {
			return fmt.Errorf("series %d has %d points for %d labels", i, len(s), len(cs.Labels))
		}
	}
	return nil
}

type MarketItem struct {
	Name   string `json:"name" validate:"required"`
	Value  string `json:"value"`
	Change string `json:"change"`
	IsDown bool   `json:"isDown"`
}

type HotStock struct {
	Name        string `json:"name" validate:"required"`
	Price       string `json:"price"`
	Description string `json:"description"`
	IsDown      bool   `json:"isDown"`
}

// Session slot codes used in archive filenames.
const (
	SessionMorning   = "am"
	SessionAfternoon = "pm"
)

// SessionForTime picks the publication slot for a wall-clock time.
func SessionForTime(t time.Time) string {
	if t.Hour() < 12 {
		return SessionMorning
	}
	return SessionAfternoon
}

// ArchiveName builds the fixed-width archive filename {YYYYMMDD}{session}.json.
func ArchiveName(date time.Time, session string) string {
	return fmt.Sprintf("%s%s.json", date.Format("20060102"), session)
}
