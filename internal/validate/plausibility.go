package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hmkim/marketbrief/config"
	"github.com/hmkim/marketbrief/internal/models"
)

// Plausibility cross-validates the artifact against the independently
// collected market snapshot and text-quality heuristics. Findings are
// soft: they publish with a warning unless strict mode is on.
func (sv *Validator) Plausibility(artifact *models.AnalysisArtifact, snapshot *models.MarketSnapshot, th config.Thresholds, now time.Time) []string {
	var warnings []string

	report := artifact.Languages[sv.baseLang]
	if report == nil {
		return warnings
	}

	warnings = append(warnings, priceWarnings(report, snapshot, th)...)
	warnings = append(warnings, sentimentWarnings(report, snapshot, th)...)
	warnings = append(warnings, stalenessWarnings(artifact, th, now)...)
	warnings = append(warnings, textQualityWarnings(report, th)...)
	warnings = append(warnings, duplicateTextWarnings(report)...)

	return warnings
}

func priceWarnings(report *models.LocalizedReport, snapshot *models.MarketSnapshot, th config.Thresholds) []string {
	if snapshot == nil {
		return nil
	}
	var warnings []string
	ref, _ := snapshot.IndexPrice.Float64()

	if report.Dashboard != nil && report.Dashboard.PriceLevels != nil {
		levels := report.Dashboard.PriceLevels
		if levels.Support != nil && levels.Resistance != nil && levels.Support.Value > levels.Resistance.Value {
			warnings = append(warnings, fmt.Sprintf("support %.0f above resistance %.0f", levels.Support.Value, levels.Resistance.Value))
		}
		if levels.Support != nil && levels.Support.Value > ref {
			warnings = append(warnings, fmt.Sprintf("support %.0f above reference index %.0f", levels.Support.Value, ref))
		}
		if levels.Resistance != nil && levels.Resistance.Value < ref {
			warnings = append(warnings, fmt.Sprintf("resistance %.0f below reference index %.0f", levels.Resistance.Value, ref))
		}
	}

	for _, item := range report.MarketOverview {
		name := strings.ToLower(item.Name)
		value, ok := parseNumeric(item.Value)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(name, "s&p") || strings.Contains(name, "index"):
			if math.Abs(value-ref) > th.IndexTolerancePoints {
				warnings = append(warnings, fmt.Sprintf("reported index value %.0f deviates from reference %.0f by more than %.0f points", value, ref, th.IndexTolerancePoints))
			}
		case strings.Contains(name, "10y") || strings.Contains(name, "treasury"):
			if snapshot.TreasuryYield == nil {
				continue
			}
			refYield, _ := snapshot.TreasuryYield.Float64()
			if math.Abs(value-refYield) > th.YieldTolerancePP {
				warnings = append(warnings, fmt.Sprintf("reported yield %.2f deviates from reference %.2f by more than %.2fpp", value, refYield, th.YieldTolerancePP))
			}
		}
	}

	return warnings
}

func sentimentWarnings(report *models.LocalizedReport, snapshot *models.MarketSnapshot, th config.Thresholds) []string {
	if snapshot == nil || report.Dashboard == nil || report.Dashboard.SentimentIndex == nil {
		return nil
	}
	got := report.Dashboard.SentimentIndex.Value
	if math.Abs(got-snapshot.SentimentIndex) > th.SentimentTolerance {
		return []string{fmt.Sprintf("reported sentiment %.0f deviates from reference %.0f by more than %.0f", got, snapshot.SentimentIndex, th.SentimentTolerance)}
	}
	return nil
}

func stalenessWarnings(artifact *models.AnalysisArtifact, th config.Thresholds, now time.Time) []string {
	date, err := time.Parse("2006-01-02", artifact.Date)
	if err != nil {
		return []string{fmt.Sprintf("artifact date %q is not ISO-normalizable", artifact.Date)}
	}
	window := time.Duration(th.FreshnessWindowHours) * time.Hour
	if now.Sub(date) > window {
		return []string{fmt.Sprintf("artifact date %s is older than the %dh freshness window", artifact.Date, th.FreshnessWindowHours)}
	}
	return nil
}

func textQualityWarnings(report *models.LocalizedReport, th config.Thresholds) []string {
	if report.Summary == nil {
		return nil
	}
	var warnings []string

	if n := len([]rune(report.Summary.Headline)); n < th.HeadlineMinLen || n > th.HeadlineMaxLen {
		warnings = append(warnings, fmt.Sprintf("headline length %d outside [%d, %d]", n, th.HeadlineMinLen, th.HeadlineMaxLen))
	}
	if n := len([]rune(report.Summary.Text)); n < th.BodyMinLen || n > th.BodyMaxLen {
		warnings = append(warnings, fmt.Sprintf("summary text length %d outside [%d, %d]", n, th.BodyMinLen, th.BodyMaxLen))
	}
	return warnings
}

// duplicateTextWarnings flags verbatim reuse across the fixed set of
// otherwise-distinct commentary fields.
func duplicateTextWarnings(report *models.LocalizedReport) []string {
	fields := map[string]string{}
	if report.Summary != nil {
		fields["summary.text"] = report.Summary.Text
	}
	if report.Details != nil {
		if report.Details.Internals != nil {
			fields["details.internals.text"] = report.Details.Internals.Text
		}
		if report.Details.Technicals != nil {
			fields["details.technicals.text"] = report.Details.Technicals.Text
		}
		if report.Details.Fundamentals != nil {
			fields["details.fundamentals.text"] = report.Details.Fundamentals.Text
		}
		if report.Details.Strategy != nil {
			fields["details.strategy.text"] = report.Details.Strategy.Text
		}
	}

	seen := map[string]string{}
	var warnings []string
	for _, name := range []string{"summary.text", "details.internals.text", "details.technicals.text", "details.fundamentals.text", "details.strategy.text"} {
		text, ok := fields[name]
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(text))
		if prev, dup := seen[key]; dup {
			warnings = append(warnings, fmt.Sprintf("%s duplicates %s verbatim", name, prev))
		} else {
			seen[key] = name
		}
	}
	return warnings
}

// Validate runs both tiers and folds them into one report.
func (sv *Validator) Validate(artifact *models.AnalysisArtifact, snapshot *models.MarketSnapshot, th config.Thresholds, now time.Time) *Report {
	report := &Report{Overall: OverallValid}

	report.Errors = sv.Schema(artifact)
	if len(report.Errors) > 0 {
		report.Overall = OverallInvalid
		return report
	}

	report.Warnings = sv.Plausibility(artifact, snapshot, th, now)
	if len(report.Warnings) > 0 {
		if th.StrictPlausibility {
			report.Overall = OverallInvalid
			report.Errors = append(report.Errors, "strict plausibility mode: warnings promoted to errors")
		} else {
			report.Overall = OverallWarning
		}
	}
	return report
}

func parseNumeric(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, s)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
