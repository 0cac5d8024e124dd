package translate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hmkim/marketbrief/internal/models"
)

// Translator produces a derived-language rendering of a report. The
// source report is never mutated, and the result mirrors its structure
// section for section.
type Translator interface {
	Translate(ctx context.Context, report *models.LocalizedReport, fromLang, toLang string) (*models.LocalizedReport, error)
}

// cloneReport deep-copies via a JSON round trip. Reports are small and
// fully tagged, so this stays correct as fields are added.
func cloneReport(report *models.LocalizedReport) (*models.LocalizedReport, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("clone report: %w", err)
	}
	var out models.LocalizedReport
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone report: %w", err)
	}
	return &out, nil
}

// textFields returns pointers to every human-readable string in the
// report, in a fixed order. Both backends translate through this list,
// which is what guarantees the derived report keeps the base structure:
// only string values change, never the shape. Evaluation is excluded on
// purpose, it is an enum shared across languages.
func textFields(r *models.LocalizedReport) []*string {
	var fields []*string
	add := func(ptrs ...*string) {
		for _, p := range ptrs {
			if p != nil && *p != "" {
				fields = append(fields, p)
			}
		}
	}

	if r.Summary != nil {
		add(&r.Summary.Headline, &r.Summary.Text)
	}
	if d := r.Dashboard; d != nil {
		if d.Breadth != nil {
			add(&d.Breadth.Summary)
		}
		if d.SentimentIndex != nil {
			add(&d.SentimentIndex.Summary)
		}
		if d.PriceLevels != nil {
			if d.PriceLevels.Resistance != nil {
				add(&d.PriceLevels.Resistance.Description)
			}
			if d.PriceLevels.Support != nil {
				add(&d.PriceLevels.Support.Description)
			}
		}
		if d.PutCallRatio != nil {
			add(&d.PutCallRatio.Status, &d.PutCallRatio.Summary)
		}
	}
	if det := r.Details; det != nil {
		for _, section := range []*models.DetailSection{det.Internals, det.Technicals} {
			if section == nil {
				continue
			}
			add(&section.Headline, &section.Text)
			if section.Chart != nil {
				for i := range section.Chart.Labels {
					add(&section.Chart.Labels[i])
				}
			}
		}
		if f := det.Fundamentals; f != nil {
			add(&f.Headline, &f.Text)
			if f.VIX != nil {
				add(&f.VIX.Summary)
			}
			if f.Survey != nil {
				add(&f.Survey.Summary)
			}
			for i := range f.Points {
				add(&f.Points[i])
			}
		}
		if det.Strategy != nil {
			add(&det.Strategy.Headline, &det.Strategy.Text)
		}
	}
	for i := range r.MarketOverview {
		add(&r.MarketOverview[i].Name)
	}
	for i := range r.HotStocks {
		add(&r.HotStocks[i].Name, &r.HotStocks[i].Description)
	}

	return fields
}
