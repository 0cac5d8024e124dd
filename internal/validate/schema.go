package validate

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/hmkim/marketbrief/internal/models"
)

// Validator enforces the hard artifact schema: types, enums, ranges and
// required substructures. Schema failures abort publication.
type Validator struct {
	v        *validator.Validate
	baseLang string
}

func NewValidator(baseLang string) *Validator {
	return &Validator{
		v:        validator.New(validator.WithRequiredStructEnabled()),
		baseLang: baseLang,
	}
}

// Schema returns every hard violation found in the artifact.
func (sv *Validator) Schema(artifact *models.AnalysisArtifact) []string {
	var errs []string

	if artifact == nil {
		return []string{"artifact is nil"}
	}

	if err := sv.v.Struct(artifact); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	base, ok := artifact.Languages[sv.baseLang]
	if !ok || base == nil {
		errs = append(errs, fmt.Sprintf("base language %q missing from languages", sv.baseLang))
		return errs
	}

	for lang, report := range artifact.Languages {
		errs = append(errs, chartErrors(lang, report)...)
		if lang != sv.baseLang {
			errs = append(errs, isomorphismErrors(sv.baseLang, base, lang, report)...)
		}
	}

	return errs
}

// chartErrors checks the label/series length equality the tag language
// cannot express.
func chartErrors(lang string, report *models.LocalizedReport) []string {
	if report == nil || report.Details == nil {
		return nil
	}

	var errs []string
	sections := map[string]*models.DetailSection{
		"internals":  report.Details.Internals,
		"technicals": report.Details.Technicals,
	}
	for name, section := range sections {
		if section == nil || section.Chart == nil {
			continue
		}
		if err := section.Chart.EqualLength(); err != nil {
			errs = append(errs, fmt.Sprintf("languages.%s.details.%s.chart: %v", lang, name, err))
		}
	}
	return errs
}

// isomorphismErrors checks that a derived language carries the same nested
// sections as the base language report.
func isomorphismErrors(baseLang string, base *models.LocalizedReport, lang string, report *models.LocalizedReport) []string {
	if report == nil {
		return []string{fmt.Sprintf("languages.%s is nil", lang)}
	}

	var errs []string
	mismatch := func(section string, baseHas, derivedHas bool) {
		if baseHas != derivedHas {
			errs = append(errs, fmt.Sprintf("languages.%s.%s does not mirror languages.%s", lang, section, baseLang))
		}
	}

	mismatch("summary", base.Summary != nil, report.Summary != nil)
	mismatch("dashboard", base.Dashboard != nil, report.Dashboard != nil)
	mismatch("details", base.Details != nil, report.Details != nil)
	if base.Details != nil && report.Details != nil {
		mismatch("details.internals", base.Details.Internals != nil, report.Details.Internals != nil)
		mismatch("details.technicals", base.Details.Technicals != nil, report.Details.Technicals != nil)
		mismatch("details.fundamentals", base.Details.Fundamentals != nil, report.Details.Fundamentals != nil)
		mismatch("details.strategy", base.Details.Strategy != nil, report.Details.Strategy != nil)
	}
	mismatch("marketOverview", len(base.MarketOverview) > 0, len(report.MarketOverview) > 0)
	mismatch("hotStocks", len(base.HotStocks) > 0, len(report.HotStocks) > 0)

	return errs
}
