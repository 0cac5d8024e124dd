package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Thresholds are the operator-tunable validation knobs. They live in their
// own file so operators can adjust tolerances without touching credentials
// or redeploying; the Manager hot-reloads them.
type Thresholds struct {
	IndexTolerancePoints float64 `json:"index_tolerance_points"`
	YieldTolerancePP     float64 `json:"yield_tolerance_pp"`
	SentimentTolerance   float64 `json:"sentiment_tolerance"`
	FreshnessWindowHours int     `json:"freshness_window_hours"`

	HeadlineMinLen int `json:"headline_min_len"`
	HeadlineMaxLen int `json:"headline_max_len"`
	BodyMinLen     int `json:"body_min_len"`
	BodyMaxLen     int `json:"body_max_len"`

	ManifestCap        int  `json:"manifest_cap"`
	StrictPlausibility bool `json:"strict_plausibility"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		IndexTolerancePoints: 150,
		YieldTolerancePP:     0.5,
		SentimentTolerance:   15,
		FreshnessWindowHours: 36,

		HeadlineMinLen: 8,
		HeadlineMaxLen: 120,
		BodyMinLen:     80,
		BodyMaxLen:     4000,

		ManifestCap:        50,
		StrictPlausibility: false,
	}
}

func (t Thresholds) Validate() error {
	if t.ManifestCap <= 0 {
		return fmt.Errorf("manifest cap must be positive, got %d", t.ManifestCap)
	}
	if t.IndexTolerancePoints < 0 || t.YieldTolerancePP < 0 {
		return fmt.Errorf("tolerances must be non-negative")
	}
	if t.FreshnessWindowHours <= 0 {
		return fmt.Errorf("freshness window must be positive, got %d", t.FreshnessWindowHours)
	}
	if t.HeadlineMinLen > t.HeadlineMaxLen || t.BodyMinLen > t.BodyMaxLen {
		return fmt.Errorf("length bounds inverted")
	}
	return nil
}

func defaultThresholdsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".marketbrief", "thresholds.json"), nil
}

func loadThresholdsFromFile(path string, t *Thresholds) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, t)
}

func writeThresholdsFile(path string, t Thresholds) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
