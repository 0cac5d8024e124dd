package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hmkim/marketbrief/internal/models"
)

const manifestFile = "manifest.json"

// shortSummaryLen caps the excerpt carried in manifest rows so the index
// stays small enough to ship with every page load.
const shortSummaryLen = 140

// LoadManifest reads the archive index, newest first. A missing file is
// an empty manifest, not an error.
func (m *Manager) LoadManifest() ([]models.ManifestEntry, error) {
	data, err := os.ReadFile(m.ManifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var entries []models.ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return entries, nil
}

func (m *Manager) saveManifest(entries []models.ManifestEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return writeAtomic(m.ManifestPath(), data)
}

// manifestEntry distills one artifact into an index row. The row points at
// the archive file the artifact will occupy once rotated out of latest.
func (m *Manager) manifestEntry(artifact *models.AnalysisArtifact) models.ManifestEntry {
	entry := models.ManifestEntry{
		Archive:     archiveFileName(artifact),
		DisplayDate: artifact.Date,
		Session:     artifact.Session,
	}

	report := artifact.Languages[m.baseLang]
	if report != nil && report.Summary != nil {
		entry.Evaluation = report.Summary.Evaluation
		entry.Headline = report.Summary.Headline
		entry.ShortSummary = truncateRunes(report.Summary.Text, shortSummaryLen)
	}
	return entry
}

func truncateRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
