package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hmkim/marketbrief/internal/models"
)

func testArtifact(date, session, evaluation, headline string) *models.AnalysisArtifact {
	return &models.AnalysisArtifact{
		Date:    date,
		Session: session,
		Languages: map[string]*models.LocalizedReport{
			"en": {
				Summary: &models.Summary{
					Evaluation: evaluation,
					Score:      5,
					Headline:   headline,
					Text:       "Session commentary for " + date + " " + session + ".",
				},
			},
		},
	}
}

func stageArtifact(t *testing.T, dir string, artifact *models.AnalysisArtifact) string {
	t.Helper()
	data, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("staged-%s%s.json", artifact.Date, artifact.Session))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write staged artifact: %v", err)
	}
	return path
}

func newTestManager(t *testing.T, cap int) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	siteDir := filepath.Join(root, "site")
	archiveDir := filepath.Join(root, "site", "archive")
	return NewManager(siteDir, archiveDir, "en", cap), root
}

func TestRotateFirstRunCreatesLatestAndManifest(t *testing.T) {
	m, root := newTestManager(t, 50)
	staged := stageArtifact(t, root, testArtifact("2026-08-31", models.SessionMorning, "Sell", "Risk-off open"))

	if err := m.Rotate(context.Background(), staged); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	latest, err := readArtifact(m.LatestPath())
	if err != nil {
		t.Fatalf("read latest: %v", err)
	}
	if latest.Date != "2026-08-31" || latest.Session != models.SessionMorning {
		t.Fatalf("unexpected latest %s %s", latest.Date, latest.Session)
	}

	entries, err := m.LoadManifest()
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d manifest entries, want 1", len(entries))
	}
	if entries[0].Archive != "20260831am.json" || entries[0].Evaluation != "Sell" {
		t.Fatalf("unexpected manifest entry %+v", entries[0])
	}

	// First run has nothing to archive.
	files, _ := os.ReadDir(filepath.Join(root, "site", "archive"))
	if len(files) != 0 {
		t.Fatalf("archive dir should be empty on first run, has %d files", len(files))
	}
}

func TestRotateArchivesPreviousLatest(t *testing.T) {
	m, root := newTestManager(t, 50)
	ctx := context.Background()

	first := stageArtifact(t, root, testArtifact("2026-08-31", models.SessionMorning, "Neutral", "Quiet open"))
	if err := m.Rotate(ctx, first); err != nil {
		t.Fatalf("first Rotate: %v", err)
	}
	second := stageArtifact(t, root, testArtifact("2026-08-31", models.SessionAfternoon, "Sell", "Late fade"))
	if err := m.Rotate(ctx, second); err != nil {
		t.Fatalf("second Rotate: %v", err)
	}

	archived, err := readArtifact(filepath.Join(root, "site", "archive", "20260831am.json"))
	if err != nil {
		t.Fatalf("previous latest not archived: %v", err)
	}
	if archived.Session != models.SessionMorning {
		t.Fatalf("archived wrong session %s", archived.Session)
	}

	latest, err := readArtifact(m.LatestPath())
	if err != nil {
		t.Fatalf("read latest: %v", err)
	}
	if latest.Session != models.SessionAfternoon {
		t.Fatalf("latest not replaced, still %s", latest.Session)
	}

	entries, _ := m.LoadManifest()
	if len(entries) != 2 {
		t.Fatalf("got %d manifest entries, want 2", len(entries))
	}
	if entries[0].Session != models.SessionAfternoon || entries[1].Session != models.SessionMorning {
		t.Fatalf("manifest not newest-first: %+v", entries)
	}
}

func TestRotateAbortsWhenArchiveCopyFails(t *testing.T) {
	m, root := newTestManager(t, 50)
	ctx := context.Background()

	first := stageArtifact(t, root, testArtifact("2026-08-31", models.SessionMorning, "Buy", "Strong open"))
	if err := m.Rotate(ctx, first); err != nil {
		t.Fatalf("first Rotate: %v", err)
	}

	copyErr := errors.New("disk full")
	m.copyFile = func(dst, src string) error { return copyErr }

	second := stageArtifact(t, root, testArtifact("2026-08-31", models.SessionAfternoon, "Sell", "Late fade"))
	err := m.Rotate(ctx, second)
	if !errors.Is(err, copyErr) {
		t.Fatalf("expected copy failure, got %v", err)
	}

	// Served latest and manifest must be untouched by the failed rotation.
	latest, readErr := readArtifact(m.LatestPath())
	if readErr != nil {
		t.Fatalf("read latest: %v", readErr)
	}
	if latest.Session != models.SessionMorning {
		t.Fatalf("latest changed despite aborted rotation: %s", latest.Session)
	}
	entries, _ := m.LoadManifest()
	if len(entries) != 1 {
		t.Fatalf("manifest changed despite aborted rotation: %d entries", len(entries))
	}
}

func TestRotateCancelledContext(t *testing.T) {
	m, root := newTestManager(t, 50)
	staged := stageArtifact(t, root, testArtifact("2026-08-31", models.SessionMorning, "Buy", "Strong open"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Rotate(ctx, staged); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(m.LatestPath()); !os.IsNotExist(err) {
		t.Fatalf("cancelled rotation must not publish")
	}
}

func TestManifestTruncatesAtCap(t *testing.T) {
	const keep = 3
	m, root := newTestManager(t, keep)
	ctx := context.Background()

	dates := []string{"2026-08-25", "2026-08-26", "2026-08-27", "2026-08-28"}
	for _, d := range dates {
		staged := stageArtifact(t, root, testArtifact(d, models.SessionMorning, "Neutral", "Headline "+d))
		if err := m.Rotate(ctx, staged); err != nil {
			t.Fatalf("Rotate %s: %v", d, err)
		}
	}

	entries, err := m.LoadManifest()
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(entries) != keep {
		t.Fatalf("got %d manifest entries, want %d", len(entries), keep)
	}
	if entries[0].DisplayDate != "2026-08-28" {
		t.Fatalf("newest entry is %s", entries[0].DisplayDate)
	}
	for _, e := range entries {
		if e.DisplayDate == "2026-08-25" {
			t.Fatalf("oldest entry should have been truncated")
		}
	}

	// Truncation drops manifest rows only; archived files stay on disk.
	files, _ := os.ReadDir(filepath.Join(root, "site", "archive"))
	if len(files) != len(dates)-1 {
		t.Fatalf("got %d archived files, want %d", len(files), len(dates)-1)
	}
}

func TestShortSummaryTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 40; i++ {
		long += "word "
	}
	got := truncateRunes(long, shortSummaryLen)
	if n := len([]rune(got)); n > shortSummaryLen+1 {
		t.Fatalf("short summary %d runes long", n)
	}
}
