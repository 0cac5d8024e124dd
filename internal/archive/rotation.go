package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hmkim/marketbrief/internal/logging"
	"github.com/hmkim/marketbrief/internal/models"
)

const latestFile = "latest.json"

// Manager owns the published site data: the served latest artifact, the
// dated archive copies, and the manifest index. It assumes a single
// writer; concurrent rotations are an operator error.
type Manager struct {
	siteDir     string
	archiveDir  string
	baseLang    string
	manifestCap int

	copyFile func(dst, src string) error
}

func NewManager(siteDir, archiveDir, baseLang string, manifestCap int) *Manager {
	return &Manager{
		siteDir:     siteDir,
		archiveDir:  archiveDir,
		baseLang:    baseLang,
		manifestCap: manifestCap,
		copyFile:    copyFile,
	}
}

func (m *Manager) LatestPath() string   { return filepath.Join(m.siteDir, latestFile) }
func (m *Manager) ManifestPath() string { return filepath.Join(m.siteDir, manifestFile) }

// Rotate publishes the staged artifact. The order is fixed so that a
// failure at any step leaves the previously served latest intact:
//
//  1. read the currently served latest, if any
//  2. copy it into the archive under its dated name; abort on failure
//  3. atomically replace latest with the staged artifact
//  4. prepend the new artifact to the manifest, truncate, persist
//
// A failure in step 3 is the one window where the old latest may already
// sit only in the archive; it is logged at error level with enough
// context to restore by hand.
func (m *Manager) Rotate(ctx context.Context, stagedPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	staged, err := readArtifact(stagedPath)
	if err != nil {
		return fmt.Errorf("read staged artifact: %w", err)
	}

	previous, err := m.readLatest()
	if err != nil {
		return err
	}

	if previous != nil {
		dst := filepath.Join(m.archiveDir, archiveFileName(previous))
		if err := m.copyFile(dst, m.LatestPath()); err != nil {
			return fmt.Errorf("archive previous latest to %s: %w", dst, err)
		}
		logging.Log.WithField("archive", filepath.Base(dst)).Info("archived previous analysis")
	}

	if err := replaceAtomic(m.LatestPath(), stagedPath); err != nil {
		logging.Log.WithError(err).WithFields(map[string]interface{}{
			"staged": stagedPath,
			"latest": m.LatestPath(),
		}).Error("latest replacement failed after archiving; served copy may be missing")
		return fmt.Errorf("replace latest: %w", err)
	}

	if err := m.updateManifest(staged); err != nil {
		// Latest is already live; a stale manifest is recoverable on the
		// next rotation, so surface but do not roll back.
		return fmt.Errorf("update manifest: %w", err)
	}

	return nil
}

func (m *Manager) readLatest() (*models.AnalysisArtifact, error) {
	artifact, err := readArtifact(m.LatestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read current latest: %w", err)
	}
	return artifact, nil
}

func (m *Manager) updateManifest(staged *models.AnalysisArtifact) error {
	entries, err := m.LoadManifest()
	if err != nil {
		return err
	}

	entries = append([]models.ManifestEntry{m.manifestEntry(staged)}, entries...)
	if m.manifestCap > 0 && len(entries) > m.manifestCap {
		entries = entries[:m.manifestCap]
	}
	return m.saveManifest(entries)
}

func readArtifact(path string) (*models.AnalysisArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var artifact models.AnalysisArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &artifact, nil
}

func archiveFileName(artifact *models.AnalysisArtifact) string {
	if t, err := time.Parse("2006-01-02", artifact.Date); err == nil {
		return models.ArchiveName(t, artifact.Session)
	}
	return strings.ReplaceAll(artifact.Date, "-", "") + artifact.Session + ".json"
}

func copyFile(dst, src string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// replaceAtomic installs src at dst via a same-directory temp file and
// rename, so readers never observe a partial latest.
func replaceAtomic(dst, src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return writeAtomic(dst, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
