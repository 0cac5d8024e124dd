package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hmkim/marketbrief/config"
	"github.com/hmkim/marketbrief/internal/archive"
	"github.com/hmkim/marketbrief/internal/generate"
	"github.com/hmkim/marketbrief/internal/logging"
	"github.com/hmkim/marketbrief/internal/models"
	"github.com/hmkim/marketbrief/internal/resilience"
	"github.com/hmkim/marketbrief/internal/translate"
	"github.com/hmkim/marketbrief/internal/validate"
)

// MarketCollector produces the reference snapshot a run is built on.
// Its failure aborts the run.
type MarketCollector interface {
	Collect(ctx context.Context) (*models.MarketSnapshot, error)
}

// EvidenceGatherer assembles the qualitative evidence block. It never
// fails a run: on total failure it returns an explicit no-evidence
// notice instead.
type EvidenceGatherer interface {
	Gather(ctx context.Context, queries []string) string
}

// Deps holds the wired components. Construction lives in the cli
// package; tests assemble their own.
type Deps struct {
	Collector  MarketCollector
	Gatherer   EvidenceGatherer
	Generator  *generate.Generator
	Validator  *validate.Validator
	Translator translate.Translator
	Archive    *archive.Manager
	Breakers   []*resilience.CircuitBreaker
}

// Pipeline runs one publication cycle end to end: collect and gather in
// parallel, generate, validate, localize, stage, rotate.
type Pipeline struct {
	cfg        *config.Config
	thresholds *config.Manager
	deps       Deps

	now func() time.Time
}

func New(cfg *config.Config, thresholds *config.Manager, deps Deps) *Pipeline {
	return &Pipeline{cfg: cfg, thresholds: thresholds, deps: deps, now: time.Now}
}

// Result summarizes a successful run for the CLI.
type Result struct {
	Artifact   *models.AnalysisArtifact
	Validation *validate.Report
	StagedPath string
	Languages  []string
	Dropped    []string
	Elapsed    time.Duration
}

// Run executes one full cycle. Any returned error means nothing was
// published and the previously served latest is still intact.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.now()
	date := started
	session := p.cfg.Session
	if session == "" {
		session = models.SessionForTime(started)
	}
	logging.Log.WithFields(map[string]interface{}{
		"date":    date.Format("2006-01-02"),
		"session": session,
	}).Info("starting publication run")

	var (
		snapshot *models.MarketSnapshot
		evidence string
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s, err := p.deps.Collector.Collect(egCtx)
		if err != nil {
			return fmt.Errorf("market data collection: %w", err)
		}
		snapshot = s
		return nil
	})
	eg.Go(func() error {
		evidence = p.deps.Gatherer.Gather(egCtx, p.cfg.EvidenceQueries)
		return nil
	})
	if err := eg.Wait(); err != nil {
		p.logAbort(err)
		return nil, err
	}

	artifact, err := p.deps.Generator.Generate(ctx, snapshot, evidence, date, session)
	if err != nil {
		p.logAbort(fmt.Errorf("analysis generation: %w", err))
		return nil, err
	}

	th := p.thresholds.Get()
	report := p.deps.Validator.Validate(artifact, snapshot, th, started)
	for _, w := range report.Warnings {
		logging.Log.WithField("warning", w).Warn("plausibility finding")
	}
	if !report.Valid() {
		err := fmt.Errorf("artifact failed validation: %d errors", len(report.Errors))
		for _, e := range report.Errors {
			logging.Log.WithField("error", e).Error("validation failure")
		}
		p.logAbort(err)
		return nil, err
	}

	dropped := p.localize(ctx, artifact)

	stagedPath, err := p.stage(artifact, date, session)
	if err != nil {
		p.logAbort(err)
		return nil, err
	}

	if err := p.deps.Archive.Rotate(ctx, stagedPath); err != nil {
		p.logAbort(fmt.Errorf("rotation: %w", err))
		return nil, err
	}

	langs := make([]string, 0, len(artifact.Languages))
	for lang := range artifact.Languages {
		langs = append(langs, lang)
	}
	result := &Result{
		Artifact:   artifact,
		Validation: report,
		StagedPath: stagedPath,
		Languages:  langs,
		Dropped:    dropped,
		Elapsed:    p.now().Sub(started),
	}
	logging.Log.WithFields(map[string]interface{}{
		"languages": len(langs),
		"overall":   report.Overall,
		"elapsed":   result.Elapsed.Round(time.Millisecond).String(),
	}).Info("publication run complete")
	return result, nil
}

// RotateOnly publishes an already generated artifact file, skipping
// collection and generation.
func (p *Pipeline) RotateOnly(ctx context.Context, artifactPath string) error {
	return p.deps.Archive.Rotate(ctx, artifactPath)
}

// localize derives the configured target languages from the base report.
// A failed language is dropped with a warning; the base language always
// ships.
func (p *Pipeline) localize(ctx context.Context, artifact *models.AnalysisArtifact) []string {
	base := artifact.Languages[p.cfg.BaseLanguage]
	if base == nil || p.deps.Translator == nil {
		return nil
	}

	var dropped []string
	for _, lang := range p.cfg.TargetLanguages {
		if lang == p.cfg.BaseLanguage {
			continue
		}
		translated, err := p.deps.Translator.Translate(ctx, base, p.cfg.BaseLanguage, lang)
		if err != nil {
			logging.Log.WithError(err).WithField("language", lang).Warn("translation failed; language dropped for this run")
			dropped = append(dropped, lang)
			continue
		}
		artifact.Languages[lang] = translated
	}
	return dropped
}

func (p *Pipeline) stage(artifact *models.AnalysisArtifact, date time.Time, session string) (string, error) {
	if err := os.MkdirAll(p.cfg.StagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	path := filepath.Join(p.cfg.StagingDir, models.ArchiveName(date, session))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("stage artifact: %w", err)
	}
	return path, nil
}

// logAbort records why the run stopped, with breaker state attached so
// an operator can tell a flaky dependency from a tripped one.
func (p *Pipeline) logAbort(err error) {
	entry := logging.Log.WithError(err)
	for _, cb := range p.deps.Breakers {
		entry = entry.WithField("breaker_"+cb.Name(), cb.StatsLine())
	}
	entry.Error("publication run aborted; previous latest left in place")
}
