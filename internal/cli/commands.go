package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmkim/marketbrief/config"
	"github.com/hmkim/marketbrief/internal/archive"
	"github.com/hmkim/marketbrief/internal/dataflows"
	"github.com/hmkim/marketbrief/internal/generate"
	"github.com/hmkim/marketbrief/internal/logging"
	"github.com/hmkim/marketbrief/internal/pipeline"
	"github.com/hmkim/marketbrief/internal/resilience"
	"github.com/hmkim/marketbrief/internal/search"
	"github.com/hmkim/marketbrief/internal/translate"
	"github.com/hmkim/marketbrief/internal/validate"
)

const version = "1.0.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "marketbrief [artifact.json]",
		Short: "marketbrief - automated market commentary publisher",
		Long: `marketbrief collects market data, gathers supporting evidence and
generates a localized daily market analysis, then publishes it to the
static site data directory with archive rotation.

With no arguments it runs the full pipeline. With a single path argument
it only rotates the given pre-generated artifact into place.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runRotateOnly(cmd, cfg, args[0])
			}
			return runPublish(cmd, cfg)
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newInitCmd(cfg))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("marketbrief v%s\n", version)
			fmt.Println("Automated market commentary publisher")
		},
	}
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println(okStyle.Render("configuration is valid"))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "thresholds",
		Short: "Show the active validation thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(manager.Get(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", string(data), manager.Path())
			return nil
		},
	})

	return configCmd
}

// buildPipeline wires the production components: one circuit breaker per
// external dependency, shared by nothing else.
func buildPipeline(cmd *cobra.Command, cfg *config.Config) (*pipeline.Pipeline, error) {
	ctx := cmd.Context()

	thresholds, err := config.NewManager()
	if err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	if err := thresholds.Watch(ctx, func(t config.Thresholds) {
		logging.Log.Info("validation thresholds reloaded")
	}); err != nil {
		logging.Log.WithError(err).Warn("thresholds hot reload unavailable")
	}

	chatModel, err := generate.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}

	searchBreaker := resilience.NewCircuitBreaker("search", 3, 60*time.Second)
	modelBreaker := resilience.NewCircuitBreaker("model", 3, 120*time.Second)

	p := pipeline.New(cfg, thresholds, pipeline.Deps{
		Collector:  dataflows.NewCollector(cfg),
		Gatherer:   search.NewGatherer(cfg, searchBreaker),
		Generator:  generate.NewGenerator(chatModel, modelBreaker, cfg),
		Validator:  validate.NewValidator(cfg.BaseLanguage),
		Translator: translate.NewModelTranslator(chatModel, time.Duration(cfg.ModelTimeoutSeconds)*time.Second),
		Archive:    archive.NewManager(cfg.SiteDataDir, cfg.ArchiveDir, cfg.BaseLanguage, thresholds.Get().ManifestCap),
		Breakers:   []*resilience.CircuitBreaker{searchBreaker, modelBreaker},
	})
	return p, nil
}

func runPublish(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := buildPipeline(cmd, cfg)
	if err != nil {
		return err
	}

	result, err := p.Run(cmd.Context())
	if err != nil {
		fmt.Println(errStyle.Render("run aborted: " + err.Error()))
		return err
	}

	fmt.Println(renderRunSummary(result))
	return nil
}

func runRotateOnly(cmd *cobra.Command, cfg *config.Config, artifactPath string) error {
	thresholds, err := config.NewManager()
	if err != nil {
		return err
	}
	manager := archive.NewManager(cfg.SiteDataDir, cfg.ArchiveDir, cfg.BaseLanguage, thresholds.Get().ManifestCap)

	if err := manager.Rotate(cmd.Context(), artifactPath); err != nil {
		fmt.Println(errStyle.Render("rotation failed: " + err.Error()))
		return err
	}
	fmt.Println(okStyle.Render("artifact rotated into place"))
	return nil
}
