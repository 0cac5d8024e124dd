package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	SiteDataDir  string `json:"site_data_dir"`
	ArchiveDir   string `json:"archive_dir"`
	StagingDir   string `json:"staging_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	LLMProvider string `json:"llm_provider"`
	Model       string `json:"model"`
	BackendURL  string `json:"backend_url"`
	MaxTokens   int    `json:"max_tokens"`

	BaseLanguage    string   `json:"base_language"`
	TargetLanguages []string `json:"target_languages"`
	Session         string   `json:"session"`

	EvidenceQueries []string `json:"evidence_queries"`

	ModelTimeoutSeconds  int  `json:"model_timeout_seconds"`
	SearchTimeoutSeconds int  `json:"search_timeout_seconds"`
	CacheEnabled         bool `json:"cache_enabled"`
	Debug                bool `json:"debug"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// API credentials, environment only
	OpenAIAPIKey   string `json:"-"`
	DeepSeekAPIKey string `json:"-"`
	TavilyAPIKey   string `json:"-"`
	FinnhubAPIKey  string `json:"-"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		SiteDataDir:  filepath.Join(currentDir, "site", "data"),
		ArchiveDir:   filepath.Join(currentDir, "site", "data", "archive"),
		StagingDir:   filepath.Join(currentDir, "staging"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		LLMProvider: "openai",
		Model:       "gpt-4o-mini",
		BackendURL:  "",
		MaxTokens:   8192,

		BaseLanguage:    "en",
		TargetLanguages: []string{"ko"},
		Session:         "",

		EvidenceQueries: []string{
			"US stock market today key drivers",
			"S&P 500 outlook analyst commentary",
			"VIX volatility market sentiment",
		},

		ModelTimeoutSeconds:  45,
		SearchTimeoutSeconds: 15,
		CacheEnabled:         true,
		Debug:                false,

		LogLevel: "info",
		LogFile:  "",
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("SITE_DATA_DIR"); val != "" {
		c.SiteDataDir = val
		c.ArchiveDir = filepath.Join(val, "archive")
	}
	if val := os.Getenv("ARCHIVE_DIR"); val != "" {
		c.ArchiveDir = val
	}
	if val := os.Getenv("STAGING_DIR"); val != "" {
		c.StagingDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.Model = val
	}
	if val := os.Getenv("LLM_BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.MaxTokens = n
		}
	}

	if val := os.Getenv("BASE_LANGUAGE"); val != "" {
		c.BaseLanguage = val
	}
	if val := os.Getenv("TARGET_LANGUAGES"); val != "" {
		c.TargetLanguages = splitList(val)
	}
	if val := os.Getenv("SESSION"); val != "" {
		c.Session = val
	}
	if val := os.Getenv("EVIDENCE_QUERIES"); val != "" {
		c.EvidenceQueries = splitList(val)
	}

	if val := os.Getenv("MODEL_TIMEOUT_SECONDS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.ModelTimeoutSeconds = n
		}
	}
	if val := os.Getenv("SEARCH_TIMEOUT_SECONDS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.SearchTimeoutSeconds = n
		}
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		c.CacheEnabled = val == "true" || val == "1"
	}
	if val := os.Getenv("DEBUG"); val != "" {
		c.Debug = val == "true" || val == "1"
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("LOG_FILE"); val != "" {
		c.LogFile = val
	}

	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.DeepSeekAPIKey = os.Getenv("DEEPSEEK_API_KEY")
	c.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")
	c.FinnhubAPIKey = os.Getenv("FINNHUB_API_KEY")
}

// Validate reports missing required credentials. A missing key is a
// configuration error surfaced at startup, never a retryable runtime error.
func (c *Config) Validate() error {
	var missing []string

	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case "deepseek":
		if c.DeepSeekAPIKey == "" {
			missing = append(missing, "DEEPSEEK_API_KEY")
		}
	default:
		return fmt.Errorf("unknown LLM provider %q (want openai or deepseek)", c.LLMProvider)
	}

	if c.FinnhubAPIKey == "" {
		missing = append(missing, "FINNHUB_API_KEY")
	}
	if c.TavilyAPIKey == "" {
		missing = append(missing, "TAVILY_API_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment configuration: %s", strings.Join(missing, ", "))
	}

	if c.BaseLanguage == "" {
		return fmt.Errorf("base language must not be empty")
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.SiteDataDir, c.ArchiveDir, c.StagingDir, c.DataCacheDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
