package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/hmkim/marketbrief/config"
)

// newInitCmd creates the interactive setup command. It walks through
// the credentials and publication settings and writes them to .env.
func newInitCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive setup, writes a .env file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cfg)
		},
	}
}

func runInit(cfg *config.Config) error {
	envPath := filepath.Join(cfg.ProjectDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		overwrite := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("%s already exists. Overwrite?", envPath),
			Default: false,
		}
		if err := survey.AskOne(prompt, &overwrite); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(dimStyle.Render("setup cancelled"))
			return nil
		}
	}

	answers := struct {
		Provider  string
		Model     string
		APIKey    string
		Finnhub   string
		Tavily    string
		Languages []string
		Session   string
	}{}

	questions := []*survey.Question{
		{
			Name: "provider",
			Prompt: &survey.Select{
				Message: "LLM provider:",
				Options: []string{"openai", "deepseek"},
				Default: cfg.LLMProvider,
			},
		},
		{
			Name: "model",
			Prompt: &survey.Input{
				Message: "Model name:",
				Default: cfg.Model,
			},
			Validate: survey.Required,
		},
		{
			Name:     "apikey",
			Prompt:   &survey.Password{Message: "LLM API key:"},
			Validate: survey.Required,
		},
		{
			Name:     "finnhub",
			Prompt:   &survey.Password{Message: "Finnhub API key:"},
			Validate: survey.Required,
		},
		{
			Name:     "tavily",
			Prompt:   &survey.Password{Message: "Tavily API key:"},
			Validate: survey.Required,
		},
		{
			Name: "languages",
			Prompt: &survey.MultiSelect{
				Message: "Target languages besides English:",
				Options: []string{"ko", "ja", "zh"},
				Default: cfg.TargetLanguages,
			},
		},
		{
			Name: "session",
			Prompt: &survey.Select{
				Message: "Publication session:",
				Options: []string{"auto", "am", "pm"},
				Default: "auto",
			},
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("LLM_PROVIDER=" + answers.Provider + "\n")
	b.WriteString("LLM_MODEL=" + answers.Model + "\n")
	switch answers.Provider {
	case "deepseek":
		b.WriteString("DEEPSEEK_API_KEY=" + answers.APIKey + "\n")
	default:
		b.WriteString("OPENAI_API_KEY=" + answers.APIKey + "\n")
	}
	b.WriteString("FINNHUB_API_KEY=" + answers.Finnhub + "\n")
	b.WriteString("TAVILY_API_KEY=" + answers.Tavily + "\n")
	if len(answers.Languages) > 0 {
		b.WriteString("TARGET_LANGUAGES=" + strings.Join(answers.Languages, ",") + "\n")
	}
	if answers.Session != "auto" {
		b.WriteString("SESSION=" + answers.Session + "\n")
	}

	if err := os.WriteFile(envPath, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write .env: %w", err)
	}
	fmt.Println(okStyle.Render("wrote " + envPath))
	fmt.Println(dimStyle.Render("run `marketbrief config validate` to verify the credentials"))
	return nil
}
