package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderCodex  = "codex"
)

type (
	Config struct {
		GitLab    GitLabConfig
		LLM       LLMConfig
		Scheduler SchedulerConfig
		Webhook   WebhookConfig
		Review    ReviewConfig
		Usage     UsageConfig
		Log       LogConfig
	}

	GitLabConfig struct {
		URL       string
		Token     string
		ProjectID string
	}

	LLMConfig struct {
		Provider string

		OllamaURL            string
		OllamaModel          string
		OllamaTimeoutSeconds int

		OpenAIAPIKey  string
		OpenAIBaseURL string
		OpenAIModel   string

		CodexCLIPath        string
		CodexTimeoutSeconds int
	}

	SchedulerConfig struct {
		IntervalSeconds int
	}

	WebhookConfig struct {
		Host   string
		Port   int
		Secret string
	}

	ReviewConfig struct {
		Label                  string
		SystemPromptPath       string
		CommentLanguage        string
		ExcludeTargetBranches  []string
		ExcludeBranchPatterns  []string
	}

	UsageConfig struct {
		LogDir string
		// Pricing overrides loaded from the optional TOML file.
		Prices map[string]PriceOverride
		KRWPerUSD float64
	}

	// PriceOverride is a per-model price in USD per 1000 tokens.
	PriceOverride struct {
		Input  float64 `toml:"input"`
		Output float64 `toml:"output"`
	}

	LogConfig struct {
		Debug bool
		JSON  bool
	}

	// overridesFile is the shape of the optional TOML overrides file.
	overridesFile struct {
		Review struct {
			ExcludeTargetBranches []string `toml:"exclude_target_branches"`
			ExcludeBranchPatterns []string `toml:"exclude_branch_patterns"`
		} `toml:"review"`
		Pricing struct {
			KRWPerUSD float64                  `toml:"krw_per_usd"`
			Models    map[string]PriceOverride `toml:"models"`
		} `toml:"pricing"`
	}
)

// Load builds the configuration from the environment (a .env file is
// honored when present) plus the optional TOML overrides file named by
// REVIEWER_CONFIG_FILE.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GitLab: GitLabConfig{
			URL:       getEnv("GITLAB_URL", "https://gitlab.com"),
			Token:     os.Getenv("GITLAB_TOKEN"),
			ProjectID: os.Getenv("GITLAB_PROJECT_ID"),
		},
		LLM: LLMConfig{
			Provider:             getEnv("LLM_PROVIDER", ProviderOllama),
			OllamaURL:            getEnv("OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("OLLAMA_MODEL", "ai-review-model"),
			OllamaTimeoutSeconds: 0,
			OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o"),
			CodexCLIPath:         getEnv("CODEX_CLI_PATH", "codex"),
		},
		Scheduler: SchedulerConfig{},
		Webhook: WebhookConfig{
			Host:   getEnv("WEBHOOK_HOST", "0.0.0.0"),
			Secret: os.Getenv("WEBHOOK_SECRET"),
		},
		Review: ReviewConfig{
			Label:                 getEnv("AI_REVIEW_LABEL", "ai-review"),
			SystemPromptPath:      os.Getenv("SYSTEM_PROMPT_PATH"),
			CommentLanguage:       getEnv("COMMENT_LANGUAGE", "ko"),
			ExcludeTargetBranches: splitList(getEnv("EXCLUDE_TARGET_BRANCHES", "develop,prod,stage")),
			ExcludeBranchPatterns: splitList(getEnv("EXCLUDE_TARGET_BRANCH_PATTERNS", "release")),
		},
		Usage: UsageConfig{
			LogDir:    getEnv("LOG_DIR", "data/log"),
			KRWPerUSD: 1450,
		},
		Log: LogConfig{
			Debug: getEnv("LOG_LEVEL", "") == "debug",
			JSON:  getEnv("LOG_FORMAT", "") == "json",
		},
	}

	var err error
	if cfg.LLM.OllamaTimeoutSeconds, err = getEnvInt("OLLAMA_TIMEOUT_SECONDS", 600); err != nil {
		return nil, err
	}
	if cfg.LLM.CodexTimeoutSeconds, err = getEnvInt("CODEX_TIMEOUT_SECONDS", 600); err != nil {
		return nil, err
	}
	if cfg.Scheduler.IntervalSeconds, err = getEnvInt("CHECK_INTERVAL_SECONDS", 10); err != nil {
		return nil, err
	}
	if cfg.Webhook.Port, err = getEnvInt("WEBHOOK_PORT", 3000); err != nil {
		return nil, err
	}

	if path := os.Getenv("REVIEWER_CONFIG_FILE"); path != "" {
		if err := cfg.applyOverrides(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadReporting builds the subset the stats tooling needs: ledger
// location, pricing and output language. It skips validation so usage
// reporting works without GitLab credentials.
func LoadReporting() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Review: ReviewConfig{
			CommentLanguage: getEnv("COMMENT_LANGUAGE", "ko"),
		},
		Usage: UsageConfig{
			LogDir:    getEnv("LOG_DIR", "data/log"),
			KRWPerUSD: 1450,
		},
	}

	if path := os.Getenv("REVIEWER_CONFIG_FILE"); path != "" {
		if err := cfg.applyOverrides(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) applyOverrides(path string) error {
	var f overridesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("loading overrides file %s: %w", path, err)
	}
	if len(f.Review.ExcludeTargetBranches) > 0 {
		c.Review.ExcludeTargetBranches = f.Review.ExcludeTargetBranches
	}
	if len(f.Review.ExcludeBranchPatterns) > 0 {
		c.Review.ExcludeBranchPatterns = f.Review.ExcludeBranchPatterns
	}
	if f.Pricing.KRWPerUSD > 0 {
		c.Usage.KRWPerUSD = f.Pricing.KRWPerUSD
	}
	if len(f.Pricing.Models) > 0 {
		c.Usage.Prices = f.Pricing.Models
	}
	return nil
}

func (c *Config) validate() error {
	if c.GitLab.Token == "" {
		return fmt.Errorf("environment variable GITLAB_TOKEN is not set")
	}
	if c.GitLab.ProjectID == "" {
		return fmt.Errorf("environment variable GITLAB_PROJECT_ID is not set")
	}
	switch c.LLM.Provider {
	case ProviderOllama, ProviderCodex:
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("environment variable OPENAI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (expected ollama, openai or codex)", c.LLM.Provider)
	}
	return nil
}

// Model returns the model name in effect for the active provider. Codex
// has no model selection; the provider name stands in for accounting.
func (c *Config) Model() string {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		return c.LLM.OpenAIModel
	case ProviderCodex:
		return ProviderCodex
	default:
		return c.LLM.OllamaModel
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a number: %w", key, err)
	}
	return parsed, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
