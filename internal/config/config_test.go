package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("GITLAB_TOKEN", "glpat-test")
	t.Setenv("GITLAB_PROJECT_ID", "42")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.com", cfg.GitLab.URL)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.OllamaURL)
	assert.Equal(t, 600, cfg.LLM.OllamaTimeoutSeconds)
	assert.Equal(t, 10, cfg.Scheduler.IntervalSeconds)
	assert.Equal(t, 3000, cfg.Webhook.Port)
	assert.Equal(t, "ai-review", cfg.Review.Label)
	assert.Equal(t, []string{"develop", "prod", "stage"}, cfg.Review.ExcludeTargetBranches)
	assert.Equal(t, []string{"release"}, cfg.Review.ExcludeBranchPatterns)
	assert.Equal(t, float64(1450), cfg.Usage.KRWPerUSD)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("GITLAB_TOKEN", "")
	t.Setenv("GITLAB_PROJECT_ID", "42")

	_, err := Load()
	assert.ErrorContains(t, err, "GITLAB_TOKEN")
}

func TestLoad_UnknownProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_PROVIDER", "bard")

	_, err := Load()
	assert.ErrorContains(t, err, "LLM_PROVIDER")
}

func TestLoad_OpenAIRequiresKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestLoad_InvalidNumber(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHECK_INTERVAL_SECONDS", "often")

	_, err := Load()
	assert.ErrorContains(t, err, "CHECK_INTERVAL_SECONDS")
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "reviewer.toml")
	content := `
[review]
exclude_target_branches = ["main"]

[pricing]
krw_per_usd = 1300.0

[pricing.models]
"gpt-4o" = { input = 0.004, output = 0.012 }
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("REVIEWER_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"main"}, cfg.Review.ExcludeTargetBranches)
	assert.Equal(t, 1300.0, cfg.Usage.KRWPerUSD)
	assert.Equal(t, PriceOverride{Input: 0.004, Output: 0.012}, cfg.Usage.Prices["gpt-4o"])
	// Env-driven patterns stay when the file does not override them.
	assert.Equal(t, []string{"release"}, cfg.Review.ExcludeBranchPatterns)
}

func TestConfig_Model(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: ProviderOpenAI, OpenAIModel: "gpt-4o-mini", OllamaModel: "qwen"}}
	assert.Equal(t, "gpt-4o-mini", cfg.Model())

	cfg.LLM.Provider = ProviderOllama
	assert.Equal(t, "qwen", cfg.Model())

	cfg.LLM.Provider = ProviderCodex
	assert.Equal(t, "codex", cfg.Model())
}
