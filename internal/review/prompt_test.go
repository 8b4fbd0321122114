package review

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/domain"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranslations(t *testing.T) *i18n.Translations {
	t.Helper()
	tr, err := i18n.NewTranslations("en")
	require.NoError(t, err)
	return tr
}

func TestBuildReviewPrompt(t *testing.T) {
	mr := &domain.MergeRequest{
		IID:         7,
		Title:       "Add retry logic",
		Description: "Retries transient failures",
		WebURL:      "https://gitlab.example.com/mr/7",
	}
	changes := []domain.Change{
		{NewPath: "retry.go", NewFile: true, Diff: "+func Retry() {}"},
		{NewPath: "main.go", Diff: "-old\n+new"},
	}

	prompt := BuildReviewPrompt(newTranslations(t), "You are a reviewer.", mr, changes)

	assert.True(t, strings.HasPrefix(prompt, "You are a reviewer.\n\n"))
	assert.Contains(t, prompt, "Add retry logic")
	assert.Contains(t, prompt, "Retries transient failures")
	assert.Contains(t, prompt, "https://gitlab.example.com/mr/7")
	assert.Contains(t, prompt, "[NEW] retry.go")
	assert.Contains(t, prompt, "[MODIFIED] main.go")
	assert.Contains(t, prompt, "+func Retry() {}")
}

func TestBuildReviewPromptWithoutSystemPromptOrDescription(t *testing.T) {
	mr := &domain.MergeRequest{IID: 7, Title: "t", WebURL: "u"}
	changes := []domain.Change{{NewPath: "f.go", Diff: "+x"}}

	prompt := BuildReviewPrompt(newTranslations(t), "", mr, changes)

	assert.Contains(t, prompt, "No description")
	assert.True(t, strings.HasPrefix(prompt, "# Merge Request Information"))
}

func TestLoadSystemPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AGENTS.md")
	require.NoError(t, os.WriteFile(path, []byte("be strict"), 0o644))

	assert.Equal(t, "be strict", LoadSystemPrompt(context.Background(), path))
	assert.Equal(t, "", LoadSystemPrompt(context.Background(), ""))
	assert.Equal(t, "", LoadSystemPrompt(context.Background(), filepath.Join(t.TempDir(), "missing.md")))
}
