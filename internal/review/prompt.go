package review

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/domain"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/i18n"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/logger"
)

// LoadSystemPrompt reads the optional system prompt file. An empty path
// or a missing file yields an empty prompt; absence is logged, not an
// error.
func LoadSystemPrompt(ctx context.Context, path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Info(ctx, "system prompt file not loaded, continuing without it", "path", path, "reason", err)
		return ""
	}
	return string(data)
}

// BuildReviewPrompt concatenates the optional system prompt, a localized
// merge request header and the tagged per-file diffs into one prompt.
func BuildReviewPrompt(t *i18n.Translations, systemPrompt string, mr *domain.MergeRequest, changes []domain.Change) string {
	description := mr.Description
	if description == "" {
		description = t.GetMessage("prompt.no_description", 0, nil)
	}

	header := t.GetMessage("prompt.mr_header", 0, map[string]interface{}{
		"Title":       mr.Title,
		"Description": description,
		"URL":         mr.WebURL,
	})

	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString(header)
	b.WriteString(formatChanges(changes))
	return b.String()
}

func formatChanges(changes []domain.Change) string {
	parts := make([]string, 0, len(changes))
	for i := range changes {
		c := &changes[i]
		parts = append(parts, fmt.Sprintf("\n%s %s\n---\n%s\n---\n", c.Status(), c.NewPath, c.Diff))
	}
	return strings.Join(parts, "\n")
}
