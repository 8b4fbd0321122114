package gitlab

import (
	"context"
	"strings"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/domain"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/logger"
)

// BranchExcluded reports whether a target branch is filtered out, either
// by exact name or because it contains one of the patterns as a
// substring. The second return value names the matching rule for logs.
func BranchExcluded(branch string, exact, patterns []string) (bool, string) {
	for _, name := range exact {
		if branch == name {
			return true, "excluded branch " + name
		}
	}
	for _, pattern := range patterns {
		if strings.Contains(branch, pattern) {
			return true, "excluded pattern " + pattern
		}
	}
	return false, ""
}

// SkipReason explains why a merge request is not eligible for review;
// empty means eligible.
func SkipReason(mr *domain.MergeRequest, label string, excludeExact, excludePatterns []string) string {
	if mr.HasLabel(label) {
		return "already has " + label + " label"
	}
	if mr.IsApproved() {
		return "already approved"
	}
	if excluded, reason := BranchExcluded(mr.TargetBranch, excludeExact, excludePatterns); excluded {
		return reason
	}
	return ""
}

// FilterTargets selects the merge requests eligible for review. It is a
// pure filter over already-fetched data; fetch failures are the caller's
// to propagate.
func FilterTargets(ctx context.Context, mrs []domain.MergeRequest, label string, excludeExact, excludePatterns []string) []domain.MergeRequest {
	targets := make([]domain.MergeRequest, 0, len(mrs))
	for i := range mrs {
		mr := &mrs[i]
		if reason := SkipReason(mr, label, excludeExact, excludePatterns); reason != "" {
			logger.Debug(ctx, "skipping merge request",
				"iid", mr.IID,
				"title", mr.Title,
				"reason", reason)
			continue
		}
		logger.Info(ctx, "merge request eligible for review",
			"iid", mr.IID,
			"title", mr.Title,
			"target_branch", mr.TargetBranch)
		targets = append(targets, *mr)
	}
	return targets
}
