// Package review orchestrates the pipeline: fetch diffs, build the
// prompt, query the model, post the comment, label the merge request and
// record usage.
package review

import (
	"context"
	"errors"
	"time"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/config"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/domain"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/gitlab"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/i18n"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/llm"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/logger"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/metrics"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/tokens"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/usage"
)

// GitLabAPI is the slice of the GitLab client the pipeline consumes.
type GitLabAPI interface {
	ProjectID() string
	ListOpenMergeRequests(ctx context.Context) ([]domain.MergeRequest, error)
	GetMergeRequest(ctx context.Context, iid int) (*domain.MergeRequest, error)
	GetChanges(ctx context.Context, iid int) ([]domain.Change, error)
	AddComment(ctx context.Context, iid int, body string) error
	AddLabel(ctx context.Context, iid int, label string) error
}

// Processor runs review pipelines with at most one in flight per merge
// request.
type Processor struct {
	gitlab       GitLabAPI
	provider     llm.Provider
	ledger       *usage.Ledger
	translations *i18n.Translations
	inflight     *InFlight

	label            string
	model            string
	systemPromptPath string
	excludeExact     []string
	excludePatterns  []string
}

func NewProcessor(gl GitLabAPI, provider llm.Provider, ledger *usage.Ledger, t *i18n.Translations, cfg *config.Config) *Processor {
	return &Processor{
		gitlab:           gl,
		provider:         provider,
		ledger:           ledger,
		translations:     t,
		inflight:         NewInFlight(),
		label:            cfg.Review.Label,
		model:            cfg.Model(),
		systemPromptPath: cfg.Review.SystemPromptPath,
		excludeExact:     cfg.Review.ExcludeTargetBranches,
		excludePatterns:  cfg.Review.ExcludeBranchPatterns,
	}
}

// Process runs one review for the merge request, rejecting it with
// *domain.AlreadyProcessingError when one is already in flight. The
// admission is released on every exit path.
func (p *Processor) Process(ctx context.Context, mr *domain.MergeRequest) error {
	if !p.inflight.TryAcquire(mr.IID) {
		return domain.NewAlreadyProcessingError(mr.IID)
	}
	metrics.ReviewsInFlight.Inc()
	defer func() {
		p.inflight.Release(mr.IID)
		metrics.ReviewsInFlight.Dec()
	}()
	return p.run(ctx, mr)
}

// ProcessAll runs one poll cycle: list open merge requests, filter the
// eligible ones and review them in order. Per-MR failures are logged and
// do not abort the cycle.
func (p *Processor) ProcessAll(ctx context.Context) error {
	mrs, err := p.gitlab.ListOpenMergeRequests(ctx)
	if err != nil {
		return err
	}

	targets := gitlab.FilterTargets(ctx, mrs, p.label, p.excludeExact, p.excludePatterns)
	if len(targets) == 0 {
		logger.Debug(ctx, "no merge requests to review")
		return nil
	}

	for i := range targets {
		mr := &targets[i]
		if err := p.Process(ctx, mr); err != nil {
			var busy *domain.AlreadyProcessingError
			if errors.As(err, &busy) {
				logger.Info(ctx, "skipping merge request, review already in flight", "mr", mr.IID)
				continue
			}
			logger.Error(ctx, "review failed", err, "mr", mr.IID)
		}
	}
	return nil
}

// ProcessByIID fetches a single merge request and reviews it. The
// eligibility rules are re-checked against fresh data because webhook
// payloads can be stale by the time we run.
func (p *Processor) ProcessByIID(ctx context.Context, iid int) error {
	mr, err := p.gitlab.GetMergeRequest(ctx, iid)
	if err != nil {
		return err
	}
	if reason := gitlab.SkipReason(mr, p.label, p.excludeExact, p.excludePatterns); reason != "" {
		logger.Info(ctx, "skipping merge request", "mr", iid, "reason", reason)
		return nil
	}
	return p.Process(ctx, mr)
}

func (p *Processor) run(ctx context.Context, mr *domain.MergeRequest) (runErr error) {
	ctx = logger.With(ctx, "mr", mr.IID)
	start := time.Now()

	// The label is the idempotency guard: it goes on whatever happens so
	// the next cycle does not pick the merge request up again. Removing
	// the label is the user's retry switch.
	defer func() {
		if err := p.gitlab.AddLabel(ctx, mr.IID, p.label); err != nil {
			logger.Error(ctx, "adding review label failed", err)
		}
	}()

	logger.Info(ctx, "starting review", "title", mr.Title)

	changes, err := p.gitlab.GetChanges(ctx, mr.IID)
	if err != nil {
		// No prompt was built, so no comment and no ledger entry. The
		// label still lands, keeping a persistently broken MR out of
		// the next cycles.
		metrics.ObserveReview(p.provider.Name(), usage.StatusFailed, time.Since(start))
		return err
	}
	if len(changes) == 0 {
		logger.Info(ctx, "no changes, skipping review")
		return nil
	}

	diffInfo := domain.DiffInfoFor(changes)
	logger.Info(ctx, "changes fetched", "files", diffInfo.FileCount, "bytes", diffInfo.TotalSizeBytes)

	systemPrompt := LoadSystemPrompt(ctx, p.systemPromptPath)
	prompt := BuildReviewPrompt(p.translations, systemPrompt, mr, changes)

	reviewText, err := p.provider.QueryStream(ctx, prompt, nil)
	if err != nil {
		p.handleFailure(ctx, mr, prompt, &diffInfo, start, err)
		return err
	}

	if err := p.gitlab.AddComment(ctx, mr.IID, reviewText); err != nil {
		p.handleFailure(ctx, mr, prompt, &diffInfo, start, err)
		return err
	}

	tokenUsage := tokens.UsageFor(prompt, reviewText, p.model)
	p.record(ctx, mr, tokenUsage, usage.StatusSuccess, "", &diffInfo)

	metrics.ObserveReview(p.provider.Name(), usage.StatusSuccess, time.Since(start))
	metrics.ObserveTokens(p.provider.Name(), tokenUsage.PromptTokens, tokenUsage.CompletionTokens)

	logger.Info(ctx, "review completed", "elapsed", time.Since(start).Round(time.Second).String())
	return nil
}

// handleFailure posts the localized failure comment and records a failed
// ledger entry charging only the prompt tokens. Both are best effort.
func (p *Processor) handleFailure(ctx context.Context, mr *domain.MergeRequest, prompt string, diffInfo *domain.DiffInfo, start time.Time, cause error) {
	logger.Error(ctx, "review pipeline failed", cause)

	comment := p.translations.GetMessage("comment.review_failed", 0, map[string]interface{}{
		"Error": cause.Error(),
		"Label": p.label,
	})
	if err := p.gitlab.AddComment(ctx, mr.IID, comment); err != nil {
		logger.Error(ctx, "posting failure comment failed", err)
	}

	tokenUsage := tokens.UsageFor(prompt, "", p.model)
	p.record(ctx, mr, tokenUsage, usage.StatusFailed, cause.Error(), diffInfo)

	metrics.ObserveReview(p.provider.Name(), usage.StatusFailed, time.Since(start))
	metrics.ObserveTokens(p.provider.Name(), tokenUsage.PromptTokens, 0)
}

func (p *Processor) record(ctx context.Context, mr *domain.MergeRequest, tokenUsage tokens.Usage, status, errMsg string, diffInfo *domain.DiffInfo) {
	_, err := p.ledger.Record(usage.RecordOptions{
		MRTitle:      mr.Title,
		MRURL:        mr.WebURL,
		ProjectID:    p.gitlab.ProjectID(),
		MRIID:        mr.IID,
		Model:        p.model,
		Provider:     p.provider.Name(),
		TokenUsage:   tokenUsage,
		Status:       status,
		ErrorMessage: errMsg,
		DiffInfo:     diffInfo,
	})
	if err != nil {
		logger.Error(ctx, "recording usage entry failed", err)
	}
}
