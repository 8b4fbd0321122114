package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/domain"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/logger"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/metrics"
)

const secretHeader = "X-Gitlab-Token"

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.secret == "" {
		logger.Warn(ctx, "webhook secret not configured, accepting unauthenticated requests")
	} else if r.Header.Get(secretHeader) != s.secret {
		logger.Warn(ctx, "webhook secret mismatch")
		metrics.WebhookRequests.WithLabelValues("unauthorized").Inc()
		writeJSONError(w, http.StatusUnauthorized, "Unauthorized: invalid webhook secret")
		return
	}

	var payload domain.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		metrics.WebhookRequests.WithLabelValues("invalid").Inc()
		writeJSONError(w, http.StatusBadRequest, "Invalid payload: expected a JSON object")
		return
	}

	if err := validatePayload(&payload); err != nil {
		logger.Warn(ctx, "webhook payload rejected", "reason", err.Error())
		metrics.WebhookRequests.WithLabelValues("invalid").Inc()
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if payload.ObjectKind != "merge_request" {
		metrics.WebhookRequests.WithLabelValues("skipped").Inc()
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "skipped",
			"message": fmt.Sprintf("unsupported webhook type: %s", payload.ObjectKind),
		})
		return
	}

	attrs := payload.ObjectAttributes
	iid := *attrs.IID
	action := *attrs.Action
	state := *attrs.State

	logger.Info(ctx, "webhook received", "mr", iid, "action", action, "state", state, "title", attrs.Title)

	if reason := s.skipReason(&payload); reason != "" {
		logger.Info(ctx, "webhook skipped", "mr", iid, "reason", reason)
		metrics.WebhookRequests.WithLabelValues("skipped").Inc()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "skipped",
			"message": reason,
			"mrIid":   iid,
		})
		return
	}

	metrics.WebhookRequests.WithLabelValues("accepted").Inc()

	// Respond before the pipeline runs. Failures after this point are
	// visible only through the MR comment and the ledger.
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		bg := logger.With(context.Background(), "trigger", "webhook", "mr", iid)
		if err := s.dispatcher.ProcessByIID(bg, iid); err != nil {
			var busy *domain.AlreadyProcessingError
			if errors.As(err, &busy) {
				logger.Info(bg, "review already in flight")
				return
			}
			logger.Error(bg, "webhook-triggered review failed", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"message": fmt.Sprintf("review of MR !%d started", iid),
		"mrIid":   iid,
		"action":  action,
	})
}

// skipReason applies the event-level rules that make a structurally valid
// merge_request event a no-op.
func (s *Server) skipReason(payload *domain.WebhookPayload) string {
	attrs := payload.ObjectAttributes

	if action := *attrs.Action; !domain.IsProcessableAction(action) {
		return fmt.Sprintf("action %q is not processed (only open, update, reopen)", action)
	}
	if state := *attrs.State; state != "opened" {
		return fmt.Sprintf("state is %q, only opened merge requests are processed", state)
	}
	if attrs.Draft || attrs.WorkInProgress {
		return "draft/WIP merge requests are not processed"
	}
	if id := strconv.Itoa(payload.Project.ID); id != s.projectID && payload.Project.PathWithNamespace != s.projectID {
		return fmt.Sprintf("project %s does not match the configured project %s", id, s.projectID)
	}
	return ""
}

// validatePayload checks the flat payload shape. Field-level checks only
// apply to merge_request events.
func validatePayload(payload *domain.WebhookPayload) *domain.ValidationError {
	if payload.ObjectKind == "" {
		return domain.NewValidationError("object_kind", "missing or invalid field")
	}
	if payload.Project == nil {
		return domain.NewValidationError("project", "missing field")
	}
	if payload.ObjectKind != "merge_request" {
		return nil
	}

	attrs := payload.ObjectAttributes
	if attrs == nil {
		return domain.NewValidationError("object_attributes", "missing field")
	}
	if attrs.IID == nil {
		return domain.NewValidationError("object_attributes.iid", "missing or invalid field")
	}
	if attrs.Action == nil {
		return domain.NewValidationError("object_attributes.action", "missing or invalid field")
	}
	if attrs.State == nil {
		return domain.NewValidationError("object_attributes.state", "missing or invalid field")
	}
	return nil
}
