package domain

// WebhookPayload is the envelope GitLab sends to webhook receivers.
// Pointer fields let validation distinguish missing fields from zero
// values.
type WebhookPayload struct {
	ObjectKind       string              `json:"object_kind"`
	Project          *WebhookProject     `json:"project"`
	ObjectAttributes *WebhookMRAttributes `json:"object_attributes"`
}

// WebhookProject identifies the project the event belongs to.
type WebhookProject struct {
	ID                int    `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
}

// WebhookMRAttributes is the object_attributes block of a merge_request
// event.
type WebhookMRAttributes struct {
	IID            *int    `json:"iid"`
	Action         *string `json:"action"`
	State          *string `json:"state"`
	Title          string  `json:"title"`
	Draft          bool    `json:"draft"`
	WorkInProgress bool    `json:"work_in_progress"`
	SourceBranch   string  `json:"source_branch"`
	TargetBranch   string  `json:"target_branch"`
}

// processableActions are the merge_request actions that trigger a review.
var processableActions = map[string]bool{
	"open":   true,
	"update": true,
	"reopen": true,
}

// IsProcessableAction reports whether a merge_request webhook action should
// be handed to the review pipeline.
func IsProcessableAction(action string) bool {
	return processableActions[action]
}
