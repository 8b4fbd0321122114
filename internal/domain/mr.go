package domain

import "strings"

// MergeRequest mirrors the subset of the GitLab merge request payload the
// review pipeline cares about. The approval-related fields vary across
// GitLab versions, so optional ones are pointers to keep "absent" and
// "zero" apart.
type MergeRequest struct {
	ID                   int              `json:"id"`
	IID                  int              `json:"iid"`
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	WebURL               string           `json:"web_url"`
	Labels               []string         `json:"labels"`
	State                string           `json:"state"`
	SourceBranch         string           `json:"source_branch"`
	TargetBranch         string           `json:"target_branch"`
	MergeStatus          string           `json:"merge_status"`
	DetailedMergeStatus  string           `json:"detailed_merge_status"`
	Approved             *bool            `json:"approved,omitempty"`
	ApprovalsBeforeMerge *int             `json:"approvals_before_merge,omitempty"`
	Approvals            *ApprovalSummary `json:"approvals,omitempty"`
}

// ApprovalSummary is the legacy approvals object older GitLab instances
// attach to merge requests.
type ApprovalSummary struct {
	Approved bool `json:"approved"`
}

// HasLabel reports whether the merge request already carries the label.
func (mr *MergeRequest) HasLabel(label string) bool {
	for _, l := range mr.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// IsApproved derives the approval state with a priority-ordered check:
// the explicit approved flag wins, then detailed_merge_status, then the
// merge_status/approvals_before_merge combination, then the legacy
// approvals object.
func (mr *MergeRequest) IsApproved() bool {
	if mr.Approved != nil {
		return *mr.Approved
	}
	if mr.DetailedMergeStatus == "approved" {
		return true
	}
	if mr.MergeStatus == "can_be_merged" && mr.ApprovalsBeforeMerge != nil && *mr.ApprovalsBeforeMerge == 0 {
		return true
	}
	if mr.Approvals != nil && mr.Approvals.Approved {
		return true
	}
	return false
}

// Change is one file-level diff of a merge request.
type Change struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
	Diff        string `json:"diff"`
}

// Status returns the change tag used in review prompts.
func (c *Change) Status() string {
	switch {
	case c.NewFile:
		return "[NEW]"
	case c.DeletedFile:
		return "[DELETED]"
	case c.RenamedFile:
		return "[RENAMED]"
	default:
		return "[MODIFIED]"
	}
}

// DiffInfo aggregates diff size metrics for usage accounting.
type DiffInfo struct {
	FileCount      int `json:"fileCount"`
	TotalSizeBytes int `json:"totalSizeBytes"`
	TotalLines     int `json:"totalLines"`
}

// DiffInfoFor computes size metrics over a set of changes.
func DiffInfoFor(changes []Change) DiffInfo {
	info := DiffInfo{FileCount: len(changes)}
	for _, c := range changes {
		info.TotalSizeBytes += len(c.Diff)
		if c.Diff != "" {
			info.TotalLines += strings.Count(c.Diff, "\n") + 1
		}
	}
	return info
}
