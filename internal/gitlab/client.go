// Package gitlab is a thin client for the handful of GitLab API calls the
// review pipeline needs. It decodes into loosely-typed domain structs
// because the approval heuristic reads fields that differ across GitLab
// versions.
package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/domain"
)

// Client talks to one GitLab project.
type Client struct {
	baseURL   string
	token     string
	projectID string
	http      *http.Client
}

// NewClient creates a client for the project. projectID may be a numeric
// id or a path with namespace.
func NewClient(baseURL, token, projectID string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		projectID: projectID,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// ProjectID returns the configured project identifier.
func (c *Client) ProjectID() string {
	return c.projectID
}

// ListOpenMergeRequests fetches all merge requests in the opened state.
func (c *Client) ListOpenMergeRequests(ctx context.Context) ([]domain.MergeRequest, error) {
	var mrs []domain.MergeRequest
	path := "/merge_requests?state=opened&per_page=100"
	if err := c.do(ctx, http.MethodGet, "list merge requests", path, nil, &mrs); err != nil {
		return nil, err
	}
	return mrs, nil
}

// GetMergeRequest fetches a single merge request by its iid.
func (c *Client) GetMergeRequest(ctx context.Context, iid int) (*domain.MergeRequest, error) {
	var mr domain.MergeRequest
	path := fmt.Sprintf("/merge_requests/%d", iid)
	if err := c.do(ctx, http.MethodGet, "get merge request", path, nil, &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

// GetChanges fetches the file-level diffs of a merge request.
func (c *Client) GetChanges(ctx context.Context, iid int) ([]domain.Change, error) {
	var resp struct {
		Changes []domain.Change `json:"changes"`
	}
	path := fmt.Sprintf("/merge_requests/%d/changes", iid)
	if err := c.do(ctx, http.MethodGet, "get merge request changes", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Changes, nil
}

// AddComment posts a note on a merge request.
func (c *Client) AddComment(ctx context.Context, iid int, body string) error {
	payload := map[string]string{"body": body}
	path := fmt.Sprintf("/merge_requests/%d/notes", iid)
	return c.do(ctx, http.MethodPost, "add comment", path, payload, nil)
}

// AddLabel adds a label to a merge request. GitLab treats add_labels as a
// set union, so repeating it never duplicates the label.
func (c *Client) AddLabel(ctx context.Context, iid int, label string) error {
	payload := map[string]string{"add_labels": label}
	path := fmt.Sprintf("/merge_requests/%d", iid)
	return c.do(ctx, http.MethodPut, "add label", path, payload, nil)
}

func (c *Client) do(ctx context.Context, method, op, path string, payload, out any) error {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s%s", c.baseURL, url.PathEscape(c.projectID), path)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return domain.NewGitLabAPIError(op, 0, "encoding request body", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return domain.NewGitLabAPIError(op, 0, "building request", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewGitLabAPIError(op, 0, "sending request", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewGitLabAPIError(op, resp.StatusCode, "reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewGitLabAPIError(op, resp.StatusCode, snippet(data), nil)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return domain.NewGitLabAPIError(op, resp.StatusCode, "decoding response", err)
		}
	}
	return nil
}

func snippet(data []byte) string {
	const max = 200
	s := string(data)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
