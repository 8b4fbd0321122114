package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOpenMergeRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/42/merge_requests", r.URL.Path)
		assert.Equal(t, "opened", r.URL.Query().Get("state"))
		assert.Equal(t, "secret-token", r.Header.Get("PRIVATE-TOKEN"))

		_, _ = w.Write([]byte(`[
			{"iid": 1, "title": "First", "target_branch": "main", "labels": ["backend"]},
			{"iid": 2, "title": "Second", "target_branch": "develop", "approved": true}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", "42")
	mrs, err := client.ListOpenMergeRequests(context.Background())
	require.NoError(t, err)

	require.Len(t, mrs, 2)
	assert.Equal(t, 1, mrs[0].IID)
	assert.Equal(t, []string{"backend"}, mrs[0].Labels)
	require.NotNil(t, mrs[1].Approved)
	assert.True(t, *mrs[1].Approved)
}

func TestGetChanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/team%2Fapp/merge_requests/7/changes", r.URL.EscapedPath())

		_, _ = w.Write([]byte(`{"changes": [
			{"new_path": "main.go", "new_file": true, "diff": "+package main"},
			{"new_path": "old.go", "deleted_file": true, "diff": "-gone"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", "team/app")
	changes, err := client.GetChanges(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, changes, 2)
	assert.Equal(t, "[NEW]", changes[0].Status())
	assert.Equal(t, "[DELETED]", changes[1].Status())
}

func TestAddComment(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v4/projects/42/merge_requests/7/notes", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", "42")
	err := client.AddComment(context.Background(), 7, "looks good")
	require.NoError(t, err)
	assert.Equal(t, "looks good", got["body"])
}

func TestAddLabel(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v4/projects/42/merge_requests/7", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"iid": 7}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", "42")
	err := client.AddLabel(context.Background(), 7, "ai-review")
	require.NoError(t, err)
	assert.Equal(t, "ai-review", got["add_labels"])
}

func TestAPIErrorsCarryStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "404 Project Not Found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", "missing")
	_, err := client.ListOpenMergeRequests(context.Background())
	require.Error(t, err)

	var apiErr *domain.GitLabAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Project Not Found")
}
