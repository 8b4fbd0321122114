package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIQueryStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-4o", req["model"])
		assert.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"Nice "}}]}

data: {"choices":[{"delta":{"content":"work."}}]}

data: [DONE]

`))
	}))
	defer server.Close()

	provider := NewOpenAI("sk-test", server.URL+"/v1", "gpt-4o")

	var chunks []string
	answer, err := provider.QueryStream(context.Background(), "review this", func(c string) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err)
	assert.Equal(t, "Nice work.", answer)
	assert.Equal(t, []string{"Nice ", "work."}, chunks)
}

func TestOpenAIErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	provider := NewOpenAI("bad", server.URL, "gpt-4o")
	_, err := provider.QueryStream(context.Background(), "p", nil)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Error(), "status 401")
}

func TestOpenAIEmptyStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	provider := NewOpenAI("k", server.URL, "gpt-4o")
	_, err := provider.QueryStream(context.Background(), "p", nil)

	var emptyErr *EmptyResponseError
	require.ErrorAs(t, err, &emptyErr)
}

func TestOpenAICheckAvailabilityRelaxed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o"}, {"id": "gpt-4o-mini"}]}`))
	}))
	defer server.Close()

	assert.True(t, NewOpenAI("k", server.URL, "gpt-4o").CheckAvailability(context.Background()))
	// Absence from the listing is not a failure for hosted endpoints.
	assert.True(t, NewOpenAI("k", server.URL, "some-private-model").CheckAvailability(context.Background()))
}

func TestOpenAICheckAvailabilityUnreachable(t *testing.T) {
	provider := NewOpenAI("k", "http://127.0.0.1:1", "gpt-4o")
	assert.False(t, provider.CheckAvailability(context.Background()))
}
