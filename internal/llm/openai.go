package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/config"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/logger"
)

// OpenAI talks to an OpenAI-compatible chat-completions endpoint with
// server-sent-event streaming. No wall-clock timeout is applied here;
// hosted APIs close idle streams themselves and the caller's context can
// always cancel.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{},
	}
}

func (o *OpenAI) Name() string {
	return config.ProviderOpenAI
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (o *OpenAI) QueryStream(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	payload, err := json.Marshal(openAIChatRequest{
		Model:    o.model,
		Messages: []openAIMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		return "", NewProviderError(o.Name(), "encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", NewProviderError(o.Name(), "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return "", NewProviderError(o.Name(), "sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", NewProviderError(o.Name(), fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", NewProviderError(o.Name(), "decoding stream chunk", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			full.WriteString(content)
			if onChunk != nil {
				onChunk(content)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", NewProviderError(o.Name(), "reading stream", err)
	}

	if full.Len() == 0 {
		return "", NewEmptyResponseError(o.Name())
	}
	return full.String(), nil
}

// CheckAvailability confirms the API is reachable. A model missing from
// the listing still passes: hosted endpoints routinely serve models they
// do not list, so absence only warrants a warning.
func (o *OpenAI) CheckAvailability(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		logger.Error(ctx, "openai endpoint unreachable", err, "url", o.baseURL)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "openai model listing failed", "status", resp.StatusCode)
		return false
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		logger.Error(ctx, "decoding openai model listing", err)
		return false
	}

	for _, m := range listing.Data {
		if m.ID == o.model {
			return true
		}
	}
	logger.Warn(ctx, "model not in listing, assuming usable", "model", o.model)
	return true
}
