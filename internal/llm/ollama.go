package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/config"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/logger"
)

// Ollama talks to a local Ollama server's generate endpoint. Streaming
// responses arrive as newline-delimited JSON objects.
type Ollama struct {
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
}

func NewOllama(baseURL, model string, timeout time.Duration) *Ollama {
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		http:    &http.Client{},
	}
}

func (o *Ollama) Name() string {
	return config.ProviderOllama
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (o *Ollama) QueryStream(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(ollamaGenerateRequest{Model: o.model, Prompt: prompt, Stream: true})
	if err != nil {
		return "", NewProviderError(o.Name(), "encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", NewProviderError(o.Name(), "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return "", o.mapError("sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusNotFound {
			return "", NewUnavailableError(o.Name(), fmt.Sprintf("model %q not found: %s", o.model, strings.TrimSpace(string(body))))
		}
		return "", NewProviderError(o.Name(), fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaGenerateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", NewProviderError(o.Name(), "decoding stream chunk", err)
		}
		if chunk.Error != "" {
			return "", NewProviderError(o.Name(), chunk.Error, nil)
		}
		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if onChunk != nil {
				onChunk(chunk.Response)
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", o.mapError("reading stream", err)
	}

	if full.Len() == 0 {
		return "", NewEmptyResponseError(o.Name())
	}
	return full.String(), nil
}

func (o *Ollama) mapError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(o.Name(), o.timeout)
	}
	return NewProviderError(o.Name(), op, err)
}

// CheckAvailability lists the installed models and tests membership.
func (o *Ollama) CheckAvailability(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.http.Do(req)
	if err != nil {
		logger.Error(ctx, "ollama server unreachable", err, "url", o.baseURL)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "ollama model listing failed", "status", resp.StatusCode)
		return false
	}

	var listing struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		logger.Error(ctx, "decoding ollama model listing", err)
		return false
	}

	names := make([]string, 0, len(listing.Models))
	for _, m := range listing.Models {
		if m.Name == o.model {
			return true
		}
		names = append(names, m.Name)
	}
	logger.Warn(ctx, "configured model not installed", "model", o.model, "available", names)
	return false
}
