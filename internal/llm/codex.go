package llm

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/config"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/logger"
)

// Codex runs a local CLI as a subprocess. The prompt goes in on stdin
// ("exec -" reads it from there), the answer streams out on stdout, and
// the configured timeout kills the process when exceeded.
type Codex struct {
	path    string
	timeout time.Duration
}

func NewCodex(path string, timeout time.Duration) *Codex {
	return &Codex{path: path, timeout: timeout}
}

func (c *Codex) Name() string {
	return config.ProviderCodex
}

func (c *Codex) QueryStream(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, "exec", "-")
	cmd.Stdin = strings.NewReader(prompt)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", NewProviderError(c.Name(), "opening stdout pipe", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || looksLikeNotFound(err.Error()) {
			return "", NewUnavailableError(c.Name(), "executable not found at "+c.path)
		}
		return "", NewProviderError(c.Name(), "starting process", err)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text() + "\n"
		full.WriteString(line)
		if onChunk != nil {
			onChunk(line)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", NewTimeoutError(c.Name(), c.timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		if looksLikeNotFound(msg) {
			return "", NewUnavailableError(c.Name(), "executable not found at "+c.path)
		}
		return "", NewProviderError(c.Name(), msg, nil)
	}

	answer := strings.TrimSpace(full.String())
	if answer == "" {
		return "", NewEmptyResponseError(c.Name())
	}
	return answer, nil
}

// CheckAvailability probes the executable with --version under a short
// timeout.
func (c *Codex) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := exec.CommandContext(ctx, c.path, "--version").Run(); err != nil {
		logger.Error(ctx, "codex cli probe failed", err, "path", c.path)
		return false
	}
	return true
}
