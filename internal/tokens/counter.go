// Package tokens counts prompt/completion tokens for usage accounting.
// Counts are estimates: local models do not report usage, so everything
// is measured with tiktoken encodings the way hosted models would.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// modelEncodings maps model names tiktoken does not know directly to an
// encoding name.
var modelEncodings = map[string]string{
	"gpt-4":         "cl100k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4-32k":     "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"o1":            "o200k_base",
	"o1-mini":       "o200k_base",
	"o1-preview":    "o200k_base",
}

const defaultEncoding = "o200k_base"

var (
	encodingMu    sync.Mutex
	encodingCache = map[string]*tiktoken.Tiktoken{}
)

// Count returns the number of tokens in text for the given model. When no
// encoding can be resolved (unknown model and the encoding data cannot be
// loaded) it falls back to a character-based approximation so accounting
// keeps working offline.
func Count(text, model string) int {
	if enc := encodingFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return approximate(text)
}

// Usage is the token accounting for one provider call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// UsageFor computes token usage for a prompt/completion pair.
func UsageFor(prompt, completion, model string) Usage {
	p := Count(prompt, model)
	c := Count(completion, model)
	return Usage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c}
}

func encodingFor(model string) *tiktoken.Tiktoken {
	name := EncodingNameFor(model)

	encodingMu.Lock()
	defer encodingMu.Unlock()
	if enc, ok := encodingCache[name]; ok {
		return enc
	}

	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		encodingCache[name] = enc
		return enc
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil
	}
	encodingCache[name] = enc
	return enc
}

// EncodingNameFor resolves the encoding name used for a model.
func EncodingNameFor(model string) string {
	if name, ok := modelEncodings[strings.ToLower(model)]; ok {
		return name
	}
	return defaultEncoding
}

// approximate estimates tokens at roughly four characters each, the usual
// ballpark for English/code text.
func approximate(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}
