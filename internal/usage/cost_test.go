package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCost_OllamaIsAlwaysFree(t *testing.T) {
	calc := NewCalculator(1450)

	for _, tokens := range [][2]int{{0, 0}, {1000, 1000}, {5_000_000, 5_000_000}} {
		usd, krw := calc.Cost(tokens[0], tokens[1], "gpt-4o", "ollama")
		assert.Zero(t, usd)
		assert.Zero(t, krw)
	}
}

func TestCost_KnownModel(t *testing.T) {
	calc := NewCalculator(1450)

	// gpt-4o: $0.005/1K input, $0.015/1K output
	usd, krw := calc.Cost(1000, 1000, "gpt-4o", "openai")
	assert.Equal(t, 0.02, usd)
	assert.Equal(t, 29, krw)
}

func TestCost_RoundsUSDToFourDecimals(t *testing.T) {
	calc := NewCalculator(1450)

	// 123 prompt tokens of gpt-4o-mini: 0.123 * 0.00015 = 0.00001845
	usd, _ := calc.Cost(123, 0, "gpt-4o-mini", "openai")
	assert.Equal(t, 0.0, usd)

	usd, _ = calc.Cost(10000, 10000, "gpt-4o-mini", "openai")
	assert.Equal(t, 0.0075, usd)
}

func TestCost_ProviderFallbacks(t *testing.T) {
	calc := NewCalculator(1450)

	// Unknown model under codex uses the codex flat rate.
	usd, _ := calc.Cost(1000, 1000, "mystery-model", "codex")
	assert.Equal(t, 0.04, usd)

	// Unknown model under openai falls back to the gpt-4o rate.
	usd, _ = calc.Cost(1000, 1000, "gpt-9", "openai")
	assert.Equal(t, 0.02, usd)

	// Unknown provider and model costs nothing.
	usd, krw := calc.Cost(1000, 1000, "mystery", "mystery")
	assert.Zero(t, usd)
	assert.Zero(t, krw)
}

func TestCost_ModelLookupIsCaseInsensitive(t *testing.T) {
	calc := NewCalculator(1450)

	usd, _ := calc.Cost(1000, 1000, "GPT-4o", "openai")
	assert.Equal(t, 0.02, usd)
}

func TestCost_Overrides(t *testing.T) {
	calc := NewCalculator(1000)
	calc.SetPrice("my-model", Price{Input: 1, Output: 2})

	usd, krw := calc.Cost(1000, 1000, "my-model", "openai")
	assert.Equal(t, 3.0, usd)
	assert.Equal(t, 3000, krw)
}
