package usage

import (
	"math"
	"strings"
)

// Price is a per-model rate in USD per 1000 tokens.
type Price struct {
	Input  float64
	Output float64
}

// defaultPrices covers the models the service is normally pointed at.
// Codex runs on a ChatGPT subscription, so its rate is a reference
// estimate, not a bill.
var defaultPrices = map[string]Price{
	"gpt-4":         {Input: 0.03, Output: 0.06},
	"gpt-4-turbo":   {Input: 0.01, Output: 0.03},
	"gpt-4o":        {Input: 0.005, Output: 0.015},
	"gpt-4o-mini":   {Input: 0.00015, Output: 0.0006},
	"gpt-3.5-turbo": {Input: 0.0005, Output: 0.0015},
	"o1":            {Input: 0.015, Output: 0.06},
	"o1-mini":       {Input: 0.003, Output: 0.012},
	"o1-preview":    {Input: 0.015, Output: 0.06},
	"ollama":        {Input: 0, Output: 0},
	"codex":         {Input: 0.01, Output: 0.03},
}

// Calculator estimates review cost from token counts.
type Calculator struct {
	prices    map[string]Price
	krwPerUSD float64
}

// NewCalculator creates a calculator with the built-in price table and the
// given USD→KRW rate.
func NewCalculator(krwPerUSD float64) *Calculator {
	prices := make(map[string]Price, len(defaultPrices))
	for k, v := range defaultPrices {
		prices[k] = v
	}
	return &Calculator{prices: prices, krwPerUSD: krwPerUSD}
}

// SetPrice overrides or adds a per-model price.
func (c *Calculator) SetPrice(model string, p Price) {
	c.prices[strings.ToLower(model)] = p
}

// Cost estimates the cost of one call. Local models cost nothing; unknown
// models fall back to a provider-level default; unknown provider/model
// combinations cost zero. USD is rounded to 4 decimal places, KRW to
// whole won.
func (c *Calculator) Cost(promptTokens, completionTokens int, model, provider string) (usd float64, krw int) {
	if provider == "ollama" {
		return 0, 0
	}

	price, ok := c.prices[strings.ToLower(model)]
	if !ok {
		switch provider {
		case "codex":
			price = c.prices["codex"]
		case "openai":
			price = c.prices["gpt-4o"]
		default:
			return 0, 0
		}
	}

	total := float64(promptTokens)/1000*price.Input + float64(completionTokens)/1000*price.Output
	usd = math.Round(total*10000) / 10000
	krw = int(math.Round(total * c.krwPerUSD))
	return usd, krw
}
