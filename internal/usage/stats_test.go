package usage

import (
	"strings"
	"testing"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsEntry(date, model, provider, status string, totalTokens, krw int) Entry {
	return Entry{
		ID:               "id-" + date + model,
		Date:             date,
		Model:            model,
		Provider:         provider,
		Status:           status,
		TokenUsage:       tokens.Usage{TotalTokens: totalTokens},
		EstimatedCostKRW: krw,
	}
}

func TestComputeStatistics(t *testing.T) {
	log := Log{Entries: []Entry{
		statsEntry("2026-08-01", "gpt-4o", "openai", StatusSuccess, 1000, 20),
		statsEntry("2026-08-01", "gpt-4o", "openai", StatusFailed, 200, 5),
		statsEntry("2026-08-02", "codex", "codex", StatusSuccess, 3000, 60),
	}}

	stats := ComputeStatistics(log, "", "")

	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 2, stats.SuccessfulRequests)
	assert.Equal(t, 1, stats.FailedRequests)
	assert.Equal(t, 4200, stats.TotalTokens)
	assert.Equal(t, 1400, stats.AvgTokensPerRequest)
	assert.Equal(t, 85, stats.TotalCostKRW)

	assert.Equal(t, 2, stats.DailyStats["2026-08-01"].Requests)
	assert.Equal(t, 3000, stats.DailyStats["2026-08-02"].Tokens)
	assert.Equal(t, 2, stats.ModelStats["openai/gpt-4o"].Requests)
	assert.Equal(t, 1, stats.ModelStats["codex/codex"].Requests)
}

func TestComputeStatistics_DateRange(t *testing.T) {
	log := Log{Entries: []Entry{
		statsEntry("2026-07-31", "gpt-4o", "openai", StatusSuccess, 100, 1),
		statsEntry("2026-08-01", "gpt-4o", "openai", StatusSuccess, 200, 2),
		statsEntry("2026-08-15", "gpt-4o", "openai", StatusSuccess, 400, 4),
	}}

	stats := ComputeStatistics(log, "2026-08-01", "2026-08-10")

	assert.Equal(t, 1, stats.TotalRequests)
	assert.Equal(t, 200, stats.TotalTokens)
}

func TestComputeMonthlyStats_NewestFirst(t *testing.T) {
	log := Log{Entries: []Entry{
		statsEntry("2026-07-10", "gpt-4o", "openai", StatusSuccess, 100, 1),
		statsEntry("2026-08-01", "gpt-4o", "openai", StatusFailed, 200, 2),
		statsEntry("2026-08-02", "gpt-4o", "openai", StatusSuccess, 400, 4),
	}}

	months := ComputeMonthlyStats(log)
	require.Len(t, months, 2)

	assert.Equal(t, "2026-08", months[0].Month)
	assert.Equal(t, 2, months[0].Requests)
	assert.Equal(t, 1, months[0].SuccessCount)
	assert.Equal(t, 1, months[0].FailedCount)
	assert.Equal(t, 300, months[0].AvgTokensPerRequest)
	assert.Equal(t, 1, months[0].DailyBreakdown["2026-08-01"].Requests)

	assert.Equal(t, "2026-07", months[1].Month)
}

func TestRecentEntries(t *testing.T) {
	log := Log{Entries: []Entry{
		statsEntry("2026-08-01", "a", "openai", StatusSuccess, 1, 0),
		statsEntry("2026-08-02", "b", "openai", StatusSuccess, 2, 0),
		statsEntry("2026-08-03", "c", "openai", StatusSuccess, 3, 0),
	}}

	recent := RecentEntries(log, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "2026-08-03", recent[0].Date)
	assert.Equal(t, "2026-08-02", recent[1].Date)

	assert.Len(t, RecentEntries(log, 10), 3)
}

func TestExportCSV(t *testing.T) {
	entry := statsEntry("2026-08-01", "gpt-4o", "openai", StatusSuccess, 1500, 18)
	entry.MRTitle = `Fix "quoting", carefully`
	entry.MRIID = 7
	entry.TokenUsage = tokens.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}
	entry.EstimatedCostUSD = 0.0125

	csvText, err := ExportCSV(Log{Entries: []Entry{entry}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(csvText), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.Contains(t, lines[1], `"Fix ""quoting"", carefully"`)
	assert.Contains(t, lines[1], "0.0125")
	assert.Contains(t, lines[1], "1000,500,1500")
}
