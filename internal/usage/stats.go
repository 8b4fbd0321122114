package usage

import (
	"encoding/csv"
	"sort"
	"strconv"
	"strings"
)

// BucketStats aggregates entries sharing a day or a provider/model key.
type BucketStats struct {
	Requests int
	Tokens   int
	CostUSD  float64
	CostKRW  int
}

// Statistics summarizes a set of entries over an optional date range.
type Statistics struct {
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	TotalTokens        int
	AvgTokensPerRequest int
	TotalCostUSD       float64
	TotalCostKRW       int
	DailyStats         map[string]BucketStats
	ModelStats         map[string]BucketStats
}

// ComputeStatistics aggregates log entries between startDate and endDate
// (inclusive, YYYY-MM-DD, empty means unbounded).
func ComputeStatistics(log Log, startDate, endDate string) Statistics {
	stats := Statistics{
		DailyStats: map[string]BucketStats{},
		ModelStats: map[string]BucketStats{},
	}

	for _, e := range log.Entries {
		if startDate != "" && e.Date < startDate {
			continue
		}
		if endDate != "" && e.Date > endDate {
			continue
		}

		stats.TotalRequests++
		if e.Status == StatusSuccess {
			stats.SuccessfulRequests++
		} else {
			stats.FailedRequests++
		}
		stats.TotalTokens += e.TokenUsage.TotalTokens
		stats.TotalCostUSD += e.EstimatedCostUSD
		stats.TotalCostKRW += e.EstimatedCostKRW

		daily := stats.DailyStats[e.Date]
		daily.Requests++
		daily.Tokens += e.TokenUsage.TotalTokens
		daily.CostUSD += e.EstimatedCostUSD
		daily.CostKRW += e.EstimatedCostKRW
		stats.DailyStats[e.Date] = daily

		key := e.Provider + "/" + e.Model
		model := stats.ModelStats[key]
		model.Requests++
		model.Tokens += e.TokenUsage.TotalTokens
		model.CostUSD += e.EstimatedCostUSD
		model.CostKRW += e.EstimatedCostKRW
		stats.ModelStats[key] = model
	}

	if stats.TotalRequests > 0 {
		stats.AvgTokensPerRequest = stats.TotalTokens / stats.TotalRequests
	}
	return stats
}

// MonthlyStats summarizes one calendar month.
type MonthlyStats struct {
	Month               string
	Requests            int
	SuccessCount        int
	FailedCount         int
	TotalTokens         int
	AvgTokensPerRequest int
	CostUSD             float64
	CostKRW             int
	DailyBreakdown      map[string]BucketStats
}

// ComputeMonthlyStats groups log entries by month, newest first.
func ComputeMonthlyStats(log Log) []MonthlyStats {
	byMonth := map[string][]Entry{}
	for _, e := range log.Entries {
		if len(e.Date) < 7 {
			continue
		}
		month := e.Date[:7]
		byMonth[month] = append(byMonth[month], e)
	}

	out := make([]MonthlyStats, 0, len(byMonth))
	for month, entries := range byMonth {
		ms := MonthlyStats{Month: month, Requests: len(entries), DailyBreakdown: map[string]BucketStats{}}
		for _, e := range entries {
			if e.Status == StatusSuccess {
				ms.SuccessCount++
			} else {
				ms.FailedCount++
			}
			ms.TotalTokens += e.TokenUsage.TotalTokens
			ms.CostUSD += e.EstimatedCostUSD
			ms.CostKRW += e.EstimatedCostKRW

			daily := ms.DailyBreakdown[e.Date]
			daily.Requests++
			daily.Tokens += e.TokenUsage.TotalTokens
			daily.CostUSD += e.EstimatedCostUSD
			daily.CostKRW += e.EstimatedCostKRW
			ms.DailyBreakdown[e.Date] = daily
		}
		if ms.Requests > 0 {
			ms.AvgTokensPerRequest = ms.TotalTokens / ms.Requests
		}
		out = append(out, ms)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// RecentEntries returns the last count entries, newest first.
func RecentEntries(log Log, count int) []Entry {
	n := len(log.Entries)
	if count > n {
		count = n
	}
	out := make([]Entry, 0, count)
	for i := n - 1; i >= n-count; i-- {
		out = append(out, log.Entries[i])
	}
	return out
}

var csvHeader = []string{
	"id", "date", "weekday", "time", "mr_title", "mr_url", "project_id",
	"mr_iid", "model", "provider", "prompt_tokens", "completion_tokens",
	"total_tokens", "cost_usd", "cost_krw", "status",
}

// ExportCSV renders the log as CSV, one row per entry.
func ExportCSV(log Log) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, e := range log.Entries {
		row := []string{
			e.ID,
			e.Date,
			e.DayOfWeek,
			e.Time,
			e.MRTitle,
			e.MRURL,
			e.ProjectID,
			strconv.Itoa(e.MRIID),
			e.Model,
			e.Provider,
			strconv.Itoa(e.TokenUsage.PromptTokens),
			strconv.Itoa(e.TokenUsage.CompletionTokens),
			strconv.Itoa(e.TokenUsage.TotalTokens),
			strconv.FormatFloat(e.EstimatedCostUSD, 'f', 4, 64),
			strconv.Itoa(e.EstimatedCostKRW),
			e.Status,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}
