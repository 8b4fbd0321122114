package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/fatih/color"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/config"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/i18n"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/usage"
	"github.com/urfave/cli/v3"
)

const exportFileName = "usage-export.csv"

var (
	monthArg = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dayArg   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func newStatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "show AI review usage and cost",
		ArgsUsage: "[YYYY-MM | YYYY-MM-DD]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "daily",
				Aliases: []string{"d"},
				Usage:   "include the per-day breakdown in monthly stats",
			},
			&cli.IntFlag{
				Name:    "recent",
				Aliases: []string{"r"},
				Usage:   "show the last N records",
			},
			&cli.BoolFlag{
				Name:    "export",
				Aliases: []string{"e"},
				Usage:   "export all records to " + exportFileName,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "dump the raw all-time log as JSON",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := config.LoadReporting()
			if err != nil {
				return err
			}
			t, err := i18n.NewTranslations(cfg.Review.CommentLanguage)
			if err != nil {
				return err
			}

			ledger := usage.NewLedger(cfg.Usage.LogDir, usage.NewCalculator(cfg.Usage.KRWPerUSD))
			defer ledger.Close()

			switch {
			case cmd.Bool("json"):
				return dumpJSON(ledger.LoadAll())
			case cmd.Bool("export"):
				return exportCSV(t, ledger.LoadAll())
			case cmd.Int("recent") > 0:
				renderRecent(t, ledger.LoadAll(), int(cmd.Int("recent")))
				return nil
			}

			if arg := cmd.Args().First(); arg != "" {
				switch {
				case dayArg.MatchString(arg):
					renderRange(t, arg, usage.ComputeStatistics(ledger.LoadDaily(arg), "", ""))
					return nil
				case monthArg.MatchString(arg):
					renderRange(t, arg, usage.ComputeStatistics(ledger.LoadMonthly(arg), "", ""))
					return nil
				default:
					return fmt.Errorf("expected YYYY-MM or YYYY-MM-DD, got %q", arg)
				}
			}

			renderMonthly(t, ledger.LoadAll(), cmd.Bool("daily"))
			return nil
		},
	}
}

func dumpJSON(log usage.Log) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func exportCSV(t *i18n.Translations, log usage.Log) error {
	data, err := usage.ExportCSV(log)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportFileName, []byte(data), 0o644); err != nil {
		return err
	}
	fmt.Println(t.GetMessage("stats.export_done", 0, map[string]interface{}{"Path": exportFileName}))
	return nil
}

func renderMonthly(t *i18n.Translations, log usage.Log, showDaily bool) {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)

	_, _ = cyan.Printf("\n📊 %s\n", t.GetMessage("stats.monthly_title", 0, nil))
	fmt.Println("================================")

	months := usage.ComputeMonthlyStats(log)
	if len(months) == 0 {
		fmt.Printf("\n%s\n\n", t.GetMessage("stats.no_records", 0, nil))
		return
	}

	for _, m := range months {
		_, _ = cyan.Printf("\n%s\n", m.Month)
		fmt.Printf("  %s\n", t.GetMessage("stats.requests", 0, map[string]interface{}{
			"Total":   m.Requests,
			"Success": m.SuccessCount,
			"Failed":  m.FailedCount,
		}))
		fmt.Printf("  %s\n", t.GetMessage("stats.tokens", 0, map[string]interface{}{
			"Total": m.TotalTokens,
			"Avg":   m.AvgTokensPerRequest,
		}))
		fmt.Printf("  %s\n", t.GetMessage("stats.cost", 0, map[string]interface{}{
			"USD": fmt.Sprintf("%.4f", m.CostUSD),
			"KRW": m.CostKRW,
		}))

		if showDaily && len(m.DailyBreakdown) > 0 {
			fmt.Printf("  %s\n", t.GetMessage("stats.daily_detail", 0, nil))
			days := make([]string, 0, len(m.DailyBreakdown))
			for day := range m.DailyBreakdown {
				days = append(days, day)
			}
			sort.Strings(days)
			for _, day := range days {
				b := m.DailyBreakdown[day]
				fmt.Printf("    %s: %d req, %d tokens, %s\n",
					day, b.Requests, b.Tokens, yellow.Sprintf("$%.4f", b.CostUSD))
			}
		}
	}

	fmt.Println("\n================================")
	total := usage.ComputeStatistics(log, "", "")
	_, _ = cyan.Printf("%s: ", t.GetMessage("stats.grand_total", 0, nil))
	_, _ = yellow.Printf("$%.4f (₩%d), %d tokens\n\n", total.TotalCostUSD, total.TotalCostKRW, total.TotalTokens)
}

func renderRecent(t *i18n.Translations, log usage.Log, count int) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	_, _ = cyan.Printf("\n🕐 %s\n", t.GetMessage("stats.recent_title", 0, map[string]interface{}{"Count": count}))
	fmt.Println("================================")

	entries := usage.RecentEntries(log, count)
	if len(entries) == 0 {
		fmt.Printf("\n%s\n\n", t.GetMessage("stats.no_records", 0, nil))
		return
	}

	for _, e := range entries {
		statusMark := green.Sprint("✓")
		if e.Status == usage.StatusFailed {
			statusMark = red.Sprint("✗")
		}
		fmt.Printf("%s %s %s (%s) !%d %s\n", statusMark, e.Date, e.Time, e.DayOfWeek, e.MRIID, e.MRTitle)
		fmt.Printf("    %s/%s, %d tokens, %s\n",
			e.Provider, e.Model, e.TokenUsage.TotalTokens, yellow.Sprintf("$%.4f", e.EstimatedCostUSD))
		if e.ErrorMessage != "" {
			fmt.Printf("    %s\n", red.Sprint(e.ErrorMessage))
		}
	}
	fmt.Println()
}

func renderRange(t *i18n.Translations, title string, stats usage.Statistics) {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)

	_, _ = cyan.Printf("\n📊 %s\n", title)
	fmt.Println("================================")

	if stats.TotalRequests == 0 {
		fmt.Printf("\n%s\n\n", t.GetMessage("stats.no_records", 0, nil))
		return
	}

	fmt.Printf("%s\n", t.GetMessage("stats.requests", 0, map[string]interface{}{
		"Total":   stats.TotalRequests,
		"Success": stats.SuccessfulRequests,
		"Failed":  stats.FailedRequests,
	}))
	fmt.Printf("%s\n", t.GetMessage("stats.tokens", 0, map[string]interface{}{
		"Total": stats.TotalTokens,
		"Avg":   stats.AvgTokensPerRequest,
	}))
	fmt.Printf("%s\n", t.GetMessage("stats.cost", 0, map[string]interface{}{
		"USD": fmt.Sprintf("%.4f", stats.TotalCostUSD),
		"KRW": stats.TotalCostKRW,
	}))

	if len(stats.ModelStats) > 0 {
		models := make([]string, 0, len(stats.ModelStats))
		for key := range stats.ModelStats {
			models = append(models, key)
		}
		sort.Strings(models)
		fmt.Println()
		for _, key := range models {
			b := stats.ModelStats[key]
			fmt.Printf("  %s: %d req, %d tokens, %s\n",
				key, b.Requests, b.Tokens, yellow.Sprintf("$%.4f", b.CostUSD))
		}
	}
	fmt.Println()
}
