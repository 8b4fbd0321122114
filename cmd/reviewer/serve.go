package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/config"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/gitlab"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/i18n"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/llm"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/logger"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/review"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/scheduler"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/server"
	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/usage"
	"github.com/urfave/cli/v3"
)

// services bundles everything the serve and run commands share.
type services struct {
	cfg       *config.Config
	provider  llm.Provider
	ledger    *usage.Ledger
	processor *review.Processor
}

func buildServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Initialize(cfg.Log.Debug, cfg.Log.JSON)

	translations, err := i18n.NewTranslations(cfg.Review.CommentLanguage)
	if err != nil {
		return nil, err
	}

	client := gitlab.NewClient(cfg.GitLab.URL, cfg.GitLab.Token, cfg.GitLab.ProjectID)
	provider := llm.New(cfg)

	calc := usage.NewCalculator(cfg.Usage.KRWPerUSD)
	for model, price := range cfg.Usage.Prices {
		calc.SetPrice(model, usage.Price{Input: price.Input, Output: price.Output})
	}
	ledger := usage.NewLedger(cfg.Usage.LogDir, calc)

	processor := review.NewProcessor(client, provider, ledger, translations, cfg)

	logger.Info(ctx, "configuration loaded",
		"gitlab", cfg.GitLab.URL,
		"project", cfg.GitLab.ProjectID,
		"provider", cfg.LLM.Provider,
		"model", cfg.Model(),
		"label", cfg.Review.Label,
		"interval_seconds", cfg.Scheduler.IntervalSeconds,
		"exclude_branches", strings.Join(cfg.Review.ExcludeTargetBranches, ","),
		"exclude_patterns", strings.Join(cfg.Review.ExcludeBranchPatterns, ","),
		"language", cfg.Review.CommentLanguage,
	)

	if !provider.CheckAvailability(ctx) {
		ledger.Close()
		return nil, fmt.Errorf("%s provider is not available, check the configuration", provider.Name())
	}
	logger.Info(ctx, "provider available", "provider", provider.Name())

	return &services{cfg: cfg, provider: provider, ledger: ledger, processor: processor}, nil
}

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the webhook server and the poll scheduler",
		Action: func(ctx context.Context, _ *cli.Command) error {
			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.ledger.Close()

			interval := time.Duration(svc.cfg.Scheduler.IntervalSeconds) * time.Second
			sched, err := scheduler.New(ctx, interval, svc.processor.ProcessAll)
			if err != nil {
				return err
			}

			srv := server.New(svc.cfg.Webhook, svc.cfg.GitLab.ProjectID, svc.processor)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched.Start(ctx)

			serveErr := make(chan error, 1)
			go func() { serveErr <- srv.Start(ctx) }()

			select {
			case err := <-serveErr:
				sched.Stop(context.Background())
				return err
			case <-ctx.Done():
			}

			logger.Info(ctx, "shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			sched.Stop(shutdownCtx)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-serveErr
		},
	}
}

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run a single poll cycle and exit",
		Action: func(ctx context.Context, _ *cli.Command) error {
			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.ledger.Close()

			return svc.processor.ProcessAll(ctx)
		},
	}
}
