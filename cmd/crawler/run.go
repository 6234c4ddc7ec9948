package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/contact-crawler/internal/input"
	"github.com/user/contact-crawler/internal/usecase"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl the configured domains until the queue is empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runOnce(ctx)
	},
}

func runOnce(ctx context.Context) error {
	domains, err := input.NewResolver(nil, log).Resolve(ctx, inputSource(cfg))
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	requeued, err := a.queue.Requeue(ctx)
	if err != nil {
		return fmt.Errorf("failed to requeue unfinished domains: %w", err)
	}
	if requeued > 0 {
		log.Info("resuming unfinished domains", zap.Int64("count", requeued))
	}

	queued, err := a.urlManager.EnqueueAll(ctx, domains)
	if err != nil && !(errors.Is(err, usecase.ErrNoDomains) && requeued > 0) {
		return err
	}
	log.Info("domains queued", zap.Int("queued", queued), zap.Int("input", len(domains)))

	if err := a.crawler.Run(ctx, cfg.Concurrency, true); err != nil {
		return fmt.Errorf("crawl incomplete: %w", err)
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	log.Info("crawl finished")
	return nil
}
