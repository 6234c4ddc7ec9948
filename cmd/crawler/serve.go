package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/contact-crawler/internal/delivery/http/handler"
	"github.com/user/contact-crawler/internal/delivery/http/router"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and crawl submitted domains continuously",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if requeued, err := a.queue.Requeue(ctx); err != nil {
		log.Warn("failed to requeue unfinished domains", zap.Error(err))
	} else if requeued > 0 {
		log.Info("resuming unfinished domains", zap.Int64("count", requeued))
	}

	apiHandler := handler.NewHandler(a.urlManager, log)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.New(apiHandler, a.metrics, a.registry, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.crawler.Run(gctx, cfg.Concurrency, false)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exiting")
	return nil
}
