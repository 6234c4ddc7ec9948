package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/user/contact-crawler/internal/adapter/chromedp_browser"
	"github.com/user/contact-crawler/internal/adapter/filestore"
	"github.com/user/contact-crawler/internal/adapter/memqueue"
	"github.com/user/contact-crawler/internal/adapter/postgres"
	redis_adapter "github.com/user/contact-crawler/internal/adapter/redis"
	"github.com/user/contact-crawler/internal/adapter/rod_browser"
	s3_adapter "github.com/user/contact-crawler/internal/adapter/s3"
	"github.com/user/contact-crawler/internal/adapter/sqlite"
	"github.com/user/contact-crawler/internal/contact"
	"github.com/user/contact-crawler/internal/input"
	"github.com/user/contact-crawler/internal/repository"
	"github.com/user/contact-crawler/internal/usecase"
	appconfig "github.com/user/contact-crawler/pkg/config"
	"github.com/user/contact-crawler/pkg/metrics"
	"go.uber.org/zap"
)

// app holds the wired components of one process.
type app struct {
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	queue      repository.QueueRepository
	urlManager usecase.URLManager
	crawler    usecase.Crawler
	closers    []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	var visited repository.VisitedRepository
	switch cfg.Queue.Driver {
	case "memory":
		a.queue = memqueue.NewQueue()
		visited = memqueue.NewSeenSet()
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("unable to connect to redis: %w", err)
		}
		logger.Info("Redis connection established", zap.String("addr", cfg.Redis.Addr))
		a.queue = redis_adapter.NewQueueRepo(rdb)
		visited = redis_adapter.NewVisitedRepo(rdb, cfg.Redis.SeenTTL)
	}

	var batches repository.BatchRepository
	switch cfg.Output.Driver {
	case "sqlite":
		repo, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("unable to open sqlite database: %w", err)
		}
		a.closers = append(a.closers, func() { _ = repo.Close() })
		batches = repo
	default:
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		repo := postgres.NewBatchRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("unable to prepare database schema: %w", err)
		}
		logger.Info("PostgreSQL connection pool established")
		batches = repo
	}

	artifacts, err := buildArtifacts(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, closeSessions, err := buildSessions(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeSessions)

	extractor := contact.NewExtractor(contact.WithUncertainPhones(cfg.ExtractUncertainPhones))
	pages := usecase.NewPageProcessor(artifacts, extractor, pageOptions(cfg), a.metrics, logger)
	domainCrawler := usecase.NewDomainCrawler(sessions, pages, crawlOptions(cfg), a.metrics, logger)

	a.crawler = usecase.NewCrawlerUseCase(a.queue, batches, domainCrawler, a.metrics, logger)
	a.urlManager = usecase.NewURLManager(visited, a.queue, batches, logger)
	return a, nil
}

func buildArtifacts(ctx context.Context, cfg *appconfig.Config) (repository.ArtifactRepository, error) {
	if cfg.Artifacts.Driver != "s3" {
		return filestore.NewArtifactRepository(afero.NewOsFs(), cfg.Artifacts.Dir), nil
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load aws config: %w", err)
	}
	client := s3_adapter.NewClient(awsCfg, cfg.AWS.Endpoint)
	return s3_adapter.NewArtifactRepository(client, cfg.Artifacts.Bucket, cfg.Artifacts.Prefix), nil
}

func buildSessions(cfg *appconfig.Config, logger *zap.Logger) (repository.SessionProvider, func(), error) {
	if cfg.Browser.Engine == "rod" {
		provider, err := rod_browser.NewProvider(rod_browser.Options{
			Headless:        cfg.Browser.Headless,
			PageLoadTimeout: cfg.PageLoadTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return provider, provider.Close, nil
	}
	provider := chromedp_browser.NewProvider(chromedp_browser.Options{
		Headless:        cfg.Browser.Headless,
		PageLoadTimeout: cfg.PageLoadTimeout,
		UserAgent:       cfg.Browser.UserAgent,
	}, logger)
	return provider, provider.Close, nil
}

func pageOptions(cfg *appconfig.Config) usecase.PageOptions {
	return usecase.PageOptions{
		SaveScreenshot:      cfg.SaveScreenshot,
		SaveHTML:            cfg.SaveHTML,
		SaveHTMLContent:     cfg.SaveHTMLContent,
		SaveText:            cfg.SaveText,
		ConsiderChildFrames: cfg.ConsiderChildFrames,
	}
}

func crawlOptions(cfg *appconfig.Config) usecase.CrawlOptions {
	return usecase.CrawlOptions{
		MaxRequestRetries: cfg.MaxRequestRetries,
		CrawlHTTPSVersion: cfg.CrawlHTTPSVersion,
		CrawlWWWSubdomain: cfg.CrawlWWWSubdomain,
		CrawlLinkCount:    cfg.CrawlLinkCount,
	}
}

func inputSource(cfg *appconfig.Config) input.Source {
	return input.Source{
		Domains:    cfg.Domains,
		FileURL:    cfg.DomainsFileURL,
		FileOffset: cfg.DomainsFileOffset,
		FileCount:  cfg.DomainsFileCount,
	}
}
