package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
	"github.com/user/contact-crawler/pkg/metrics"
	"go.uber.org/zap"
)

const defaultIdleInterval = 2 * time.Second

// DomainCrawlRunner crawls a single domain into a result batch.
type DomainCrawlRunner interface {
	Crawl(ctx context.Context, task entity.DomainTask) (*entity.DomainResultBatch, error)
}

// Crawler defines the interface for the queue driven crawling process.
type Crawler interface {
	// ProcessDomainFromQueue crawls one queued domain. It returns
	// repository.ErrQueueEmpty when there is nothing to do.
	ProcessDomainFromQueue(ctx context.Context) error
	// Run processes the queue with the given number of concurrent workers
	// until ctx is done or, with stopWhenEmpty, until the queue drains. With stopWhenEmpty
	// it returns an error wrapping repository.ErrStorageFailed when any batch
	// could not be stored.
	Run(ctx context.Context, workers int, stopWhenEmpty bool) error
}

type crawlerUseCase struct {
	queueRepo     repository.QueueRepository
	batchRepo     repository.BatchRepository
	domainCrawler DomainCrawlRunner
	metrics       *metrics.Metrics
	logger        *zap.Logger
	idleInterval  time.Duration
}

// NewCrawlerUseCase creates a new instance of the crawler use case.
func NewCrawlerUseCase(
	queueRepo repository.QueueRepository,
	batchRepo repository.BatchRepository,
	domainCrawler DomainCrawlRunner,
	m *metrics.Metrics,
	logger *zap.Logger,
) Crawler {
	return &crawlerUseCase{
		queueRepo:     queueRepo,
		batchRepo:     batchRepo,
		domainCrawler: domainCrawler,
		metrics:       m,
		logger:        logger,
		idleInterval:  defaultIdleInterval,
	}
}

func (uc *crawlerUseCase) Run(ctx context.Context, workers int, stopWhenEmpty bool) error {
	if workers < 1 {
		workers = 1
	}
	var unstored atomic.Int64
	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers)
	for i := 0; i < workers; i++ {
		worker := i
		p.Go(func(ctx context.Context) error {
			return uc.work(ctx, worker, stopWhenEmpty, &unstored)
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}
	if n := unstored.Load(); n > 0 && stopWhenEmpty {
		return fmt.Errorf("%w: %d domain batches were not stored", repository.ErrStorageFailed, n)
	}
	return nil
}

func (uc *crawlerUseCase) work(ctx context.Context, worker int, stopWhenEmpty bool, unstored *atomic.Int64) error {
	log := uc.logger.With(zap.Int("worker", worker))
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := uc.ProcessDomainFromQueue(ctx)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrQueueEmpty):
			if stopWhenEmpty {
				log.Debug("queue drained, worker stopping")
				return nil
			}
			if !uc.pause(ctx) {
				return nil
			}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		default:
			log.Error("failed to process domain", zap.Error(err))
			if errors.Is(err, repository.ErrStorageFailed) {
				unstored.Add(1)
			}
			if !uc.pause(ctx) {
				return nil
			}
		}
	}
}

// pause waits for the idle interval. It reports false when ctx is done first.
func (uc *crawlerUseCase) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(uc.idleInterval):
		return true
	}
}

// ProcessDomainFromQueue fetches a single domain from the queue and crawls it.
// The task is acknowledged only once its batch has been stored, so a failed
// emit leaves it in flight for the next restart.
func (uc *crawlerUseCase) ProcessDomainFromQueue(ctx context.Context) error {
	task, err := uc.queueRepo.Pop(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) {
			return err
		}
		return fmt.Errorf("failed to pop domain from queue: %w", err)
	}
	uc.refreshQueueGauge(ctx)

	log := uc.logger.With(zap.String("domain", task.Domain))
	log.Info("processing domain from queue")

	startTime := time.Now()
	batch, crawlErr := uc.domainCrawler.Crawl(ctx, task)
	if crawlErr == nil {
		crawlErr = uc.emit(ctx, batch)
	}
	duration := time.Since(startTime)

	if crawlErr != nil {
		errorType := classifyError(crawlErr)
		uc.metrics.DomainsTotal.WithLabelValues("failure", errorType).Inc()
		uc.metrics.DomainCrawlDuration.WithLabelValues("failure").Observe(duration.Seconds())
		return fmt.Errorf("failed to crawl domain %s: %w", task.Domain, crawlErr)
	}

	status, errorType := "success", ""
	if batch.Failed() {
		status, errorType = "failure", "navigation"
	}
	uc.metrics.DomainsTotal.WithLabelValues(status, errorType).Inc()
	uc.metrics.DomainCrawlDuration.WithLabelValues(status).Observe(duration.Seconds())
	log.Info("domain batch stored",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("pages", len(batch.Pages)),
		zap.Int("pages_with_contacts", batch.ContactPages()),
		zap.Bool("failed", batch.Failed()),
		zap.Int64("duration_ms", duration.Milliseconds()),
	)

	if err := uc.queueRepo.Ack(ctx, task); err != nil {
		// The batch is stored; a restart would only crawl the domain again.
		log.Warn("failed to acknowledge domain task", zap.Error(err))
	}
	return nil
}

func (uc *crawlerUseCase) emit(ctx context.Context, batch *entity.DomainResultBatch) error {
	if err := uc.batchRepo.Emit(ctx, batch); err != nil {
		return fmt.Errorf("%w: failed to emit batch %s: %w", repository.ErrStorageFailed, batch.ID, err)
	}
	return nil
}

func (uc *crawlerUseCase) refreshQueueGauge(ctx context.Context) {
	size, err := uc.queueRepo.Size(ctx)
	if err != nil {
		uc.logger.Debug("failed to read queue size", zap.Error(err))
		return
	}
	uc.metrics.DomainsInQueue.Set(float64(size))
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, repository.ErrStorageFailed):
		return "storage"
	case errors.Is(err, repository.ErrCrawlTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrNavigationFailed):
		return "navigation"
	case errors.Is(err, repository.ErrSessionUnavailable):
		return "session"
	}
	return "unknown"
}
