package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
	"github.com/user/contact-crawler/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrNoDomains is returned when the input does not name a single domain.
	ErrNoDomains = errors.New("no domains to crawl")
	// ErrDomainAlreadyQueued is returned when the seed URL of a domain has
	// already been queued and the submission was not forced.
	ErrDomainAlreadyQueued = errors.New("domain has already been queued")
	// ErrInvalidDomain is returned for submissions that are not a domain name.
	ErrInvalidDomain = errors.New("invalid domain")
)

// URLManager defines the interface for submitting and checking domains.
type URLManager interface {
	Submit(ctx context.Context, domain string, force bool) (entity.DomainTask, error)
	EnqueueAll(ctx context.Context, domains []string) (int, error)
	GetStatus(ctx context.Context, domain string) (*entity.CrawlStatus, error)
	QueueSize(ctx context.Context) (int64, error)
}

type urlManagerUseCase struct {
	visitedRepo repository.VisitedRepository
	queueRepo   repository.QueueRepository
	batchRepo   repository.BatchRepository
	logger      *zap.Logger
}

// NewURLManager creates a new URLManager use case.
func NewURLManager(
	visitedRepo repository.VisitedRepository,
	queueRepo repository.QueueRepository,
	batchRepo repository.BatchRepository,
	logger *zap.Logger,
) URLManager {
	return &urlManagerUseCase{
		visitedRepo: visitedRepo,
		queueRepo:   queueRepo,
		batchRepo:   batchRepo,
		logger:      logger,
	}
}

// Submit queues one domain. Domains are deduplicated by their normalized seed
// URL; force drops the previous record so the domain is crawled again.
func (uc *urlManagerUseCase) Submit(ctx context.Context, domain string, force bool) (entity.DomainTask, error) {
	task := entity.NewDomainTask(domain)
	if task.Domain == "" || !utils.IsDomain(task.Domain) {
		return task, fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}
	seed := utils.NormalizeURL(task.SeedURL())

	if force {
		if err := uc.visitedRepo.Forget(ctx, seed); err != nil {
			// Not critical, MarkSeen below decides.
			uc.logger.Warn("failed to forget seed url for forced crawl", zap.String("seed", seed), zap.Error(err))
		}
	}

	isNew, err := uc.visitedRepo.MarkSeen(ctx, seed)
	if err != nil {
		return task, fmt.Errorf("failed to mark domain %s as seen: %w", task.Domain, err)
	}
	if !isNew {
		return task, ErrDomainAlreadyQueued
	}

	if err := uc.queueRepo.Push(ctx, task); err != nil {
		if ferr := uc.visitedRepo.Forget(ctx, seed); ferr != nil {
			uc.logger.Error("failed to roll back seen seed url", zap.String("seed", seed), zap.Error(ferr))
		}
		return task, fmt.Errorf("failed to push domain %s to queue: %w", task.Domain, err)
	}
	return task, nil
}

// EnqueueAll submits every domain and returns how many were newly queued.
// Domains that were queued before are skipped.
func (uc *urlManagerUseCase) EnqueueAll(ctx context.Context, domains []string) (int, error) {
	if len(domains) == 0 {
		return 0, ErrNoDomains
	}

	queued := 0
	for _, domain := range domains {
		_, err := uc.Submit(ctx, domain, false)
		switch {
		case err == nil:
			queued++
		case errors.Is(err, ErrDomainAlreadyQueued):
			uc.logger.Debug("skipping duplicate domain", zap.String("domain", domain))
		case errors.Is(err, ErrInvalidDomain):
			uc.logger.Warn("skipping invalid domain", zap.String("domain", domain))
		default:
			return queued, err
		}
	}
	uc.logger.Info("domains enqueued", zap.Int("input", len(domains)), zap.Int("queued", queued))
	return queued, nil
}

func (uc *urlManagerUseCase) GetStatus(ctx context.Context, domain string) (*entity.CrawlStatus, error) {
	task := entity.NewDomainTask(domain)

	status, err := uc.batchRepo.LatestStatus(ctx, task.Domain)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		uc.logger.Error("failed to read latest batch status", zap.String("domain", task.Domain), zap.Error(err))
		// Fall through to the queue state.
	}

	seen, err := uc.visitedRepo.IsSeen(ctx, utils.NormalizeURL(task.SeedURL()))
	if err != nil {
		return nil, err
	}
	if seen {
		return &entity.CrawlStatus{Domain: task.Domain, CurrentStatus: entity.StatusQueued}, nil
	}
	return &entity.CrawlStatus{Domain: task.Domain, CurrentStatus: entity.StatusNotFound}, nil
}

func (uc *urlManagerUseCase) QueueSize(ctx context.Context) (int64, error) {
	return uc.queueRepo.Size(ctx)
}
