package repository

import (
	"context"

	"github.com/user/contact-crawler/internal/entity"
)

// BatchRepository is the append-only output sink for domain results.
type BatchRepository interface {
	// Emit stores every page of the batch atomically.
	Emit(ctx context.Context, batch *entity.DomainResultBatch) error
	// LatestStatus summarises the most recent batch of a domain. It returns ErrNotFound if there is none.
	LatestStatus(ctx context.Context, domain string) (*entity.CrawlStatus, error)
}
