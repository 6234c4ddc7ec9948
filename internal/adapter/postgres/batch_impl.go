package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS crawl_batches (
	id          UUID PRIMARY KEY,
	domain      TEXT NOT NULL,
	page_count  INTEGER NOT NULL,
	failed      BOOLEAN NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS crawl_batches_domain_idx ON crawl_batches (domain, created_at DESC);
CREATE TABLE IF NOT EXISTS crawl_pages (
	batch_id       UUID NOT NULL REFERENCES crawl_batches (id),
	position       INTEGER NOT NULL,
	domain         TEXT NOT NULL,
	url            TEXT NOT NULL,
	http_status    INTEGER,
	title          TEXT,
	error_message  TEXT,
	loaded_at      TIMESTAMPTZ NOT NULL,
	result         JSONB NOT NULL,
	PRIMARY KEY (batch_id, position)
);`

const (
	insertBatchQuery = `INSERT INTO crawl_batches (id, domain, page_count, failed, created_at) VALUES ($1, $2, $3, $4, $5)`
	insertPageQuery  = `INSERT INTO crawl_pages (batch_id, position, domain, url, http_status, title, error_message, loaded_at, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	latestStatusQuery = `SELECT b.id, b.page_count, b.failed, b.created_at, COALESCE(p.error_message, '')
		FROM crawl_batches b
		LEFT JOIN crawl_pages p ON p.batch_id = b.id AND p.position = 0
		WHERE b.domain = $1
		ORDER BY b.created_at DESC
		LIMIT 1`
)

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BatchRepoImpl provides a concrete implementation for the BatchRepository interface using PostgreSQL.
type BatchRepoImpl struct {
	db DB
}

// NewBatchRepo creates a new instance of BatchRepoImpl.
func NewBatchRepo(db DB) *BatchRepoImpl {
	return &BatchRepoImpl{db: db}
}

// EnsureSchema creates the tables when they do not exist yet.
func (r *BatchRepoImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// Emit stores the batch and its pages within a single transaction.
func (r *BatchRepoImpl) Emit(ctx context.Context, batch *entity.DomainResultBatch) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertBatchQuery, batch.ID, batch.Domain, len(batch.Pages), batch.Failed(), batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert batch %s: %w", batch.ID, err)
	}

	pages := &pgx.Batch{}
	for i, page := range batch.Pages {
		result, err := json.Marshal(page)
		if err != nil {
			return fmt.Errorf("failed to encode page %s: %w", page.URL, err)
		}
		pages.Queue(insertPageQuery,
			batch.ID, i, page.Domain, page.URL, nullableInt(page.HTTPStatus),
			page.Title, page.ErrorMessage, page.LoadedAt, result,
		)
	}
	if err := tx.SendBatch(ctx, pages).Close(); err != nil {
		return fmt.Errorf("failed to insert pages of batch %s: %w", batch.ID, err)
	}

	return tx.Commit(ctx)
}

// LatestStatus summarises the most recent batch of a domain.
func (r *BatchRepoImpl) LatestStatus(ctx context.Context, domain string) (*entity.CrawlStatus, error) {
	var (
		status    entity.CrawlStatus
		batchID   uuid.UUID
		failed    bool
		createdAt time.Time
	)
	err := r.db.QueryRow(ctx, latestStatusQuery, domain).
		Scan(&batchID, &status.PageCount, &failed, &createdAt, &status.FailureReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	status.Domain = domain
	status.LastBatchID = batchID.String()
	status.LastCrawlTimestamp = &createdAt
	status.CurrentStatus = entity.StatusCompleted
	if failed {
		status.CurrentStatus = entity.StatusFailed
	} else {
		status.FailureReason = ""
	}
	return &status, nil
}

func nullableInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
