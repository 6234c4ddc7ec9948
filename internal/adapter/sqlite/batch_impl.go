package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
)

const (
	createBatches = "CREATE TABLE IF NOT EXISTS batches (id text not null primary key, domain text not null, page_count integer not null, failed integer not null, created_at text not null);"
	createPages   = "CREATE TABLE IF NOT EXISTS pages (batch_id text not null, position integer not null, url text not null, error_message text, result text not null, primary key (batch_id, position));"

	insertBatch  = "INSERT INTO batches(id, domain, page_count, failed, created_at) values(?, ?, ?, ?, ?);"
	insertPage   = "INSERT INTO pages(batch_id, position, url, error_message, result) values(?, ?, ?, ?, ?);"
	selectLatest = "SELECT b.id, b.page_count, b.failed, b.created_at, COALESCE(p.error_message, '') FROM batches b LEFT JOIN pages p ON p.batch_id = b.id AND p.position = 0 WHERE b.domain = ? ORDER BY b.created_at DESC LIMIT 1;"
)

// BatchRepo writes result batches to a local SQLite file. The sqlite driver
// does not allow concurrent writes, so every write holds dbLock.
type BatchRepo struct {
	db     *sql.DB
	dbLock sync.Mutex
}

// Open opens or creates the database file and its tables.
func Open(ctx context.Context, path string) (*BatchRepo, error) {
	if path == "" {
		return nil, errors.New("sqlite database file not set")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	repo := NewBatchRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func NewBatchRepo(db *sql.DB) *BatchRepo {
	return &BatchRepo{db: db}
}

func (r *BatchRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createBatches, createPages} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %q: %w", stmt, err)
		}
	}
	return nil
}

// Emit stores the batch and its pages in one transaction.
func (r *BatchRepo) Emit(ctx context.Context, batch *entity.DomainResultBatch) error {
	r.dbLock.Lock()
	defer r.dbLock.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertBatch,
		batch.ID.String(), batch.Domain, len(batch.Pages), batch.Failed(), batch.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert batch %s: %w", batch.ID, err)
	}
	for i, page := range batch.Pages {
		result, err := json.Marshal(page)
		if err != nil {
			return fmt.Errorf("failed to encode page %s: %w", page.URL, err)
		}
		if _, err := tx.ExecContext(ctx, insertPage, batch.ID.String(), i, page.URL, page.ErrorMessage, string(result)); err != nil {
			return fmt.Errorf("failed to insert page %s: %w", page.URL, err)
		}
	}
	return tx.Commit()
}

func (r *BatchRepo) LatestStatus(ctx context.Context, domain string) (*entity.CrawlStatus, error) {
	var (
		status    entity.CrawlStatus
		failed    bool
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, selectLatest, domain).
		Scan(&status.LastBatchID, &status.PageCount, &failed, &createdAt, &status.FailureReason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	status.Domain = domain
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		status.LastCrawlTimestamp = &ts
	}
	status.CurrentStatus = entity.StatusCompleted
	if failed {
		status.CurrentStatus = entity.StatusFailed
	} else {
		status.FailureReason = ""
	}
	return &status, nil
}

func (r *BatchRepo) Close() error {
	return r.db.Close()
}
