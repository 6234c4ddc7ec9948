package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
)

// Mocks
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql)
	return pgconn.CommandTag{}, args.Error(0)
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// fakeTx records what a transaction was asked to do. Calling a method that
// is not overridden panics on the nil embedded interface.
type fakeTx struct {
	pgx.Tx
	execErr    error
	batchErr   error
	execArgs   [][]any
	batch      *pgx.Batch
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	tx.execArgs = append(tx.execArgs, arguments)
	return pgconn.CommandTag{}, tx.execErr
}

func (tx *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	tx.batch = b
	return &fakeBatchResults{err: tx.batchErr}
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

type fakeBatchResults struct {
	pgx.BatchResults
	err error
}

func (r *fakeBatchResults) Close() error {
	return r.err
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *int:
			*p = r.values[i].(int)
		case *bool:
			*p = r.values[i].(bool)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *string:
			*p = r.values[i].(string)
		}
	}
	return nil
}

func testBatch() *entity.DomainResultBatch {
	return entity.NewDomainResultBatch("acme.test", []*entity.PageResult{
		{Domain: "acme.test", URL: "http://acme.test", HTTPStatus: 200, Title: "Acme",
			Contacts: &entity.ContactRecord{Emails: []string{"info@acme.test"}}},
		entity.NewPageError("acme.test", "http://acme.test/contact", "navigation failed"),
	})
}

func TestBatchRepo_Emit(t *testing.T) {
	db := new(MockDB)
	tx := &fakeTx{}
	db.On("Begin", mock.Anything).Return(tx, nil)
	repo := NewBatchRepo(db)
	batch := testBatch()

	require.NoError(t, repo.Emit(context.Background(), batch))

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	require.Len(t, tx.execArgs, 1)
	assert.Equal(t, []any{batch.ID, "acme.test", 2, false, batch.CreatedAt}, tx.execArgs[0])

	require.NotNil(t, tx.batch)
	require.Equal(t, 2, tx.batch.Len())
	first := tx.batch.QueuedQueries[0].Arguments
	assert.Equal(t, 0, first[1])
	assert.Equal(t, "http://acme.test", first[3])
	var stored entity.PageResult
	require.NoError(t, json.Unmarshal(first[8].([]byte), &stored))
	assert.Equal(t, []string{"info@acme.test"}, stored.Contacts.Emails)

	second := tx.batch.QueuedQueries[1].Arguments
	assert.Nil(t, second[4], "no status for error records")
	assert.Equal(t, "navigation failed", second[6])
}

func TestBatchRepo_EmitRollsBack(t *testing.T) {
	db := new(MockDB)
	tx := &fakeTx{batchErr: errors.New("unique violation")}
	db.On("Begin", mock.Anything).Return(tx, nil)
	repo := NewBatchRepo(db)

	err := repo.Emit(context.Background(), testBatch())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unique violation")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestBatchRepo_EmitBeginError(t *testing.T) {
	db := new(MockDB)
	db.On("Begin", mock.Anything).Return(nil, errors.New("connection refused"))

	err := NewBatchRepo(db).Emit(context.Background(), testBatch())

	assert.EqualError(t, err, "connection refused")
}

func TestBatchRepo_LatestStatus(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("failed batch", func(t *testing.T) {
		db := new(MockDB)
		db.On("QueryRow", mock.Anything, latestStatusQuery, []any{"acme.test"}).
			Return(fakeRow{values: []any{id, 1, true, created, "navigation failed"}})

		status, err := NewBatchRepo(db).LatestStatus(context.Background(), "acme.test")
		require.NoError(t, err)

		assert.Equal(t, entity.StatusFailed, status.CurrentStatus)
		assert.Equal(t, id.String(), status.LastBatchID)
		assert.Equal(t, 1, status.PageCount)
		assert.Equal(t, "navigation failed", status.FailureReason)
		assert.Equal(t, created, *status.LastCrawlTimestamp)
	})

	t.Run("completed batch", func(t *testing.T) {
		db := new(MockDB)
		db.On("QueryRow", mock.Anything, latestStatusQuery, []any{"acme.test"}).
			Return(fakeRow{values: []any{id, 3, false, created, ""}})

		status, err := NewBatchRepo(db).LatestStatus(context.Background(), "acme.test")
		require.NoError(t, err)

		assert.Equal(t, entity.StatusCompleted, status.CurrentStatus)
		assert.Equal(t, 3, status.PageCount)
	})

	t.Run("no rows", func(t *testing.T) {
		db := new(MockDB)
		db.On("QueryRow", mock.Anything, latestStatusQuery, []any{"acme.test"}).
			Return(fakeRow{err: pgx.ErrNoRows})

		_, err := NewBatchRepo(db).LatestStatus(context.Background(), "acme.test")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestBatchRepo_EnsureSchema(t *testing.T) {
	db := new(MockDB)
	db.On("Exec", mock.Anything, schema).Return(nil)

	require.NoError(t, NewBatchRepo(db).EnsureSchema(context.Background()))
	db.AssertExpectations(t)
}
