package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
	"go.uber.org/zap"
)

func newTestURLManager() (URLManager, *MockVisitedRepository, *MockQueueRepository, *MockBatchRepository) {
	visited := new(MockVisitedRepository)
	queue := new(MockQueueRepository)
	batches := new(MockBatchRepository)
	return NewURLManager(visited, queue, batches, zap.NewNop()), visited, queue, batches
}

func TestSubmit(t *testing.T) {
	uc, visited, queue, _ := newTestURLManager()
	visited.On("MarkSeen", mock.Anything, "http://acme.test").Return(true, nil).Once()
	queue.On("Push", mock.Anything, entity.DomainTask{Domain: "acme.test"}).Return(nil).Once()

	task, err := uc.Submit(context.Background(), " ACME.test ", false)
	require.NoError(t, err)

	assert.Equal(t, "acme.test", task.Domain)
	visited.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestSubmit_AlreadyQueued(t *testing.T) {
	uc, visited, queue, _ := newTestURLManager()
	visited.On("MarkSeen", mock.Anything, "http://acme.test").Return(false, nil)

	_, err := uc.Submit(context.Background(), "acme.test", false)

	assert.ErrorIs(t, err, ErrDomainAlreadyQueued)
	queue.AssertNotCalled(t, "Push", mock.Anything, mock.Anything)
}

func TestSubmit_ForceForgetsSeed(t *testing.T) {
	uc, visited, queue, _ := newTestURLManager()
	visited.On("Forget", mock.Anything, "http://acme.test").Return(nil).Once()
	visited.On("MarkSeen", mock.Anything, "http://acme.test").Return(true, nil).Once()
	queue.On("Push", mock.Anything, entity.DomainTask{Domain: "acme.test"}).Return(nil).Once()

	_, err := uc.Submit(context.Background(), "acme.test", true)
	require.NoError(t, err)

	visited.AssertExpectations(t)
}

func TestSubmit_PushFailureRollsBack(t *testing.T) {
	uc, visited, queue, _ := newTestURLManager()
	visited.On("MarkSeen", mock.Anything, "http://acme.test").Return(true, nil)
	visited.On("Forget", mock.Anything, "http://acme.test").Return(nil).Once()
	queue.On("Push", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	_, err := uc.Submit(context.Background(), "acme.test", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	visited.AssertExpectations(t)
}

func TestSubmit_InvalidDomain(t *testing.T) {
	uc, visited, _, _ := newTestURLManager()

	for _, input := range []string{"", "localhost", "http://acme.test/x"} {
		_, err := uc.Submit(context.Background(), input, false)
		assert.ErrorIs(t, err, ErrInvalidDomain, input)
	}
	visited.AssertNotCalled(t, "MarkSeen", mock.Anything, mock.Anything)
}

func TestEnqueueAll(t *testing.T) {
	uc, visited, queue, _ := newTestURLManager()
	visited.On("MarkSeen", mock.Anything, "http://a.test").Return(true, nil)
	visited.On("MarkSeen", mock.Anything, "http://b.test").Return(false, nil)
	visited.On("MarkSeen", mock.Anything, "http://c.test").Return(true, nil)
	queue.On("Push", mock.Anything, mock.Anything).Return(nil)

	queued, err := uc.EnqueueAll(context.Background(), []string{"a.test", "b.test", "not a domain", "c.test"})
	require.NoError(t, err)

	assert.Equal(t, 2, queued)
	queue.AssertNumberOfCalls(t, "Push", 2)
}

func TestEnqueueAll_NoDomains(t *testing.T) {
	uc, _, _, _ := newTestURLManager()

	_, err := uc.EnqueueAll(context.Background(), nil)

	assert.ErrorIs(t, err, ErrNoDomains)
}

func TestGetStatus(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("completed", func(t *testing.T) {
		uc, _, _, batches := newTestURLManager()
		want := &entity.CrawlStatus{Domain: "acme.test", CurrentStatus: entity.StatusCompleted, LastCrawlTimestamp: &ts, PageCount: 3}
		batches.On("LatestStatus", mock.Anything, "acme.test").Return(want, nil)

		got, err := uc.GetStatus(context.Background(), "acme.test")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("queued", func(t *testing.T) {
		uc, visited, _, batches := newTestURLManager()
		batches.On("LatestStatus", mock.Anything, "acme.test").Return(nil, repository.ErrNotFound)
		visited.On("IsSeen", mock.Anything, "http://acme.test").Return(true, nil)

		got, err := uc.GetStatus(context.Background(), "acme.test")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusQueued, got.CurrentStatus)
	})

	t.Run("not found despite sink error", func(t *testing.T) {
		uc, visited, _, batches := newTestURLManager()
		batches.On("LatestStatus", mock.Anything, "acme.test").Return(nil, errors.New("timeout"))
		visited.On("IsSeen", mock.Anything, "http://acme.test").Return(false, nil)

		got, err := uc.GetStatus(context.Background(), "acme.test")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusNotFound, got.CurrentStatus)
		assert.Equal(t, "acme.test", got.Domain)
	})
}
