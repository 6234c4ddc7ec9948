package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
	"go.uber.org/zap"
)

func TestProcessDomainFromQueue_Success(t *testing.T) {
	queue := new(MockQueueRepository)
	batches := new(MockBatchRepository)
	runner := new(MockDomainCrawlRunner)
	m := newTestMetrics(t)

	task := entity.NewDomainTask("acme.test")
	batch := entity.NewDomainResultBatch("acme.test", []*entity.PageResult{{Domain: "acme.test", URL: "http://acme.test"}})

	queue.On("Pop", mock.Anything).Return(task, nil).Once()
	queue.On("Size", mock.Anything).Return(int64(3), nil)
	runner.On("Crawl", mock.Anything, task).Return(batch, nil).Once()
	batches.On("Emit", mock.Anything, batch).Return(nil).Once()
	queue.On("Ack", mock.Anything, task).Return(nil).Once()

	uc := NewCrawlerUseCase(queue, batches, runner, m, zap.NewNop())
	require.NoError(t, uc.ProcessDomainFromQueue(context.Background()))

	queue.AssertExpectations(t)
	batches.AssertExpectations(t)
	runner.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DomainsTotal.WithLabelValues("success", "")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DomainsInQueue))
}

func TestProcessDomainFromQueue_FailedBatchIsStillAcked(t *testing.T) {
	queue := new(MockQueueRepository)
	batches := new(MockBatchRepository)
	runner := new(MockDomainCrawlRunner)
	m := newTestMetrics(t)

	task := entity.NewDomainTask("down.test")
	batch := entity.NewDomainResultBatch("down.test", []*entity.PageResult{
		entity.NewPageError("down.test", "http://down.test", "navigation failed: timeout"),
	})

	queue.On("Pop", mock.Anything).Return(task, nil)
	queue.On("Size", mock.Anything).Return(int64(0), nil)
	runner.On("Crawl", mock.Anything, task).Return(batch, nil)
	batches.On("Emit", mock.Anything, batch).Return(nil)
	queue.On("Ack", mock.Anything, task).Return(nil).Once()

	uc := NewCrawlerUseCase(queue, batches, runner, m, zap.NewNop())
	require.NoError(t, uc.ProcessDomainFromQueue(context.Background()))

	queue.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DomainsTotal.WithLabelValues("failure", "navigation")))
}

func TestProcessDomainFromQueue_EmitFailureIsNotAcked(t *testing.T) {
	queue := new(MockQueueRepository)
	batches := new(MockBatchRepository)
	runner := new(MockDomainCrawlRunner)
	m := newTestMetrics(t)

	task := entity.NewDomainTask("acme.test")
	batch := entity.NewDomainResultBatch("acme.test", []*entity.PageResult{{Domain: "acme.test", URL: "http://acme.test"}})

	queue.On("Pop", mock.Anything).Return(task, nil)
	queue.On("Size", mock.Anything).Return(int64(0), nil)
	runner.On("Crawl", mock.Anything, task).Return(batch, nil)
	batches.On("Emit", mock.Anything, batch).Return(errors.New("connection refused"))

	uc := NewCrawlerUseCase(queue, batches, runner, m, zap.NewNop())
	err := uc.ProcessDomainFromQueue(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStorageFailed)
	queue.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DomainsTotal.WithLabelValues("failure", "storage")))
}

func TestProcessDomainFromQueue_CrawlError(t *testing.T) {
	queue := new(MockQueueRepository)
	batches := new(MockBatchRepository)
	runner := new(MockDomainCrawlRunner)

	task := entity.NewDomainTask("acme.test")
	queue.On("Pop", mock.Anything).Return(task, nil)
	queue.On("Size", mock.Anything).Return(int64(0), errors.New("redis down"))
	runner.On("Crawl", mock.Anything, task).Return(nil, context.Canceled)

	uc := NewCrawlerUseCase(queue, batches, runner, newTestMetrics(t), zap.NewNop())
	err := uc.ProcessDomainFromQueue(context.Background())

	assert.ErrorIs(t, err, context.Canceled)
	batches.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
	queue.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}

func TestProcessDomainFromQueue_EmptyQueue(t *testing.T) {
	queue := new(MockQueueRepository)
	queue.On("Pop", mock.Anything).Return(entity.DomainTask{}, repository.ErrQueueEmpty)

	uc := NewCrawlerUseCase(queue, new(MockBatchRepository), new(MockDomainCrawlRunner), newTestMetrics(t), zap.NewNop())
	err := uc.ProcessDomainFromQueue(context.Background())

	assert.ErrorIs(t, err, repository.ErrQueueEmpty)
}

func TestRun_StopsWhenQueueDrains(t *testing.T) {
	queue := new(MockQueueRepository)
	batches := new(MockBatchRepository)
	runner := new(MockDomainCrawlRunner)

	tasks := []entity.DomainTask{entity.NewDomainTask("a.test"), entity.NewDomainTask("b.test")}
	for _, task := range tasks {
		queue.On("Pop", mock.Anything).Return(task, nil).Once()
		runner.On("Crawl", mock.Anything, task).
			Return(entity.NewDomainResultBatch(task.Domain, []*entity.PageResult{{Domain: task.Domain}}), nil).Once()
		queue.On("Ack", mock.Anything, task).Return(nil).Once()
	}
	queue.On("Pop", mock.Anything).Return(entity.DomainTask{}, repository.ErrQueueEmpty)
	queue.On("Size", mock.Anything).Return(int64(0), nil)
	batches.On("Emit", mock.Anything, mock.Anything).Return(nil)

	uc := NewCrawlerUseCase(queue, batches, runner, newTestMetrics(t), zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, uc.Run(ctx, 2, true))

	runner.AssertExpectations(t)
	batches.AssertNumberOfCalls(t, "Emit", 2)
	queue.AssertNumberOfCalls(t, "Ack", 2)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(errors.Join(repository.ErrNavigationFailed, repository.ErrCrawlTimeout)))
	assert.Equal(t, "navigation", classifyError(repository.ErrNavigationFailed))
	assert.Equal(t, "session", classifyError(repository.ErrSessionUnavailable))
	assert.Equal(t, "storage", classifyError(repository.ErrStorageFailed))
	assert.Equal(t, "canceled", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
}

func TestRun_BacksOffWhenQueueFails(t *testing.T) {
	queue := new(MockQueueRepository)
	queue.On("Pop", mock.Anything).Return(entity.DomainTask{}, errors.New("dial tcp: connection refused"))

	uc := NewCrawlerUseCase(queue, new(MockBatchRepository), new(MockDomainCrawlRunner), newTestMetrics(t), zap.NewNop())
	uc.(*crawlerUseCase).idleInterval = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, uc.Run(ctx, 1, false))

	assert.LessOrEqual(t, len(queue.Calls), 10)
}

func TestRun_ReportsUnstoredBatches(t *testing.T) {
	queue := new(MockQueueRepository)
	batches := new(MockBatchRepository)
	runner := new(MockDomainCrawlRunner)

	task := entity.NewDomainTask("acme.test")
	queue.On("Pop", mock.Anything).Return(task, nil).Once()
	queue.On("Pop", mock.Anything).Return(entity.DomainTask{}, repository.ErrQueueEmpty)
	queue.On("Size", mock.Anything).Return(int64(0), nil)
	runner.On("Crawl", mock.Anything, task).
		Return(entity.NewDomainResultBatch("acme.test", []*entity.PageResult{{Domain: "acme.test"}}), nil)
	batches.On("Emit", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	uc := NewCrawlerUseCase(queue, batches, runner, newTestMetrics(t), zap.NewNop())
	uc.(*crawlerUseCase).idleInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := uc.Run(ctx, 1, true)

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStorageFailed)
	assert.Contains(t, err.Error(), "1 domain batches were not stored")
	queue.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}
