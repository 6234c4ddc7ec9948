// Package memqueue keeps the work queue and the seen-set in process memory.
// It backs single-process runs that do not need a Redis server.
package memqueue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/antigloss/go/concurrent/container/queue"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
)

// Queue is a FIFO of domain tasks on top of a lock-free queue.
type Queue struct {
	queue *queue.LockfreeQueue
	size  int64

	mu       sync.Mutex
	inFlight map[entity.DomainTask]int
}

func NewQueue() *Queue {
	return &Queue{
		queue:    queue.NewLockfreeQueue(),
		inFlight: make(map[entity.DomainTask]int),
	}
}

func (q *Queue) Push(_ context.Context, task entity.DomainTask) error {
	atomic.AddInt64(&q.size, 1)
	q.queue.Push(task)
	return nil
}

func (q *Queue) Pop(ctx context.Context) (entity.DomainTask, error) {
	if err := ctx.Err(); err != nil {
		return entity.DomainTask{}, err
	}
	v := q.queue.Pop()
	if v == nil {
		return entity.DomainTask{}, repository.ErrQueueEmpty
	}
	atomic.AddInt64(&q.size, -1)

	task := v.(entity.DomainTask)
	q.mu.Lock()
	q.inFlight[task]++
	q.mu.Unlock()
	return task, nil
}

func (q *Queue) Ack(_ context.Context, task entity.DomainTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight[task] <= 1 {
		delete(q.inFlight, task)
		return nil
	}
	q.inFlight[task]--
	return nil
}

// Requeue pushes every unacknowledged task back to the queue.
func (q *Queue) Requeue(ctx context.Context) (int64, error) {
	q.mu.Lock()
	pending := q.inFlight
	q.inFlight = make(map[entity.DomainTask]int)
	q.mu.Unlock()

	var moved int64
	for task, n := range pending {
		for i := 0; i < n; i++ {
			if err := q.Push(ctx, task); err != nil {
				return moved, err
			}
			moved++
		}
	}
	return moved, nil
}

func (q *Queue) Size(_ context.Context) (int64, error) {
	return atomic.LoadInt64(&q.size), nil
}

// SeenSet is an in-memory VisitedRepository.
type SeenSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{})}
}

func (s *SeenSet) MarkSeen(_ context.Context, seedURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[seedURL]; ok {
		return false, nil
	}
	s.seen[seedURL] = struct{}{}
	return true, nil
}

func (s *SeenSet) IsSeen(_ context.Context, seedURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[seedURL]
	return ok, nil
}

func (s *SeenSet) Forget(_ context.Context, seedURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, seedURL)
	return nil
}
