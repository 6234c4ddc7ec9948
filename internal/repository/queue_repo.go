package repository

import (
	"context"

	"github.com/user/contact-crawler/internal/entity"
)

// QueueRepository is a FIFO queue of domain tasks. Popped tasks stay in
// flight until acknowledged so that a restart can hand them out again.
type QueueRepository interface {
	// Push adds a task to the end of the queue.
	Push(ctx context.Context, task entity.DomainTask) error
	// Pop removes and returns a task from the front of the queue. It returns ErrQueueEmpty if there is none.
	Pop(ctx context.Context) (entity.DomainTask, error)
	// Ack drops a finished task from the in-flight list.
	Ack(ctx context.Context, task entity.DomainTask) error
	// Requeue moves every in-flight task back to the queue.
	Requeue(ctx context.Context) (int64, error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
