package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
)

const (
	crawlQueueKey      = "crawler:queue"
	crawlProcessingKey = "crawler:processing"
)

// QueueRepoImpl provides a concrete implementation for the QueueRepository interface using Redis Lists.
// Popped tasks are moved to a processing list until acknowledged.
type QueueRepoImpl struct {
	client *redis.Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds a task to the left side of the Redis list (acting as a queue).
func (r *QueueRepoImpl) Push(ctx context.Context, task entity.DomainTask) error {
	payload, err := encodeTask(task)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, crawlQueueKey, payload).Err()
}

// Pop atomically moves the oldest task into the processing list and returns it.
func (r *QueueRepoImpl) Pop(ctx context.Context) (entity.DomainTask, error) {
	payload, err := r.client.LMove(ctx, crawlQueueKey, crawlProcessingKey, "RIGHT", "LEFT").Result()
	if errors.Is(err, redis.Nil) {
		return entity.DomainTask{}, repository.ErrQueueEmpty
	}
	if err != nil {
		return entity.DomainTask{}, err
	}
	var task entity.DomainTask
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		// Drop it, it would fail again on every restart.
		r.client.LRem(ctx, crawlProcessingKey, 1, payload)
		return entity.DomainTask{}, fmt.Errorf("failed to decode queued task %q: %w", payload, err)
	}
	return task, nil
}

// Ack removes a finished task from the processing list.
func (r *QueueRepoImpl) Ack(ctx context.Context, task entity.DomainTask) error {
	payload, err := encodeTask(task)
	if err != nil {
		return err
	}
	return r.client.LRem(ctx, crawlProcessingKey, 1, payload).Err()
}

// Requeue moves every unacknowledged task back to the front of the queue.
// It is meant to run once on startup, before any worker pops.
func (r *QueueRepoImpl) Requeue(ctx context.Context) (int64, error) {
	var moved int64
	for {
		err := r.client.LMove(ctx, crawlProcessingKey, crawlQueueKey, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, crawlQueueKey).Result()
}

func encodeTask(task entity.DomainTask) (string, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to encode task: %w", err)
	}
	return string(payload), nil
}
