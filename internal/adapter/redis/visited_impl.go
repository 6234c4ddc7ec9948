package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/contact-crawler/pkg/utils"
)

const seenSeedPrefix = "crawler:seen:"

// VisitedRepoImpl provides a concrete implementation for the VisitedRepository interface using Redis.
type VisitedRepoImpl struct {
	client *redis.Client
	expiry time.Duration
}

// NewVisitedRepo creates a new instance of VisitedRepoImpl. Seed URLs are
// forgotten after expiry; zero keeps them forever.
func NewVisitedRepo(client *redis.Client, expiry time.Duration) *VisitedRepoImpl {
	return &VisitedRepoImpl{client: client, expiry: expiry}
}

// generateKey creates a consistent Redis key for a given seed URL by hashing it.
func (r *VisitedRepoImpl) generateKey(seedURL string) string {
	return fmt.Sprintf("%s%s", seenSeedPrefix, utils.HashURL(seedURL))
}

// MarkSeen sets the key of the seed URL unless it already exists. SETNX makes
// concurrent submissions of the same domain race-free.
func (r *VisitedRepoImpl) MarkSeen(ctx context.Context, seedURL string) (bool, error) {
	return r.client.SetNX(ctx, r.generateKey(seedURL), "1", r.expiry).Result()
}

// IsSeen checks for the existence of the seed URL key.
func (r *VisitedRepoImpl) IsSeen(ctx context.Context, seedURL string) (bool, error) {
	val, err := r.client.Exists(ctx, r.generateKey(seedURL)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// Forget removes a seed URL, used for forced crawls.
func (r *VisitedRepoImpl) Forget(ctx context.Context, seedURL string) error {
	return r.client.Del(ctx, r.generateKey(seedURL)).Err()
}
