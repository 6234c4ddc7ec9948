package repository

import "context"

// VisitedRepository deduplicates domain tasks by their normalized seed URL.
type VisitedRepository interface {
	// MarkSeen records the seed URL and reports whether it was new.
	MarkSeen(ctx context.Context, seedURL string) (bool, error)
	// IsSeen checks whether the seed URL has been recorded.
	IsSeen(ctx context.Context, seedURL string) (bool, error)
	// Forget removes a seed URL, used to force a new crawl.
	Forget(ctx context.Context, seedURL string) error
}
