package entity

import "time"

// CrawlStatus is the externally visible state of a domain in the pipeline.
type CrawlStatus struct {
	Domain             string
	CurrentStatus      string // "queued", "completed", "failed", "not_found"
	LastBatchID        string
	LastCrawlTimestamp *time.Time
	PageCount          int
	FailureReason      string
}

const (
	StatusQueued    = "queued"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusNotFound  = "not_found"
)
