package response

import "time"

// SubmitDomainsResponse reports the outcome of every submitted domain.
type SubmitDomainsResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Queued  []string       `json:"queued"`
	Skipped []SkippedEntry `json:"skipped,omitempty"`
}

// SkippedEntry is a submitted domain that was not queued.
type SkippedEntry struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

// CrawlStatusResponse is a DTO for crawl status, mirroring entity.CrawlStatus
type CrawlStatusResponse struct {
	Domain             string     `json:"domain"`
	CurrentStatus      string     `json:"current_status"` // "queued", "completed", "failed"
	LastBatchID        string     `json:"last_batch_id,omitempty"`
	LastCrawlTimestamp *time.Time `json:"last_crawl_timestamp,omitempty"`
	PageCount          int        `json:"page_count"`
	FailureReason      string     `json:"failure_reason,omitempty"`
}

type QueueResponse struct {
	Size int64 `json:"size"`
}
