package repository

import "errors"

var (
	// ErrNavigationFailed marks a page load that did not produce a document.
	// The crawl controller retries these with a fresh browser session.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrCrawlTimeout is wrapped together with ErrNavigationFailed when the
	// page load timeout expired.
	ErrCrawlTimeout = errors.New("page load timed out")
	// ErrSessionUnavailable is returned when no browser session can be acquired.
	ErrSessionUnavailable = errors.New("browser session unavailable")
	// ErrQueueEmpty is returned by Pop when there is no task to hand out.
	ErrQueueEmpty = errors.New("queue is empty")
	// ErrNotFound is returned by lookups that matched nothing.
	ErrNotFound = errors.New("not found")
)

// ErrStorageFailed wraps failures of the artifact and record sinks.
var ErrStorageFailed = errors.New("storage failed")
