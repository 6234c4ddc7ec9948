package repository

import (
	"context"

	"github.com/user/contact-crawler/internal/entity"
)

// BrowserSession is a single rendering browser tab owned by one domain crawl.
type BrowserSession interface {
	// Navigate loads url and returns the main document response. Failures wrap ErrNavigationFailed.
	Navigate(ctx context.Context, url string) (*entity.Response, error)
	// Screenshot captures the full page as JPEG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Content returns the rendered HTML of the main frame.
	Content(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// Links returns the absolute href of every anchor on the page.
	Links(ctx context.Context) ([]string, error)
	// Text returns the rendered text of the page body.
	Text(ctx context.Context) (string, error)
	// FrameContents returns the rendered HTML of every child frame.
	FrameContents(ctx context.Context) ([]string, error)
	Close() error
}

// SessionProvider hands out fresh, exclusively owned browser sessions.
type SessionProvider interface {
	Acquire(ctx context.Context) (BrowserSession, error)
}
