package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
	"github.com/user/contact-crawler/pkg/metrics"
	"github.com/user/contact-crawler/pkg/utils"
	"go.uber.org/zap"
)

// CrawlOptions controls which pages are visited for a domain.
type CrawlOptions struct {
	MaxRequestRetries int
	CrawlHTTPSVersion bool
	CrawlWWWSubdomain bool
	CrawlLinkCount    int
}

// PageLoader processes one page with an already navigable session.
type PageLoader interface {
	Process(ctx context.Context, session *DomainCrawlSession, pageURL string) (*entity.PageResult, error)
}

// DomainCrawler visits the primary page of a domain and a bounded number of
// its sublinks, one page at a time, with a single browser session.
type DomainCrawler struct {
	sessions repository.SessionProvider
	pages    PageLoader
	opts     CrawlOptions
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewDomainCrawler(
	sessions repository.SessionProvider,
	pages PageLoader,
	opts CrawlOptions,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DomainCrawler {
	if opts.MaxRequestRetries < 0 {
		opts.MaxRequestRetries = 0
	}
	return &DomainCrawler{
		sessions: sessions,
		pages:    pages,
		opts:     opts,
		metrics:  m,
		logger:   logger,
	}
}

// Crawl produces the result batch of a domain. A primary page that cannot be
// loaded yields a batch holding a single error record. Errors are only
// returned for storage failures and context cancellation.
func (c *DomainCrawler) Crawl(ctx context.Context, task entity.DomainTask) (*entity.DomainResultBatch, error) {
	log := c.logger.With(zap.String("domain", task.Domain))
	session := NewDomainCrawlSession(task.Domain, nil)
	defer func() {
		if err := session.Close(); err != nil {
			log.Debug("failed to close browser session", zap.Error(err))
		}
	}()

	seedURL := task.SeedURL()
	session.beginPage()
	primary, err := c.load(ctx, session, seedURL)
	if err != nil {
		return nil, err
	}
	if primary.Failed() {
		log.Warn("primary page failed, skipping sublinks", zap.String("error", primary.ErrorMessage))
		return entity.NewDomainResultBatch(task.Domain, []*entity.PageResult{primary}), nil
	}

	plan := c.plan(task, primary.OutboundLinks)
	pages := make([]*entity.PageResult, 0, len(plan)+1)
	pages = append(pages, primary)
	for _, entry := range plan {
		session.beginPage()
		page, err := c.load(ctx, session, entry.URL)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	log.Info("domain crawled", zap.Int("pages", len(pages)))
	return entity.NewDomainResultBatch(task.Domain, pages), nil
}

// plan lists the pages visited after the primary one: the seed variants and
// then the best ranked in-scope sublinks. Nothing is planned without a link
// budget.
func (c *DomainCrawler) plan(task entity.DomainTask, links []string) []entity.CrawlPlanEntry {
	if c.opts.CrawlLinkCount <= 0 {
		return nil
	}

	variants := task.SeedVariants(c.opts.CrawlHTTPSVersion, c.opts.CrawlWWWSubdomain)
	omit := make(map[string]struct{}, len(variants)+1)
	omit[task.SeedURL()] = struct{}{}

	plan := make([]entity.CrawlPlanEntry, 0, len(variants)+c.opts.CrawlLinkCount)
	for _, v := range variants {
		omit[v] = struct{}{}
		plan = append(plan, entity.CrawlPlanEntry{URL: v, IsSeedVariant: true})
	}

	sublinks := PrioritizeSublinks(utils.FilterToDomain(links, task.Domain, omit))
	if len(sublinks) > c.opts.CrawlLinkCount {
		sublinks = sublinks[:c.opts.CrawlLinkCount]
	}
	for _, link := range sublinks {
		plan = append(plan, entity.CrawlPlanEntry{URL: link})
	}
	return plan
}

// load tries a page up to MaxRequestRetries+1 times. After a navigation
// failure the browser session is discarded and a fresh one is acquired for
// the next attempt. When every attempt fails the last error becomes an
// error record.
func (c *DomainCrawler) load(ctx context.Context, session *DomainCrawlSession, pageURL string) (*entity.PageResult, error) {
	log := c.logger.With(zap.String("domain", session.Domain), zap.String("url", pageURL))
	attempts := c.opts.MaxRequestRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 1 {
			c.metrics.NavigationRetries.Inc()
			log.Info("retrying page", zap.Int("attempt", attempt), zap.Error(lastErr))
		}

		if session.Browser == nil {
			browser, err := c.sessions.Acquire(ctx)
			if err != nil {
				lastErr = fmt.Errorf("%w: %w", repository.ErrSessionUnavailable, err)
				continue
			}
			session.Browser = browser
		}

		start := time.Now()
		page, err := c.pages.Process(ctx, session, pageURL)
		if err == nil {
			c.metrics.PagesTotal.WithLabelValues("success").Inc()
			log.Debug("page loaded", zap.Int("attempt", attempt), zap.Duration("duration", time.Since(start)))
			return page, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, repository.ErrNavigationFailed) {
			return nil, err
		}

		lastErr = err
		log.Warn("page load failed", zap.Int("attempt", attempt), zap.Error(err))
		session.replaceBrowser(nil)
	}

	c.metrics.PagesTotal.WithLabelValues("failure").Inc()
	message := "Unknown error"
	if lastErr != nil {
		message = lastErr.Error()
	}
	return entity.NewPageError(session.Domain, pageURL, message), nil
}
