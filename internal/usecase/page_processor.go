package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/user/contact-crawler/internal/contact"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/htmldoc"
	"github.com/user/contact-crawler/internal/repository"
	"github.com/user/contact-crawler/pkg/metrics"
	"github.com/user/contact-crawler/pkg/utils"
	"go.uber.org/zap"
)

const (
	screenshotContentType = "image/jpeg"
	htmlContentType       = "text/html; charset=utf-8"
	frameTextSeparator    = "\n\n"
)

// PageOptions selects which optional parts of a page are captured.
type PageOptions struct {
	SaveScreenshot      bool
	SaveHTML            bool
	SaveHTMLContent     bool
	SaveText            bool
	ConsiderChildFrames bool
}

// DomainCrawlSession is the state of one domain crawl: the browser session
// it exclusively owns and the running page index used for artifact keys.
type DomainCrawlSession struct {
	Domain  string
	Browser repository.BrowserSession

	pageIndex int
	nextIndex int
}

func NewDomainCrawlSession(domain string, browser repository.BrowserSession) *DomainCrawlSession {
	return &DomainCrawlSession{Domain: domain, Browser: browser}
}

// beginPage assigns the index of the next visited URL. Retries of the same
// URL keep the index.
func (s *DomainCrawlSession) beginPage() int {
	s.pageIndex = s.nextIndex
	s.nextIndex++
	return s.pageIndex
}

// PageIndex is the index of the page currently being visited.
func (s *DomainCrawlSession) PageIndex() int {
	return s.pageIndex
}

// replaceBrowser closes the current browser, ignoring errors, and installs next.
func (s *DomainCrawlSession) replaceBrowser(next repository.BrowserSession) {
	if s.Browser != nil {
		_ = s.Browser.Close()
	}
	s.Browser = next
}

// Close releases the browser session.
func (s *DomainCrawlSession) Close() error {
	if s.Browser == nil {
		return nil
	}
	err := s.Browser.Close()
	s.Browser = nil
	return err
}

// PageProcessor turns one loaded page into a PageResult.
type PageProcessor struct {
	artifacts repository.ArtifactRepository
	extractor *contact.Extractor
	opts      PageOptions
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewPageProcessor(
	artifacts repository.ArtifactRepository,
	extractor *contact.Extractor,
	opts PageOptions,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PageProcessor {
	return &PageProcessor{
		artifacts: artifacts,
		extractor: extractor,
		opts:      opts,
		metrics:   m,
		logger:    logger,
	}
}

// Process navigates the session browser to pageURL and collects everything
// about the page. A navigation failure is returned wrapping
// repository.ErrNavigationFailed; artifact storage failures are returned
// as they are. Any other capture problem only degrades the result.
func (p *PageProcessor) Process(ctx context.Context, session *DomainCrawlSession, pageURL string) (*entity.PageResult, error) {
	log := p.logger.With(zap.String("domain", session.Domain), zap.String("url", pageURL))
	log.Info("processing page")

	browser := session.Browser
	resp, err := browser.Navigate(ctx, pageURL)
	if err != nil {
		if !errors.Is(err, repository.ErrNavigationFailed) {
			err = fmt.Errorf("%w: %w", repository.ErrNavigationFailed, err)
		}
		return nil, err
	}

	result := &entity.PageResult{
		Domain:          session.Domain,
		URL:             pageURL,
		ResponseURL:     resp.URL,
		HTTPStatus:      resp.Status,
		RemoteAddress:   resp.RemoteAddress,
		ResponseHeaders: resp.Headers,
		TLS:             resp.TLS,
		LoadedAt:        time.Now(),
	}
	indexStr := fmt.Sprintf("%02d", session.PageIndex())

	if p.opts.SaveScreenshot {
		ref, err := p.captureScreenshot(ctx, session, indexStr, log)
		if err != nil {
			return nil, err
		}
		result.Artifacts.Screenshot = ref
	}

	html, err := browser.Content(ctx)
	if err != nil {
		log.Warn("failed to capture page content", zap.Error(err))
	}

	if p.opts.SaveHTML && err == nil {
		key := fmt.Sprintf("content-%s-%s.html", session.Domain, indexStr)
		ref, err := p.storeArtifact(ctx, "html", key, []byte(html), htmlContentType)
		if err != nil {
			return nil, err
		}
		result.Artifacts.HTML = ref
	}
	if p.opts.SaveHTMLContent {
		result.Artifacts.HTMLContent = html
	}

	baseURL := pageURL
	if resp.URL != "" {
		baseURL = resp.URL
	}

	var diagnostics []string
	doc, err := htmldoc.Parse(html, baseURL)
	if err != nil {
		diagnostics = append(diagnostics, err.Error())
	}

	mainSource, sourceDiags := p.mainSource(ctx, browser, doc, log)
	diagnostics = append(diagnostics, sourceDiags...)
	sources := []contact.Source{mainSource}
	text := mainSource.Text

	if p.opts.ConsiderChildFrames {
		frames, frameDiags := p.frameSources(ctx, browser, log)
		diagnostics = append(diagnostics, frameDiags...)
		for _, frame := range frames {
			sources = append(sources, frame)
			if frame.Text != "" {
				text += frameTextSeparator + frame.Text
			}
		}
	}

	extracted := p.extractor.ExtractSources(sources...)
	result.Contacts = extracted.Record
	diagnostics = append(diagnostics, extracted.Diagnostics...)
	if len(diagnostics) > 0 {
		log.Warn("contact extraction reported problems", zap.Strings("diagnostics", diagnostics))
		text = strings.TrimSpace(text + "\n\nError occurred while parsing the HTML: " + strings.Join(diagnostics, "; "))
	}
	if p.opts.SaveText {
		result.Artifacts.Text = text
	}

	links := mainSource.Links
	if doc != nil {
		links = append(slices.Clone(links), doc.MetaRefreshTargets()...)
	}
	result.OutboundLinks = normalizeLinks(links)

	if title, err := browser.Title(ctx); err == nil {
		result.Title = title
	} else {
		log.Warn("failed to read page title", zap.Error(err))
		if doc != nil {
			result.Title = doc.Title()
		}
	}

	return result, nil
}

func (p *PageProcessor) captureScreenshot(ctx context.Context, session *DomainCrawlSession, indexStr string, log *zap.Logger) (*entity.ArtifactRef, error) {
	shot, err := session.Browser.Screenshot(ctx)
	if err != nil {
		log.Warn("failed to capture screenshot", zap.Error(err))
		return nil, nil
	}
	key := fmt.Sprintf("screenshot-%s-%s.jpg", session.Domain, indexStr)
	return p.storeArtifact(ctx, "screenshot", key, shot, screenshotContentType)
}

func (p *PageProcessor) storeArtifact(ctx context.Context, kind, key string, data []byte, contentType string) (*entity.ArtifactRef, error) {
	ref, err := p.artifacts.Store(ctx, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to store %s artifact %s: %w", repository.ErrStorageFailed, kind, key, err)
	}
	p.metrics.ArtifactsStored.WithLabelValues(kind).Inc()
	return &entity.ArtifactRef{URL: ref, Length: len(data)}, nil
}

// mainSource gathers the text, links and structured data of the main frame,
// preferring what the browser reports over what the static HTML contains.
func (p *PageProcessor) mainSource(ctx context.Context, browser repository.BrowserSession, doc *htmldoc.Document, log *zap.Logger) (contact.Source, []string) {
	var (
		src         contact.Source
		diagnostics []string
	)

	text, err := browser.Text(ctx)
	switch {
	case err == nil:
		src.Text = text
	case doc != nil:
		log.Warn("failed to read rendered text, falling back to html", zap.Error(err))
		src.Text = doc.Text()
	}

	links, err := browser.Links(ctx)
	switch {
	case err == nil:
		src.Links = links
	case doc != nil:
		log.Warn("failed to read rendered links, falling back to html", zap.Error(err))
		src.Links = doc.Links()
	}

	if doc != nil {
		structured, errs := doc.JSONLD()
		src.Structured = structured
		for _, e := range errs {
			diagnostics = append(diagnostics, e.Error())
		}
	}
	return src, diagnostics
}

func (p *PageProcessor) frameSources(ctx context.Context, browser repository.BrowserSession, log *zap.Logger) ([]contact.Source, []string) {
	contents, err := browser.FrameContents(ctx)
	if err != nil {
		log.Warn("failed to read child frames", zap.Error(err))
		return nil, nil
	}

	var (
		sources     []contact.Source
		diagnostics []string
	)
	for i, content := range contents {
		doc, err := htmldoc.Parse(content, "")
		if err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("frame %d: %v", i, err))
			continue
		}
		structured, errs := doc.JSONLD()
		for _, e := range errs {
			diagnostics = append(diagnostics, fmt.Sprintf("frame %d: %v", i, e))
		}
		sources = append(sources, contact.Source{
			Text:       doc.Text(),
			Links:      doc.Links(),
			Structured: structured,
		})
	}
	return sources, diagnostics
}

// normalizeLinks normalizes, sorts and deduplicates outbound links.
func normalizeLinks(links []string) []string {
	normalized := make([]string, 0, len(links))
	for _, link := range links {
		if link == "" {
			continue
		}
		normalized = append(normalized, utils.NormalizeURL(link))
	}
	slices.Sort(normalized)
	return slices.Compact(normalized)
}
