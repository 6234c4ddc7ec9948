package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
	"go.uber.org/zap"
)

const (
	viewportWidth     = 900
	viewportHeight    = 800
	screenshotQuality = 60
	frameTimeout      = 5 * time.Second
	defaultUserAgent  = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36`

	linksScript = `Array.from(document.querySelectorAll('a')).map(a => a.href).filter(href => !!href)`
	textScript  = `document.body ? document.body.innerText : ''`
)

// Options configures the Chrome instances started by the provider.
type Options struct {
	Headless        bool
	PageLoadTimeout time.Duration
	UserAgent       string
}

// Provider starts a separate Chrome browser for every acquired session.
type Provider struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	logger      *zap.Logger
}

// NewProvider creates a new session provider using chromedp.
func NewProvider(opts Options, logger *zap.Logger) *Provider {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &Provider{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		timeout:     opts.PageLoadTimeout,
		logger:      logger,
	}
}

// Acquire launches a fresh browser and returns its first tab.
func (p *Provider) Acquire(ctx context.Context) (repository.BrowserSession, error) {
	sugar := p.logger.Sugar()
	browserCtx, cancel := chromedp.NewContext(p.allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// The first Run allocates the browser and ties it to the context it is
	// given, so it must run on browserCtx itself.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(browserCtx, chromedp.EmulateViewport(viewportWidth, viewportHeight)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &session{ctx: browserCtx, cancel: cancel, timeout: p.timeout}, nil
}

// Close shuts down every browser started by the provider.
func (p *Provider) Close() {
	p.cancelAlloc()
}

type session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// run executes actions in the tab, bounded by the caller's context and the
// page load timeout.
func (s *session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, stop := mergeCancel(s.ctx, ctx)
	defer stop()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *session) Navigate(ctx context.Context, url string) (*entity.Response, error) {
	runCtx, stop := mergeCancel(s.ctx, ctx)
	defer stop()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
		defer cancel()
	}

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %w: %s", repository.ErrNavigationFailed, repository.ErrCrawlTimeout, url)
		}
		return nil, fmt.Errorf("%w: %w", repository.ErrNavigationFailed, err)
	}
	if resp == nil {
		return &entity.Response{URL: url}, nil
	}
	return toResponse(resp), nil
}

func (s *session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, screenshotQuality)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *session) Content(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *session) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, chromedp.Title(&title))
	return title, err
}

func (s *session) Links(ctx context.Context) ([]string, error) {
	var links []string
	err := s.run(ctx, chromedp.Evaluate(linksScript, &links))
	return links, err
}

func (s *session) Text(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, chromedp.Evaluate(textScript, &text))
	return text, err
}

// FrameContents returns the HTML of every iframe of the main document.
// Frames that cannot be read are skipped.
func (s *session) FrameContents(ctx context.Context) ([]string, error) {
	var frames []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes("iframe, frame", &frames, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(frames))
	for _, frame := range frames {
		frameCtx, cancel := context.WithTimeout(ctx, frameTimeout)
		var html string
		err := s.run(frameCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery, chromedp.FromNode(frame)))
		cancel()
		if err != nil {
			continue
		}
		contents = append(contents, html)
	}
	return contents, nil
}

func (s *session) Close() error {
	s.cancel()
	return nil
}

func toResponse(resp *network.Response) *entity.Response {
	r := &entity.Response{
		URL:     resp.URL,
		Status:  int(resp.Status),
		Headers: make(map[string]string, len(resp.Headers)),
	}
	if resp.RemoteIPAddress != "" {
		r.RemoteAddress = net.JoinHostPort(resp.RemoteIPAddress, strconv.FormatInt(resp.RemotePort, 10))
	}
	for name, value := range resp.Headers {
		r.Headers[name] = fmt.Sprint(value)
	}
	if sd := resp.SecurityDetails; sd != nil {
		r.TLS = &entity.TLSInfo{
			Issuer:      sd.Issuer,
			Protocol:    sd.Protocol,
			SubjectName: sd.SubjectName,
			ValidFrom:   epochTime(sd.ValidFrom),
			ValidTo:     epochTime(sd.ValidTo),
		}
	}
	return r
}

func epochTime(t *cdp.TimeSinceEpoch) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time().UTC()
}

// mergeCancel returns a child of base that is also canceled when other is done.
func mergeCancel(base, other context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(base)
	stop := context.AfterFunc(other, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
