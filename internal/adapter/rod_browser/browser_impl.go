package rod_browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
	"github.com/ysmood/gson"
	"go.uber.org/zap"
)

const (
	viewportWidth     = 900
	viewportHeight    = 800
	screenshotQuality = 60
	frameTimeout      = 5 * time.Second

	linksScript = `() => Array.from(document.querySelectorAll('a')).map(a => a.href).filter(href => !!href)`
	textScript  = `() => document.body ? document.body.innerText : ''`
)

// Options configures the browser launched by the provider.
type Options struct {
	Headless        bool
	PageLoadTimeout time.Duration
}

// Provider shares one launched browser and hands out a separate incognito
// context for every session, so sessions never share cookies or cache.
type Provider struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
	logger   *zap.Logger
}

// NewProvider launches the browser and connects to it.
func NewProvider(opts Options, logger *zap.Logger) (*Provider, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	if err := browser.IgnoreCertErrors(true); err != nil {
		logger.Warn("failed to ignore certificate errors", zap.Error(err))
	}

	return &Provider{launcher: l, browser: browser, timeout: opts.PageLoadTimeout, logger: logger}, nil
}

func (p *Provider) Acquire(ctx context.Context) (repository.BrowserSession, error) {
	incognito, err := p.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	//Don't download files in the browser, e.g. pdf files
	err = proto.BrowserSetDownloadBehavior{
		Behavior:         proto.BrowserSetDownloadBehaviorBehaviorDeny,
		BrowserContextID: incognito.BrowserContextID,
	}.Call(incognito)
	if err != nil {
		p.logger.Debug("failed to deny downloads", zap.Error(err))
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: viewportWidth, Height: viewportHeight})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return &session{browser: incognito, page: page, timeout: p.timeout}, nil
}

// Close shuts the browser down.
func (p *Provider) Close() {
	if err := p.browser.Close(); err != nil {
		p.logger.Debug("failed to close browser", zap.Error(err))
	}
	p.launcher.Cleanup()
}

type session struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

// bound returns the page bound to ctx and the page load timeout.
func (s *session) bound(ctx context.Context) *rod.Page {
	p := s.page.Context(ctx)
	if s.timeout > 0 {
		p = p.Timeout(s.timeout)
	}
	return p
}

func (s *session) Navigate(ctx context.Context, url string) (*entity.Response, error) {
	p := s.bound(ctx)
	defer p.CancelTimeout()

	var (
		mu   sync.Mutex
		resp *proto.NetworkResponse
	)
	events, stop := context.WithCancel(p.GetContext())
	defer stop()
	wait := p.Context(events).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.FrameID != s.page.FrameID {
			return false
		}
		mu.Lock()
		resp = e.Response
		mu.Unlock()
		return true
	})
	go wait()

	if err := p.Navigate(url); err != nil {
		return nil, navigationError(ctx, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, navigationError(ctx, url, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if resp == nil {
		info, err := s.page.Info()
		if err != nil {
			return &entity.Response{URL: url}, nil
		}
		return &entity.Response{URL: info.URL}, nil
	}
	return toResponse(resp), nil
}

func navigationError(ctx context.Context, url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %w: %s", repository.ErrNavigationFailed, repository.ErrCrawlTimeout, url)
	}
	return fmt.Errorf("%w: %w", repository.ErrNavigationFailed, err)
}

func (s *session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.bound(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(screenshotQuality),
	})
}

func (s *session) Content(ctx context.Context) (string, error) {
	return s.bound(ctx).HTML()
}

func (s *session) Title(ctx context.Context) (string, error) {
	info, err := s.bound(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (s *session) Links(ctx context.Context) ([]string, error) {
	res, err := s.bound(ctx).Eval(linksScript)
	if err != nil {
		return nil, err
	}
	values := res.Value.Arr()
	links := make([]string, 0, len(values))
	for _, v := range values {
		links = append(links, v.Str())
	}
	return links, nil
}

func (s *session) Text(ctx context.Context) (string, error) {
	res, err := s.bound(ctx).Eval(textScript)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// FrameContents returns the HTML of every iframe of the main document.
// Frames that cannot be read are skipped.
func (s *session) FrameContents(ctx context.Context) ([]string, error) {
	elements, err := s.bound(ctx).Elements("iframe, frame")
	if err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(elements))
	for _, el := range elements {
		frame, err := el.Timeout(frameTimeout).Frame()
		if err != nil {
			continue
		}
		html, err := frame.Timeout(frameTimeout).HTML()
		if err != nil {
			continue
		}
		contents = append(contents, html)
	}
	return contents, nil
}

// Close closes the incognito context together with its pages.
func (s *session) Close() error {
	return s.browser.Close()
}

func toResponse(resp *proto.NetworkResponse) *entity.Response {
	r := &entity.Response{
		URL:     resp.URL,
		Status:  resp.Status,
		Headers: make(map[string]string, len(resp.Headers)),
	}
	if resp.RemoteIPAddress != "" {
		r.RemoteAddress = resp.RemoteIPAddress
		if port := remotePort(resp.RemotePort); port != "" {
			r.RemoteAddress = net.JoinHostPort(resp.RemoteIPAddress, port)
		}
	}
	for name, value := range resp.Headers {
		r.Headers[name] = value.Str()
	}
	if sd := resp.SecurityDetails; sd != nil {
		r.TLS = &entity.TLSInfo{
			Issuer:      sd.Issuer,
			Protocol:    sd.Protocol,
			SubjectName: sd.SubjectName,
			ValidFrom:   sd.ValidFrom.Time().UTC(),
			ValidTo:     sd.ValidTo.Time().UTC(),
		}
	}
	return r
}

// remotePort formats the optional port field of a response.
func remotePort(v any) string {
	switch p := v.(type) {
	case int:
		if p > 0 {
			return strconv.Itoa(p)
		}
	case *int:
		if p != nil && *p > 0 {
			return strconv.Itoa(*p)
		}
	}
	return ""
}
