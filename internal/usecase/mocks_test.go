package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/user/contact-crawler/internal/entity"
	"github.com/user/contact-crawler/internal/repository"
	"github.com/user/contact-crawler/pkg/metrics"
)

// Mocks
type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) Push(ctx context.Context, task entity.DomainTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockQueueRepository) Pop(ctx context.Context) (entity.DomainTask, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.DomainTask), args.Error(1)
}

func (m *MockQueueRepository) Ack(ctx context.Context, task entity.DomainTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockQueueRepository) Requeue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueueRepository) Size(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) Emit(ctx context.Context, batch *entity.DomainResultBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) LatestStatus(ctx context.Context, domain string) (*entity.CrawlStatus, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CrawlStatus), args.Error(1)
}

type MockVisitedRepository struct {
	mock.Mock
}

func (m *MockVisitedRepository) MarkSeen(ctx context.Context, seedURL string) (bool, error) {
	args := m.Called(ctx, seedURL)
	return args.Bool(0), args.Error(1)
}

func (m *MockVisitedRepository) IsSeen(ctx context.Context, seedURL string) (bool, error) {
	args := m.Called(ctx, seedURL)
	return args.Bool(0), args.Error(1)
}

func (m *MockVisitedRepository) Forget(ctx context.Context, seedURL string) error {
	args := m.Called(ctx, seedURL)
	return args.Error(0)
}

type MockArtifactRepository struct {
	mock.Mock
}

func (m *MockArtifactRepository) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

type MockDomainCrawlRunner struct {
	mock.Mock
}

func (m *MockDomainCrawlRunner) Crawl(ctx context.Context, task entity.DomainTask) (*entity.DomainResultBatch, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DomainResultBatch), args.Error(1)
}

// fakePage is what the fake browser renders for a URL.
type fakePage struct {
	html   string
	text   string
	links  []string
	title  string
	frames []string
}

// fakeSite serves scripted pages to every session it hands out and records
// what the sessions were asked to do.
type fakeSite struct {
	mu              sync.Mutex
	pages           map[string]fakePage
	navFailures     map[string]int
	acquireFailures int
	titleErr        error

	navigations []string
	acquired    int
	closed      int
}

func newFakeSite(pages map[string]fakePage) *fakeSite {
	return &fakeSite{pages: pages, navFailures: map[string]int{}}
}

func (s *fakeSite) Acquire(ctx context.Context) (repository.BrowserSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireFailures > 0 {
		s.acquireFailures--
		return nil, errors.New("browser crashed on launch")
	}
	s.acquired++
	return &fakeBrowser{site: s}, nil
}

func (s *fakeSite) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

type fakeBrowser struct {
	site    *fakeSite
	current fakePage
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) (*entity.Response, error) {
	s := b.site
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, url)
	if s.navFailures[url] > 0 {
		s.navFailures[url]--
		return nil, errors.New("net::ERR_CONNECTION_RESET")
	}
	page, ok := s.pages[url]
	if !ok {
		return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	b.current = page
	return &entity.Response{
		URL:           url,
		Status:        200,
		RemoteAddress: "127.0.0.1:80",
		Headers:       map[string]string{"content-type": "text/html"},
	}, nil
}

func (b *fakeBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("jpeg"), nil
}

func (b *fakeBrowser) Content(ctx context.Context) (string, error) {
	return b.current.html, nil
}

func (b *fakeBrowser) Title(ctx context.Context) (string, error) {
	if b.site.titleErr != nil {
		return "", b.site.titleErr
	}
	return b.current.title, nil
}

func (b *fakeBrowser) Links(ctx context.Context) ([]string, error) {
	return b.current.links, nil
}

func (b *fakeBrowser) Text(ctx context.Context) (string, error) {
	return b.current.text, nil
}

func (b *fakeBrowser) FrameContents(ctx context.Context) ([]string, error) {
	return b.current.frames, nil
}

func (b *fakeBrowser) Close() error {
	b.site.mu.Lock()
	defer b.site.mu.Unlock()
	b.site.closed++
	return nil
}

func newTestMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	return metrics.New(prometheus.NewRegistry())
}
